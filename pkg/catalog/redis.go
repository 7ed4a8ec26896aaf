package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 3

// Redis stores the whole catalog as one JSON document under a single key so
// that a replacement is a single SET and readers never see a mix of old and
// new plans. Every read goes to Redis so all instances agree.
type Redis struct {
	client redis.UniversalClient
	key    string
	opts   options
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisDocument struct {
	Plans []Plan `json:"plans"`
}

// NewRedis returns a Redis-backed catalog and seeds key with seed if it is empty.
func NewRedis(ctx context.Context, client redis.UniversalClient, key string, seed []Plan, opts ...Option) (*Redis, error) {
	if key == "" {
		key = "billing:plan_catalog"
	}
	r := &Redis{client: client, key: key, opts: buildOptions(opts)}

	if err := ValidateAll(seed); err != nil {
		return nil, err
	}
	payload, err := encode(seed)
	if err != nil {
		return nil, err
	}
	if err := client.SetNX(ctx, key, payload, 0).Err(); err != nil {
		return nil, errors.Join(ErrCatalogStore, err)
	}
	return r, nil
}

func (r *Redis) Get(ctx context.Context, id string) (Plan, error) {
	plans, err := r.load(ctx, r.client)
	if err != nil {
		return Plan{}, err
	}
	return find(plans, id)
}

func (r *Redis) All(ctx context.Context) ([]Plan, error) {
	return r.load(ctx, r.client)
}

func (r *Redis) Replace(ctx context.Context, plans []Plan) error {
	if err := ValidateAll(plans); err != nil {
		return err
	}
	next := cloneAll(plans)
	SortByRank(next)
	payload, err := encode(next)
	if err != nil {
		return err
	}

	return r.watch(ctx, func(tx *redis.Tx) error {
		prev, err := r.load(ctx, tx)
		if err != nil {
			return err
		}
		if err := r.opts.checkRemovals(ctx, prev, next); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, payload, 0)
			return nil
		})
		return err
	})
}

func (r *Redis) Update(ctx context.Context, id string, raw map[string]any) (Plan, error) {
	var updated Plan
	err := r.watch(ctx, func(tx *redis.Tx) error {
		prev, err := r.load(ctx, tx)
		if err != nil {
			return err
		}
		next, plan, err := applyUpdate(prev, id, raw)
		if err != nil {
			return err
		}
		payload, err := encode(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, payload, 0)
			return nil
		})
		updated = plan
		return err
	})
	if err != nil {
		return Plan{}, err
	}
	return updated, nil
}

// watch runs fn in an optimistic WATCH/MULTI transaction, retrying when the
// key changes underneath it.
func (r *Redis) watch(ctx context.Context, fn func(tx *redis.Tx) error) error {
	for range maxUpdateAttempts {
		err := r.client.Watch(ctx, fn, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrUpdateConflict
}

func (r *Redis) load(ctx context.Context, c getter) ([]Plan, error) {
	raw, err := c.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: key %q is empty", ErrCatalogLoad, r.key)
	}
	if err != nil {
		return nil, errors.Join(ErrCatalogLoad, err)
	}

	var doc redisDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrCatalogLoad, err)
	}
	SortByRank(doc.Plans)
	return doc.Plans, nil
}

func encode(plans []Plan) ([]byte, error) {
	payload, err := json.Marshal(redisDocument{Plans: plans})
	if err != nil {
		return nil, errors.Join(ErrCatalogStore, err)
	}
	return payload, nil
}
