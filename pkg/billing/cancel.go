package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrymomot/biolink/pkg/logger"
)

// Cancel ends the user's entitlement immediately. The processor is not
// contacted: charges are per period, so there is no recurring billing to
// stop. It returns false when the user holds no live subscription.
//
// subscriptionID may be uuid.Nil to cancel whatever the user holds; a
// non-nil id must belong to the user or ErrNotFound is returned.
func (s *Service) Cancel(ctx context.Context, userID, subscriptionID uuid.UUID) (bool, error) {
	var (
		sub Subscription
		err error
	)
	if subscriptionID == uuid.Nil {
		sub, err = s.store.GetSubscription(ctx, userID)
	} else {
		sub, err = s.store.GetSubscriptionByID(ctx, subscriptionID)
		if err == nil && sub.UserID != userID {
			err = ErrNotFound
		}
	}
	switch {
	case errors.Is(err, ErrNotFound) && subscriptionID == uuid.Nil:
		return false, nil
	case err != nil:
		return false, err
	}

	now := s.now()
	if !sub.Live(now) {
		return false, nil
	}
	ok, err := s.store.CancelSubscription(ctx, sub.ID, now)
	if err != nil {
		return false, fmt.Errorf("cancel subscription: %w", err)
	}
	if ok {
		s.log.InfoContext(ctx, "subscription canceled",
			logger.Event("subscription_canceled"),
			logger.UserID(userID),
			logger.SubscriptionID(sub.ID),
			logger.PlanID(sub.PlanID),
		)
	}
	return ok, nil
}
