package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cache   sync.Map // reflect.Type -> any
	envOnce sync.Once
)

// LoadEnvFiles loads dotenv files into the process environment. Missing files
// are ignored; existing variables are never overridden. It runs once, the
// first call wins.
func LoadEnvFiles(files ...string) {
	envOnce.Do(func() {
		_ = godotenv.Load(files...)
	})
}

// Load parses environment variables into v based on its `env` tags.
// Each configuration type is parsed once and cached for the process lifetime.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	LoadEnvFiles()

	key := reflect.TypeFor[T]()
	if cached, ok := cache.Load(key); ok {
		*v = cached.(T)
		return nil
	}

	parsed, err := env.ParseAs[T]()
	if err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	actual, _ := cache.LoadOrStore(key, parsed)
	*v = actual.(T)
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load %s configuration: %v", reflect.TypeFor[T](), err))
	}
}
