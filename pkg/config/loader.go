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
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	dotenvOnce sync.Once
)

// Load populates v from the process environment.
//
// The default .env file is loaded once per process before the first parse;
// a missing .env file is not an error. Each configuration type is parsed at
// most once: later calls for the same type return the cached copy, so
// concurrent loads of shared Config structs are cheap and consistent.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// The .env file is optional; env vars may come from the real environment.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	cacheMu.RLock()
	cached, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()

	// Re-check under the write lock: another goroutine may have parsed the
	// same type between the two lock acquisitions.
	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[key] = *v // store a copy so callers cannot mutate the cached value
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Intended for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// Reset clears the configuration cache. The next Load for any type re-parses
// the environment. Intended for tests that mutate env vars.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]any)
}

// typeName returns a stable identifier for the generic type T.
func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	// Interface types have no concrete reflect.Type for the zero value.
	return fmt.Sprintf("%T", *new(T))
}
