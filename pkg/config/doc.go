// Package config loads application configuration from environment variables
// into annotated structs.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
// the default `.env` file is loaded once per process (missing files are fine),
// then the environment is parsed into the target struct by field tags. Each
// struct type is parsed at most once and served from an in-process cache on
// subsequent calls, which keeps per-package Config structs cheap to load from
// anywhere in the engine.
//
// # Usage
//
//	type DispatcherConfig struct {
//	    Workers int           `env:"PUSH_WORKERS" envDefault:"8"`
//	    Timeout time.Duration `env:"PUSH_SEND_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg DispatcherConfig
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Use Reset in tests to clear the cache after mutating the process
// environment.
package config
