// Package config provides type-safe environment variable loading for the
// engine's tunables, with per-type caching so repeated calls to Load for
// the same config type are free after the first.
package config

import (
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var envLoadOnce sync.Once

// loadDotEnv loads a .env file into the process environment, once, best
// effort (a missing .env file is not an error — most deployments have none).
func loadDotEnv() {
	envLoadOnce.Do(func() {
		_ = godotenv.Load()
	})
}

var (
	cacheMu sync.Mutex
	cache   = map[string]any{}
)

// SessionConfig holds the tunables for one HttpSession: the shared pool
// size, default per-request timeout, redirect-following cap, and the
// connection map's LRU capacity.
type SessionConfig struct {
	PoolSize         int           `env:"ASYNCHTTP_POOL_SIZE" envDefault:"8"`
	RequestTimeout   time.Duration `env:"ASYNCHTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	MaxRedirects     int           `env:"ASYNCHTTP_MAX_REDIRECTS" envDefault:"10"`
	MaxConnections   int           `env:"ASYNCHTTP_MAX_CONNECTIONS" envDefault:"100"`
	DisconnectDrain  time.Duration `env:"ASYNCHTTP_DISCONNECT_DRAIN_TIMEOUT" envDefault:"30s"`
}

// Load parses environment variables into cfg, loading a .env file first
// and caching the result per concrete type T. Subsequent Load calls for
// the same T return the cached value without reparsing the environment.
func Load[T any]() (T, error) {
	loadDotEnv()

	var zero T
	key := typeKey(zero)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if v, ok := cache[key]; ok {
		return v.(T), nil
	}

	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return zero, err
	}

	cache[key] = cfg
	return cfg, nil
}

// MustLoad is Load but panics on failure, for use during startup.
func MustLoad[T any]() T {
	cfg, err := Load[T]()
	if err != nil {
		panic(err)
	}
	return cfg
}

func typeKey(v any) string {
	return typeName(v)
}
