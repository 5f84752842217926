package secretstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vitalvas/httphmac/hmacauth"
)

// Backend names accepted by Config.Backend.
const (
	BackendStatic   = "static"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config selects and configures a secret backend.
type Config struct {
	Backend string `mapstructure:"backend" structs:"backend"`

	// Static maps access key ids to secrets for the static backend.
	// Keys read through config.Load are lower-cased; use the file backend
	// for mixed-case ids.
	Static map[string]string `mapstructure:"static" structs:"static"`

	// File is the YAML secrets file for the file backend.
	File string `mapstructure:"file" structs:"file"`

	// CacheTTL wraps the redis and postgres backends in a Cache when
	// positive.
	CacheTTL time.Duration `mapstructure:"cache_ttl" structs:"cache_ttl"`

	Redis    RedisConfig    `mapstructure:"redis" structs:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres" structs:"postgres"`
}

// Validate checks that the selected backend is known and configured.
func (cfg Config) Validate() error {
	switch cfg.Backend {
	case BackendStatic:
		if len(cfg.Static) == 0 {
			return errors.New("secrets: static backend has no keys")
		}
	case BackendFile:
		if cfg.File == "" {
			return errors.New("secrets: file backend requires a file path")
		}
	case BackendRedis, BackendPostgres:
	default:
		return errors.Errorf("secrets: unknown backend %q", cfg.Backend)
	}

	return nil
}

// Open connects to the configured backend. The returned close function
// releases its connections and must be called once the resolver is no
// longer used.
func Open(ctx context.Context, cfg Config) (hmacauth.SecretResolver, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	nop := func() error { return nil }

	switch cfg.Backend {
	case BackendStatic:
		s, err := NewStatic(cfg.Static)
		if err != nil {
			return nil, nil, err
		}

		return s, nop, nil

	case BackendFile:
		s, err := LoadFile(cfg.File)
		if err != nil {
			return nil, nil, err
		}

		return s, nop, nil

	case BackendRedis:
		rdb, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}

		return cfg.cached(NewRedis(rdb, cfg.Redis.Key)), rdb.Close, nil

	default:
		pool, err := ConnectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}

		return cfg.cached(NewPostgres(pool, cfg.Postgres.Table)), func() error {
			pool.Close()
			return nil
		}, nil
	}
}

func (cfg Config) cached(r hmacauth.SecretResolver) hmacauth.SecretResolver {
	if cfg.CacheTTL <= 0 {
		return r
	}

	return NewCache(r, cfg.CacheTTL)
}
