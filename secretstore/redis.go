package secretstore

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vitalvas/httphmac/hmacauth"
)

// DefaultRedisKey is the hash that maps access key ids to secrets.
const DefaultRedisKey = "hmac:secrets"

// HashGetter is the subset of redis.Cmdable used by Redis.
type HashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// Redis resolves secrets with HGET on a single hash.
type Redis struct {
	client HashGetter
	key    string
}

// NewRedis returns a resolver reading from the hash key. An empty key
// selects DefaultRedisKey.
func NewRedis(client HashGetter, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}

	return &Redis{client: client, key: key}
}

// ResolveSecret implements hmacauth.SecretResolver.
func (r *Redis) ResolveSecret(ctx context.Context, accessID string) (string, error) {
	secret, err := r.client.HGet(ctx, r.key, accessID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", hmacauth.ErrUnknownAccessKey
		}

		return "", errors.Wrap(err, "redis hget")
	}

	return secret, nil
}

// RedisConfig configures NewRedisClient.
type RedisConfig struct {
	Host         string        `mapstructure:"host" structs:"host"`
	Port         string        `mapstructure:"port" structs:"port"`
	Username     string        `mapstructure:"username" structs:"username"`
	Password     string        `mapstructure:"password" structs:"password"`
	DB           int           `mapstructure:"db" structs:"db"`
	TLS          bool          `mapstructure:"tls" structs:"tls"`
	Key          string        `mapstructure:"key" structs:"key"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" structs:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" structs:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" structs:"write_timeout"`
}

func (cfg RedisConfig) options() *redis.Options {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == "" {
		port = "6379"
	}

	opts := &redis.Options{
		Addr:         net.JoinHostPort(host, port),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return opts
}

// NewRedisClient creates a Redis client and pings it.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(cfg.options())

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	return rdb, nil
}
