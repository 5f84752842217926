package secretstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/httphmac/hmacauth"
)

type fakeHashGetter struct {
	hash map[string]string
	err  error

	key string
}

func (f *fakeHashGetter) HGet(_ context.Context, key, field string) *redis.StringCmd {
	f.key = key

	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}

	value, ok := f.hash[field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(value, nil)
}

func TestRedis(t *testing.T) {
	t.Run("resolves from default hash", func(t *testing.T) {
		fake := &fakeHashGetter{hash: map[string]string{testID: testSecret}}

		secret, err := NewRedis(fake, "").ResolveSecret(context.Background(), testID)
		require.NoError(t, err)
		assert.Equal(t, testSecret, secret)
		assert.Equal(t, DefaultRedisKey, fake.key)
	})

	t.Run("custom hash", func(t *testing.T) {
		fake := &fakeHashGetter{hash: map[string]string{testID: testSecret}}

		_, err := NewRedis(fake, "tenant:keys").ResolveSecret(context.Background(), testID)
		require.NoError(t, err)
		assert.Equal(t, "tenant:keys", fake.key)
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := NewRedis(&fakeHashGetter{}, "").ResolveSecret(context.Background(), testID)
		assert.ErrorIs(t, err, hmacauth.ErrUnknownAccessKey)
	})

	t.Run("backend error", func(t *testing.T) {
		backendErr := errors.New("connection refused")

		_, err := NewRedis(&fakeHashGetter{err: backendErr}, "").ResolveSecret(context.Background(), testID)
		assert.ErrorIs(t, err, backendErr)
		assert.NotErrorIs(t, err, hmacauth.ErrUnknownAccessKey)
	})

	t.Run("client satisfies HashGetter", func(t *testing.T) {
		var _ HashGetter = (*redis.Client)(nil)
	})
}

func TestRedisConfigOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		opts := RedisConfig{}.options()

		assert.Equal(t, "localhost:6379", opts.Addr)
		assert.Equal(t, 5*time.Second, opts.DialTimeout)
		assert.Equal(t, 3*time.Second, opts.ReadTimeout)
		assert.Equal(t, 3*time.Second, opts.WriteTimeout)
		assert.Nil(t, opts.TLSConfig)
	})

	t.Run("explicit", func(t *testing.T) {
		opts := RedisConfig{
			Host:        "redis.internal",
			Port:        "6380",
			Password:    "pw",
			DB:          2,
			TLS:         true,
			DialTimeout: time.Second,
		}.options()

		assert.Equal(t, "redis.internal:6380", opts.Addr)
		assert.Equal(t, "pw", opts.Password)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, time.Second, opts.DialTimeout)
		require.NotNil(t, opts.TLSConfig)
	})
}
