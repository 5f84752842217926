package hmacauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipetRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, pipetURL, nil)
	r.Header.Set(HeaderTimestamp, pipetTimestamp)

	auth := pipetHeader()
	auth.Signature = pipetSignature
	r.Header.Set(HeaderAuthorization, auth.String())

	return r
}

func plexusRequest() *http.Request {
	r := httptest.NewRequest(http.MethodPost, plexusURL, strings.NewReader(plexusBody))
	r.Header.Set(HeaderTimestamp, plexusTimestamp)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set(HeaderContentSHA256, plexusDigest)

	auth := plexusHeader()
	auth.Signature = plexusSignature
	r.Header.Set(HeaderAuthorization, auth.String())

	return r
}

func newTestValidator(t *testing.T, ts int64, opts ...func(*ValidatorConfig)) *Validator {
	t.Helper()

	cfg := ValidatorConfig{
		Resolver: staticResolver(map[string]string{
			pipetID:  pipetSecret,
			plexusID: plexusSecret,
		}),
		Now: unixClock(ts),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	v, err := NewValidator(cfg)
	require.NoError(t, err)

	return v
}

func TestNewValidator(t *testing.T) {
	t.Run("nil resolver", func(t *testing.T) {
		_, err := NewValidator(ValidatorConfig{})
		assert.ErrorIs(t, err, ErrNoResolver)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := NewValidator(ValidatorConfig{Resolver: staticResolver(nil), Algorithm: "SHA3"})
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("invalid required header", func(t *testing.T) {
		_, err := NewValidator(ValidatorConfig{Resolver: staticResolver(nil), RequiredHeaders: []string{"bad header"}})
		assert.ErrorIs(t, err, ErrInvalidHeaderName)
	})

	t.Run("defaults", func(t *testing.T) {
		v, err := NewValidator(ValidatorConfig{Resolver: staticResolver(nil)})
		require.NoError(t, err)

		assert.Equal(t, AlgorithmSHA256, v.Algorithm())
		assert.Equal(t, int64(900), v.tolerance)
	})
}

func TestValidatorVectors(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		v := newTestValidator(t, 1432075982)

		res := v.Validate(pipetRequest())
		require.NoError(t, res.Err)
		assert.True(t, res.Authorized())
		assert.Equal(t, pipetID, res.Authorization.ID)
		assert.Equal(t, pipetTimestamp, res.Timestamp)
	})

	t.Run("post with body", func(t *testing.T) {
		v := newTestValidator(t, 1449578521)
		r := plexusRequest()

		res := v.Validate(r)
		require.NoError(t, res.Err)
		assert.True(t, res.Authorized())

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, plexusBody, string(body))

		replay, err := r.GetBody()
		require.NoError(t, err)

		body, err = io.ReadAll(replay)
		require.NoError(t, err)
		assert.Equal(t, plexusBody, string(body))
	})
}

func TestValidatorTimestamp(t *testing.T) {
	const now = int64(1449578521)

	tests := []struct {
		name      string
		offset    int64
		tolerance time.Duration
		want      Reason
		wantErr   error
	}{
		{"exactly past bound", -900, 0, ReasonInvalidSignature, ErrInvalidSignature},
		{"exactly future bound", 900, 0, ReasonInvalidSignature, ErrInvalidSignature},
		{"one second past bound", -901, 0, ReasonTimestampTooFarInPast, ErrTimestampTooFarInPast},
		{"one second future bound", 901, 0, ReasonTimestampTooFarInFuture, ErrTimestampTooFarInFuture},
		{"custom tolerance accepts", 59, time.Minute, ReasonInvalidSignature, ErrInvalidSignature},
		{"custom tolerance rejects", -61, time.Minute, ReasonTimestampTooFarInPast, ErrTimestampTooFarInPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestValidator(t, now, func(cfg *ValidatorConfig) {
				cfg.Tolerance = tt.tolerance
			})

			// The signature is computed for the original timestamp, so a
			// timestamp that passes the window fails on the signature.
			r := plexusRequest()
			r.Header.Set(HeaderTimestamp, strconv.FormatInt(now+tt.offset, 10))

			res := v.Validate(r)
			assert.Equal(t, tt.want, res.Reason)
			assert.ErrorIs(t, res.Err, tt.wantErr)
		})
	}

	t.Run("boundaries accept a freshly signed request", func(t *testing.T) {
		for _, offset := range []int64{-900, 900} {
			signer, err := NewSigner(SignerConfig{
				Realm:    plexusRealm,
				AccessID: plexusID,
				Secret:   plexusSecret,
				Now:      unixClock(now + offset),
			})
			require.NoError(t, err)

			r := httptest.NewRequest(http.MethodGet, "http://example.com/items", nil)
			_, err = signer.Sign(r)
			require.NoError(t, err)

			res := newTestValidator(t, now).Validate(r)
			assert.True(t, res.Authorized(), "offset %d: %v", offset, res.Err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		r := plexusRequest()
		r.Header.Del(HeaderTimestamp)

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonTimestampRequired, res.Reason)
		assert.ErrorIs(t, res.Err, ErrTimestampRequired)
	})

	t.Run("not numeric", func(t *testing.T) {
		r := plexusRequest()
		r.Header.Set(HeaderTimestamp, "yesterday")

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonTimestampRequired, res.Reason)
	})
}

func TestValidatorRejects(t *testing.T) {
	const now = int64(1449578521)

	t.Run("authorization missing", func(t *testing.T) {
		r := plexusRequest()
		r.Header.Del(HeaderAuthorization)

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonAuthorizationRequired, res.Reason)
		assert.ErrorIs(t, res.Err, ErrAuthorizationRequired)
	})

	t.Run("authorization malformed", func(t *testing.T) {
		r := plexusRequest()
		r.Header.Set(HeaderAuthorization, `acquia-http-hmac realm="Plexus",nonce="n",version="2.0"`)

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonAuthorizationInvalid, res.Reason)
		assert.ErrorIs(t, res.Err, ErrMalformedHeader)
	})

	t.Run("signature missing", func(t *testing.T) {
		r := plexusRequest()
		r.Header.Set(HeaderAuthorization, plexusHeader().String())

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonAuthorizationInvalid, res.Reason)
	})

	t.Run("required header not signed", func(t *testing.T) {
		v := newTestValidator(t, now, func(cfg *ValidatorConfig) {
			cfg.RequiredHeaders = []string{"X-Tenant"}
		})

		res := v.Validate(plexusRequest())
		assert.Equal(t, ReasonAuthorizationInvalid, res.Reason)
		assert.ErrorIs(t, res.Err, ErrMalformedHeader)
	})

	t.Run("signed custom header missing", func(t *testing.T) {
		r := plexusRequest()
		auth := plexusHeader()
		auth.Headers = []string{"X-Tenant"}
		auth.Signature = plexusSignature
		r.Header.Set(HeaderAuthorization, auth.String())

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonMissingCustomHeader, res.Reason)
		assert.ErrorIs(t, res.Err, ErrMissingCustomHeader)
	})

	t.Run("body digest mismatch", func(t *testing.T) {
		r := plexusRequest()
		r.Header.Set(HeaderContentSHA256, BodyDigest([]byte("other")))

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonBodyDigestMismatch, res.Reason)
		assert.ErrorIs(t, res.Err, ErrBodyDigestMismatch)
	})

	t.Run("unknown access key", func(t *testing.T) {
		r := plexusRequest()
		auth := plexusHeader()
		auth.ID = "unknown"
		auth.Signature = plexusSignature
		r.Header.Set(HeaderAuthorization, auth.String())

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonSecretUnavailable, res.Reason)
		assert.ErrorIs(t, res.Err, ErrSecretUnavailable)
		assert.ErrorIs(t, res.Err, ErrUnknownAccessKey)
	})

	t.Run("resolver failure", func(t *testing.T) {
		lookupErr := errors.New("store down")

		v := newTestValidator(t, now, func(cfg *ValidatorConfig) {
			cfg.Resolver = SecretResolverFunc(func(context.Context, string) (string, error) {
				return "", lookupErr
			})
		})

		res := v.Validate(plexusRequest())
		assert.Equal(t, ReasonSecretUnavailable, res.Reason)
		assert.ErrorIs(t, res.Err, lookupErr)
	})

	t.Run("resolver returns invalid secret", func(t *testing.T) {
		v := newTestValidator(t, now, func(cfg *ValidatorConfig) {
			cfg.Resolver = staticResolver(map[string]string{plexusID: "not base64!"})
		})

		res := v.Validate(plexusRequest())
		assert.Equal(t, ReasonSecretUnavailable, res.Reason)
		assert.ErrorIs(t, res.Err, ErrInvalidSecret)
	})

	t.Run("wrong secret", func(t *testing.T) {
		v := newTestValidator(t, now, func(cfg *ValidatorConfig) {
			cfg.Resolver = staticResolver(map[string]string{plexusID: pipetSecret})
		})

		res := v.Validate(plexusRequest())
		assert.Equal(t, ReasonInvalidSignature, res.Reason)
		assert.ErrorIs(t, res.Err, ErrInvalidSignature)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		v := newTestValidator(t, now, func(cfg *ValidatorConfig) {
			cfg.Algorithm = AlgorithmSHA512
		})

		res := v.Validate(plexusRequest())
		assert.Equal(t, ReasonInvalidSignature, res.Reason)
	})

	t.Run("body read failure", func(t *testing.T) {
		r := plexusRequest()
		r.Body = io.NopCloser(&failingReader{})

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonBodyUnreadable, res.Reason)
		assert.Error(t, res.Err)
	})

	t.Run("body limit exceeded", func(t *testing.T) {
		r := plexusRequest()
		r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 4)

		res := newTestValidator(t, now).Validate(r)
		assert.Equal(t, ReasonBodyUnreadable, res.Reason)

		var maxBytesErr *http.MaxBytesError
		assert.ErrorAs(t, res.Err, &maxBytesErr)
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestValidatorTamper(t *testing.T) {
	const now = int64(1449578521)

	signed := func(t *testing.T) *http.Request {
		t.Helper()

		signer, err := NewSigner(SignerConfig{
			Realm:         plexusRealm,
			AccessID:      plexusID,
			Secret:        plexusSecret,
			CustomHeaders: []string{"X-Tenant"},
			Now:           unixClock(now),
		})
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodPost, "http://api.example.com:8443/v1/items?page=2", strings.NewReader(plexusBody))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("X-Tenant", "acme")

		_, err = signer.Sign(r)
		require.NoError(t, err)

		return r
	}

	v := newTestValidator(t, now)

	t.Run("untouched", func(t *testing.T) {
		res := v.Validate(signed(t))
		assert.True(t, res.Authorized(), "%v", res.Err)
	})

	tests := []struct {
		name   string
		tamper func(r *http.Request)
		want   Reason
	}{
		{"verb", func(r *http.Request) { r.Method = http.MethodPut }, ReasonInvalidSignature},
		{"host", func(r *http.Request) { r.Host = "api.example.com:8444" }, ReasonInvalidSignature},
		{"path", func(r *http.Request) { r.URL.Path = "/v1/itemz" }, ReasonInvalidSignature},
		{"query", func(r *http.Request) { r.URL.RawQuery = "page=3" }, ReasonInvalidSignature},
		{"custom header", func(r *http.Request) { r.Header.Set("X-Tenant", "acmf") }, ReasonInvalidSignature},
		{"timestamp", func(r *http.Request) {
			r.Header.Set(HeaderTimestamp, strconv.FormatInt(now+1, 10))
		}, ReasonInvalidSignature},
		{"content type", func(r *http.Request) { r.Header.Set("Content-Type", "text/plain") }, ReasonInvalidSignature},
		{"body", func(r *http.Request) {
			r.Body = io.NopCloser(strings.NewReader(strings.Replace(plexusBody, "5", "6", 1)))
		}, ReasonBodyDigestMismatch},
		{"body and digest", func(r *http.Request) {
			body := strings.Replace(plexusBody, "5", "6", 1)
			r.Body = io.NopCloser(strings.NewReader(body))
			r.Header.Set(HeaderContentSHA256, BodyDigest([]byte(body)))
		}, ReasonInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := signed(t)
			r.RequestURI = ""
			tt.tamper(r)

			res := v.Validate(r)
			assert.Equal(t, tt.want, res.Reason)
		})
	}
}

func TestValidatorObserver(t *testing.T) {
	var events []Event

	v := newTestValidator(t, 1449578521, func(cfg *ValidatorConfig) {
		cfg.Observer = ObserverFunc(func(_ context.Context, e Event) {
			events = append(events, e)
		})
	})

	v.Validate(plexusRequest())

	r := plexusRequest()
	r.Header.Del(HeaderAuthorization)
	v.Validate(r)

	require.Len(t, events, 2)

	assert.Equal(t, ReasonAuthorized, events[0].Reason)
	assert.Equal(t, plexusID, events[0].AccessID)
	assert.Equal(t, http.MethodPost, events[0].Method)
	assert.Equal(t, "/register", events[0].Path)
	assert.NoError(t, events[0].Err)

	assert.Equal(t, ReasonAuthorizationRequired, events[1].Reason)
	assert.Empty(t, events[1].AccessID)
	assert.ErrorIs(t, events[1].Err, ErrAuthorizationRequired)
}

func TestValidatorTrustForwarded(t *testing.T) {
	const now = int64(1449578521)

	signer, err := NewSigner(SignerConfig{
		Realm:    plexusRealm,
		AccessID: plexusID,
		Secret:   plexusSecret,
		Now:      unixClock(now),
	})
	require.NoError(t, err)

	outbound, err := http.NewRequest(http.MethodGet, "https://api.example.com/v1/items", nil)
	require.NoError(t, err)

	_, err = signer.Sign(outbound)
	require.NoError(t, err)

	inbound := httptest.NewRequest(http.MethodGet, "/internal/items", nil)
	inbound.Host = "backend:8080"
	inbound.RemoteAddr = "10.1.2.3:41000"
	inbound.Header = outbound.Header.Clone()
	inbound.Header.Set("X-Forwarded-Host", "api.example.com")
	inbound.Header.Set("X-Replaced-Path", "/v1/items")

	trusting := func(t *testing.T, proxies ...string) *Validator {
		return newTestValidator(t, now, func(cfg *ValidatorConfig) {
			cfg.TrustForwarded = true
			cfg.TrustedProxies = proxies
		})
	}

	t.Run("ignored when disabled", func(t *testing.T) {
		res := newTestValidator(t, now).Validate(inbound)
		assert.Equal(t, ReasonInvalidSignature, res.Reason)
	})

	t.Run("honored from default trusted range", func(t *testing.T) {
		res := trusting(t).Validate(inbound)
		assert.True(t, res.Authorized(), "%v", res.Err)
	})

	t.Run("honored from configured proxy", func(t *testing.T) {
		r := inbound.Clone(inbound.Context())
		r.RemoteAddr = "198.51.100.7:443"

		res := trusting(t, "198.51.100.7").Validate(r)
		assert.True(t, res.Authorized(), "%v", res.Err)

		res = trusting(t, "198.51.100.0/24").Validate(r)
		assert.True(t, res.Authorized(), "%v", res.Err)
	})

	t.Run("ignored from untrusted peer", func(t *testing.T) {
		r := inbound.Clone(inbound.Context())
		r.RemoteAddr = "203.0.113.9:52000"

		res := trusting(t).Validate(r)
		assert.Equal(t, ReasonInvalidSignature, res.Reason)

		res = trusting(t, "10.0.0.0/8").Validate(r)
		assert.Equal(t, ReasonInvalidSignature, res.Reason)
	})

	t.Run("signature for one path cannot be replayed on another", func(t *testing.T) {
		public, err := http.NewRequest(http.MethodGet, "https://api.example.com/v1/public", nil)
		require.NoError(t, err)

		_, err = signer.Sign(public)
		require.NoError(t, err)

		replay := httptest.NewRequest(http.MethodGet, "/v1/admin", nil)
		replay.Host = "api.example.com"
		replay.RemoteAddr = "203.0.113.9:52000"
		replay.Header = public.Header.Clone()
		replay.Header.Set("X-Forwarded-Host", "api.example.com")
		replay.Header.Set("X-Replaced-Path", "/v1/public")

		res := trusting(t).Validate(replay)
		assert.Equal(t, ReasonInvalidSignature, res.Reason)
	})

	t.Run("unparseable peer address is untrusted", func(t *testing.T) {
		r := inbound.Clone(inbound.Context())
		r.RemoteAddr = "not-an-ip"

		res := trusting(t).Validate(r)
		assert.Equal(t, ReasonInvalidSignature, res.Reason)
	})

	t.Run("invalid proxy entry", func(t *testing.T) {
		_, err := NewValidator(ValidatorConfig{
			Resolver:       staticResolver(map[string]string{plexusID: plexusSecret}),
			TrustForwarded: true,
			TrustedProxies: []string{"10.0.0.0/33"},
		})
		assert.ErrorIs(t, err, ErrInvalidProxy)

		_, err = NewValidator(ValidatorConfig{
			Resolver:       staticResolver(map[string]string{plexusID: plexusSecret}),
			TrustForwarded: true,
			TrustedProxies: []string{"proxy.internal"},
		})
		assert.ErrorIs(t, err, ErrInvalidProxy)
	})
}
