package muxhandlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// ErrNoCacheControlPolicy is returned when CacheControlConfig has neither
// rules nor a default value.
var ErrNoCacheControlPolicy = errors.New("cache control: at least one rule or a default value is required")

// CacheControlRule maps a Content-Type prefix to response caching headers.
type CacheControlRule struct {
	// ContentType is matched case-insensitively as a prefix of the
	// response Content-Type, e.g. "image/" or "application/json".
	ContentType string

	// Value is the Cache-Control header value.
	Value string

	// Expires is added to the current time for the Expires header. Zero
	// marks the response as already expired; a negative value sets no
	// Expires header.
	Expires time.Duration
}

// CacheControlConfig configures the CacheControl middleware behaviour.
type CacheControlConfig struct {
	// Rules are evaluated in order; the first match wins.
	Rules []CacheControlRule

	// DefaultValue and DefaultExpires apply when no rule matches. An empty
	// DefaultValue sets no Cache-Control header.
	DefaultValue   string
	DefaultExpires time.Duration

	// Override replaces caching headers set by the handler. Without it a
	// handler-set header is kept.
	Override bool
}

type cachePolicy struct {
	value   string
	expires time.Duration
}

// CacheControlMiddleware returns a middleware that sets Cache-Control and
// Expires from the response Content-Type just before the status line is
// written.
//
// Signed API responses are bound to the nonce of one request, so a cached
// copy never verifies for another; use DefaultValue "no-store" with
// Override there.
func CacheControlMiddleware(cfg CacheControlConfig) (mux.MiddlewareFunc, error) {
	if len(cfg.Rules) == 0 && cfg.DefaultValue == "" {
		return nil, ErrNoCacheControlPolicy
	}

	prefixes := make([]string, len(cfg.Rules))
	policies := make([]cachePolicy, len(cfg.Rules))

	for i, rule := range cfg.Rules {
		prefixes[i] = strings.ToLower(rule.ContentType)
		policies[i] = cachePolicy{value: rule.Value, expires: rule.Expires}
	}

	fallback := cachePolicy{value: cfg.DefaultValue, expires: cfg.DefaultExpires}

	lookup := func(contentType string) cachePolicy {
		contentType = strings.ToLower(contentType)

		for i, prefix := range prefixes {
			if strings.HasPrefix(contentType, prefix) {
				return policies[i]
			}
		}

		return fallback
	}

	override := cfg.Override

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(&cacheControlWriter{
				ResponseWriter: w,
				lookup:         lookup,
				override:       override,
			}, r)
		})
	}, nil
}

type cacheControlWriter struct {
	http.ResponseWriter
	lookup      func(contentType string) cachePolicy
	override    bool
	wroteHeader bool
}

func (cw *cacheControlWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}

	cw.wroteHeader = true

	h := cw.Header()
	policy := cw.lookup(h.Get("Content-Type"))

	if policy.value != "" && (cw.override || h.Get("Cache-Control") == "") {
		h.Set("Cache-Control", policy.value)
	}

	if policy.expires >= 0 && (cw.override || h.Get("Expires") == "") {
		h.Set("Expires", time.Now().UTC().Add(policy.expires).Format(http.TimeFormat))
	} else if cw.override {
		h.Del("Expires")
	}

	cw.ResponseWriter.WriteHeader(code)
}

func (cw *cacheControlWriter) Write(b []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}

	return cw.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (cw *cacheControlWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
