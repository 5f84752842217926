package muxhandlers

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

// DefaultServerHostnameHeader names the instance that produced a response.
const DefaultServerHostnameHeader = "X-Server-Hostname"

// ServerConfig configures the Server middleware behaviour.
type ServerConfig struct {
	// Hostname is written as-is when set.
	Hostname string

	// HostnameEnv lists environment variables checked in order when
	// Hostname is empty (e.g. POD_NAME, HOSTNAME). os.Hostname is the
	// final fallback.
	HostnameEnv []string

	// HeaderName overrides DefaultServerHostnameHeader.
	HeaderName string
}

// ServerMiddleware returns a middleware that identifies the serving
// instance in a response header. The hostname is resolved once, when the
// middleware is built.
func ServerMiddleware(cfg ServerConfig) (mux.MiddlewareFunc, error) {
	hostname, err := resolveHostname(cfg)
	if err != nil {
		return nil, err
	}

	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = DefaultServerHostnameHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(headerName, hostname)
			next.ServeHTTP(w, r)
		})
	}, nil
}

func resolveHostname(cfg ServerConfig) (string, error) {
	if cfg.Hostname != "" {
		return cfg.Hostname, nil
	}

	for _, env := range cfg.HostnameEnv {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}

	return os.Hostname()
}
