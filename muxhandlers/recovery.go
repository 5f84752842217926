package muxhandlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// LogFunc is an optional callback invoked with the request and the
	// recovered value when a panic occurs.
	LogFunc func(r *http.Request, err any)

	// StripHeaders lists response headers removed before the 500 response
	// is written.
	StripHeaders []string
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers and answers with 500 Internal Server Error.
//
// http.ErrAbortHandler is re-panicked so net/http can abort the
// connection as the handler intended.
func RecoveryMiddleware(cfg RecoveryConfig) mux.MiddlewareFunc {
	strip := append([]string(nil), cfg.StripHeaders...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}

				if err == http.ErrAbortHandler {
					panic(err)
				}

				if cfg.LogFunc != nil {
					cfg.LogFunc(r, err)
				}

				for _, name := range strip {
					w.Header().Del(name)
				}

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
