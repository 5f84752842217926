package hmacauth

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

// MiddlewareConfig configures the server-side authentication middleware.
type MiddlewareConfig struct {
	// Validate configures how requests are validated.
	Validate ValidatorConfig

	// OnError is called when validation fails. When nil, a 401
	// Unauthorized response with no body is sent, or 413 when the body
	// exceeded an http.MaxBytesReader limit.
	OnError func(w http.ResponseWriter, r *http.Request, res Result)

	// DisableResponseSigning turns off the X-Server-Authorization-HMAC-SHA256
	// response header.
	DisableResponseSigning bool

	// BodilessMethods lists request methods whose responses are not
	// signed. Defaults to DefaultBodilessMethods.
	BodilessMethods []string
}

// AuthInfo describes the authenticated caller of a request.
type AuthInfo struct {
	AccessID  string
	Realm     string
	Nonce     string
	Timestamp string
}

type authInfoKey struct{}

// AuthInfoFromContext returns the AuthInfo stored by Middleware.
func AuthInfoFromContext(ctx context.Context) (AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey{}).(AuthInfo)

	return info, ok
}

// Middleware returns a mux.MiddlewareFunc that authenticates requests and
// signs the responses of authenticated ones.
//
// The downstream response is buffered and written only after the handler
// returns. If the handler panics nothing is written, so an incomplete
// response never carries a signature.
func Middleware(cfg MiddlewareConfig) (mux.MiddlewareFunc, error) {
	validator, err := NewValidator(cfg.Validate)
	if err != nil {
		return nil, err
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	bodiless := cfg.BodilessMethods
	if bodiless == nil {
		bodiless = DefaultBodilessMethods
	}

	signResponses := !cfg.DisableResponseSigning

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := validator.Validate(r)
			if !res.Authorized() {
				onError(w, r, res)
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), authInfoKey{}, AuthInfo{
				AccessID:  res.Authorization.ID,
				Realm:     res.Authorization.Realm,
				Nonce:     res.Authorization.Nonce,
				Timestamp: res.Timestamp,
			}))

			if !signResponses || isBodiless(bodiless, r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedResponseWriter{header: w.Header()}
			next.ServeHTTP(buf, r)

			body := buf.body.Bytes()
			if err := SignResponse(w.Header(), validator.Algorithm(), res.secret, res.Authorization.Nonce, res.Timestamp, body); err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			w.WriteHeader(buf.statusCode())
			w.Write(body)
		})
	}, nil
}

// defaultOnError writes a 401 Unauthorized response with no body. Body
// size limit failures are reported as 413.
func defaultOnError(w http.ResponseWriter, _ *http.Request, res Result) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(res.Err, &maxBytesErr) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	w.WriteHeader(http.StatusUnauthorized)
}

// bufferedResponseWriter holds the downstream response until it can be
// signed. Headers are shared with the real writer; nothing reaches the
// client until the middleware flushes.
type bufferedResponseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedResponseWriter) Header() http.Header {
	return b.header
}

func (b *bufferedResponseWriter) WriteHeader(code int) {
	if b.status == 0 {
		b.status = code
	}
}

func (b *bufferedResponseWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}

	return b.body.Write(p)
}

func (b *bufferedResponseWriter) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}

	return b.status
}
