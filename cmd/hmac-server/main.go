// Command hmac-server serves a small HMAC-authenticated HTTP API.
//
// Every route except /healthz requires a request signed with the
// acquia-http-hmac scheme; responses are signed back with the same secret.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/vitalvas/httphmac/config"
	"github.com/vitalvas/httphmac/hmacauth"
	"github.com/vitalvas/httphmac/logging"
	"github.com/vitalvas/httphmac/muxhandlers"
	"github.com/vitalvas/httphmac/secretstore"
	"go.uber.org/zap"
)

func main() {
	configPaths := flag.String("config", ".,/etc/hmac-server", "comma separated directories searched for config.yaml")
	flag.Parse()

	cfg, err := config.Load(strings.Split(*configPaths, ","))
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	resolver, closeStore, err := secretstore.Open(ctx, cfg.Secrets)
	if err != nil {
		return errors.Wrap(err, "open secret store")
	}
	defer closeStore()

	if cache, ok := resolver.(*secretstore.Cache); ok {
		go cache.Run(ctx, cfg.Secrets.CacheTTL)
	}

	router, err := newRouter(cfg, resolver, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Server.Listen),
			zap.String("secrets_backend", cfg.Secrets.Backend),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func newRouter(cfg *config.Config, resolver hmacauth.SecretResolver, logger *zap.Logger) (*mux.Router, error) {
	sizeLimit, err := muxhandlers.RequestSizeLimitMiddleware(muxhandlers.RequestSizeLimitConfig{
		MaxBytes: cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		return nil, err
	}

	auth, err := hmacauth.Middleware(cfg.MiddlewareConfig(resolver, logging.NewObserver(logger)))
	if err != nil {
		return nil, err
	}

	serverID, err := muxhandlers.ServerMiddleware(muxhandlers.ServerConfig{
		Hostname:    cfg.Server.Hostname,
		HostnameEnv: []string{"POD_NAME", "HOSTNAME"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "resolve hostname")
	}

	// Signed responses only verify for the request they answer.
	noStore, err := muxhandlers.CacheControlMiddleware(muxhandlers.CacheControlConfig{
		DefaultValue:   "no-store",
		DefaultExpires: -1,
		Override:       true,
	})
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(
		muxhandlers.RequestIDMiddleware(muxhandlers.RequestIDConfig{
			TrustIncoming: cfg.Server.TrustRequestID,
		}),
		serverID,
		muxhandlers.RecoveryMiddleware(muxhandlers.RecoveryConfig{
			LogFunc:      logging.RecoveryLogFunc(logger),
			StripHeaders: []string{hmacauth.HeaderServerAuthorization},
		}),
	)

	router.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/").Subrouter()
	api.Use(noStore, sizeLimit, auth)
	api.HandleFunc("/whoami", whoamiHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/echo", echoHandler).Methods(http.MethodPost, http.MethodPut)

	return router, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type whoamiResponse struct {
	AccessID  string `json:"access_id"`
	Realm     string `json:"realm"`
	Nonce     string `json:"nonce"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

func whoamiHandler(w http.ResponseWriter, r *http.Request) {
	info, ok := hmacauth.AuthInfoFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, whoamiResponse{
		AccessID:  info.AccessID,
		Realm:     info.Realm,
		Nonce:     info.Nonce,
		Timestamp: info.Timestamp,
		RequestID: muxhandlers.RequestIDFromContext(r.Context()),
	})
}

// echoHandler returns the request body unchanged, with its content type.
func echoHandler(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}

		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}
