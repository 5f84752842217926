package logging

import (
	"context"
	"net/http"

	"github.com/vitalvas/httphmac/hmacauth"
	"github.com/vitalvas/httphmac/muxhandlers"
	"go.uber.org/zap"
)

// Observer logs every validation outcome. Authorized requests are logged
// at debug level, rejections at warn level.
type Observer struct {
	logger *zap.Logger
}

// NewObserver returns an hmacauth.Observer backed by logger.
func NewObserver(logger *zap.Logger) *Observer {
	return &Observer{logger: logger.Named("hmacauth")}
}

// Observe implements hmacauth.Observer.
func (o *Observer) Observe(ctx context.Context, e hmacauth.Event) {
	fields := []zap.Field{
		zap.String("reason", string(e.Reason)),
		zap.String("method", e.Method),
		zap.String("path", e.Path),
	}

	if e.AccessID != "" {
		fields = append(fields, zap.String("access_id", e.AccessID))
	}

	if id := muxhandlers.RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	if e.Reason == hmacauth.ReasonAuthorized {
		o.logger.Debug("request authorized", fields...)
		return
	}

	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}

	o.logger.Warn("request rejected", fields...)
}

// RecoveryLogFunc returns a muxhandlers.RecoveryConfig.LogFunc that logs
// the panic value and stack.
func RecoveryLogFunc(logger *zap.Logger) func(r *http.Request, err any) {
	return func(r *http.Request, err any) {
		logger.Error("handler panic",
			zap.Any("panic", err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", muxhandlers.RequestIDFromContext(r.Context())),
			zap.Stack("stack"),
		)
	}
}
