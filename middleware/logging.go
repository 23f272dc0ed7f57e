package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logger returns a middleware that logs HTTP requests
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			// Probes are noisy
			path := r.URL.Path
			if path == "/health" || path == "/ready" || path == "/metrics" {
				logger.Debug("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", path),
					zap.Int("status", wrapped.statusCode),
					zap.Duration("duration", duration),
				)
				return
			}

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", path),
				zap.String("remote_addr", getClientIP(r)),
				zap.String("user_id", GetIdentity(r).UserID),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", duration),
			)
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
