package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lamaai/lama-api/pkg/logger"
)

// Logging writes one entry per request once the response is done. Health
// probes are logged at debug so they do not drown out traffic.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			done := logg.WithFields(ctx, map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"client_ip":   clientIP(r),
			})
			if isProbe(r.URL.Path) {
				logg.Debug(done, "request completed")
				return
			}
			logg.Info(done, "request completed")
		})
	}
}

func isProbe(path string) bool {
	return path == "/health/live" || path == "/health/ready"
}
