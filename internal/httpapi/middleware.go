package httpapi

import (
	"net/http"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/platform/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		kv := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"from", r.RemoteAddr,
			"dur", time.Since(start).String(),
		}
		switch {
		case rec.status >= 500:
			log.Error("http request", kv...)
		case rec.status >= 400:
			log.Warn("http request", kv...)
		default:
			log.Debug("http request", kv...)
		}
	})
}
