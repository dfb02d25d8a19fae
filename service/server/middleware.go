package server

import (
	"log/slog"
	"net/http"
)

// loggingMiddleware records method, path, and originating address for every
// inbound request before it reaches the router. Observability only: it never
// alters routing or the response, and a logging failure never reaches the
// client.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			func() {
				defer func() {
					_ = recover()
				}()
				logger.Info("request received",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS
// preflight requests. All cross-origin requests are permitted.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers for all requests
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		// Handle preflight OPTIONS requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
