package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// redactedHeaders never reach the logs. Webhook bodies are logged by
// the adapters themselves after signature checks, so the access log
// only carries the envelope.
var redactedHeaders = []string{
	"authorization",
	"cookie",
	"x-api-key",
}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			if logger.Enabled(r.Context(), slog.LevelDebug) {
				logger.Debug("request headers",
					"path", r.URL.Path,
					"headers", FilterHeaders(r.Header))
			}

			ww := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(ww, r)

			statusCode := ww.statusCode
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			level := slog.LevelInfo
			if statusCode >= 500 {
				level = slog.LevelError
			} else if statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status_code", statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"bytes", ww.bytes,
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.bytes += len(b)
	return sw.ResponseWriter.Write(b)
}

// FilterHeaders masks credential-bearing headers for diagnostics.
func FilterHeaders(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if isRedacted(name) {
			filtered[name] = "[FILTERED]"
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}

func isRedacted(name string) bool {
	lower := strings.ToLower(name)
	for _, redacted := range redactedHeaders {
		if strings.Contains(lower, redacted) {
			return true
		}
	}
	return false
}
