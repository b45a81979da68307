package server

import (
	"log/slog"
	"net/http"
	"time"
)

// requestLogger is middleware that logs HTTP requests
type requestLogger struct {
	handler http.Handler
	logger  *slog.Logger
}

// responseCapture wraps http.ResponseWriter to capture status code
type responseCapture struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.status = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	n, err := rc.ResponseWriter.Write(b)
	rc.bytes += n
	return n, err
}

// newRequestLogger creates request logging middleware
func newRequestLogger(handler http.Handler, logger *slog.Logger) *requestLogger {
	return &requestLogger{handler: handler, logger: logger}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rc := &responseCapture{ResponseWriter: w}

	rl.handler.ServeHTTP(rc, r)

	// Respect X-Forwarded-For if present
	clientIP := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP = xff
	}

	level := slog.LevelInfo
	if rc.status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	rl.logger.LogAttrs(r.Context(), level, "request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", rc.status),
		slog.Int("bytes", rc.bytes),
		slog.Duration("duration", time.Since(start)),
		slog.String("client_ip", clientIP),
	)
}
