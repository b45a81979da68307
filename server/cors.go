package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sambeau/quantities/config"
)

// CORSMiddleware handles Cross-Origin Resource Sharing (CORS) headers
type CORSMiddleware struct {
	config config.CORSConfig
}

// NewCORSMiddleware creates a new CORS middleware with the given configuration
func NewCORSMiddleware(cfg config.CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{config: cfg}
}

// Handler wraps an http.Handler to add CORS headers
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		// No origins configured, or a same-origin request
		if len(m.config.Origins) == 0 || origin == "" || !m.isOriginAllowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		if m.config.Origins.Contains("*") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			m.handlePreflight(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	return m.config.Origins.Contains("*") || m.config.Origins.Contains(origin)
}

// handlePreflight handles OPTIONS preflight requests
func (m *CORSMiddleware) handlePreflight(w http.ResponseWriter, r *http.Request) {
	methods := m.config.Methods
	if len(methods) == 0 {
		methods = []string{"GET", "HEAD"}
	}
	w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))

	if len(m.config.Headers) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(m.config.Headers, ", "))
	} else if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
		w.Header().Set("Access-Control-Allow-Headers", requested)
	}

	if m.config.MaxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(m.config.MaxAge))
	}
	w.WriteHeader(http.StatusNoContent)
}
