package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sambeau/quantities/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"not configured", config.CORSConfig{}, "GET", "https://a.example", "", http.StatusOK},
		{"same origin", config.CORSConfig{Origins: config.StringOrSlice{"*"}}, "GET", "", "", http.StatusOK},
		{"wildcard", config.CORSConfig{Origins: config.StringOrSlice{"*"}}, "GET", "https://a.example", "*", http.StatusOK},
		{"listed", config.CORSConfig{Origins: config.StringOrSlice{"https://a.example"}}, "GET", "https://a.example", "https://a.example", http.StatusOK},
		{"not listed", config.CORSConfig{Origins: config.StringOrSlice{"https://a.example"}}, "GET", "https://b.example", "", http.StatusOK},
		{"preflight", config.CORSConfig{Origins: config.StringOrSlice{"*"}}, "OPTIONS", "https://a.example", "*", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/systems", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			NewCORSMiddleware(tt.cfg).Handler(okHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORSPreflightHeaders(t *testing.T) {
	cfg := config.CORSConfig{Origins: config.StringOrSlice{"https://a.example"}, MaxAge: 600}
	req := httptest.NewRequest("OPTIONS", "/api/convert", nil)
	req.Header.Set("Origin", "https://a.example")
	req.Header.Set("Access-Control-Request-Headers", "X-Custom")
	rec := httptest.NewRecorder()
	NewCORSMiddleware(cfg).Handler(okHandler()).ServeHTTP(rec, req)

	h := rec.Header()
	if h.Get("Access-Control-Allow-Methods") != "GET, HEAD" {
		t.Errorf("methods = %q", h.Get("Access-Control-Allow-Methods"))
	}
	if h.Get("Access-Control-Allow-Headers") != "X-Custom" {
		t.Errorf("headers = %q", h.Get("Access-Control-Allow-Headers"))
	}
	if h.Get("Access-Control-Max-Age") != "600" {
		t.Errorf("max age = %q", h.Get("Access-Control-Max-Age"))
	}
	if h.Get("Vary") != "Origin" {
		t.Errorf("Vary = %q", h.Get("Vary"))
	}
}
