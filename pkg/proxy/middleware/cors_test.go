package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"harvest-hq/gateway/pkg/config"
)

func TestCORSMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	tests := []struct {
		name          string
		config        config.CORSConfig
		method        string
		origin        string
		preflight     bool
		wantStatus    int
		wantOrigin    string
		wantMethods   string
		wantMaxAge    string
		wantCreds     string
		wantExposed   string
		wantReachNext bool
	}{
		{
			name: "allowed origin echoed",
			config: config.CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"https://chat.example.com"},
				ExposedHeaders: []string{"X-Request-ID"},
			},
			method:        http.MethodPost,
			origin:        "https://chat.example.com",
			wantStatus:    http.StatusOK,
			wantOrigin:    "https://chat.example.com",
			wantExposed:   "X-Request-ID",
			wantReachNext: true,
		},
		{
			name: "unknown origin gets no header",
			config: config.CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"https://chat.example.com"},
			},
			method:        http.MethodPost,
			origin:        "https://evil.example.com",
			wantStatus:    http.StatusOK,
			wantReachNext: true,
		},
		{
			name:          "wildcard",
			config:        config.CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}},
			method:        http.MethodGet,
			origin:        "https://any.example.com",
			wantStatus:    http.StatusOK,
			wantOrigin:    "*",
			wantReachNext: true,
		},
		{
			name: "wildcard with credentials echoes origin",
			config: config.CORSConfig{
				Enabled:          true,
				AllowedOrigins:   []string{"*"},
				AllowCredentials: true,
			},
			method:        http.MethodGet,
			origin:        "https://any.example.com",
			wantStatus:    http.StatusOK,
			wantOrigin:    "https://any.example.com",
			wantCreds:     "true",
			wantReachNext: true,
		},
		{
			name: "preflight",
			config: config.CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAge:         3600,
			},
			method:      http.MethodOptions,
			origin:      "https://chat.example.com",
			preflight:   true,
			wantStatus:  http.StatusNoContent,
			wantOrigin:  "*",
			wantMethods: "GET, POST, OPTIONS",
			wantMaxAge:  "3600",
		},
		{
			name:          "disabled",
			config:        config.CORSConfig{Enabled: false, AllowedOrigins: []string{"*"}},
			method:        http.MethodGet,
			origin:        "https://chat.example.com",
			wantStatus:    http.StatusOK,
			wantReachNext: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				okHandler.ServeHTTP(w, r)
			})

			req := httptest.NewRequest(tt.method, "/api/chat", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()

			CORSMiddleware(tt.config)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if reached != tt.wantReachNext {
				t.Errorf("reached handler = %v, want %v", reached, tt.wantReachNext)
			}
			checks := map[string]string{
				"Access-Control-Allow-Origin":      tt.wantOrigin,
				"Access-Control-Allow-Methods":     tt.wantMethods,
				"Access-Control-Max-Age":           tt.wantMaxAge,
				"Access-Control-Allow-Credentials": tt.wantCreds,
				"Access-Control-Expose-Headers":    tt.wantExposed,
			}
			for header, want := range checks {
				if got := w.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
		})
	}
}
