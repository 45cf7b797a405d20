package proxy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"harvest-hq/gateway/pkg/proxy/types"
)

func TestParseChatRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		maxBytes  int64
		wantErr   bool
		wantField string
		wantModel string
	}{
		{
			name:      "valid request",
			body:      `{"model":"llama3","messages":[{"role":"user","content":"Hi"}]}`,
			wantModel: "llama3",
		},
		{
			name:      "unknown fields kept",
			body:      `{"model":"llama3","messages":[{"role":"user","content":"Hi"}],"options":{"temperature":0.2}}`,
			wantModel: "llama3",
		},
		{
			name:      "missing model",
			body:      `{"messages":[{"role":"user","content":"Hi"}]}`,
			wantErr:   true,
			wantField: "model",
		},
		{
			name:      "missing messages",
			body:      `{"model":"llama3"}`,
			wantErr:   true,
			wantField: "messages",
		},
		{
			name:      "empty body",
			body:      ``,
			wantErr:   true,
			wantField: "body",
		},
		{
			name:      "invalid JSON",
			body:      `{"model":`,
			wantErr:   true,
			wantField: "body",
		},
		{
			name:      "too large",
			body:      `{"model":"llama3","messages":[{"role":"user","content":"` + strings.Repeat("x", 100) + `"}]}`,
			maxBytes:  64,
			wantErr:   true,
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))

			req, err := ParseChatRequest(r, tt.maxBytes)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChatRequest() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var valErr *types.ValidationError
				if !errors.As(err, &valErr) {
					t.Fatalf("error = %T, want *types.ValidationError", err)
				}
				if valErr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", valErr.Field, tt.wantField)
				}
				return
			}

			if req.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", req.Model, tt.wantModel)
			}
			if string(req.Raw) != tt.body {
				t.Errorf("Raw body not preserved: %s", req.Raw)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{query: "", want: 100},
		{query: "limit=5", want: 5},
		{query: "limit=5000", want: 1000},
		{query: "limit=99999999999999999999", want: 1000},
		{query: "limit=0", wantErr: true},
		{query: "limit=-3", wantErr: true},
		{query: "limit=abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/history?"+tt.query, nil)

			got, err := ParseLimit(r, 100, 1000)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLimit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLimit() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractRequestID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ExtractRequestID(r); got != "" {
		t.Errorf("ExtractRequestID() = %q, want empty", got)
	}

	r.Header.Set(RequestIDHeader, "abc-123")
	if got := ExtractRequestID(r); got != "abc-123" {
		t.Errorf("ExtractRequestID() = %q, want abc-123", got)
	}
}
