package logging

import (
	"log/slog"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bearer token", input: "header Bearer eyJhbGciOi.payload", want: "header Bearer ***"},
		{name: "api key", input: "key sk-abcdefgh12345", want: "key sk-***"},
		{name: "password pair", input: "dsn user=a password=hunter2 host=b", want: "dsn user=a password=*** host=b"},
		{name: "plain text", input: "llama3 finished", want: "llama3 finished"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{name: "content", attr: slog.String("content", "abc"), want: "[redacted 3 chars]"},
		{name: "suffix match", attr: slog.String("assistant_reply", "hello"), want: "[redacted 5 chars]"},
		{name: "non-string content", attr: slog.Any("messages", []string{"a"}), want: "[redacted]"},
		{name: "secret", attr: slog.String("api_key", "sk-1"), want: "***"},
		{name: "ordinary", attr: slog.String("model", "llama3"), want: "llama3"},
		{name: "unrelated suffix", attr: slog.String("contents_hash", "x"), want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr(%s) = %q, want %q", tt.attr.Key, got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactor_Group(t *testing.T) {
	r := NewRedactor()

	got := r.RedactAttr(slog.Group("turn", slog.String("model", "llama3"), slog.String("content", "hi")))
	if got.Value.Kind() != slog.KindGroup {
		t.Fatalf("kind = %v, want group", got.Value.Kind())
	}
	for _, a := range got.Value.Group() {
		if a.Key == "content" && a.Value.String() != "[redacted 2 chars]" {
			t.Errorf("nested content = %q", a.Value.String())
		}
	}
}
