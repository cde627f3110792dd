package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRedirectSafe(t *testing.T) {
	const base = "https://app.example.com"

	tests := []struct {
		name     string
		redirect string
		baseURL  string
		want     bool
	}{
		{"empty", "", base, true},
		{"relative path", "/projects/42?tab=issues", base, true},
		{"protocol relative", "//evil.com/x", base, false},
		{"backslash", "/\\evil.com", base, false},
		{"header injection", "/home\r\nSet-Cookie: x=y", base, false},
		{"same host absolute", "https://app.example.com/dashboard", base, true},
		{"other host absolute", "https://evil.com/dashboard", base, false},
		{"absolute without base", "https://app.example.com/dashboard", "", false},
		{"javascript scheme", "javascript:alert(1)", base, false},
		{"bare word", "dashboard", base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRedirectSafe(tt.redirect, tt.baseURL))
		})
	}
}
