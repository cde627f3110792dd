package reverseproxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"proxyauth/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHeaderKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "Lowercase", input: "x-forwarded-user", want: "X-Forwarded-User"},
		{name: "Uppercase", input: "X-FORWARDED-USER", want: "X-Forwarded-User"},
		{name: "Canonical", input: "X-Forwarded-User", want: "X-Forwarded-User"},
		{name: "MixedCase", input: "x-fOrWaRdEd-uSeR", want: "X-Forwarded-User"},
		{name: "SurroundingSpace", input: "  Remote-User ", want: "Remote-User"},
		{name: "Empty", input: "", wantErr: auth.ErrConfigurationMissing},
		{name: "Blank", input: "   ", wantErr: auth.ErrConfigurationMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveHeaderKey(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHeaderKey_InvalidName(t *testing.T) {
	for _, name := range []string{"x forwarded user", "x-user:", "x-user\r\n"} {
		_, err := ResolveHeaderKey(name)
		assert.Error(t, err, name)
	}
}

func TestResolveHeaderKey_DifferentCasingsAgree(t *testing.T) {
	a, err := ResolveHeaderKey("x-remote-user")
	require.NoError(t, err)
	b, err := ResolveHeaderKey("X-REMOTE-USER")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExtractIdentity(t *testing.T) {
	key, err := ResolveHeaderKey("X-FORWARDED-USER")
	require.NoError(t, err)

	tests := []struct {
		name        string
		header      http.Header
		wantLogin   string
		wantPresent bool
	}{
		{
			name:        "Present",
			header:      http.Header{"X-Forwarded-User": {"jdoe"}},
			wantLogin:   "jdoe",
			wantPresent: true,
		},
		{
			name:        "ValuePassedThroughVerbatim",
			header:      http.Header{"X-Forwarded-User": {"JDoe@Example"}},
			wantLogin:   "JDoe@Example",
			wantPresent: true,
		},
		{
			name:        "FirstValueWins",
			header:      http.Header{"X-Forwarded-User": {"alice", "bob"}},
			wantLogin:   "alice",
			wantPresent: true,
		},
		{
			name:   "Missing",
			header: http.Header{},
		},
		{
			name:   "Empty",
			header: http.Header{"X-Forwarded-User": {""}},
		},
		{
			name:   "Whitespace",
			header: http.Header{"X-Forwarded-User": {" \t "}},
		},
		{
			name:   "OtherHeader",
			header: http.Header{"X-Remote-User": {"jdoe"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ldap/validate", nil)
			req.Header = tt.header

			login, present := ExtractIdentity(req, key)
			assert.Equal(t, tt.wantPresent, present)
			assert.Equal(t, tt.wantLogin, login)
		})
	}
}
