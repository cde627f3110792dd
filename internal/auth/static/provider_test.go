package static

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewWithWriter(io.Discard, "debug", "text")
	require.NoError(t, err)
	return logger
}

func writeUsersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	path := writeUsersFile(t, `
users:
  - login: jdoe
    name: John Doe
    email: jdoe@example.com
    groups: [dev, ops]
    password_hash: `+string(hash)+`
  - login: svc-build
    name: Build Robot
`)

	p, err := Load(path, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "static", p.Name())

	ctx := context.Background()

	principal, err := p.Authenticate(ctx, "jdoe", auth.NoCredential())
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, "John Doe", principal.Name)
	assert.Equal(t, "jdoe@example.com", principal.Email)
	assert.Equal(t, []string{"dev", "ops"}, principal.Groups)
	assert.Equal(t, "static", principal.Provider)

	principal, err = p.Authenticate(ctx, "svc-build", auth.NoCredential())
	require.NoError(t, err)
	require.NotNil(t, principal)

	principal, err = p.Authenticate(ctx, "nobody", auth.NoCredential())
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestLoad_Errors(t *testing.T) {
	logger := testLogger(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), logger)
	assert.Error(t, err)

	_, err = Load(writeUsersFile(t, "users: [unterminated"), logger)
	assert.Error(t, err)

	_, err = Load(writeUsersFile(t, "users:\n  - name: No Login\n"), logger)
	assert.ErrorContains(t, err, "no login")

	_, err = Load(writeUsersFile(t, "users:\n  - login: a\n  - login: a\n"), logger)
	assert.ErrorContains(t, err, "duplicate")
}

func TestAuthenticate_Password(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	p, err := New([]User{
		{Login: "jdoe", PasswordHash: string(hash)},
		{Login: "nohash"},
		{Login: "broken", PasswordHash: "not-a-bcrypt-hash"},
	}, testLogger(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		login  string
		secret string
		want   bool
	}{
		{"Correct", "jdoe", "hunter2", true},
		{"Wrong", "jdoe", "hunter3", false},
		{"Empty", "jdoe", "", false},
		{"NoHash", "nohash", "anything", false},
		{"BrokenHash", "broken", "anything", false},
		{"Unknown", "nobody", "hunter2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, err := p.Authenticate(context.Background(), tt.login, auth.Password(tt.secret))
			require.NoError(t, err)
			assert.Equal(t, tt.want, principal != nil)
		})
	}
}
