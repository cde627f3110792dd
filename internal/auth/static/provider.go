// Package static resolves logins against a YAML users file
package static

import (
	"context"
	"errors"
	"fmt"
	"os"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// User is one entry of the users file
type User struct {
	Login        string   `yaml:"login"`
	Name         string   `yaml:"name"`
	Email        string   `yaml:"email"`
	Groups       []string `yaml:"groups"`
	PasswordHash string   `yaml:"password_hash"`
}

// usersFile is the document layout of the users file
type usersFile struct {
	Users []User `yaml:"users"`
}

// Provider implements auth.Provider on a fixed user list
type Provider struct {
	logger *logging.Logger
	users  map[string]User
}

var _ auth.Provider = (*Provider)(nil)

// Load reads the users file at path
func Load(path string, logger *logging.Logger) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var doc usersFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}

	p, err := New(doc.Users, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid users file %s: %w", path, err)
	}
	p.logger.Info("Static users loaded", "path", path, "count", len(p.users))
	return p, nil
}

// New creates a provider from users. Logins must be unique and non-empty.
func New(users []User, logger *logging.Logger) (*Provider, error) {
	byLogin := make(map[string]User, len(users))
	for i, u := range users {
		if u.Login == "" {
			return nil, fmt.Errorf("user %d has no login", i)
		}
		if _, dup := byLogin[u.Login]; dup {
			return nil, fmt.Errorf("duplicate login %q", u.Login)
		}
		byLogin[u.Login] = u
	}

	return &Provider{
		logger: logger.WithModule("auth.static"),
		users:  byLogin,
	}, nil
}

// Name returns the name of this provider
func (p *Provider) Name() string {
	return "static"
}

// Authenticate returns the user named login. A password credential must
// match the stored bcrypt hash; users without a hash only resolve for
// trusted lookups.
func (p *Provider) Authenticate(ctx context.Context, login string, credential auth.Credential) (*auth.Principal, error) {
	u, ok := p.users[login]
	if !ok {
		return nil, nil
	}

	if !credential.Trusted() {
		if u.PasswordHash == "" || credential.Secret() == "" {
			return nil, nil
		}
		err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(credential.Secret()))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		if err != nil {
			p.logger.WithContext(ctx).Warn("Unusable password hash", "login", login, logging.Err(err))
			return nil, nil
		}
	}

	return &auth.Principal{
		Login:    u.Login,
		Name:     u.Name,
		Email:    u.Email,
		Groups:   u.Groups,
		Provider: p.Name(),
	}, nil
}
