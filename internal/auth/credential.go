package auth

// CredentialKind distinguishes how an identity is vouched for
type CredentialKind int

const (
	// CredentialTrusted means the identity was already verified upstream
	// and must not be checked again
	CredentialTrusted CredentialKind = iota

	// CredentialPassword means the identity comes with a password to verify
	CredentialPassword
)

// String returns the kind name used in logs and metrics
func (k CredentialKind) String() string {
	switch k {
	case CredentialTrusted:
		return "trusted"
	case CredentialPassword:
		return "password"
	default:
		return "unknown"
	}
}

// Credential accompanies a login passed to a Provider
type Credential struct {
	kind     CredentialKind
	password string
}

// NoCredential is the credential-less variant used when a trusted front
// proxy has already authenticated the user. Providers only look the user up.
func NoCredential() Credential {
	return Credential{kind: CredentialTrusted}
}

// Password wraps a password that the provider must verify
func Password(password string) Credential {
	return Credential{kind: CredentialPassword, password: password}
}

// Kind returns the credential variant
func (c Credential) Kind() CredentialKind {
	return c.kind
}

// Trusted reports whether verification was already done upstream
func (c Credential) Trusted() bool {
	return c.kind == CredentialTrusted
}

// Secret returns the password of a CredentialPassword, or ""
func (c Credential) Secret() string {
	return c.password
}
