package util

import (
	"net/url"
	"strings"
)

// IsRedirectSafe validates that a redirect URL is safe to use.
// It only allows:
// 1. Relative paths starting with "/" but not "//"
// 2. Absolute http(s) URLs whose host matches baseURL
func IsRedirectSafe(redirectURL, baseURL string) bool {
	// Empty redirect is safe (will use default)
	if redirectURL == "" {
		return true
	}

	// Must not contain newlines or carriage returns (header injection)
	if strings.ContainsAny(redirectURL, "\r\n") {
		return false
	}

	// Check if it's a relative path
	if strings.HasPrefix(redirectURL, "/") {
		// Reject protocol-relative URLs like "//evil.com"
		if strings.HasPrefix(redirectURL, "//") {
			return false
		}
		// Reject backslash variations like "/\evil.com"
		return !strings.Contains(redirectURL, "\\")
	}

	parsedRedirect, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}

	// Reject javascript:, data:, and other non-http(s) schemes
	if parsedRedirect.Scheme != "http" && parsedRedirect.Scheme != "https" {
		return false
	}

	// Absolute URLs are only accepted for the service's own host
	if baseURL == "" {
		return false
	}
	parsedBase, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return parsedRedirect.Host != "" && parsedRedirect.Host == parsedBase.Host
}
