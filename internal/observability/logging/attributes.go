package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedURL wraps a url.URL for logging without exposing sensitive information
type RedactedURL struct {
	url *url.URL
}

// LogValue implements slog.LogValuer to avoid revealing passwords
func (u RedactedURL) LogValue() slog.Value {
	if u.url == nil {
		return slog.StringValue("")
	}
	return slog.StringValue(u.url.Redacted())
}

// RedactURL returns a safely loggable URL value
func RedactURL(url *url.URL) RedactedURL {
	return RedactedURL{url: url}
}

// RedactedStringURL is a string containing a URL for safe logging
type RedactedStringURL string

// LogValue implements slog.LogValuer to avoid revealing passwords
func (s RedactedStringURL) LogValue() slog.Value {
	u, err := url.Parse(string(s))
	if err != nil {
		return slog.StringValue(string(s))
	}
	return slog.StringValue(u.Redacted())
}

// RedactStringURL returns a safely loggable URL string
func RedactStringURL(s string) slog.LogValuer {
	return RedactedStringURL(s)
}

// RedactedStringURLList is a list of URLs, such as LDAP servers, for safe logging
type RedactedStringURLList []string

// LogValue implements slog.LogValuer to avoid revealing passwords in a list of URLs
func (s RedactedStringURLList) LogValue() slog.Value {
	redacted := make([]string, len(s))
	for i, str := range s {
		u, err := url.Parse(strings.TrimSpace(str))
		if err != nil {
			redacted[i] = str
		} else {
			redacted[i] = u.Redacted()
		}
	}
	return slog.StringValue(strings.Join(redacted, ","))
}

// RedactStringURLList returns a safely loggable list of URLs
func RedactStringURLList(s []string) RedactedStringURLList {
	return RedactedStringURLList(s)
}
