package reverseproxy

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"proxyauth/internal/observability/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFilter(t *testing.T) {
	h, err := New(Config{HeaderName: "x-forwarded-user"}, knownUsers("jdoe"), &fakeStore{session: &fakeSession{}},
		testLogger(t), metrics.NewCollector())
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	filter := h.LoginFilter(next)

	tests := []struct {
		name         string
		path         string
		header       map[string]string
		tls          bool
		wantStatus   int
		wantLocation string
	}{
		{
			name:       "NoIdentityPassesThrough",
			path:       "/sessions/new",
			wantStatus: http.StatusTeapot,
		},
		{
			name:       "BlankIdentityPassesThrough",
			path:       "/sessions/new",
			header:     map[string]string{"X-Forwarded-User": " "},
			wantStatus: http.StatusTeapot,
		},
		{
			name:         "IdentityRedirectsToValidate",
			path:         "/sessions/new",
			header:       map[string]string{"X-Forwarded-User": "jdoe"},
			wantStatus:   http.StatusFound,
			wantLocation: "http://app.example.com/ldap/validate",
		},
		{
			name:         "QueryIsDropped",
			path:         "/sessions/new?return_to=%2Fadmin",
			header:       map[string]string{"X-Forwarded-User": "jdoe"},
			wantStatus:   http.StatusFound,
			wantLocation: "http://app.example.com/ldap/validate",
		},
		{
			name:         "ContextPathPreserved",
			path:         "/sonar/sessions/new",
			header:       map[string]string{"X-Forwarded-User": "jdoe"},
			wantStatus:   http.StatusFound,
			wantLocation: "http://app.example.com/sonar/ldap/validate",
		},
		{
			name:         "TLSConnection",
			path:         "/sessions/new",
			header:       map[string]string{"X-Forwarded-User": "jdoe"},
			tls:          true,
			wantStatus:   http.StatusFound,
			wantLocation: "https://app.example.com/ldap/validate",
		},
		{
			name: "UnderscoreForwardedProto",
			path: "/sessions/new",
			header: map[string]string{
				"X-Forwarded-User":  "jdoe",
				"X_FORWARDED_PROTO": "https",
			},
			wantStatus:   http.StatusFound,
			wantLocation: "https://app.example.com/ldap/validate",
		},
		{
			name: "StandardForwardedProto",
			path: "/sessions/new",
			header: map[string]string{
				"X-Forwarded-User":  "jdoe",
				"X-Forwarded-Proto": "HTTPS",
			},
			wantStatus:   http.StatusFound,
			wantLocation: "https://app.example.com/ldap/validate",
		},
		{
			name: "ForwardedProtoDowngradesTLS",
			path: "/sessions/new",
			header: map[string]string{
				"X-Forwarded-User":  "jdoe",
				"X-Forwarded-Proto": "http",
			},
			tls:          true,
			wantStatus:   http.StatusFound,
			wantLocation: "http://app.example.com/ldap/validate",
		},
		{
			name: "UnknownForwardedProtoIgnored",
			path: "/sessions/new",
			header: map[string]string{
				"X-Forwarded-User":  "jdoe",
				"X-Forwarded-Proto": "gopher",
			},
			wantStatus:   http.StatusFound,
			wantLocation: "http://app.example.com/ldap/validate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://app.example.com"+tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}

			w := httptest.NewRecorder()
			filter.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
		})
	}
}

func TestLoginFilter_RejectedLogin(t *testing.T) {
	sess := &fakeSession{rejected: "mallory"}
	h, err := New(Config{HeaderName: "X-Forwarded-User"}, knownUsers("jdoe"), &fakeStore{session: sess},
		testLogger(t), metrics.NewCollector())
	require.NoError(t, err)

	filter := h.LoginFilter(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name       string
		login      string
		wantStatus int
	}{
		{name: "SameLoginServesLoginPage", login: "mallory", wantStatus: http.StatusTeapot},
		{name: "OtherLoginRetriesHandshake", login: "jdoe", wantStatus: http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://app.example.com/sessions/new", nil)
			req.Header.Set("X-Forwarded-User", tt.login)

			w := httptest.NewRecorder()
			filter.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestLoginFilter_SessionOpenFails(t *testing.T) {
	h, err := New(Config{HeaderName: "X-Forwarded-User"}, knownUsers("jdoe"), &fakeStore{err: errors.New("boom")},
		testLogger(t), metrics.NewCollector())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/sessions/new", nil)
	req.Header.Set("X-Forwarded-User", "jdoe")

	w := httptest.NewRecorder()
	h.LoginFilter(http.NotFoundHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://app.example.com/ldap/validate", w.Header().Get("Location"))
}
