package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"proxyauth/internal/auth"
	"proxyauth/internal/observability/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewWithWriter(io.Discard, "debug", "text")
	require.NoError(t, err)
	return logger
}

func newTestStore(t *testing.T, secret string) *Store {
	t.Helper()
	store, err := NewStore(Config{
		CookieName: "test_session",
		Secret:     secret,
		MaxAge:     time.Hour,
		Secure:     true,
	}, testLogger(t))
	require.NoError(t, err)
	return store
}

// requestWithCookies builds a request carrying the cookies set on w
func requestWithCookies(w *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

// boundSession saves a session bound to login and returns the response
// carrying its cookie
func boundSession(t *testing.T, store *Store, login string) *httptest.ResponseRecorder {
	t.Helper()
	sess, err := store.Open(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.BindPrincipal(&auth.Principal{Login: login})
	w := httptest.NewRecorder()
	require.NoError(t, sess.Save(w))
	return w
}

func TestNewStore_ShortSecret(t *testing.T) {
	_, err := NewStore(Config{Secret: "too-short"}, testLogger(t))
	require.ErrorIs(t, err, auth.ErrConfigurationMissing)
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t, testSecret)

	sess, err := store.Open(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, sess.Principal())

	sess.BindPrincipal(&auth.Principal{
		Login:    "jdoe",
		Name:     "John Doe",
		Email:    "jdoe@example.com",
		Provider: "ldap",
		Groups:   []string{"dev"},
	})
	sess.RememberDestination("/projects?id=1")

	w := httptest.NewRecorder()
	require.NoError(t, sess.Save(w))

	sess, err = store.Open(requestWithCookies(w))
	require.NoError(t, err)
	require.NotNil(t, sess.Principal())
	assert.Equal(t, "jdoe", sess.Principal().Login)
	assert.Equal(t, "John Doe", sess.Principal().Name)
	assert.Equal(t, []string{"dev"}, sess.Principal().Groups)

	assert.Equal(t, "/projects?id=1", sess.TakeDestination())
	assert.Empty(t, sess.TakeDestination(), "destination is consumed by the first take")

	w2 := httptest.NewRecorder()
	require.NoError(t, sess.Save(w2))

	sess, err = store.Open(requestWithCookies(w2))
	require.NoError(t, err)
	assert.Equal(t, "jdoe", sess.Principal().Login)
	assert.Empty(t, sess.TakeDestination())
}

func TestStore_CookieAttributes(t *testing.T) {
	store := newTestStore(t, testSecret)

	sess, err := store.Open(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.BindPrincipal(&auth.Principal{Login: "jdoe"})

	w := httptest.NewRecorder()
	require.NoError(t, sess.Save(w))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "test_session", c.Name)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
	assert.NotContains(t, c.Value, "jdoe", "cookie payload must be encrypted")
}

func TestStore_UnreadableCookie(t *testing.T) {
	tests := []struct {
		name   string
		cookie func(t *testing.T) *http.Cookie
	}{
		{
			name: "Garbage",
			cookie: func(*testing.T) *http.Cookie {
				return &http.Cookie{Name: "test_session", Value: "not-a-session"}
			},
		},
		{
			name: "OtherSecret",
			cookie: func(t *testing.T) *http.Cookie {
				other := newTestStore(t, strings.Repeat("z", 32))
				sess, err := other.Open(httptest.NewRequest(http.MethodGet, "/", nil))
				require.NoError(t, err)
				sess.BindPrincipal(&auth.Principal{Login: "mallory"})
				w := httptest.NewRecorder()
				require.NoError(t, sess.Save(w))
				return w.Result().Cookies()[0]
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, testSecret)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(tt.cookie(t))

			sess, err := store.Open(req)
			require.NoError(t, err)
			assert.Nil(t, sess.Principal())
			assert.Empty(t, sess.TakeDestination())
		})
	}
}

func TestAuthenticator(t *testing.T) {
	store := newTestStore(t, testSecret)
	authenticator := NewAuthenticator(store, "", testLogger(t))
	assert.Equal(t, "session", authenticator.Name())

	var (
		gotPrincipal *auth.Principal
		gotType      auth.AuthType
	)
	handler := authenticator.GetMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal = auth.PrincipalFromContext(r.Context())
		gotType = auth.AuthTypeFromContext(r.Context())
	}))

	t.Run("NoSession", func(t *testing.T) {
		gotPrincipal, gotType = nil, ""
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, gotPrincipal)
		assert.Empty(t, gotType)
	})

	t.Run("BoundSession", func(t *testing.T) {
		sess, err := store.Open(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		sess.BindPrincipal(&auth.Principal{Login: "jdoe"})
		w := httptest.NewRecorder()
		require.NoError(t, sess.Save(w))

		gotPrincipal, gotType = nil, ""
		handler.ServeHTTP(httptest.NewRecorder(), requestWithCookies(w))
		require.NotNil(t, gotPrincipal)
		assert.Equal(t, "jdoe", gotPrincipal.Login)
		assert.Equal(t, auth.AuthTypeSession, gotType)
	})

	t.Run("PrincipalAlreadyInContext", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &auth.Principal{Login: "svc"}))

		gotPrincipal, gotType = nil, ""
		handler.ServeHTTP(httptest.NewRecorder(), req)
		require.NotNil(t, gotPrincipal)
		assert.Equal(t, "svc", gotPrincipal.Login)
	})
}

func TestStore_ClearPrincipalAndRejectedLogin(t *testing.T) {
	store := newTestStore(t, testSecret)

	sess, err := store.Open(requestWithCookies(boundSession(t, store, "jdoe")))
	require.NoError(t, err)
	require.NotNil(t, sess.Principal())

	sess.ClearPrincipal()
	sess.RememberRejected("mallory")
	w := httptest.NewRecorder()
	require.NoError(t, sess.Save(w))

	sess, err = store.Open(requestWithCookies(w))
	require.NoError(t, err)
	assert.Nil(t, sess.Principal())
	assert.Equal(t, "mallory", sess.RejectedLogin())

	sess.BindPrincipal(&auth.Principal{Login: "jdoe"})
	assert.Empty(t, sess.RejectedLogin(), "binding forgets the rejected login")
}

func TestAuthenticator_IdentityHeader(t *testing.T) {
	store := newTestStore(t, testSecret)
	authenticator := NewAuthenticator(store, "X-Forwarded-User", testLogger(t))

	tests := []struct {
		name      string
		header    string
		wantLogin string
	}{
		{name: "NoHeader", header: "", wantLogin: "jdoe"},
		{name: "SameLogin", header: "jdoe", wantLogin: "jdoe"},
		{name: "BlankHeader", header: "  ", wantLogin: "jdoe"},
		{name: "OtherLogin", header: "mallory", wantLogin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *auth.Principal
			handler := authenticator.GetMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.PrincipalFromContext(r.Context())
			}))

			req := requestWithCookies(boundSession(t, store, "jdoe"))
			if tt.header != "" {
				req.Header.Set("X-Forwarded-User", tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantLogin == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLogin, got.Login)
		})
	}
}
