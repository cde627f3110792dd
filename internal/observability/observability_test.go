package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"proxyauth/internal/config"
	"proxyauth/internal/observability/logging"
	"proxyauth/internal/observability/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Observability.LogLevel = "info"
	cfg.Observability.LogFormat = "json"

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.Logger)
	assert.NotNil(t, p.Metrics)
	assert.NotNil(t, p.MetricsHandler())

	cfg.Observability.LogFormat = "xml"
	_, err = NewProvider(cfg)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, "info", "json")
	require.NoError(t, err)

	p := &Provider{Logger: logger, Metrics: metrics.NewCollector()}

	t.Run("NewTrace", func(t *testing.T) {
		buf.Reset()
		var seen *logging.Logger
		var traceID string
		handler := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logging.LoggerFromContext(r.Context())
			traceID = logging.GetTraceIDFromContext(r.Context())
			http.Redirect(w, r, "/home", http.StatusFound)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ldap/validate", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		require.NotNil(t, seen)
		assert.NotEmpty(t, traceID)
		assert.Equal(t, traceID, rec.Header().Get("X-Trace-ID"))
		assert.Contains(t, buf.String(), "Request completed")
		assert.Contains(t, buf.String(), `"status":302`)
	})

	t.Run("ExistingTrace", func(t *testing.T) {
		handler := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(logging.ContextWithTraceID(req.Context(), "trace-abc"))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "trace-abc", rec.Header().Get("X-Trace-ID"))
	})
}
