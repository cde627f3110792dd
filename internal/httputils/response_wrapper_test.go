package httputils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseWriter(t *testing.T) {
	t.Run("DefaultStatus", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := NewResponseWriter(rec)

		n, err := rw.Write([]byte("hello"))
		require.NoError(t, err)

		assert.Equal(t, 5, n)
		assert.Equal(t, http.StatusOK, rw.StatusCode)
		assert.Equal(t, 5, rw.BytesWritten)
		assert.True(t, rw.HeaderWritten)
	})

	t.Run("FirstStatusWins", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := NewResponseWriter(rec)

		rw.WriteHeader(http.StatusFound)
		rw.WriteHeader(http.StatusInternalServerError)

		assert.Equal(t, http.StatusFound, rw.StatusCode)
		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("Redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := NewResponseWriter(rec)

		http.Redirect(rw, httptest.NewRequest(http.MethodGet, "/", nil), "/home", http.StatusFound)

		assert.Equal(t, http.StatusFound, rw.StatusCode)
		assert.Equal(t, "/home", rec.Header().Get("Location"))
	})

	t.Run("FlushAndUnwrap", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := NewResponseWriter(rec)

		require.NoError(t, http.NewResponseController(rw).Flush())
		assert.True(t, rec.Flushed)
		assert.Same(t, rec, rw.Unwrap())
	})

	t.Run("HijackUnsupported", func(t *testing.T) {
		rw := NewResponseWriter(httptest.NewRecorder())
		_, _, err := rw.Hijack()
		assert.Error(t, err)
	})
}
