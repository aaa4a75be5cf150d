package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesServiceCollectors(t *testing.T) {
	m := New()
	m.BlobDeletions.WithLabelValues(Result(nil)).Inc()
	m.BlobDeletions.WithLabelValues(Result(errors.New("boom"))).Add(2)
	m.SessionRefreshes.WithLabelValues("mismatch").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BlobDeletions.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BlobDeletions.WithLabelValues("error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vidshare_sessions_refreshes_total{result="mismatch"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
