package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshotter map[string]float64

func (f fakeSnapshotter) GaugesSnapshot() map[string]float64 { return f }

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestHealthzReturnsOK(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New("", fakeSnapshotter{}, reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestDebugGaugesReturnsSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New("", fakeSnapshotter{"temp": 42.0}, reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/debug/gauges", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"temp":42}`, rec.Body.String())
}

func TestRunIsNoopWithoutAddress(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New("", fakeSnapshotter{}, reg, testLogger())
	assert.NoError(t, s.Run())
	assert.NoError(t, s.Shutdown())
}
