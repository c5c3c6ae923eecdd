package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumentUsesRoutePattern(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/v1/verifications/{accountID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, account := range []string{"alice.near", "bob.near"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/verifications/"+account, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.HTTPRequests.WithLabelValues("/v1/verifications/{accountID}", http.MethodGet, "404")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.SetLedgerUsage(10)
	h := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	assert.NotNil(t, h)
}

func TestLedgerUsage(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	m.SetLedgerUsage(58)
	assert.Equal(t, float64(58), testutil.ToFloat64(m.LedgerUsageBytes))
}
