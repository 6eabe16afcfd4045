package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return testutil.ToFloat64(c)
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	return testutil.ToFloat64(g)
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	t.Parallel()
	m := NewMetrics()
	m.Actions.WithLabelValues("bid", "ok").Inc()
	m.Restarts.WithLabelValues("heartbeat").Add(2)
	m.ActiveActors.Set(3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `briscola_actions_total{status="ok",type="bid"} 1`)
	assert.Contains(t, text, `briscola_actor_restarts_total{reason="heartbeat"} 2`)
	assert.Contains(t, text, "briscola_active_actors 3")
	assert.Contains(t, text, "go_goroutines")
}

func TestMetricsUseSeparateRegistries(t *testing.T) {
	t.Parallel()
	a, b := NewMetrics(), NewMetrics()
	a.Dropped.Inc()

	assert.Equal(t, 1.0, counterValue(t, a.Dropped))
	assert.Zero(t, counterValue(t, b.Dropped))
	assert.NotSame(t, a.Registry(), b.Registry())
}
