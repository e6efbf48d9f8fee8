package metrics_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/arbishark/internal/adapters/metrics"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

var _ ports.MetricsRecorder = (*metrics.Metrics)(nil)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_RecorderSeries(t *testing.T) {
	m := metrics.New()

	m.ObserveCycle("mock", 120*time.Millisecond, nil)
	m.ObserveCycle("mock", time.Millisecond, fmt.Errorf("x: %w", domain.ErrSafeMode))
	m.ObserveCycle("mock", time.Millisecond, errors.New("boom"))
	m.SignalDetected(domain.SideBuy)
	m.SignalSkipped("edge")
	m.SignalSkipped("edge")
	m.PositionOpened(4.59)
	m.PositionOpened(4.59)
	m.PositionClosed(domain.ExitTakeProfit, 0.5)
	m.PositionClosed(domain.ExitStopLoss, -0.2)
	m.SetOpenPositions(3)
	m.SetBudget(9.18, 90.82)
	m.SetHalted(true)

	body := scrape(t, m)
	assert.Contains(t, body, `arbishark_cycles_total{backend="mock",result="ok"} 1`)
	assert.Contains(t, body, `arbishark_cycles_total{backend="mock",result="safe_mode"} 1`)
	assert.Contains(t, body, `arbishark_cycles_total{backend="mock",result="error"} 1`)
	assert.Contains(t, body, `arbishark_signals_total{side="BUY"} 1`)
	assert.Contains(t, body, `arbishark_signals_skipped_total{reason="edge"} 2`)
	assert.Contains(t, body, `arbishark_positions_opened_total 2`)
	assert.Contains(t, body, `arbishark_entry_cost_usdc_total 9.18`)
	assert.Contains(t, body, `arbishark_positions_closed_total{reason="TAKE_PROFIT"} 1`)
	assert.Contains(t, body, `arbishark_realized_pnl_usdc 0.3`)
	assert.Contains(t, body, `arbishark_open_positions 3`)
	assert.Contains(t, body, `arbishark_spent_today_usdc 9.18`)
	assert.Contains(t, body, `arbishark_trading_halted 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_SetHaltedResets(t *testing.T) {
	m := metrics.New()
	m.SetHalted(true)
	m.SetHalted(false)
	assert.Contains(t, scrape(t, m), "arbishark_trading_halted 0")
}

func TestMetrics_Middleware_UsesRoutePattern(t *testing.T) {
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	n, err := testutil.GatherAndCount(m.Registry(), "arbishark_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "una sola serie para ambos ids")
	assert.Contains(t, scrape(t, m),
		`arbishark_http_requests_total{method="GET",path="/api/items/{id}",status="418"} 2`)
}
