// Package metrics provides Prometheus instrumentation for the trading agent.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// Metrics implements ports.MetricsRecorder on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	signals       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	opened        prometheus.Counter
	openedCost    prometheus.Counter
	closed        *prometheus.CounterVec
	realizedPnL   prometheus.Gauge
	openPositions prometheus.Gauge
	spentToday    prometheus.Gauge
	remaining     prometheus.Gauge
	halted        prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	wsClients    prometheus.Gauge
}

// New registers every collector, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbishark_cycles_total",
			Help: "Total trading cycles run",
		}, []string{"backend", "result"}),
		cycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbishark_cycle_duration_seconds",
			Help:    "Trading cycle duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"backend"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbishark_signals_total",
			Help: "Arbitrage signals detected, partitioned by side",
		}, []string{"side"}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbishark_signals_skipped_total",
			Help: "Signals not traded, partitioned by reason",
		}, []string{"reason"}),
		opened: f.NewCounter(prometheus.CounterOpts{
			Name: "arbishark_positions_opened_total",
			Help: "Position legs opened",
		}),
		openedCost: f.NewCounter(prometheus.CounterOpts{
			Name: "arbishark_entry_cost_usdc_total",
			Help: "Cumulative entry cost in USDC, fees included",
		}),
		closed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbishark_positions_closed_total",
			Help: "Position legs closed, partitioned by exit reason",
		}, []string{"reason"}),
		realizedPnL: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbishark_realized_pnl_usdc",
			Help: "Realized P&L since start in USDC",
		}),
		openPositions: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbishark_open_positions",
			Help: "Number of currently open position legs",
		}),
		spentToday: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbishark_spent_today_usdc",
			Help: "Allowance spent in the current UTC day",
		}),
		remaining: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbishark_allowance_remaining_usdc",
			Help: "Allowance left in the current UTC day",
		}),
		halted: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbishark_trading_halted",
			Help: "1 while the risk gate blocks new positions",
		}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbishark_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arbishark_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "path"}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbishark_websocket_clients",
			Help: "Number of connected WebSocket clients",
		}),
	}
}

// Registry exposes the underlying registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveCycle(backend string, took time.Duration, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrSafeMode):
		result = "safe_mode"
	case err != nil:
		result = "error"
	}
	m.cycles.WithLabelValues(backend, result).Inc()
	m.cycleDuration.WithLabelValues(backend).Observe(took.Seconds())
}

func (m *Metrics) SignalDetected(side domain.Side) {
	m.signals.WithLabelValues(string(side)).Inc()
}

func (m *Metrics) SignalSkipped(reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) PositionOpened(cost float64) {
	m.opened.Inc()
	m.openedCost.Add(cost)
}

func (m *Metrics) PositionClosed(reason domain.ExitReason, pnl float64) {
	m.closed.WithLabelValues(string(reason)).Inc()
	m.realizedPnL.Add(pnl)
}

func (m *Metrics) SetOpenPositions(n int) { m.openPositions.Set(float64(n)) }

func (m *Metrics) SetBudget(spent, remaining float64) {
	m.spentToday.Set(spent)
	m.remaining.Set(remaining)
}

func (m *Metrics) SetHalted(halted bool) {
	if halted {
		m.halted.Set(1)
		return
	}
	m.halted.Set(0)
}

// ClientConnected and ClientDisconnected track dashboard WebSocket clients.
func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware returns an HTTP middleware that records request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
