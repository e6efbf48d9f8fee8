// Package risk gates new trades on balance, drawdown, loss streak and volatility.
package risk

import (
	"fmt"
	"math"
	"sync"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// recentWindow is the number of realized P&Ls kept for the volatility estimate.
const recentWindow = 100

// Config holds the risk thresholds.
type Config struct {
	MaxDrawdown          float64 // fraction of peak balance, e.g. 0.20
	MaxDailyLoss         float64 // USDC
	MaxConsecutiveLosses int
	VolatilityThreshold  float64 // std-dev of pnl/balance
	MinLiquidity         float64 // USDC
	MaxPositionSize      float64 // USDC per trade
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MaxDrawdown:          0.20,
		MaxDailyLoss:         50,
		MaxConsecutiveLosses: 5,
		VolatilityThreshold:  0.15,
		MinLiquidity:         1000,
		MaxPositionSize:      100,
	}
}

// Manager owns the risk state behind one RWMutex. RecordTrade is the only writer of
// balance, peak, daily loss, streak and the P&L ring.
type Manager struct {
	cfg Config

	mu                sync.RWMutex
	balance           float64
	peak              float64
	dailyLoss         float64
	consecutiveLosses int
	recent            ring
	circuitBreaker    bool
}

// New creates a manager starting at initialBalance.
func New(initialBalance float64, cfg Config) *Manager {
	return &Manager{
		cfg:     cfg,
		balance: initialBalance,
		peak:    initialBalance,
	}
}

// Config returns the thresholds in use.
func (m *Manager) Config() Config {
	return m.cfg
}

// ShouldHalt reports whether new trades must be suppressed and why.
// Precedence: circuit breaker, drawdown, daily loss, consecutive losses, volatility.
func (m *Manager) ShouldHalt() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shouldHaltLocked()
}

func (m *Manager) shouldHaltLocked() (bool, string) {
	if m.circuitBreaker {
		return true, "Circuit breaker activated"
	}

	if dd := m.drawdownLocked(); dd > m.cfg.MaxDrawdown {
		return true, fmt.Sprintf("Max drawdown exceeded: %.1f%% (limit: %.1f%%)",
			dd*100, m.cfg.MaxDrawdown*100)
	}

	if m.dailyLoss > m.cfg.MaxDailyLoss {
		return true, fmt.Sprintf("Daily loss limit hit: $%.2f (limit: $%.2f)",
			m.dailyLoss, m.cfg.MaxDailyLoss)
	}

	if m.cfg.MaxConsecutiveLosses > 0 && m.consecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		return true, fmt.Sprintf("Too many consecutive losses: %d (limit: %d)",
			m.consecutiveLosses, m.cfg.MaxConsecutiveLosses)
	}

	if vol := m.volatilityLocked(); vol > m.cfg.VolatilityThreshold {
		return true, fmt.Sprintf("Market too volatile: %.1f%% (limit: %.1f%%)",
			vol*100, m.cfg.VolatilityThreshold*100)
	}

	return false, ""
}

// ValidateTrade checks one prospective trade of size USDC in a market with the
// given liquidity. Size and liquidity limits apply even when not halted.
func (m *Manager) ValidateTrade(size, liquidity float64) error {
	if size > m.cfg.MaxPositionSize {
		return fmt.Errorf("%w: trade size $%.2f exceeds max $%.2f",
			domain.ErrRiskRejected, size, m.cfg.MaxPositionSize)
	}
	if liquidity < m.cfg.MinLiquidity {
		return fmt.Errorf("%w: insufficient liquidity: $%.2f (min: $%.2f)",
			domain.ErrRiskRejected, liquidity, m.cfg.MinLiquidity)
	}
	if halted, reason := m.ShouldHalt(); halted {
		return fmt.Errorf("%w: %s", domain.ErrRiskHalt, reason)
	}
	return nil
}

// RecordTrade applies one realized P&L as a single update.
func (m *Manager) RecordTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balance += pnl
	if m.balance > m.peak {
		m.peak = m.balance
	}
	if pnl < 0 {
		m.dailyLoss += math.Abs(pnl)
		m.consecutiveLosses++
	} else {
		m.consecutiveLosses = 0
	}
	m.recent.push(pnl)
}

// ResetDaily clears the daily loss counter only.
func (m *Manager) ResetDaily() {
	m.mu.Lock()
	m.dailyLoss = 0
	m.mu.Unlock()
}

// SetCircuitBreaker sets or clears the explicit halt flag.
func (m *Manager) SetCircuitBreaker(active bool) {
	m.mu.Lock()
	m.circuitBreaker = active
	m.mu.Unlock()
}

// Status returns a consistent projection of the risk state.
func (m *Manager) Status() domain.RiskStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	halted, reason := m.shouldHaltLocked()
	return domain.RiskStatus{
		Balance:           m.balance,
		PeakBalance:       m.peak,
		Drawdown:          m.drawdownLocked(),
		DailyLoss:         m.dailyLoss,
		ConsecutiveLosses: m.consecutiveLosses,
		Volatility:        m.volatilityLocked(),
		RecentTrades:      m.recent.len(),
		CircuitBreaker:    m.circuitBreaker,
		Halted:            halted,
		HaltReason:        reason,
	}
}

func (m *Manager) drawdownLocked() float64 {
	if m.peak <= 0 {
		return 0
	}
	return (m.peak - m.balance) / m.peak
}

// volatilityLocked is the population std-dev of pnl/balance over the ring,
// 0 with fewer than two trades or a non-positive balance.
func (m *Manager) volatilityLocked() float64 {
	n := m.recent.len()
	if n < 2 || m.balance <= 0 {
		return 0
	}

	returns := make([]float64, 0, n)
	m.recent.each(func(pnl float64) {
		returns = append(returns, pnl/m.balance)
	})

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(n))
}

// ring keeps the last recentWindow P&Ls, evicting the oldest.
type ring struct {
	buf   [recentWindow]float64
	start int
	size  int
}

func (r *ring) push(v float64) {
	if r.size < recentWindow {
		r.buf[(r.start+r.size)%recentWindow] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % recentWindow
}

func (r *ring) len() int {
	return r.size
}

func (r *ring) each(fn func(float64)) {
	for i := 0; i < r.size; i++ {
		fn(r.buf[(r.start+i)%recentWindow])
	}
}
