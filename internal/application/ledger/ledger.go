// Package ledger owns the open and closed position sets.
//
// A position moves OPEN → CLOSED exactly once, inside CheckExits. Trade count,
// win count and total P&L change only at that point.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

const (
	DefaultProfitTargetSpread = 0.005
	DefaultStopLossSpread     = 0.02
	DefaultPositionTimeout    = time.Hour
)

// ExitConfig holds the exit trigger thresholds.
type ExitConfig struct {
	ProfitTargetSpread float64
	StopLossSpread     float64
	Timeout            time.Duration
}

// Ledger is safe for one writer and any number of readers.
type Ledger struct {
	cfg ExitConfig

	mu       sync.RWMutex
	open     []domain.Position
	closed   []domain.ExitRecord
	wins     int
	totalPnL float64
}

// New creates an empty ledger, filling unset thresholds with defaults.
func New(cfg ExitConfig) *Ledger {
	if cfg.ProfitTargetSpread <= 0 {
		cfg.ProfitTargetSpread = DefaultProfitTargetSpread
	}
	if cfg.StopLossSpread <= 0 {
		cfg.StopLossSpread = DefaultStopLossSpread
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPositionTimeout
	}
	return &Ledger{cfg: cfg}
}

// Config returns the thresholds in use.
func (l *Ledger) Config() ExitConfig {
	return l.cfg
}

// Open appends p to the open set and returns the stored copy.
// Recording the spend is the caller's job.
func (l *Ledger) Open(p domain.Position) domain.Position {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.EntryTime.IsZero() {
		p.EntryTime = time.Now().UTC()
	}
	p.Status = domain.PositionOpen

	l.mu.Lock()
	l.open = append(l.open, p)
	l.mu.Unlock()
	return p
}

// CheckExits evaluates every open position against snapshot and closes the ones
// whose trigger fired. Precedence per position: take profit, stop loss, timeout.
// Closed positions are no longer in the open set, so a second call with the same
// snapshot closes nothing new. Positions carrying FeeBps pay that fee on exit;
// defaultFeeRate covers the rest.
func (l *Ledger) CheckExits(snapshot []domain.Market, now time.Time, defaultFeeRate float64) []domain.ExitRecord {
	markets := domain.IndexMarkets(snapshot)

	l.mu.Lock()
	defer l.mu.Unlock()

	var exits []domain.ExitRecord
	kept := l.open[:0]
	for _, p := range l.open {
		m, found := markets[p.MarketID]
		reason, ok := l.evaluate(p, m, found, now)
		if !ok {
			kept = append(kept, p)
			continue
		}

		rec := closePosition(p, m, reason, now, defaultFeeRate)
		l.closed = append(l.closed, rec)
		l.totalPnL += rec.PnL
		if rec.Win() {
			l.wins++
		}
		exits = append(exits, rec)
	}
	// limpiar la cola del slice para no retener posiciones cerradas
	for i := len(kept); i < len(l.open); i++ {
		l.open[i] = domain.Position{}
	}
	l.open = kept

	return exits
}

// evaluate returns the first trigger that fires for p.
// Deviation is 1 - sum(prices): a Buy bundle is entered with positive deviation and
// gains as it shrinks. Only Buy positions are ever opened, so the sign is fixed.
func (l *Ledger) evaluate(p domain.Position, m domain.Market, found bool, now time.Time) (domain.ExitReason, bool) {
	if found && m.Hydrated() {
		move := p.EntrySpread - m.Deviation()
		if move >= l.cfg.ProfitTargetSpread {
			return domain.ExitTakeProfit, true
		}
		if -move >= l.cfg.StopLossSpread {
			return domain.ExitStopLoss, true
		}
	}
	if p.Age(now) >= l.cfg.Timeout {
		return domain.ExitTimeout, true
	}
	return "", false
}

// closePosition marks p to the current price of its token (entry price when the
// market is missing) and realizes P&L net of the exit-side fee.
func closePosition(p domain.Position, m domain.Market, reason domain.ExitReason, now time.Time, defaultFeeRate float64) domain.ExitRecord {
	exitPrice, ok := m.PriceOf(p.TokenID)
	if !ok {
		exitPrice = p.EntryPrice
	}
	exitValue := p.Size * exitPrice
	feeRate := defaultFeeRate
	if p.FeeBps > 0 {
		feeRate = domain.FeeSchedule{TakerBps: p.FeeBps}.TakerRate()
	}
	exitFee := exitValue * feeRate

	pnl := exitValue - p.EntryCost - exitFee

	p.Status = domain.PositionClosed
	return domain.ExitRecord{
		Position:  p,
		Reason:    reason,
		ExitPrice: exitPrice,
		ExitFee:   exitFee,
		PnL:       pnl,
		ClosedAt:  now,
	}
}

// --- Read accessors ---

// Positions returns a copy of the open set.
func (l *Ledger) Positions() []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Position(nil), l.open...)
}

// Closed returns a copy of the closed set in close order.
func (l *Ledger) Closed() []domain.ExitRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.ExitRecord(nil), l.closed...)
}

// HasOpen reports whether any open position belongs to marketID.
func (l *Ledger) HasOpen(marketID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.open {
		if p.MarketID == marketID {
			return true
		}
	}
	return false
}

// TradeCount is the number of closed positions.
func (l *Ledger) TradeCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.closed)
}

// WinRate is the fraction of closed positions with pnl > 0, 0 when none closed.
func (l *Ledger) WinRate() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return winRate(l.wins, len(l.closed))
}

// TotalPnL is the sum of realized P&L over all closed positions.
func (l *Ledger) TotalPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalPnL
}

// Snapshot returns all aggregates under a single read lock.
func (l *Ledger) Snapshot() domain.LedgerStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.LedgerStats{
		Open:       append([]domain.Position(nil), l.open...),
		Closed:     append([]domain.ExitRecord(nil), l.closed...),
		TradeCount: len(l.closed),
		Wins:       l.wins,
		WinRate:    winRate(l.wins, len(l.closed)),
		TotalPnL:   l.totalPnL,
	}
}

func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}
