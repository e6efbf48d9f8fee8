package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// TradeJournal persists what the engine did. It is write-behind: the in-memory
// ledger, guard and risk manager stay the source of truth.
type TradeJournal interface {
	SavePosition(ctx context.Context, p domain.Position) error
	SaveExit(ctx context.Context, e domain.ExitRecord) error
	SaveSpend(ctx context.Context, s domain.SpendEntry) error
	SaveCycle(ctx context.Context, c domain.CycleSummary) error

	GetExits(ctx context.Context, from, to time.Time) ([]domain.ExitRecord, error)
	GetJournalStats(ctx context.Context) (domain.JournalStats, error)

	Close() error
}

// BreakerStore persists the manual circuit breaker across restarts.
type BreakerStore interface {
	SaveCircuitBreaker(ctx context.Context, active bool) error
	LoadCircuitBreaker(ctx context.Context) (bool, error)
}
