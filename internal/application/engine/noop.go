package engine

import (
	"context"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// noopJournal se usa cuando no hay journal configurado.
type noopJournal struct{}

func (noopJournal) SavePosition(context.Context, domain.Position) error  { return nil }
func (noopJournal) SaveExit(context.Context, domain.ExitRecord) error    { return nil }
func (noopJournal) SaveSpend(context.Context, domain.SpendEntry) error   { return nil }
func (noopJournal) SaveCycle(context.Context, domain.CycleSummary) error { return nil }
func (noopJournal) GetExits(context.Context, time.Time, time.Time) ([]domain.ExitRecord, error) {
	return nil, nil
}
func (noopJournal) GetJournalStats(context.Context) (domain.JournalStats, error) {
	return domain.JournalStats{}, nil
}
func (noopJournal) Close() error { return nil }

// noopMetrics descarta todo.
type noopMetrics struct{}

func (noopMetrics) ObserveCycle(string, time.Duration, error) {}
func (noopMetrics) SignalDetected(domain.Side)                {}
func (noopMetrics) SignalSkipped(string)                      {}
func (noopMetrics) PositionOpened(float64)                    {}
func (noopMetrics) PositionClosed(domain.ExitReason, float64) {}
func (noopMetrics) SetOpenPositions(int)                      {}
func (noopMetrics) SetBudget(float64, float64)                {}
func (noopMetrics) SetHalted(bool)                            {}
