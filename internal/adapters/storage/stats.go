package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// GetJournalStats agrega todo el journal: totales, mejor/peor trade, cierres por
// motivo y un resumen por día UTC.
func (s *SQLiteStorage) GetJournalStats(ctx context.Context) (domain.JournalStats, error) {
	stats := domain.JournalStats{ByReason: make(map[domain.ExitReason]int)}

	var best, worst sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(pnl), 0),
		       COALESCE(SUM(exit_fee), 0), -- las fees de entrada van dentro de entry_cost
		       MAX(pnl), MIN(pnl)
		FROM exits`).Scan(&stats.Exits, &stats.Wins, &stats.TotalPnL, &stats.TotalFees, &best, &worst); err != nil {
		return stats, fmt.Errorf("storage.GetJournalStats: exits: %w", err)
	}
	stats.BestTrade = best.Float64
	stats.WorstTrade = worst.Float64
	if stats.Exits > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Exits)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'OPEN' THEN 1 ELSE 0 END), 0)
		FROM positions`).Scan(&stats.Positions, &stats.OpenPositions); err != nil {
		return stats, fmt.Errorf("storage.GetJournalStats: positions: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM spends`).Scan(&stats.TotalSpent); err != nil {
		return stats, fmt.Errorf("storage.GetJournalStats: spends: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cycles`).Scan(&stats.Cycles); err != nil {
		return stats, fmt.Errorf("storage.GetJournalStats: cycles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT reason, COUNT(*) FROM exits GROUP BY reason`)
	if err != nil {
		return stats, fmt.Errorf("storage.GetJournalStats: by reason: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return stats, fmt.Errorf("storage.GetJournalStats: scan reason: %w", err)
		}
		stats.ByReason[domain.ExitReason(reason)] = n
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	dailies, err := s.getDailies(ctx)
	if err != nil {
		return stats, err
	}
	stats.Dailies = dailies
	stats.DaysRunning = len(dailies)
	if len(dailies) > 0 {
		stats.StartDate = dailies[0].Date
		stats.EndDate = dailies[len(dailies)-1].Date
	}
	return stats, nil
}

// getDailies junta por día UTC los cierres, las aperturas y el gasto.
func (s *SQLiteStorage) getDailies(ctx context.Context) ([]domain.DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, SUM(exits), SUM(wins), SUM(pnl), SUM(spent), SUM(opened) FROM (
			SELECT substr(closed_at, 1, 10) AS day, 1 AS exits,
			       CASE WHEN pnl > 0 THEN 1 ELSE 0 END AS wins, pnl, 0 AS spent, 0 AS opened
			FROM exits
			UNION ALL
			SELECT substr(spent_at, 1, 10), 0, 0, 0, amount, 0 FROM spends
			UNION ALL
			SELECT substr(entry_time, 1, 10), 0, 0, 0, 0, 1 FROM positions
		)
		GROUP BY day
		ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.getDailies: query: %w", err)
	}
	defer rows.Close()

	var dailies []domain.DailySummary
	for rows.Next() {
		var d domain.DailySummary
		var day string
		if err := rows.Scan(&day, &d.Exits, &d.Wins, &d.PnL, &d.Spent, &d.Opened); err != nil {
			return nil, fmt.Errorf("storage.getDailies: scan row: %w", err)
		}
		d.Date, _ = time.Parse(time.DateOnly, day)
		dailies = append(dailies, d)
	}
	return dailies, rows.Err()
}
