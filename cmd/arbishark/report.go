package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/arbishark/internal/adapters/notify"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

const reportRecentExits = 10

// runReport imprime el informe agregado del journal y, en modo tabla, los
// últimos cierres de las 24h previas.
func runReport(ctx context.Context, journal ports.TradeJournal, table bool) error {
	stats, err := journal.GetJournalStats(ctx)
	if err != nil {
		return fmt.Errorf("runReport: %w", err)
	}

	console := notify.NewConsole(table)
	console.PrintReport(stats)
	if !table {
		return nil
	}

	now := time.Now().UTC()
	exits, err := journal.GetExits(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		return fmt.Errorf("runReport: recent exits: %w", err)
	}
	if len(exits) == 0 {
		return nil
	}
	if len(exits) > reportRecentExits {
		exits = exits[len(exits)-reportRecentExits:]
	}
	fmt.Printf("  --- LAST %d EXITS (24h) ---\n", len(exits))
	console.PrintExits(exits)
	return nil
}
