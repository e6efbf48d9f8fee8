package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier y las vistas de terminal del agente.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime una notificación en una línea.
func (c *Console) Notify(_ context.Context, n domain.Notification) error {
	at := n.At
	if at.IsZero() {
		at = time.Now()
	}
	level := strings.ToUpper(n.Level)
	if level == "" {
		level = "INFO"
	}
	fmt.Fprintf(c.out, "[%s] %-5s %s", at.Format("15:04:05"), level, n.Title)
	if n.Message != "" {
		fmt.Fprintf(c.out, ": %s", n.Message)
	}
	fmt.Fprintln(c.out)
	return nil
}

// CycleInput agrupa lo que PrintCycle necesita.
type CycleInput struct {
	Summary domain.CycleSummary
	Opened  []domain.Position
	Exits   []domain.ExitRecord
	Skipped map[string]int // motivo → count
	Budget  domain.BudgetSnapshot
	Risk    domain.RiskStatus
	Err     error
}

// PrintCycle imprime el resultado de un ciclo: una línea compacta y, en modo tabla,
// el detalle de aperturas y cierres.
func (c *Console) PrintCycle(in CycleInput) {
	s := in.Summary
	now := s.StartedAt.Format("15:04:05")
	if s.StartedAt.IsZero() {
		now = time.Now().Format("15:04:05")
	}

	if in.Err != nil {
		fmt.Fprintf(c.out, "[%s][%s] cycle failed: %v\n", now, s.Backend, in.Err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s][%s] %d mkts → %d signals | +%d legs | -%d exits | skip %d | budget $%.2f/$%.2f | bal $%.2f",
		now, s.Backend, s.Markets, s.Signals, s.Opened, s.Exits, s.Skipped,
		in.Budget.SpentToday, in.Budget.DailyLimit, in.Risk.Balance)
	if reasons := skipLabel(in.Skipped); reasons != "" {
		fmt.Fprintf(&sb, " (%s)", reasons)
	}
	if s.Halted {
		fmt.Fprintf(&sb, "\n  !! HALTED: %s", in.Risk.HaltReason)
	}
	fmt.Fprintln(c.out, sb.String())

	if !c.table {
		return
	}
	if len(in.Opened) > 0 {
		c.printOpened(in.Opened)
	}
	if len(in.Exits) > 0 {
		c.PrintExits(in.Exits)
	}
}

func (c *Console) printOpened(positions []domain.Position) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Token", "Side", "Size", "Price", "Cost", "Spread")
	for _, p := range positions {
		table.Append(
			shortID(p.MarketID),
			shortID(p.TokenID),
			string(p.Side),
			fmt.Sprintf("%.2f", p.Size),
			fmt.Sprintf("$%.4f", p.EntryPrice),
			fmt.Sprintf("$%.4f", p.EntryCost),
			fmt.Sprintf("%+.4f", p.EntrySpread),
		)
	}
	table.Render()
}

// PrintExits imprime una tabla de cierres.
func (c *Console) PrintExits(exits []domain.ExitRecord) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Token", "Reason", "Size", "Entry", "Exit", "PnL")
	for _, e := range exits {
		table.Append(
			shortID(e.Position.MarketID),
			shortID(e.Position.TokenID),
			string(e.Reason),
			fmt.Sprintf("%.2f", e.Position.Size),
			fmt.Sprintf("$%.4f", e.Position.EntryPrice),
			fmt.Sprintf("$%.4f", e.ExitPrice),
			fmt.Sprintf("$%.4f", e.PnL),
		)
	}
	table.Render()
}

// PrintStatus imprime el estado actual del agente (al salir o con -once).
func (c *Console) PrintStatus(stats domain.DashboardStats, r domain.RiskStatus, b domain.BudgetSnapshot) {
	fmt.Fprintf(c.out, "\n=== STATUS ===\n")
	fmt.Fprintf(c.out, "  Feed connected:    %v\n", stats.Connected)
	fmt.Fprintf(c.out, "  Permission:        %s (active=%v)\n", orDash(b.PermissionID), b.Active)
	fmt.Fprintf(c.out, "  Budget:            $%.2f spent of $%.2f ($%.2f left)\n",
		b.SpentToday, b.DailyLimit, b.Remaining)
	fmt.Fprintf(c.out, "  Trades:            %d (win rate %.1f%%)\n", stats.TotalTrades, stats.WinRate)
	fmt.Fprintf(c.out, "  Realized PnL:      $%.4f\n", stats.TotalPnL)
	fmt.Fprintf(c.out, "  Open positions:    %d\n", stats.OpenPositions)
	fmt.Fprintf(c.out, "  Balance:           $%.2f (peak $%.2f, drawdown %.1f%%)\n",
		r.Balance, r.PeakBalance, r.Drawdown*100)
	fmt.Fprintf(c.out, "  Daily loss:        $%.4f | losing streak %d\n", r.DailyLoss, r.ConsecutiveLosses)
	if r.Halted {
		fmt.Fprintf(c.out, "  !! HALTED:         %s\n", r.HaltReason)
	}
	fmt.Fprintln(c.out)
}

// PrintReport imprime el informe agregado del journal.
func (c *Console) PrintReport(stats domain.JournalStats) {
	if stats.Positions == 0 && stats.Exits == 0 {
		fmt.Fprintln(c.out, "\n  No trading data yet. Run the agent for a while first.")
		return
	}

	fmt.Fprintf(c.out, "\n")
	fmt.Fprintf(c.out, "========================================================\n")
	fmt.Fprintf(c.out, "  BUNDLE ARBITRAGE REPORT (simulated execution)\n")
	fmt.Fprintf(c.out, "  %s to %s (%d days)\n",
		stats.StartDate.Format("2006-01-02"),
		stats.EndDate.Format("2006-01-02"),
		stats.DaysRunning)
	fmt.Fprintf(c.out, "========================================================\n\n")

	if len(stats.Dailies) > 0 {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Date", "Opened", "Exits", "Wins", "Spent", "PnL")
		for _, d := range stats.Dailies {
			tbl.Append(
				d.Date.Format("01-02"),
				fmt.Sprintf("%d", d.Opened),
				fmt.Sprintf("%d", d.Exits),
				fmt.Sprintf("%d", d.Wins),
				fmt.Sprintf("$%.2f", d.Spent),
				fmt.Sprintf("$%.4f", d.PnL),
			)
		}
		tbl.Render()
	}

	fmt.Fprintf(c.out, "\n  --- AGGREGATE ---\n")
	fmt.Fprintf(c.out, "  Cycles journaled:      %d\n", stats.Cycles)
	fmt.Fprintf(c.out, "  Legs opened:           %d (%d still open)\n", stats.Positions, stats.OpenPositions)
	fmt.Fprintf(c.out, "  Legs closed:           %d\n", stats.Exits)
	fmt.Fprintf(c.out, "  Win rate:              %.1f%%\n", stats.WinRate*100)
	fmt.Fprintf(c.out, "  Total spent:           $%.2f\n", stats.TotalSpent)

	fmt.Fprintf(c.out, "\n  --- P&L ---\n")
	fmt.Fprintf(c.out, "  Realized PnL:          $%.4f\n", stats.TotalPnL)
	fmt.Fprintf(c.out, "  Exit fees:             $%.4f\n", stats.TotalFees)
	fmt.Fprintf(c.out, "  Best trade:            $%.4f\n", stats.BestTrade)
	fmt.Fprintf(c.out, "  Worst trade:           $%.4f\n", stats.WorstTrade)
	if stats.DaysRunning > 0 {
		fmt.Fprintf(c.out, "  Daily avg PnL:         $%.4f/day\n", stats.TotalPnL/float64(stats.DaysRunning))
	}

	if len(stats.ByReason) > 0 {
		fmt.Fprintf(c.out, "\n  --- EXITS BY REASON ---\n")
		reasons := make([]string, 0, len(stats.ByReason))
		for r := range stats.ByReason {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(c.out, "  %-22s %d\n", r+":", stats.ByReason[domain.ExitReason(r)])
		}
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func skipLabel(skipped map[string]int) string {
	if len(skipped) == 0 {
		return ""
	}
	keys := make([]string, 0, len(skipped))
	for k := range skipped {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, skipped[k]))
	}
	return strings.Join(parts, " ")
}

func shortID(s string) string {
	if len(s) > 14 {
		return s[:12] + "..."
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
