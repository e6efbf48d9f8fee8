package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// errLowProfit marks a bundle whose simulated fills leave less than the minimum profit.
var errLowProfit = errors.New("expected profit below minimum")

// leg is one outcome token of a bundle being opened.
type leg struct {
	tokenID string
	book    domain.OrderBook
	size    float64
	fill    domain.ExecutionResult
}

// handleSignal decides on a single signal and opens its bundle when every check passes.
func (e *Engine) handleSignal(ctx context.Context, s domain.Signal, m domain.Market, res *CycleResult) {
	if s.Side == domain.SideSell {
		e.skipSignal(res, s, "sell_unsupported", domain.ErrSellUnsupported)
		return
	}
	if e.ledger.HasOpen(s.MarketID) {
		e.skipSignal(res, s, "open_position", nil)
		return
	}

	v := e.hooks.Signal(ctx, s)
	if v.Skip {
		e.skipSignal(res, s, "hook", fmt.Errorf("%s: %s", v.SkippedBy, v.Reason))
		return
	}
	if !v.Allows(s) {
		e.skipSignal(res, s, "edge", fmt.Errorf("edge %.4f below %.4f", s.Edge, v.MinEdge))
		return
	}

	opened, err := e.openBundle(ctx, s, m, v.SizeFactor)
	if err != nil {
		e.skipSignal(res, s, skipReason(err), err)
		if errors.Is(err, domain.ErrFetch) {
			e.applyAction(ctx, err)
		}
		return
	}
	res.Opened = append(res.Opened, opened...)
}

func (e *Engine) skipSignal(res *CycleResult, s domain.Signal, reason string, err error) {
	res.skip(reason)
	e.metrics.SignalSkipped(reason)
	slog.Debug("signal skipped",
		"market", s.MarketID,
		"side", s.Side,
		"spread", fmt.Sprintf("%.4f", s.Spread),
		"reason", reason,
		"err", err,
	)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrFetch):
		return "fetch"
	case errors.Is(err, domain.ErrNoFill):
		return "no_fill"
	case errors.Is(err, domain.ErrInsufficientAllowance):
		return "allowance"
	case errors.Is(err, domain.ErrRiskHalt), errors.Is(err, domain.ErrRiskRejected):
		return "risk"
	case errors.Is(err, errLowProfit):
		return "low_profit"
	default:
		return "error"
	}
}

// openBundle buys every outcome of m. Either all legs are recorded or none is.
func (e *Engine) openBundle(ctx context.Context, s domain.Signal, m domain.Market, factor float64) ([]domain.Position, error) {
	books, err := e.fetchBooks(ctx, m.TokenIDs)
	if err != nil {
		return nil, err
	}

	fees := domain.FeeSchedule{TakerBps: m.EffectiveTakerBps(e.cfg.TakerFeeBps)}
	legs := make([]leg, len(books))
	var estimated, depth float64
	for i, book := range books {
		ask := book.BestAsk()
		if ask <= 0 {
			return nil, fmt.Errorf("engine.openBundle: token %s: empty ask side: %w", book.TokenID, domain.ErrNoFill)
		}
		size := e.cfg.TradeSize * factor
		if capped := e.cfg.MaxPositionValue / ask; e.cfg.MaxPositionValue > 0 && size > capped {
			size = capped
		}
		legs[i] = leg{tokenID: m.TokenIDs[i], book: book, size: size}
		estimated += size * ask * (1 + fees.TakerRate())
		depth += book.NotionalDepth()
	}

	liquidity := m.Liquidity
	if liquidity <= 0 {
		liquidity = depth
	}
	if err := e.risk.ValidateTrade(estimated, liquidity); err != nil {
		return nil, fmt.Errorf("engine.openBundle: %w", err)
	}
	if !e.guard.CanSpend(estimated) {
		return nil, fmt.Errorf("engine.openBundle: estimated $%.2f: %w", estimated, domain.ErrInsufficientAllowance)
	}

	var totalCost float64
	minFilled := -1.0
	for i := range legs {
		fill, ok := e.sim.Execute(legs[i].book, legs[i].size, domain.SideBuy, fees, e.cfg.Latency)
		if !ok {
			return nil, fmt.Errorf("engine.openBundle: token %s: %w", legs[i].tokenID, domain.ErrNoFill)
		}
		legs[i].fill = fill
		slog.Debug("leg filled",
			"token", legs[i].tokenID,
			"filled", fmt.Sprintf("%.2f/%.2f", fill.FilledSize, fill.RequestedSize),
			"levels", fill.LevelsConsumed,
			"slippage", fmt.Sprintf("%.4f", fill.Slippage(legs[i].book.BestAsk())),
		)
		totalCost += fill.TotalCost
		if minFilled < 0 || fill.FilledSize < minFilled {
			minFilled = fill.FilledSize
		}
	}

	// un bundle completo paga $1 por share; lo que sobre de un leg no está cubierto
	profit := minFilled - totalCost
	if profit < e.cfg.MinProfitThreshold {
		return nil, fmt.Errorf("engine.openBundle: profit $%.4f < $%.4f: %w",
			profit, e.cfg.MinProfitThreshold, errLowProfit)
	}

	if !e.guard.CanSpend(totalCost) {
		return nil, fmt.Errorf("engine.openBundle: cost $%.2f: %w", totalCost, domain.ErrInsufficientAllowance)
	}
	if err := e.guard.RecordSpend(totalCost); err != nil {
		return nil, fmt.Errorf("engine.openBundle: %w", err)
	}
	if err := e.journal.SaveSpend(ctx, domain.SpendEntry{
		ID:       uuid.New().String(),
		MarketID: m.ID,
		Amount:   totalCost,
		At:       e.now(),
	}); err != nil {
		slog.Warn("journal: save spend failed", "market", m.ID, "err", err)
	}

	now := e.now()
	opened := make([]domain.Position, 0, len(legs))
	for _, l := range legs {
		p := e.ledger.Open(domain.Position{
			MarketID:    m.ID,
			TokenID:     l.tokenID,
			Side:        domain.SideBuy,
			Size:        l.fill.FilledSize,
			EntryPrice:  l.fill.ExecutionPrice,
			EntryCost:   l.fill.TotalCost,
			EntryTime:   now,
			EntrySpread: m.Deviation(),
			FeeBps:      fees.TakerBps,
		})
		if err := e.journal.SavePosition(ctx, p); err != nil {
			slog.Warn("journal: save position failed", "position", p.ID, "err", err)
		}
		e.metrics.PositionOpened(p.EntryCost)
		opened = append(opened, p)
	}

	slog.Info("bundle opened",
		"market", m.ID,
		"legs", len(opened),
		"spread", fmt.Sprintf("%.4f", s.Spread),
		"cost", fmt.Sprintf("$%.4f", totalCost),
		"expected_profit", fmt.Sprintf("$%.4f", profit),
	)
	return opened, nil
}

// fetchBooks fetches a fresh book per token concurrently, each under the fetch timeout.
func (e *Engine) fetchBooks(ctx context.Context, tokenIDs []string) ([]domain.OrderBook, error) {
	books := make([]domain.OrderBook, len(tokenIDs))
	group, gctx := errgroup.WithContext(ctx)
	for i, tokenID := range tokenIDs {
		group.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, e.cfg.FetchTimeout)
			defer cancel()
			book, err := e.source.FetchOrderBook(fctx, tokenID)
			if err != nil {
				return fmt.Errorf("engine.fetchBooks: token %s: %w: %w", tokenID, domain.ErrFetch, err)
			}
			if book.TokenID == "" {
				book.TokenID = tokenID
			}
			books[i] = book
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return books, nil
}
