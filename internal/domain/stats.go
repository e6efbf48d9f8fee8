package domain

import "time"

// DashboardStats is the status read model served to the dashboard.
type DashboardStats struct {
	Connected        bool    `json:"connected"`
	PermissionActive bool    `json:"permission_active"`
	DailyLimit       float64 `json:"daily_limit"`
	SpentToday       float64 `json:"spent_today"`
	TotalTrades      int     `json:"total_trades"`
	WinRate          float64 `json:"win_rate"` // percentage
	TotalPnL         float64 `json:"total_pnl"`
	OpenPositions    int     `json:"open_positions"`
}

// TradeView is one open position as exposed to the dashboard.
type TradeView struct {
	ID         string    `json:"id"`
	MarketID   string    `json:"market_id"`
	TokenID    string    `json:"token_id"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
}

// ExitView is one closed position as exposed to the dashboard.
type ExitView struct {
	MarketID  string     `json:"market_id"`
	TokenID   string     `json:"token_id"`
	Reason    ExitReason `json:"reason"`
	Size      float64    `json:"size"`
	EntryCost float64    `json:"entry_cost"`
	ExitPrice float64    `json:"exit_price"`
	PnL       float64    `json:"pnl"`
	ClosedAt  time.Time  `json:"closed_at"`
}

// NewTradeView projects an open position.
func NewTradeView(p Position) TradeView {
	return TradeView{
		ID:         p.ID,
		MarketID:   p.MarketID,
		TokenID:    p.TokenID,
		Side:       p.Side,
		Size:       p.Size,
		EntryPrice: p.EntryPrice,
		EntryTime:  p.EntryTime,
	}
}

// NewExitView projects an exit record.
func NewExitView(e ExitRecord) ExitView {
	return ExitView{
		MarketID:  e.Position.MarketID,
		TokenID:   e.Position.TokenID,
		Reason:    e.Reason,
		Size:      e.Position.Size,
		EntryCost: e.Position.EntryCost,
		ExitPrice: e.ExitPrice,
		PnL:       e.PnL,
		ClosedAt:  e.ClosedAt,
	}
}

// Notification is a human readable event forwarded to notifiers.
type Notification struct {
	Level   string // info | warn | error
	Title   string
	Message string
	At      time.Time
}
