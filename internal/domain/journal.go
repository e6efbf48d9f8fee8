package domain

import "time"

// SpendEntry is one recorded spend against the daily allowance.
type SpendEntry struct {
	ID       string
	MarketID string
	Amount   float64
	At       time.Time
}

// CycleSummary is the per-cycle outcome persisted by the journal.
type CycleSummary struct {
	StartedAt time.Time
	Duration  time.Duration
	Backend   string
	Markets   int
	Signals   int
	Opened    int // positions opened (one per filled leg)
	Exits     int
	Skipped   int
	Halted    bool
	Err       string
}

// JournalStats is the aggregate view of the whole run read back from the journal.
type JournalStats struct {
	StartDate     time.Time
	EndDate       time.Time
	DaysRunning   int
	Cycles        int
	Positions     int
	OpenPositions int
	Exits         int
	Wins          int
	WinRate       float64
	TotalPnL      float64
	TotalSpent    float64
	TotalFees     float64
	BestTrade     float64
	WorstTrade    float64
	ByReason      map[ExitReason]int
	Dailies       []DailySummary
}

// DailySummary aggregates exits per UTC day.
type DailySummary struct {
	Date   time.Time
	Exits  int
	Wins   int
	PnL    float64
	Spent  float64
	Opened int
}
