package ports

import "context"

// AllowanceSource reads the daily spending allowance granted to the agent.
type AllowanceSource interface {
	// DailyAllowance returns the allowance in USDC.
	DailyAllowance(ctx context.Context) (float64, error)
}
