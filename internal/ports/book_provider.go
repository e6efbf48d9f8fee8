package ports

import (
	"context"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// BookProvider obtiene el orderbook de un token.
type BookProvider interface {
	// FetchOrderBook devuelve el book con bids desc y asks asc.
	// El core nunca cachea books: se pide uno fresco por cada fill.
	FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}
