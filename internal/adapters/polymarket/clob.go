package polymarket

// Adapter de la API CLOB de Polymarket.
//
// FetchOrderBooks lanza un batch request por goroutine; el rate limiter (token bucket)
// en doWithRetry marca el ritmo, así que las goroutines se autolimitan sin semáforo.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

const (
	bookPath  = "/book"
	booksPath = "/books"
	batchSize = 20 // máx token_ids por request a /books
)

// FetchOrderBook obtiene un book fresco con GET /book. Lo usa el engine antes de cada fill.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	u := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, url.QueryEscape(tokenID))

	var resp orderBookResponse
	if err := c.get(ctx, c.bookLimiter, u, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchOrderBook: %s: %w", tokenID, err)
	}

	book := mapOrderBook(resp)
	if book.TokenID == "" {
		book.TokenID = tokenID
	}
	return book, nil
}

// FetchOrderBooks obtiene los orderbooks para los token_ids dados usando el endpoint batch.
// Lanza un goroutine por batch (máx batchSize tokens cada uno); el primer error cancela el resto.
func (c *Client) FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	if len(tokenIDs) == 0 {
		return map[string]domain.OrderBook{}, nil
	}

	batches := splitBatches(tokenIDs, batchSize)
	result := make(map[string]domain.OrderBook, len(tokenIDs))
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		group.Go(func() error {
			books, err := c.fetchBooksBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("clob.FetchOrderBooks batch %d: %w", i, err)
			}
			mu.Lock()
			for k, v := range books {
				result[k] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("order books fetched", "tokens", len(tokenIDs), "books", len(result))
	return result, nil
}

// splitBatches divide tokenIDs en slices de tamaño máximo size.
func splitBatches(tokenIDs []string, size int) [][]string {
	if size <= 0 {
		size = batchSize
	}
	batches := make([][]string, 0, (len(tokenIDs)+size-1)/size)
	for i := 0; i < len(tokenIDs); i += size {
		end := min(i+size, len(tokenIDs))
		batches = append(batches, tokenIDs[i:end])
	}
	return batches
}

// fetchBooksBatch hace un POST /books para un batch de token_ids.
func (c *Client) fetchBooksBatch(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error) {
	body := make([]orderBookRequest, len(tokenIDs))
	for i, id := range tokenIDs {
		body[i] = orderBookRequest{TokenID: id}
	}

	var resp []orderBookResponse
	if err := c.post(ctx, c.booksLimiter, c.clobBase+booksPath, body, &resp); err != nil {
		return nil, fmt.Errorf("POST /books: %w", err)
	}

	return mapOrderBooks(resp), nil
}
