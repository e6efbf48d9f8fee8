package indexer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

const marketsQuery = `{
  markets {
    id
    question
    slug
    outcomes
    outcomePrices
    clobTokenIds
    bestBid
    bestAsk
    makerBaseFee
    takerBaseFee
    liquidity
    volume24hr
    active
    acceptingOrders
  }
}`

const orderBookQuery = `query OrderBook($tokenId: String!) {
  orderBook(tokenId: $tokenId) {
    tokenId
    bids { price size }
    asks { price size }
    timestamp
  }
}`

const metaQuery = `{
  _meta {
    block {
      number
      timestamp
    }
  }
}`

// maxHealthyDelay is the data delay above which the feed reports itself unhealthy.
const maxHealthyDelay = 5 * time.Second

type marketDTO struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Slug            string    `json:"slug"`
	Outcomes        []string  `json:"outcomes"`
	OutcomePrices   []float64 `json:"outcomePrices"`
	ClobTokenIDs    []string  `json:"clobTokenIds"`
	BestBid         *float64  `json:"bestBid"`
	BestAsk         *float64  `json:"bestAsk"`
	MakerBaseFee    float64   `json:"makerBaseFee"`
	TakerBaseFee    float64   `json:"takerBaseFee"`
	Liquidity       float64   `json:"liquidity"`
	Volume24h       float64   `json:"volume24hr"`
	Active          bool      `json:"active"`
	AcceptingOrders bool      `json:"acceptingOrders"`
}

type levelDTO struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

type orderBookDTO struct {
	TokenID   string     `json:"tokenId"`
	Bids      []levelDTO `json:"bids"`
	Asks      []levelDTO `json:"asks"`
	Timestamp int64      `json:"timestamp"`
}

type metaDTO struct {
	Meta struct {
		Block struct {
			Number    uint64 `json:"number"`
			Timestamp int64  `json:"timestamp"`
		} `json:"block"`
	} `json:"_meta"`
}

// FetchMarkets returns the indexed markets that carry one price and one token per outcome.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	var data struct {
		Markets []marketDTO `json:"markets"`
	}
	if err := c.query(ctx, marketsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("indexer.FetchMarkets: %w", err)
	}

	markets := make([]domain.Market, 0, len(data.Markets))
	for _, m := range data.Markets {
		dm := domain.Market{
			ID:              m.ID,
			Question:        m.Question,
			Slug:            m.Slug,
			Outcomes:        m.Outcomes,
			OutcomePrices:   m.OutcomePrices,
			TokenIDs:        m.ClobTokenIDs,
			Liquidity:       m.Liquidity,
			Volume24h:       m.Volume24h,
			TakerFeeBps:     m.TakerBaseFee,
			Active:          m.Active,
			AcceptingOrders: m.AcceptingOrders,
		}
		if !dm.Hydrated() {
			continue
		}
		markets = append(markets, dm)
	}
	return markets, nil
}

// FetchOrderBook returns the book of one token with bids descending and asks ascending.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	var data struct {
		OrderBook *orderBookDTO `json:"orderBook"`
	}
	if err := c.query(ctx, orderBookQuery, map[string]any{"tokenId": tokenID}, &data); err != nil {
		return domain.OrderBook{}, fmt.Errorf("indexer.FetchOrderBook: %s: %w", tokenID, err)
	}
	if data.OrderBook == nil {
		return domain.OrderBook{}, fmt.Errorf("indexer.FetchOrderBook: %s: no book", tokenID)
	}

	book := domain.OrderBook{
		TokenID: data.OrderBook.TokenID,
		Bids:    levels(data.OrderBook.Bids, false),
		Asks:    levels(data.OrderBook.Asks, true),
	}
	if book.TokenID == "" {
		book.TokenID = tokenID
	}
	return book, nil
}

// Health measures request latency and how old the last indexed block is.
func (c *Client) Health(ctx context.Context) (domain.FeedHealth, error) {
	start := c.now()
	var data metaDTO
	if err := c.query(ctx, metaQuery, nil, &data); err != nil {
		return domain.FeedHealth{}, fmt.Errorf("indexer.Health: %w", err)
	}
	now := c.now()

	block := data.Meta.Block
	delay := now.Sub(time.Unix(block.Timestamp, 0))
	if delay < 0 {
		delay = 0
	}
	return domain.FeedHealth{
		Latency:     now.Sub(start),
		BlockNumber: block.Number,
		DataDelay:   delay,
		Healthy:     delay < maxHealthyDelay,
	}, nil
}

func levels(raw []levelDTO, ascending bool) []domain.BookEntry {
	out := make([]domain.BookEntry, 0, len(raw))
	for _, l := range raw {
		if l.Price <= 0 || l.Size <= 0 {
			continue
		}
		out = append(out, domain.BookEntry{Price: l.Price, Size: l.Size})
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].Price < out[j].Price
		}
		return out[i].Price > out[j].Price
	})
	return out
}
