package mock_test

import (
	"context"
	"testing"

	"github.com/alejandrodnm/arbishark/internal/adapters/mock"
	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_FixedSnapshot(t *testing.T) {
	s := mock.New(1, 0)

	markets, err := s.FetchMarkets(context.Background())

	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "0x123", markets[0].ID)
	assert.Equal(t, []float64{0.45, 0.55}, markets[0].OutcomePrices)
	assert.Equal(t, []float64{0.40, 0.40}, markets[1].OutcomePrices)

	// solo 0x456 está mal valorado con threshold 0.02
	signals := domain.Detector{Threshold: 0.02}.Scan(markets)
	require.Len(t, signals, 1)
	assert.Equal(t, "0x456", signals[0].MarketID)
	assert.Equal(t, domain.SideBuy, signals[0].Side)
}

func TestSource_SnapshotsAreCopies(t *testing.T) {
	s := mock.New(1, 0)

	first, err := s.FetchMarkets(context.Background())
	require.NoError(t, err)
	first[0].OutcomePrices[0] = 0.99

	second, err := s.FetchMarkets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.45, second[0].OutcomePrices[0])
}

func TestSource_DriftIsSeededAndBounded(t *testing.T) {
	a, b := mock.New(7, 0.05), mock.New(7, 0.05)

	for i := 0; i < 50; i++ {
		ma, err := a.FetchMarkets(context.Background())
		require.NoError(t, err)
		mb, err := b.FetchMarkets(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ma, mb)
		for _, m := range ma {
			for _, p := range m.OutcomePrices {
				assert.GreaterOrEqual(t, p, 0.01)
				assert.LessOrEqual(t, p, 0.99)
			}
		}
	}
}

func TestSource_FetchOrderBook(t *testing.T) {
	book, err := mock.New(1, 0).FetchOrderBook(context.Background(), "t3")

	require.NoError(t, err)
	assert.Equal(t, "t3", book.TokenID)
	assert.Equal(t, 0.41, book.BestAsk())
	assert.Equal(t, 0.39, book.BestBid())
	assert.Less(t, book.BestBid(), book.BestAsk(), "el book no puede estar cruzado")
	assert.InDelta(t, 0.40, book.Midpoint(), 1e-9)
}

func TestSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.New(1, 0).FetchMarkets(ctx)
	assert.Error(t, err)
}
