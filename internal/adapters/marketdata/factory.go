// Package marketdata picks the market-data backend once at startup. The set of
// backends is closed; adding one means adding a case here.
package marketdata

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/arbishark/internal/adapters/indexer"
	"github.com/alejandrodnm/arbishark/internal/adapters/mock"
	"github.com/alejandrodnm/arbishark/internal/adapters/polymarket"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

// Backend names a market-data backend.
type Backend string

const (
	Gamma   Backend = "gamma"
	Indexer Backend = "indexer"
	Mock    Backend = "mock"
)

// Backends lists every supported backend.
var Backends = []Backend{Gamma, Indexer, Mock}

// Options configures whichever backend is chosen.
type Options struct {
	Backend     Backend
	GammaBase   string
	CLOBBase    string
	IndexerURL  string
	MarketLimit int
	Seed        uint64
	MockDrift   float64
}

// ParseBackend validates a backend name. Empty means gamma.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return Gamma, nil
	}
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("marketdata: unknown backend %q (want gamma|indexer|mock)", s)
}

// New builds the selected backend.
func New(opts Options) (ports.MarketDataSource, error) {
	switch opts.Backend {
	case Gamma, "":
		return polymarket.NewClient(opts.CLOBBase, opts.GammaBase, opts.MarketLimit), nil
	case Indexer:
		if opts.IndexerURL == "" {
			return nil, fmt.Errorf("marketdata: indexer backend needs api.indexer_url")
		}
		return indexer.NewClient(opts.IndexerURL), nil
	case Mock:
		return mock.New(opts.Seed, opts.MockDrift), nil
	default:
		return nil, fmt.Errorf("marketdata: unknown backend %q", opts.Backend)
	}
}
