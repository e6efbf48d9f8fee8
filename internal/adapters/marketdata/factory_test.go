package marketdata_test

import (
	"testing"

	"github.com/alejandrodnm/arbishark/internal/adapters/marketdata"
	"github.com/alejandrodnm/arbishark/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	b, err := marketdata.ParseBackend("")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Gamma, b)

	b, err = marketdata.ParseBackend(" Indexer ")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Indexer, b)

	_, err = marketdata.ParseBackend("websocket")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	for _, b := range marketdata.Backends {
		src, err := marketdata.New(marketdata.Options{Backend: b, IndexerURL: "http://localhost:8080/graphql"})
		require.NoError(t, err, b)
		assert.Equal(t, string(b), src.Name())
	}
}

func TestNew_IndexerReportsHealth(t *testing.T) {
	src, err := marketdata.New(marketdata.Options{Backend: marketdata.Indexer, IndexerURL: "http://x"})
	require.NoError(t, err)
	_, ok := src.(ports.HealthReporter)
	assert.True(t, ok)

	src, err = marketdata.New(marketdata.Options{Backend: marketdata.Mock})
	require.NoError(t, err)
	_, ok = src.(ports.HealthReporter)
	assert.False(t, ok)
}

func TestNew_Errors(t *testing.T) {
	_, err := marketdata.New(marketdata.Options{Backend: marketdata.Indexer})
	assert.Error(t, err)

	_, err = marketdata.New(marketdata.Options{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}
