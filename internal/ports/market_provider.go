package ports

import (
	"context"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// MarketProvider obtiene el snapshot de mercados del ciclo.
type MarketProvider interface {
	// FetchMarkets devuelve mercados hidratados: un precio y un token por outcome.
	FetchMarkets(ctx context.Context) ([]domain.Market, error)
}

// MarketDataSource es el backend de datos de mercado elegido al arrancar.
type MarketDataSource interface {
	MarketProvider
	BookProvider
	// Name identifica el backend en logs y métricas.
	Name() string
}

// HealthReporter lo implementan los backends que pueden medir la frescura de sus datos.
type HealthReporter interface {
	Health(ctx context.Context) (domain.FeedHealth, error)
}
