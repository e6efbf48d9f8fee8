package ports

import (
	"context"

	"github.com/alejandrodnm/arbishark/internal/domain"
)

// Notifier entrega eventos legibles (cierres, halts, errores) fuera del proceso.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
