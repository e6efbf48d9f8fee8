package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/arbishark/internal/domain"
	"github.com/alejandrodnm/arbishark/internal/ports"
)

// Multi reparte cada notificación a todos los notifiers, en orden.
// Un fallo no impide entregar a los siguientes.
type Multi []ports.Notifier

// Notify devuelve los errores de todos los destinos unidos.
func (m Multi) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
