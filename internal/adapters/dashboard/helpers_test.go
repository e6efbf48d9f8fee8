package dashboard_test

import (
	"io"
	"log/slog"

	"github.com/alejandrodnm/arbishark/internal/adapters/logbuf"
)

func newRingLogger(r *logbuf.Ring) *slog.Logger {
	return slog.New(r.Handler(slog.NewTextHandler(io.Discard, nil)))
}
