package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// breakerSchema guarda el circuit breaker manual para que sobreviva a un reinicio.
const breakerSchema = `
CREATE TABLE IF NOT EXISTS circuit_breaker (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    active     INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT    NOT NULL
);
`

// SaveCircuitBreaker persiste el estado actual del circuit breaker.
func (s *SQLiteStorage) SaveCircuitBreaker(ctx context.Context, active bool) error {
	activeInt := 0
	if active {
		activeInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO circuit_breaker (id, active, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET active = excluded.active, updated_at = excluded.updated_at`,
		activeInt, ts(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCircuitBreaker: %w", err)
	}
	return nil
}

// LoadCircuitBreaker devuelve el último estado guardado; false si nunca se guardó.
func (s *SQLiteStorage) LoadCircuitBreaker(ctx context.Context) (bool, error) {
	var activeInt int
	err := s.db.QueryRowContext(ctx,
		`SELECT active FROM circuit_breaker WHERE id = 1`).Scan(&activeInt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage.LoadCircuitBreaker: %w", err)
	}
	return activeInt != 0, nil
}
