package storage

// sqlite.go: journal de trading en SQLite.
//
// Estrategia:
//   - `positions`: una fila por leg abierto; pasa a CLOSED cuando se guarda su exit.
//   - `exits`: una fila por cierre, con el P&L ya realizado (nunca se recalcula).
//   - `spends`: cada cargo contra la allowance diaria.
//   - `cycles`: resumen ligero por ciclo del engine.
//   - Prune automático al arrancar: cycles > 30d. El resto es histórico de trading y se conserva.
//
// El journal es write-behind: el estado en memoria manda y aquí solo se registra.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/arbishark/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
    id           TEXT PRIMARY KEY,
    market_id    TEXT NOT NULL,
    token_id     TEXT NOT NULL,
    side         TEXT NOT NULL,
    size         REAL NOT NULL,
    entry_price  REAL NOT NULL,
    entry_cost   REAL NOT NULL,
    entry_time   TEXT NOT NULL,
    entry_spread REAL NOT NULL DEFAULT 0,
    fee_bps      REAL NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT 'OPEN'
);

CREATE TABLE IF NOT EXISTS exits (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    position_id TEXT NOT NULL UNIQUE,
    market_id   TEXT NOT NULL,
    token_id    TEXT NOT NULL,
    side        TEXT NOT NULL,
    reason      TEXT NOT NULL,
    size        REAL NOT NULL,
    entry_price REAL NOT NULL,
    entry_cost  REAL NOT NULL,
    entry_time  TEXT NOT NULL,
    exit_price  REAL NOT NULL,
    exit_fee    REAL NOT NULL DEFAULT 0,
    pnl         REAL NOT NULL,
    closed_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS spends (
    id        TEXT PRIMARY KEY,
    market_id TEXT NOT NULL,
    amount    REAL NOT NULL,
    spent_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cycles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at  TEXT    NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    backend     TEXT    NOT NULL DEFAULT '',
    markets     INTEGER NOT NULL DEFAULT 0,
    signals     INTEGER NOT NULL DEFAULT 0,
    opened      INTEGER NOT NULL DEFAULT 0,
    exits       INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0,
    halted      INTEGER NOT NULL DEFAULT 0,
    error       TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_exits_closed     ON exits(closed_at);
CREATE INDEX IF NOT EXISTS idx_spends_at        ON spends(spent_at);
CREATE INDEX IF NOT EXISTS idx_cycles_at        ON cycles(started_at DESC);
`

// migrations añade columnas que pueden faltar en journals antiguos.
// Cada sentencia se ejecuta por separado y los errores ("duplicate column") se ignoran.
var migrations = []string{
	`ALTER TABLE cycles ADD COLUMN skipped INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE exits ADD COLUMN exit_fee REAL NOT NULL DEFAULT 0`,
	`ALTER TABLE positions ADD COLUMN fee_bps REAL NOT NULL DEFAULT 0`,
}

const retentionCycles = 30 * 24 * time.Hour

// tsLayout es de ancho fijo en UTC para que los rangos se puedan comparar como texto.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStorage implementa ports.TradeJournal usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y las migraciones y limpia ciclos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	if _, err := db.Exec(breakerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply breaker schema: %w", err)
	}
	for _, m := range migrations {
		_, _ = db.Exec(m)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SavePosition registra un leg abierto. Reescribir el mismo ID es idempotente.
func (s *SQLiteStorage) SavePosition(ctx context.Context, p domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
			(id, market_id, token_id, side, size, entry_price, entry_cost, entry_time, entry_spread, fee_bps, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		p.ID, p.MarketID, p.TokenID, string(p.Side), p.Size, p.EntryPrice, p.EntryCost,
		ts(p.EntryTime), p.EntrySpread, p.FeeBps, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("storage.SavePosition: %s: %w", p.ID, err)
	}
	return nil
}

// SaveExit guarda el cierre y marca la posición como CLOSED en la misma transacción.
func (s *SQLiteStorage) SaveExit(ctx context.Context, e domain.ExitRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveExit: begin tx: %w", err)
	}
	defer tx.Rollback()

	p := e.Position
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO exits
			(position_id, market_id, token_id, side, reason, size, entry_price, entry_cost,
			 entry_time, exit_price, exit_fee, pnl, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(position_id) DO NOTHING`,
		p.ID, p.MarketID, p.TokenID, string(p.Side), string(e.Reason), p.Size, p.EntryPrice,
		p.EntryCost, ts(p.EntryTime), e.ExitPrice, e.ExitFee, e.PnL, ts(e.ClosedAt),
	); err != nil {
		return fmt.Errorf("storage.SaveExit: insert %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE positions SET status = ? WHERE id = ?`, string(domain.PositionClosed), p.ID,
	); err != nil {
		return fmt.Errorf("storage.SaveExit: close position %s: %w", p.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveExit: commit: %w", err)
	}
	return nil
}

// SaveSpend registra un cargo contra la allowance.
func (s *SQLiteStorage) SaveSpend(ctx context.Context, sp domain.SpendEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spends (id, market_id, amount, spent_at) VALUES (?, ?, ?, ?)`,
		sp.ID, sp.MarketID, sp.Amount, ts(sp.At),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveSpend: %w", err)
	}
	return nil
}

// SaveCycle persiste el resumen del ciclo, siempre una fila.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, c domain.CycleSummary) error {
	halted := 0
	if c.Halted {
		halted = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
			(started_at, duration_ms, backend, markets, signals, opened, exits, skipped, halted, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts(c.StartedAt), c.Duration.Milliseconds(), c.Backend, c.Markets, c.Signals,
		c.Opened, c.Exits, c.Skipped, halted, c.Err,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: %w", err)
	}
	return nil
}

// GetExits devuelve los cierres con closed_at en [from, to], del más antiguo al más reciente.
func (s *SQLiteStorage) GetExits(ctx context.Context, from, to time.Time) ([]domain.ExitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position_id, market_id, token_id, side, reason, size, entry_price, entry_cost,
		       entry_time, exit_price, exit_fee, pnl, closed_at
		FROM exits
		WHERE closed_at BETWEEN ? AND ?
		ORDER BY closed_at ASC, id ASC`,
		ts(from), ts(to),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetExits: query: %w", err)
	}
	defer rows.Close()

	var exits []domain.ExitRecord
	for rows.Next() {
		var e domain.ExitRecord
		var side, reason, entryTime, closedAt string
		if err := rows.Scan(
			&e.Position.ID,
			&e.Position.MarketID,
			&e.Position.TokenID,
			&side,
			&reason,
			&e.Position.Size,
			&e.Position.EntryPrice,
			&e.Position.EntryCost,
			&entryTime,
			&e.ExitPrice,
			&e.ExitFee,
			&e.PnL,
			&closedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetExits: scan row: %w", err)
		}
		e.Position.Side = domain.Side(side)
		e.Position.Status = domain.PositionClosed
		e.Position.EntryTime = parseTS(entryTime)
		e.Reason = domain.ExitReason(reason)
		e.ClosedAt = parseTS(closedAt)
		exits = append(exits, e)
	}
	return exits, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina ciclos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().Add(-retentionCycles)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, ts(cutoff))
}

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
