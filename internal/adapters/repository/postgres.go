package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/zonewatch/internal/domain/state"
)

// PostgresStore keeps the state in vehicle_zone_state. A row in state_meta
// marks that state has been saved at least once.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a store on a migrated database.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads every (vehicle, zone) row.
func (s *PostgresStore) Load(ctx context.Context) (state.State, bool, error) {
	defer observe(BackendPostgres, "load", time.Now())

	var savedAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT saved_at FROM state_meta WHERE id = 1`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return state.New(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: meta: %w", ErrLoad, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT vehicle_id, zone_id, inside FROM vehicle_zone_state`)
	if err != nil {
		return nil, true, fmt.Errorf("%w: query: %w", ErrLoad, err)
	}
	defer func() { _ = rows.Close() }()

	st := state.New()
	for rows.Next() {
		var (
			vehicle, zone string
			inside        bool
		)
		if err := rows.Scan(&vehicle, &zone, &inside); err != nil {
			return nil, true, fmt.Errorf("%w: scan: %w", ErrLoad, err)
		}
		st.Set(vehicle, zone, inside)
	}
	if err := rows.Err(); err != nil {
		return nil, true, fmt.Errorf("%w: rows: %w", ErrLoad, err)
	}
	return st, true, nil
}

// Save replaces all rows in one transaction using COPY.
func (s *PostgresStore) Save(ctx context.Context, st state.State) (err error) {
	defer observe(BackendPostgres, "save", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrSave, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM vehicle_zone_state`); err != nil {
		return fmt.Errorf("%w: clear: %w", ErrSave, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("vehicle_zone_state", "vehicle_id", "zone_id", "inside"))
	if err != nil {
		return fmt.Errorf("%w: copy: %w", ErrSave, err)
	}
	for _, vehicle := range st.Vehicles() {
		for zone, inside := range st[vehicle] {
			if _, err = stmt.ExecContext(ctx, vehicle, zone, inside); err != nil {
				_ = stmt.Close()
				return fmt.Errorf("%w: copy row: %w", ErrSave, err)
			}
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("%w: copy flush: %w", ErrSave, err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("%w: copy close: %w", ErrSave, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO state_meta (id, saved_at) VALUES (1, now())
		ON CONFLICT (id) DO UPDATE SET saved_at = EXCLUDED.saved_at
	`); err != nil {
		return fmt.Errorf("%w: meta: %w", ErrSave, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrSave, err)
	}
	return nil
}
