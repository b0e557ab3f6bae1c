package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LoadWindows reads all persisted rate-limiter timestamps. Stale
// entries are handed back as-is; the limiter discards anything outside
// its window on restore.
func (s *Store) LoadWindows(ctx context.Context) (map[string][]time.Time, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT rate_key, requested_at
		FROM rate_windows
		ORDER BY rate_key, requested_at
	`)
	if err != nil {
		return nil, fmt.Errorf("load rate windows: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	windows := make(map[string][]time.Time)
	for rows.Next() {
		var (
			key   string
			nanos int64
		)
		if err := rows.Scan(&key, &nanos); err != nil {
			return nil, fmt.Errorf("scan rate window: %w", err)
		}
		windows[key] = append(windows[key], time.Unix(0, nanos).UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rate windows: %w", err)
	}

	return windows, nil
}

// SaveWindows replaces the persisted limiter state with a fresh snapshot.
func (s *Store) SaveWindows(ctx context.Context, windows map[string][]time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save rate windows: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_windows`); err != nil {
		return fmt.Errorf("reset rate windows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rate_windows (rate_key, requested_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("save rate windows: %w", err)
	}
	defer stmt.Close() // nolint:errcheck // best-effort cleanup

	for key, stamps := range windows {
		for _, ts := range stamps {
			if _, err := stmt.ExecContext(ctx, key, ts.UTC().UnixNano()); err != nil {
				return fmt.Errorf("save rate window %q: %w", key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save rate windows: %w", err)
	}
	return nil
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
