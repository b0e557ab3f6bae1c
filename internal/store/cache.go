package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gymgate/gymgate/internal/apiclient"
)

// GetCached returns a persisted response if it is still valid.
func (s *Store) GetCached(ctx context.Context, key string) (*apiclient.CachedResponse, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var (
		body        []byte
		contentType string
		storedAt    int64
		expiresAt   int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT body, content_type, stored_at, expires_at
		FROM response_cache
		WHERE key = ? AND expires_at > ?
	`, key, time.Now().UTC().UnixNano())

	if err := row.Scan(&body, &contentType, &storedAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached response: %w", err)
	}

	return &apiclient.CachedResponse{
		Body:        body,
		ContentType: contentType,
		StoredAt:    time.Unix(0, storedAt).UTC(),
		ExpiresAt:   time.Unix(0, expiresAt).UTC(),
	}, nil
}

// SetCached stores a response, replacing any previous entry for the key.
func (s *Store) SetCached(ctx context.Context, key string, resp *apiclient.CachedResponse) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if resp == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO response_cache (key, body, content_type, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			content_type = excluded.content_type,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, key, resp.Body, resp.ContentType, resp.StoredAt.UTC().UnixNano(), resp.ExpiresAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}

	return nil
}

// DeleteCached removes a single entry.
func (s *Store) DeleteCached(ctx context.Context, key string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM response_cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cached response: %w", err)
	}
	return nil
}

// ClearCached removes every persisted response.
func (s *Store) ClearCached(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM response_cache`); err != nil {
		return fmt.Errorf("clear cached responses: %w", err)
	}
	return nil
}

// PruneExpired removes entries past their expiry. Invoked from the CLI
// rather than a background loop since store-backed runs are short-lived.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at <= ?`, time.Now().UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune cached responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned responses: %w", err)
	}
	return n, nil
}
