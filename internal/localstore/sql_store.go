package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lingopal/internal/database"
)

// SQLStore keeps values in the local_state table
type SQLStore struct {
	db database.DBTX
}

// NewSQLStore creates a store over a migrated database
func NewSQLStore(db database.DBTX) *SQLStore {
	return &SQLStore{db: db}
}

// Get returns the value stored under key
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT state_value FROM local_state WHERE state_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set inserts or replaces the value under key
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.db.GetDialect().UpsertLocalStateQuery(), key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored
func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM local_state WHERE state_key = ?", key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// All returns every stored key and value
func (s *SQLStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT state_key, state_value FROM local_state ORDER BY state_key")
	if err != nil {
		return nil, fmt.Errorf("failed to query local state: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan local state: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate local state: %w", err)
	}
	return out, nil
}
