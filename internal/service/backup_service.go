package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"lingopal/internal/database"
	"lingopal/internal/localstore"
)

const backupVersion = "1.0"

// BackupData is the export format of the device's local state. Values are
// written as stored, so sealed values stay sealed.
type BackupData struct {
	Version      string        `json:"version"`
	ExportedAt   time.Time     `json:"exported_at"`
	DatabaseType string        `json:"database_type"`
	Entries      []EntryBackup `json:"entries"`
}

// EntryBackup is one local_state row
type EntryBackup struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BackupService handles local state backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// ExportToWriter writes every entry to w as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (int, error) {
	values, err := localstore.NewSQLStore(s.db).All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read local state: %w", err)
	}

	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.Name(),
		Entries:      make([]EntryBackup, 0, len(values)),
	}
	for key, value := range values {
		backup.Entries = append(backup.Entries, EntryBackup{Key: key, Value: value})
	}
	sort.Slice(backup.Entries, func(i, j int) bool { return backup.Entries[i].Key < backup.Entries[j].Key })

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return 0, fmt.Errorf("failed to encode backup: %w", err)
	}
	return len(backup.Entries), nil
}

// ImportFromReader restores entries from r in one transaction. With clear
// set, existing entries are removed first; otherwise imported keys overwrite.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clear bool) (int, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return 0, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return 0, fmt.Errorf("unsupported backup version %q", backup.Version)
	}
	log.Printf("Backup version: %s, exported at: %s from %s", backup.Version, backup.ExportedAt, backup.DatabaseType)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	store := localstore.NewSQLStore(tx)
	if clear {
		if err := clearStore(ctx, store); err != nil {
			return 0, err
		}
	}
	for _, entry := range backup.Entries {
		if entry.Key == "" {
			continue
		}
		if err := store.Set(ctx, entry.Key, entry.Value); err != nil {
			return 0, fmt.Errorf("failed to import %s: %w", entry.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(backup.Entries), nil
}

// Clear removes every entry, signing the device out
func (s *BackupService) Clear(ctx context.Context) error {
	return clearStore(ctx, localstore.NewSQLStore(s.db))
}

func clearStore(ctx context.Context, store localstore.Store) error {
	values, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local state: %w", err)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	if err := store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear local state: %w", err)
	}
	return nil
}
