package store

import (
	"context"
	"database/sql"
	"errors"
)

const importKeyPrefix = "import:"

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// GetImportedFileHash returns the sha256 recorded for an imported test
// file, or "" if the file was never imported.
func (s *Store) GetImportedFileHash(ctx context.Context, name string) (string, error) {
	return s.GetMetadata(ctx, importKeyPrefix+name)
}

// SetImportedFileHash records the sha256 of an imported test file.
func (s *Store) SetImportedFileHash(ctx context.Context, name, hash string) error {
	return s.SetMetadata(ctx, importKeyPrefix+name, hash)
}
