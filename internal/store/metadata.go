package store

import (
	"context"
	"errors"

	"github.com/pavelanni/examportal/internal/model"
)

// SetMetadata upserts a key-value pair in the meta collection.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	return s.Set(ctx, CollMeta, key, map[string]any{"value": value})
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	d, err := s.Get(ctx, CollMeta, key)
	if errors.Is(err, model.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return str(d.Data["value"]), nil
}

// GetImportedFileHash returns the sha256 recorded for an imported CSV file,
// or an empty string if the file was never imported.
func (s *Store) GetImportedFileHash(ctx context.Context, path string) (string, error) {
	return s.GetMetadata(ctx, "import:"+path)
}

// SetImportedFileHash records the sha256 of an imported CSV file.
func (s *Store) SetImportedFileHash(ctx context.Context, path, hash string) error {
	return s.SetMetadata(ctx, "import:"+path, hash)
}
