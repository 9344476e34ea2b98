package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements the Store interface with a single JSON document holding every claim.
// Writes load the whole collection, modify it and write it back under a mutex, so it is safe
// within one process only.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore backed by path, creating parent directories
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating claims directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// load reads the collection; a missing file is an empty collection
func (f *FileStore) load() ([]*ClaimRecord, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*ClaimRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading claims file: %w", err)
	}
	if len(data) == 0 {
		return []*ClaimRecord{}, nil
	}

	var claims []*ClaimRecord
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("decoding claims file: %w", err)
	}
	return claims, nil
}

// save replaces the file via a temp file and rename so readers never see a partial write
func (f *FileStore) save(claims []*ClaimRecord) error {
	data, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding claims: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".claims-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing claims file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing claims file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing claims file: %w", err)
	}
	return nil
}

// Append adds a claim to the collection
func (f *FileStore) Append(ctx context.Context, claim *ClaimRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	claims, err := f.load()
	if err != nil {
		return err
	}
	for _, c := range claims {
		if c.ID == claim.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, claim.ID)
		}
	}
	return f.save(append(claims, claim))
}

// List returns claims matching opts
func (f *FileStore) List(ctx context.Context, opts ListOptions) ([]*ClaimRecord, error) {
	f.mu.Lock()
	claims, err := f.load()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return filterAndSort(claims, opts), nil
}

// Get scans the collection for id
func (f *FileStore) Get(ctx context.Context, id string) (*ClaimRecord, error) {
	claim, err := getFromList(ctx, f, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", err, id)
	}
	return claim, err
}

// Delete rewrites the collection without id
func (f *FileStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	claims, err := f.load()
	if err != nil {
		return err
	}

	kept := claims[:0]
	for _, c := range claims {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(claims) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f.save(kept)
}

// Close is a no-op; the file is opened per call
func (f *FileStore) Close() error {
	return nil
}
