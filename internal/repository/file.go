package repository

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

// FileStore implements Store with one JSON array file per collection. Every
// Save rewrites the whole collection file.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Mode implements Store.
func (s *FileStore) Mode() Mode { return ModeFile }

// Ping implements Store.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// Dir returns the directory holding the collection files.
func (s *FileStore) Dir() string { return s.dir }

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, collection string, rec Record, id string) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, id := prepare(rec, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(collection)
	if err != nil {
		return nil, err
	}
	replaced := false
	for i, r := range records {
		if existing, ok := r[IDField]; ok && recordKey(existing) == id {
			records[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, stored)
	}
	if err := s.write(collection, records); err != nil {
		return nil, err
	}

	// Round-trip so callers see the same shape Get returns.
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return decodeRecord(data)
}

// Get implements Store.
func (s *FileStore) Get(ctx context.Context, collection string, query Query) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	records, err := s.read(collection)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return Filter(records, query), nil
}

func (s *FileStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

func (s *FileStore) read(collection string) ([]Record, error) {
	data, err := os.ReadFile(s.path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}
	if len(data) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode collection %s: %w", collection, err)
	}
	return records, nil
}

func (s *FileStore) write(collection string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", collection, err)
	}
	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	if err := os.Rename(tmp.Name(), s.path(collection)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write collection %s: %w", collection, err)
	}
	return nil
}
