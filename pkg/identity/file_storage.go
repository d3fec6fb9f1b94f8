package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultFileName is the document FileStorage writes inside its directory.
const DefaultFileName = "analytics-identity.json"

// FileStorage persists values as a single JSON document on disk.
// Writes go to a temporary file that is renamed over the document, so a
// crash never leaves a half-written file behind.
//
// Example usage:
//
//	store, err := identity.NewFileStorage(filepath.Join(os.Getenv("HOME"), ".myapp"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m := identity.New(identity.Config{Storage: store})
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// storedDocument is the on-disk layout.
type storedDocument struct {
	SavedAt time.Time         `json:"saved_at"`
	Values  map[string]string `json:"values"`
}

// NewFileStorage creates a file store in dir.
// The directory will be created if it doesn't exist.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("analytics: failed to create storage directory: %w", err)
	}
	return &FileStorage{path: filepath.Join(dir, DefaultFileName)}, nil
}

// Path returns the location of the JSON document.
func (s *FileStorage) Path() string {
	return s.path
}

// Get implements Storage.
func (s *FileStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements Storage.
func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete implements Storage.
func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

// load reads the document. A missing file is an empty store.
func (s *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("analytics: failed to read storage file: %w", err)
	}

	var doc storedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("analytics: failed to decode storage file: %w", err)
	}
	if doc.Values == nil {
		doc.Values = make(map[string]string)
	}
	return doc.Values, nil
}

func (s *FileStorage) save(values map[string]string) error {
	data, err := json.MarshalIndent(storedDocument{SavedAt: time.Now().UTC(), Values: values}, "", "  ")
	if err != nil {
		return fmt.Errorf("analytics: failed to marshal storage file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".analytics-identity-*")
	if err != nil {
		return fmt.Errorf("analytics: failed to write storage file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("analytics: failed to write storage file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("analytics: failed to write storage file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("analytics: failed to replace storage file: %w", err)
	}
	return nil
}
