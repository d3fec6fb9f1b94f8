package identity

import (
	"errors"
	"sync"
)

// Storage keys used by the identity manager.
const (
	KeyAnonymousID         = "__analytics_anonymous_id__"
	KeySessionID           = "__analytics_session_id__"
	KeySessionLastActivity = "__analytics_session_last_activity__"
)

// ErrStorageUnavailable is returned by storage that cannot persist anything.
var ErrStorageUnavailable = errors.New("analytics: storage unavailable")

// Storage is a durable string key-value store scoped to one client
// installation.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key.
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get implements Storage.
func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements Storage.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete implements Storage.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// NopStorage is the storage of an environment without persistence.
// Every operation fails with ErrStorageUnavailable.
type NopStorage struct{}

// Get implements Storage.
func (NopStorage) Get(string) (string, bool, error) { return "", false, ErrStorageUnavailable }

// Set implements Storage.
func (NopStorage) Set(string, string) error { return ErrStorageUnavailable }

// Delete implements Storage.
func (NopStorage) Delete(string) error { return ErrStorageUnavailable }

var (
	_ Storage = (*MemoryStorage)(nil)
	_ Storage = NopStorage{}
	_ Storage = (*FileStorage)(nil)
)
