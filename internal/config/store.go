package config

import (
	"sync/atomic"
)

// Store holds the active configuration behind an atomic pointer so
// services can read a consistent snapshot without locking, and Reload can
// swap in a new one atomically for every reader at once.
type Store struct {
	path string
	cur  atomic.Pointer[Config]
}

// NewStore loads path (or falls back to Default if path is empty) and
// returns a Store wrapping it.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		s.cur.Store(Default())
		return s, nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s.cur.Store(cfg)
	return s, nil
}

// Get returns the current configuration snapshot.
func (s *Store) Get() *Config {
	return s.cur.Load()
}

// Reload re-reads the store's path and swaps the active configuration
// atomically. Services that read via Get on each tick pick up the change
// on their next read without coordination.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.cur.Store(cfg)
	return nil
}
