// Package tokenstore provides the persistent key/value stores the client uses
// as its local backup of server-issued credentials.
//
// Stores are last-write-wins and carry no transactional guarantees; the
// server-set cookies remain the authoritative copy of a session.
package tokenstore

import (
	"errors"
	"sync"
)

// Well-known keys written by the token manager.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("token store closed")

// Store is a string key/value store. Get reports found=false, err=nil for a
// missing key. Delete of a missing key is not an error.
type Store interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStore keeps values in process memory. The zero value is ready to use.
type MemoryStore struct {
	mu   sync.RWMutex
	vals map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vals == nil {
		m.vals = make(map[string]string)
	}
	m.vals[key] = value
	return nil
}

func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}
