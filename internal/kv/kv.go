// Package kv defines the local durable key-value store the task list is
// mirrored to, plus an in-memory implementation.
//
// Values are opaque bytes; callers own the encoding. The state store writes
// the JSON task list under TasksKey and reads the bearer credential from
// TokenKey.
package kv

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const (
	TasksKey = "tarefas"
	TokenKey = "token"
)

// ErrNotFound is returned by Get when the key has never been set or was deleted.
var ErrNotFound = errors.New("kv: key not found")

// Store is a durable key-value store surviving process restarts.
type Store interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// ValidKey reports whether key can be used by every backend.
func ValidKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, `/\:`) && key != "." && key != ".."
}

// Memory implements Store in memory. Safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	// copy on read so callers can't mutate stored bytes
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
