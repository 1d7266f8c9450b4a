// Package kv persists small string snapshots, such as shopper carts, and
// optionally fans change notices out to other server instances.
package kv

import (
	"context"
	"sync"
)

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Broadcaster is implemented by backends shared between instances.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, message string) error
	// Subscribe returns once the subscription is active. The returned channel
	// is closed when ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan string, error)
}

type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.values[key]
	return val, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
