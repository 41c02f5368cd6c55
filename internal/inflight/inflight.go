// Package inflight enforces at most one running scan per target key.
package inflight

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when another scan already holds the key.
var ErrBusy = errors.New("a scan of this page is already in progress")

// Guard grants exclusive use of a key. A second Acquire of a held key fails
// with ErrBusy instead of waiting. The returned release is idempotent.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Memory is a process-local Guard.
type Memory struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemory returns an empty in-process guard.
func NewMemory() *Memory {
	return &Memory{held: map[string]struct{}{}}
}

func (m *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		m.held = map[string]struct{}{}
	}
	if _, ok := m.held[key]; ok {
		return nil, ErrBusy
	}
	m.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}, nil
}
