package tokenstore

import (
	"context"
	"sync"
	"time"
)

type memoryScope struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryBackend keeps values in process memory. A zero ttl disables expiry;
// otherwise every read or write pushes the scope's expiry ttl into the future.
type MemoryBackend struct {
	mu     sync.Mutex
	scopes map[string]*memoryScope
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		scopes: make(map[string]*memoryScope),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *MemoryBackend) Get(_ context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc := m.live(scope)
	if sc == nil {
		return "", false, nil
	}
	m.slide(sc)
	v, ok := sc.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, scope string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc := m.live(scope)
	if sc == nil {
		sc = &memoryScope{values: make(map[string]string, len(values))}
		m.scopes[scope] = sc
	}
	for k, v := range values {
		sc.values[k] = v
	}
	m.slide(sc)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, scope string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sc, ok := m.scopes[scope]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(sc.values, k)
	}
	if len(sc.values) == 0 {
		delete(m.scopes, scope)
	}
	return nil
}

// Prune drops expired scopes.
func (m *MemoryBackend) Prune(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	now := m.now()
	for scope, sc := range m.scopes {
		if m.expired(sc, now) {
			delete(m.scopes, scope)
			n++
		}
	}
	return n, nil
}

// live returns the scope if present and unexpired. Caller holds mu.
func (m *MemoryBackend) live(scope string) *memoryScope {
	sc, ok := m.scopes[scope]
	if !ok {
		return nil
	}
	if m.expired(sc, m.now()) {
		delete(m.scopes, scope)
		return nil
	}
	return sc
}

func (m *MemoryBackend) slide(sc *memoryScope) {
	if m.ttl > 0 {
		sc.expiresAt = m.now().Add(m.ttl)
	}
}

func (m *MemoryBackend) expired(sc *memoryScope, now time.Time) bool {
	return !sc.expiresAt.IsZero() && !now.Before(sc.expiresAt)
}
