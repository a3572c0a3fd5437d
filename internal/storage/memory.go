package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Fault lets tests fail or stall individual operations. A non-nil return is
// wrapped as ErrUnavailable unless it already is ErrNotFound.
type Fault func(op string, ns Namespace, key string) error

// MemoryStore keeps both namespaces in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	data        map[Namespace]map[string][]byte
	fault       Fault

	gets, sets int
}

// NewMemoryStore returns an uninitialized in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetFault installs (or clears, with nil) a fault hook.
func (m *MemoryStore) SetFault(f Fault) {
	m.mu.Lock()
	m.fault = f
	m.mu.Unlock()
}

// Counts reports how many Get and Set calls reached the store.
func (m *MemoryStore) Counts() (gets, sets int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets, m.sets
}

func (m *MemoryStore) Init(ctx context.Context) error {
	if err := m.check(ctx, "init", "", ""); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}
	m.data = map[Namespace]map[string][]byte{
		NamespaceChunks: {},
		NamespacePlayer: {},
	}
	m.initialized = true
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	if err := checkNamespace(ns); err != nil {
		return nil, err
	}
	if err := m.check(ctx, "get", ns, key); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	m.gets++
	v, ok := m.data[ns][key]
	if !ok {
		return nil, ErrNotFound
	}
	dup := make([]byte, len(v))
	copy(dup, v)
	return dup, nil
}

func (m *MemoryStore) Set(ctx context.Context, ns Namespace, key string, value []byte) error {
	if err := checkNamespace(ns); err != nil {
		return err
	}
	if err := m.check(ctx, "set", ns, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	m.sets++
	dup := make([]byte, len(value))
	copy(dup, value)
	m.data[ns][key] = dup
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context, ns Namespace) ([]string, error) {
	if err := checkNamespace(ns); err != nil {
		return nil, err
	}
	if err := m.check(ctx, "keys", ns, ""); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	keys := make([]string, 0, len(m.data[ns]))
	for k := range m.data[ns] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := m.check(ctx, "clear", "", ""); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return ErrNotInitialized
	}
	for ns := range m.data {
		m.data[ns] = map[string][]byte{}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// check runs the context and fault hook outside the data lock so a stalling
// fault does not block other keys.
func (m *MemoryStore) check(ctx context.Context, op string, ns Namespace, key string) error {
	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}
	m.mu.RLock()
	f := m.fault
	m.mu.RUnlock()
	if f == nil {
		return nil
	}
	if err := f(op, ns, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return unavailable(op, err)
	}
	return nil
}
