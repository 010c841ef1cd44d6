package engine

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// memoryEngine is an in-memory implementation of the Engine interface
type memoryEngine struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryEngine creates a new in-memory storage engine
func NewMemoryEngine() Engine {
	return &memoryEngine{
		data: make(map[string][]byte),
	}
}

func (m *memoryEngine) Get(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrEngineClosed
	}

	value, exists := m.data[string(key)]
	if !exists {
		return nil, ErrKeyNotFound
	}

	// Return a copy to prevent external modifications
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (m *memoryEngine) Put(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrEngineClosed
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	m.data[string(key)] = valueCopy
	return nil
}

func (m *memoryEngine) Delete(ctx context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrEngineClosed
	}

	delete(m.data, string(key))
	return nil
}

// Scan takes a snapshot of the range; writes after Scan returns are not
// visible to the iterator.
func (m *memoryEngine) Scan(ctx context.Context, start, end []byte) (Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrEngineClosed
	}

	var keys []string
	for k := range m.data {
		keyBytes := []byte(k)
		if (start == nil || bytes.Compare(keyBytes, start) >= 0) &&
			(end == nil || bytes.Compare(keyBytes, end) < 0) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		v := m.data[k]
		values[i] = make([]byte, len(v))
		copy(values[i], v)
	}

	return &memoryIterator{
		ctx:    ctx,
		keys:   keys,
		values: values,
		pos:    -1,
	}, nil
}

func (m *memoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	m.closed = true
	return nil
}

// memoryIterator implements the Iterator interface
type memoryIterator struct {
	ctx    context.Context
	keys   []string
	values [][]byte
	pos    int
	err    error
}

func (it *memoryIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}
	it.pos++
	return it.pos < len(it.keys)
}

func (it *memoryIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *memoryIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return it.values[it.pos]
}

func (it *memoryIterator) Error() error {
	return it.err
}

func (it *memoryIterator) Close() error {
	it.keys = nil
	it.values = nil
	return nil
}
