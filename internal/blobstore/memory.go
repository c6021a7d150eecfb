package blobstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"idproof/pkg/platform/sentinel"
)

// Memory is an in-memory Store for tests and single-process development.
type Memory struct {
	mu       sync.RWMutex
	objects  map[string][]byte
	notifier *Notifier
}

// NewMemory creates an empty in-memory store. notifier may be nil.
func NewMemory(notifier *Notifier) *Memory {
	return &Memory{
		objects:  make(map[string][]byte),
		notifier: notifier,
	}
}

func (m *Memory) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := ParseKey(key); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.objects[key] = cp
	m.mu.Unlock()

	m.notifier.Publish(Event{Key: key, At: time.Now()})
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, sentinel.ErrNotFound)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Health(ctx context.Context) error {
	return ctx.Err()
}

// Len reports the number of stored objects. Test helper.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
