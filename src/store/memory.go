package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

type MemoryStore struct {
	mtx  deadlock.RWMutex
	data map[string][]byte
	hub  *changeHub
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: map[string][]byte{},
		hub:  newChangeHub(),
	}
}

func (m *MemoryStore) Get(_ context.Context, key string, out any) error {
	m.mtx.RLock()
	raw, ok := m.data[key]
	m.mtx.RUnlock()
	if !ok {
		return errors.Wrap(ErrNotFound, key)
	}
	return errors.Wrapf(json.Unmarshal(raw, out), "failed decoding %s", key)
}

func (m *MemoryStore) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed encoding %s", key)
	}
	m.mtx.Lock()
	m.data[key] = raw
	m.mtx.Unlock()
	m.hub.publish(key, raw)
	return nil
}

func (m *MemoryStore) OnChange(key string, fn func([]byte)) func() {
	return m.hub.subscribe(key, fn)
}

func (m *MemoryStore) Close() error { return nil }
