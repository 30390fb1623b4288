package store

import (
	"github.com/sasha-s/go-deadlock"
)

// changeHub fans a write out to the callbacks registered for its key.
type changeHub struct {
	mtx  deadlock.RWMutex
	next int
	subs map[string]map[int]func([]byte)
}

func newChangeHub() *changeHub {
	return &changeHub{subs: map[string]map[int]func([]byte){}}
}

func (h *changeHub) subscribe(key string, fn func([]byte)) func() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	id := h.next
	h.next++
	if h.subs[key] == nil {
		h.subs[key] = map[int]func([]byte){}
	}
	h.subs[key][id] = fn
	return func() {
		h.mtx.Lock()
		defer h.mtx.Unlock()
		delete(h.subs[key], id)
	}
}

// publish runs callbacks outside the lock so they may write to the store.
func (h *changeHub) publish(key string, raw []byte) {
	h.mtx.RLock()
	fns := make([]func([]byte), 0, len(h.subs[key]))
	for _, fn := range h.subs[key] {
		fns = append(fns, fn)
	}
	h.mtx.RUnlock()
	for _, fn := range fns {
		fn(raw)
	}
}
