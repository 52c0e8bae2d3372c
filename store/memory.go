package store

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/decorec/core"
)

// SweepInterval 是内存缓存清理过期 key 的周期。
const SweepInterval = 10 * time.Second

// MemoryStore 是进程内的 core.Store，单进程部署时作为嵌入缓存。
// 读写都复制字节切片，调用方可以放心修改拿到的值。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// memEntry 的 expires 为零值表示不过期。
type memEntry struct {
	value   []byte
	expires time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewMemoryStore 创建内存缓存并启动后台清理，Close 后清理协程退出。
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go m.sweepLoop(SweepInterval)
	return m
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || e.expired(m.now()) {
		return nil, core.ErrStoreNotFound
	}
	return clone(e.value), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl ...int) error {
	expires := m.expiry(ttl)
	m.mu.Lock()
	m.entries[key] = memEntry{value: clone(value), expires: expires}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) BatchGet(_ context.Context, keys []string) (map[string][]byte, error) {
	now := m.now()
	out := make(map[string][]byte, len(keys))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range keys {
		if e, ok := m.entries[k]; ok && !e.expired(now) {
			out[k] = clone(e.value)
		}
	}
	return out, nil
}

func (m *MemoryStore) BatchSet(_ context.Context, kvs map[string][]byte, ttl ...int) error {
	expires := m.expiry(ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range kvs {
		m.entries[k] = memEntry{value: clone(v), expires: expires}
	}
	return nil
}

// Close 停止后台清理。可重复调用。
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// Len 返回当前条目数（含尚未清理的过期条目）。
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) expiry(ttl []int) time.Time {
	if len(ttl) == 0 || ttl[0] <= 0 {
		return time.Time{}
	}
	return m.now().Add(time.Duration(ttl[0]) * time.Second)
}

func (m *MemoryStore) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *MemoryStore) sweep() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

var _ core.Store = (*MemoryStore)(nil)
