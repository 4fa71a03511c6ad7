package eventlog

import (
	"context"
	"sync"
)

const defaultMemorySize = 256

// MemorySink keeps the most recent events for the status API.
type MemorySink struct {
	mu    sync.RWMutex
	buf   []Event
	next  int
	total int
}

func NewMemorySink(size int) *MemorySink {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &MemorySink{buf: make([]Event, size)}
}

func (m *MemorySink) Record(_ context.Context, evt Event) error {
	m.mu.Lock()
	m.buf[m.next] = evt
	m.next = (m.next + 1) % len(m.buf)
	m.total++
	m.mu.Unlock()
	return nil
}

// Recent returns up to limit events, newest first. limit <= 0 returns all retained.
func (m *MemorySink) Recent(limit int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := m.total
	if n > len(m.buf) {
		n = len(m.buf)
	}
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out
}

// Total counts every event ever recorded, including evicted ones.
func (m *MemorySink) Total() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}
