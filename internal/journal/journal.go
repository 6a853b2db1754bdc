// Package journal keeps a diagnostic record of dispatch attempts.
// It is not a retry queue: nothing reads it back to resend.
package journal

import (
	"context"
	"sync"
	"time"
)

// Record is the outcome of one dispatch attempt
type Record struct {
	CorrelationID string    `json:"correlationId"`
	FileID        string    `json:"fileId"`
	Name          string    `json:"name"`
	Direction     string    `json:"direction"`
	Delivered     bool      `json:"delivered"`
	Status        int       `json:"status,omitempty"`
	Detail        string    `json:"detail,omitempty"` // truncated response body or transport error
	AttemptedAt   time.Time `json:"attemptedAt"`
}

// Journal stores dispatch records
type Journal interface {
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Memory is a bounded in-process journal; the oldest records are overwritten first
type Memory struct {
	mu   sync.Mutex
	buf  []Record
	next int
	full bool
}

// NewMemory creates a journal retaining up to capacity records
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{buf: make([]Record, capacity)}
}

// Append stores rec, evicting the oldest record when full
func (m *Memory) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf[m.next] = rec
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first
func (m *Memory) Recent(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.next
	if m.full {
		size = len(m.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Record, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (m.next - 1 - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}
