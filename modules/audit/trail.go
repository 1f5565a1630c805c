package audit

import (
	"sync"
	"time"
)

// DefaultMaxEntries is the number of entries a Trail keeps by default.
const DefaultMaxEntries = 5000

// Entry records one committed lifecycle transition.
type Entry struct {
	TaskID     uint64    `json:"task_id"`
	Event      string    `json:"event"`
	ActorID    string    `json:"actor_id"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Trail is a bounded, thread-safe log of entries. Once full, the oldest
// entries are dropped.
type Trail struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
	recorded   int64
}

// NewTrail creates a Trail holding at most maxEntries entries.
func NewTrail(maxEntries int) *Trail {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Trail{
		entries:    make([]Entry, 0),
		maxEntries: maxEntries,
	}
}

// Record appends e.
func (t *Trail) Record(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recorded++
	t.entries = append(t.entries, e)
	if len(t.entries) > t.maxEntries {
		excess := len(t.entries) - t.maxEntries
		t.entries = t.entries[excess:]
	}
}

// Recent returns up to limit entries, newest first, optionally only those
// for taskID.
func (t *Trail) Recent(limit int, taskID uint64) []Entry {
	if limit <= 0 {
		return []Entry{}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]Entry, 0, min(limit, len(t.entries)))
	for i := len(t.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if taskID != 0 && t.entries[i].TaskID != taskID {
			continue
		}
		result = append(result, t.entries[i])
	}
	return result
}

// Recorded returns how many entries were ever recorded, including dropped ones.
func (t *Trail) Recorded() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recorded
}
