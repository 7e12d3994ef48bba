package progress

import (
	"sync"
	"time"
)

// MemoryTracker keeps progress notes in memory. It offers the same surface
// as Store for runs that do not need persistence, and for tests.
type MemoryTracker struct {
	mu      sync.Mutex
	entries map[string][]Entry
}

// NewMemoryTracker returns an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{entries: make(map[string][]Entry)}
}

// Record stores the note for one step of a run. Recording the same step
// twice keeps the newer note.
func (m *MemoryTracker) Record(runID string, step int, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := Entry{RunID: runID, Step: step, Note: note, CreatedAt: time.Now().UTC()}
	notes := m.entries[runID]
	for i := range notes {
		if notes[i].Step == step {
			notes[i] = entry
			return nil
		}
	}
	m.entries[runID] = append(notes, entry)
	return nil
}

// Notes returns a copy of all notes for a run in recording order.
func (m *MemoryTracker) Notes(runID string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	notes := make([]Entry, len(m.entries[runID]))
	copy(notes, m.entries[runID])
	return notes
}

// Latest returns the most recent note for a run, or nil when the run has
// none.
func (m *MemoryTracker) Latest(runID string) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	notes := m.entries[runID]
	if len(notes) == 0 {
		return nil
	}
	latest := notes[len(notes)-1]
	return &latest
}
