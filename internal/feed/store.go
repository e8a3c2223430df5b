package feed

import (
	"sync"
	"time"

	"github.com/farmsight/herdfeed/internal/model"
)

// DefaultCapacity is the feed size when none is configured.
const DefaultCapacity = 50

// DefaultHighlightWindow is how long a newly arrived entry stays highlighted.
const DefaultHighlightWindow = 2 * time.Second

// Store is a bounded, ordered buffer of recent measurements, newest-first.
// Appending beyond capacity silently evicts the oldest entries; eviction is
// expected data aging, not an error. A transient highlight marker tracks the
// most recently arrived entry for display emphasis.
type Store struct {
	mu       sync.Mutex
	entries  []model.Measurement // Ring; head indexes the newest entry
	head     int
	count    int
	capacity int
	window   time.Duration

	highlightID  int64
	highlightSet bool

	totalAppended int64
	totalEvicted  int64
}

// Stats describes store activity.
type Stats struct {
	Count         int
	Capacity      int
	TotalAppended int64
	TotalEvicted  int64
}

// NewStore creates a store with the given capacity and highlight window.
// Non-positive arguments fall back to the defaults.
func NewStore(capacity int, window time.Duration) *Store {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultHighlightWindow
	}
	return &Store{
		entries:  make([]model.Measurement, capacity),
		capacity: capacity,
		window:   window,
	}
}

// Append prepends a measurement, evicting the oldest entry when full.
func (s *Store) Append(m model.Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.head = (s.head - 1 + s.capacity) % s.capacity
	s.entries[s.head] = m
	if s.count < s.capacity {
		s.count++
	} else {
		s.totalEvicted++
	}
	s.totalAppended++
}

// Current returns the ordered view, newest-first. The returned slice is a
// copy; callers may retain it.
func (s *Store) Current() []model.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Measurement, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.entries[(s.head+i)%s.capacity]
	}
	return out
}

// Len returns the number of entries held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// MarkNew highlights the entry with the given measurement ID and schedules
// its clear after the highlight window. The clear is compare-and-clear: if a
// newer MarkNew supersedes this one before the window elapses, the earlier
// timer is a no-op when it fires.
func (s *Store) MarkNew(id int64) {
	s.mu.Lock()
	s.highlightID = id
	s.highlightSet = true
	s.mu.Unlock()

	time.AfterFunc(s.window, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.highlightSet && s.highlightID == id {
			s.highlightSet = false
		}
	})
}

// Highlighted returns the currently highlighted measurement ID, if any.
func (s *Store) Highlighted() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.highlightSet {
		return 0, false
	}
	return s.highlightID, true
}

// Stats returns store statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Count:         s.count,
		Capacity:      s.capacity,
		TotalAppended: s.totalAppended,
		TotalEvicted:  s.totalEvicted,
	}
}
