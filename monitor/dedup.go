package monitor

import "time"

// seenIDs is a time-windowed set of dispatched message ids. Entries older
// than the window are evicted lazily, at most once per window, so memory stays
// bounded without a dedicated timer.
type seenIDs struct {
	window    time.Duration
	ids       map[string]time.Time
	lastSweep time.Time
}

func newSeenIDs(window time.Duration) *seenIDs {
	if window <= 0 {
		window = time.Minute
	}
	return &seenIDs{window: window, ids: make(map[string]time.Time)}
}

// Seen reports whether id was already dispatched inside the window, marking it
// as seen otherwise.
func (s *seenIDs) Seen(id string, now time.Time) bool {
	if now.Sub(s.lastSweep) >= s.window {
		for k, t := range s.ids {
			if now.Sub(t) > s.window {
				delete(s.ids, k)
			}
		}
		s.lastSweep = now
	}
	if _, ok := s.ids[id]; ok {
		return true
	}
	s.ids[id] = now
	return false
}

func (s *seenIDs) Len() int {
	return len(s.ids)
}
