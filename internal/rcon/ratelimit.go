package rcon

import (
	"sync"
	"time"
)

// slidingWindow throttles mutating commands per server id: at most
// `limit` hits inside the trailing `window`. It protects the remote
// server from burst abuse; serialization is the executor lock's job.
type slidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time

	now func() time.Time // swapped out in tests
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		limit:  limit,
		window: window,
		hits:   map[string][]time.Time{},
		now:    time.Now,
	}
}

// Allow records a hit for the server and reports whether it fits inside
// the window.
func (w *slidingWindow) Allow(serverID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)

	kept := w.hits[serverID][:0]
	for _, t := range w.hits[serverID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= w.limit {
		w.hits[serverID] = kept
		return false
	}
	w.hits[serverID] = append(kept, now)
	return true
}
