package utils

import (
	"sync"
	"time"
)

// KeyedWindow counts events per key over a trailing window.
type KeyedWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   map[string][]time.Time
}

func NewKeyedWindow(window time.Duration) *KeyedWindow {
	return &KeyedWindow{window: window, hits: make(map[string][]time.Time)}
}

// Add records an event for key and returns the count inside the window, itself included.
func (w *KeyedWindow) Add(key string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	hits := append(w.trim(w.hits[key], now), now)
	w.hits[key] = hits
	return len(hits)
}

func (w *KeyedWindow) Count(key string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	hits := w.trim(w.hits[key], now)
	if len(hits) == 0 {
		delete(w.hits, key)
		return 0
	}
	w.hits[key] = hits
	return len(hits)
}

// Prune drops keys with no events left in the window.
func (w *KeyedWindow) Prune(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for key, hits := range w.hits {
		if hits = w.trim(hits, now); len(hits) == 0 {
			delete(w.hits, key)
		} else {
			w.hits[key] = hits
		}
	}
}

func (w *KeyedWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}

func (w *KeyedWindow) trim(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-w.window)
	idx := 0
	for idx < len(hits) && !hits[idx].After(cutoff) {
		idx++
	}
	return hits[idx:]
}
