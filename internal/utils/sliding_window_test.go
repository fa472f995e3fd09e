package utils

import (
	"testing"
	"time"
)

func TestKeyedWindow(t *testing.T) {
	window := NewKeyedWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add("g1:u1", now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add("g1:u1", now.Add(500*time.Millisecond))
	window.Add("g1:u2", now.Add(500*time.Millisecond))
	if count := window.Count("g1:u1", now.Add(1*time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count("g1:u1", now.Add(3*time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}

	window.Prune(now.Add(10 * time.Second))
	if window.Len() != 0 {
		t.Fatalf("expected prune to drop idle keys, got %d", window.Len())
	}
}
