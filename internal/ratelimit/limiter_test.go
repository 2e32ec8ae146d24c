package ratelimit

import "testing"

func TestLimiterAllowsWithinBurst(t *testing.T) {
	l := NewLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("203.0.113.9") {
			t.Fatalf("request %d within burst must pass", i+1)
		}
	}
	if l.Allow("203.0.113.9") {
		t.Fatal("request beyond burst must be limited")
	}
}

func TestLimiterTracksIPsIndependently(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("203.0.113.9") {
		t.Fatal("first caller must pass")
	}
	if l.Allow("203.0.113.9") {
		t.Fatal("first caller must now be limited")
	}
	if !l.Allow("198.51.100.7") {
		t.Fatal("second caller has its own bucket")
	}
}
