package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBlocksAfterBudget(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Hour})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("Allow() = false on request %d, want true", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("Allow() = true after budget exhausted, want false")
	}
}

func TestLimiterTracksClientsSeparately(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour})
	defer l.Stop()

	if !l.Allow("10.0.0.1") {
		t.Fatal("Allow(first client) = false, want true")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("Allow(second client) = false, want true")
	}
	if l.Allow("10.0.0.1") {
		t.Error("Allow(first client again) = true, want false")
	}
}

func TestLimiterDefaultsOnZeroConfig(t *testing.T) {
	l := NewLimiter(Config{})
	defer l.Stop()

	if l.requestsPerMinute != DefaultConfig().RequestsPerMinute {
		t.Errorf("requestsPerMinute = %d, want %d", l.requestsPerMinute, DefaultConfig().RequestsPerMinute)
	}
}

func TestLimiterStopIsIdempotent(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1, CleanupInterval: time.Hour})
	l.Stop()
	l.Stop()
}
