package utils

import (
	"testing"
	"time"
)

func TestFixedClock(t *testing.T) {
	base := time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC)
	clock := NewFixedClock(base)

	if got := clock.Now(); !got.Equal(base) {
		t.Errorf("Now() = %v, want %v", got, base)
	}

	clock.Advance(3 * time.Hour)
	if got := clock.Now(); !got.Equal(base.Add(3 * time.Hour)) {
		t.Errorf("Now() after Advance = %v, want %v", got, base.Add(3*time.Hour))
	}

	reset := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(reset)
	if got := clock.Now(); !got.Equal(reset) {
		t.Errorf("Now() after Set = %v, want %v", got, reset)
	}
}

func TestSystemClock(t *testing.T) {
	clock := NewSystemClock()
	before := time.Now().Add(-time.Minute)
	after := time.Now().Add(time.Minute)

	got := clock.Now()
	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, not within a minute of current time", got)
	}
}
