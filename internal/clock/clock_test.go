package clock

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	c := &RealClock{}
	before := time.Now()
	now := c.Now()
	if now.Before(before) {
		t.Error("RealClock.Now went backwards")
	}
}

func TestMockClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("expected %v, got %v", start, c.Now())
	}

	c.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !c.Now().Equal(want) {
		t.Errorf("expected %v after advance, got %v", want, c.Now())
	}

	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("expected 90s since start, got %v", got)
	}
}

func TestSetDefault(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock := NewMockClock(start)

	restore := SetDefault(mock)
	defer restore()

	if !Now().Equal(start) {
		t.Errorf("package-level Now should use mock, got %v", Now())
	}

	restore()
	if Now().Year() < 2023 {
		t.Error("restore should put the real clock back")
	}
}
