package clock

import (
	"testing"
	"time"
)

func TestNewLocal_DefaultZone(t *testing.T) {
	c, ok := NewLocal("")
	if !ok {
		t.Fatal("expected default zone to load from embedded tzdata")
	}
	if got := c.Location().String(); got != DefaultZone {
		t.Errorf("Location() = %q, want %q", got, DefaultZone)
	}
}

func TestNewLocal_FallbackZone(t *testing.T) {
	c, ok := NewLocal("Nowhere/Atlantis")
	if ok {
		t.Fatal("expected unknown zone to report fallback")
	}
	_, offset := c.Now().Zone()
	if offset != -6*60*60 {
		t.Errorf("offset = %d, want %d", offset, -6*60*60)
	}
}

func TestLocal_NeverGoesBackwards(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	readings := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0

	c, _ := NewLocal("UTC")
	c.now = func() time.Time {
		r := readings[i]
		i++
		return r
	}

	first := c.Now()
	second := c.Now()
	third := c.Now()

	if !second.Equal(first) {
		t.Errorf("second reading = %v, want %v after backwards step", second, first)
	}
	if !third.After(second) {
		t.Errorf("third reading %v should be after %v", third, second)
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 1, 2, 21, 5, 0, 0, time.UTC)
	loc := time.FixedZone("UTC-6", -6*60*60)

	got := Format(ts, loc)

	if got.Date != "02/01/2024" {
		t.Errorf("Date = %q, want 02/01/2024", got.Date)
	}
	if got.Time != "15:05" {
		t.Errorf("Time = %q, want 15:05", got.Time)
	}
}

func TestManual(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)
	m.Advance(90 * time.Second)

	if got := m.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(90*time.Second))
	}
}
