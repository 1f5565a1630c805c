// Package clock supplies lifecycle timestamps in the desk's fixed time zone.
package clock

import (
	"sync"
	"time"
	_ "time/tzdata"
)

const (
	// DefaultZone is the zone every lifecycle stamp is expressed in.
	DefaultZone = "America/Mexico_City"

	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// fallbackZone is used when the zone database has no entry for the configured name.
var fallbackZone = time.FixedZone("UTC-6", -6*60*60)

// Clock is the timestamp source consumed by the lifecycle engine.
type Clock interface {
	Now() time.Time
}

// Local is a Clock pinned to one location whose readings never go backwards.
type Local struct {
	loc *time.Location
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewLocal returns a Clock in zone. The second result is false when the zone
// could not be loaded and the fixed UTC-6 offset is used instead.
func NewLocal(zone string) (*Local, bool) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	ok := err == nil
	if !ok {
		loc = fallbackZone
	}
	return &Local{loc: loc, now: time.Now}, ok
}

// Now returns the current time in the clock's location. If the system clock
// steps backwards the previous reading is returned again.
func (c *Local) Now() time.Time {
	t := c.now().In(c.loc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		return c.last
	}
	c.last = t
	return t
}

// Location returns the clock's zone.
func (c *Local) Location() *time.Location {
	return c.loc
}

// Stamp is the locale rendering of a timestamp.
type Stamp struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Format renders t in loc using the desk's date and time layouts.
func Format(t time.Time, loc *time.Location) Stamp {
	if loc != nil {
		t = t.In(loc)
	}
	return Stamp{Date: t.Format(DateLayout), Time: t.Format(TimeLayout)}
}

// Manual is a Clock for tests. It only moves when Advance or Set is called.
type Manual struct {
	mu sync.Mutex
	t  time.Time
}

// NewManual returns a Manual clock reading t.
func NewManual(t time.Time) *Manual {
	return &Manual{t: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.t = m.t.Add(d)
	m.mu.Unlock()
}
