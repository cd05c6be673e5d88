// Package clock gives services a replaceable notion of "now" in the farm's time zone.
package clock

import (
	"time"

	"github.com/mamadbah2/farmer/internal/domain/models"
)

// Clock reports the current time in a fixed location. The zero value uses time.Now in time.Local.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// New returns a wall clock in loc.
func New(loc *time.Location) Clock {
	return Clock{now: time.Now, loc: loc}
}

// Fixed returns a clock frozen at t, in t's location.
func Fixed(t time.Time) Clock {
	return Clock{now: func() time.Time { return t }, loc: t.Location()}
}

// Location returns the clock's location.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Now returns the current time in the clock's location.
func (c Clock) Now() time.Time {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	return now().In(c.Location())
}

// Today returns local midnight of the current day.
func (c Clock) Today() time.Time {
	return models.StartOfDay(c.Now())
}
