package chrono

import (
	"time"
)

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the location the implementation was created with.
	Now() time.Time
	Location() *time.Location
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime loads the named IANA location, an empty name means the local timezone.
func NewStandardTime(location string) (StandardTime, error) {
	if location == "" {
		return StandardTime{location: time.Local}, nil
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		return StandardTime{}, err
	}
	return StandardTime{location: loc}, nil
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// FixedTime always returns the same instant, it is used by tests.
type FixedTime struct {
	Time time.Time
}

func (f FixedTime) Now() time.Time {
	return f.Time
}

func (f FixedTime) Location() *time.Location {
	return f.Time.Location()
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
