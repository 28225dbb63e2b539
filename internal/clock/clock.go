// Package clock provides an injectable time source so timing-sensitive
// logic can be tested deterministically.
package clock

import "time"

// Clock yields the current instant. All callers treat the result as UTC.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC()
}
