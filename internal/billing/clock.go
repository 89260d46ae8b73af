package billing

import "time"

// Clock abstracts wall-clock reads so that expiry decisions are
// deterministic under test.  Production code uses SystemClock; tests
// substitute a manual clock and advance it instead of sleeping.
type Clock interface {
    Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
