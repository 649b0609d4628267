package config

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// ValidateDelay checks the shared delay-array shape: length 1 (fixed delay)
// or 2 (lo, hi with lo <= hi), both in milliseconds. Used for both
// spy.delay and spy.walk.delay.
func ValidateDelay(values []int, site string) error {
	switch len(values) {
	case 0:
		return nil
	case 1:
		if values[0] < 0 {
			return errors.Errorf("%s: delay must be non-negative", site)
		}
		return nil
	case 2:
		if values[0] < 0 || values[1] < 0 {
			return errors.Errorf("%s: delay must be non-negative", site)
		}
		if values[0] > values[1] {
			return errors.Errorf("%s: delay lo (%d) must be <= hi (%d)", site, values[0], values[1])
		}
		return nil
	default:
		return errors.Errorf("%s: delay must have 1 or 2 elements, got %d", site, len(values))
	}
}

// SampleDelay returns the effective delay: the single value, or a uniform
// random sample from [lo, hi] in milliseconds. An empty slice yields zero
// delay.
func SampleDelay(values []int) time.Duration {
	switch len(values) {
	case 0:
		return 0
	case 1:
		return time.Duration(values[0]) * time.Millisecond
	default:
		lo, hi := values[0], values[1]
		if lo == hi {
			return time.Duration(lo) * time.Millisecond
		}
		sample := lo + rand.Intn(hi-lo+1)
		return time.Duration(sample) * time.Millisecond
	}
}
