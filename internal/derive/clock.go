package derive

import "time"

// Clock supplies the current year to the rules
type Clock interface {
	CurrentYear() int
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) CurrentYear() int { return time.Now().Year() }

// FixedClock always reports the same year
type FixedClock int

func (c FixedClock) CurrentYear() int { return int(c) }
