package chaintime

import "errors"

var (
	// ErrClockRegression is returned when a host tries to move the logical
	// clock backwards.
	ErrClockRegression = errors.New("logical clock cannot decrease")

	// ErrInvalidPeriod is returned when a wall clock is configured with a
	// non-positive block period.
	ErrInvalidPeriod = errors.New("block period must be positive")
)
