package dixon

import (
	"errors"
)

var (
	// ErrConfiguration marks a classifier that cannot be built: capacity
	// outside [3,30], an unknown confidence level or an unknown window policy.
	ErrConfiguration = errors.New("invalid Q-test configuration")

	// ErrOutOfRange marks a critical value lookup for a sample size the
	// tables do not cover.
	ErrOutOfRange = errors.New("sample size outside critical value table")

	// ErrInvalidSample marks a non-finite sample value.
	ErrInvalidSample = errors.New("sample value must be finite")
)

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsOutOfRangeError(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}
