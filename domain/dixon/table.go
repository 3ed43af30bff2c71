package dixon

import (
	"fmt"
)

// Sample sizes covered by the critical value tables
const (
	MinSampleSize = 3
	MaxSampleSize = 30
)

// Critical Q values indexed by n-3, for n = 3..30.
var (
	q90 = [MaxSampleSize - MinSampleSize + 1]float64{
		0.941, 0.765, 0.642, 0.560, 0.507, 0.468, 0.437,
		0.412, 0.392, 0.376, 0.361, 0.349, 0.338, 0.329,
		0.320, 0.313, 0.306, 0.300, 0.295, 0.290, 0.285,
		0.281, 0.277, 0.273, 0.269, 0.266, 0.263, 0.260,
	}

	q95 = [MaxSampleSize - MinSampleSize + 1]float64{
		0.970, 0.829, 0.710, 0.625, 0.568, 0.526, 0.493,
		0.466, 0.444, 0.426, 0.410, 0.396, 0.384, 0.374,
		0.365, 0.356, 0.349, 0.342, 0.337, 0.331, 0.326,
		0.321, 0.317, 0.312, 0.308, 0.305, 0.301, 0.290,
	}

	q99 = [MaxSampleSize - MinSampleSize + 1]float64{
		0.994, 0.926, 0.821, 0.740, 0.680, 0.634, 0.598,
		0.568, 0.542, 0.522, 0.503, 0.488, 0.475, 0.463,
		0.452, 0.442, 0.433, 0.425, 0.418, 0.411, 0.404,
		0.399, 0.393, 0.388, 0.384, 0.380, 0.376, 0.372,
	}
)

// CriticalValue returns the critical Q value for a sample of size n at the
// given confidence level.
func CriticalValue(n int, level ConfidenceLevel) (float64, error) {
	if n < MinSampleSize || n > MaxSampleSize {
		return 0, fmt.Errorf("%w: n=%d, want %d..%d", ErrOutOfRange, n, MinSampleSize, MaxSampleSize)
	}

	i := n - MinSampleSize
	switch level {
	case Confidence90:
		return q90[i], nil
	case Confidence95:
		return q95[i], nil
	case Confidence99:
		return q99[i], nil
	default:
		return 0, fmt.Errorf("%w: unknown confidence level %d", ErrConfiguration, int(level))
	}
}
