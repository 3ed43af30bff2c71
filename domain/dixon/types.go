// Package dixon implements Dixon's Q-test for flagging the smallest and/or
// largest member of a small sample (3 to 30 values) as an outlier.
package dixon

import (
	"fmt"
	"strconv"
	"strings"
)

// Classification is the outcome of a single Q-test evaluation
type Classification int

const (
	NoOutlier Classification = iota
	SmallOutlier
	LargeOutlier
	Both
)

var classificationNames = map[Classification]string{
	NoOutlier:    "no_outlier",
	SmallOutlier: "small_outlier",
	LargeOutlier: "large_outlier",
	Both:         "both",
}

func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the classification by name so JSON payloads stay readable
func (c Classification) MarshalText() ([]byte, error) {
	name, ok := classificationNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown classification %d", int(c))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a classification name
func (c *Classification) UnmarshalText(text []byte) error {
	for value, name := range classificationNames {
		if name == string(text) {
			*c = value
			return nil
		}
	}
	return fmt.Errorf("unknown classification %q", string(text))
}

// HasSmallOutlier reports whether the minimum was flagged
func (c Classification) HasSmallOutlier() bool {
	return c == SmallOutlier || c == Both
}

// HasLargeOutlier reports whether the maximum was flagged
func (c Classification) HasLargeOutlier() bool {
	return c == LargeOutlier || c == Both
}

// ConfidenceLevel selects which critical value table is used
type ConfidenceLevel int

const (
	Confidence90 ConfidenceLevel = 90
	Confidence95 ConfidenceLevel = 95
	Confidence99 ConfidenceLevel = 99
)

// ConfidenceLevels lists the supported tiers in ascending strictness
var ConfidenceLevels = []ConfidenceLevel{Confidence90, Confidence95, Confidence99}

// Valid reports whether the level is one of the three tabulated tiers
func (l ConfidenceLevel) Valid() bool {
	switch l {
	case Confidence90, Confidence95, Confidence99:
		return true
	}
	return false
}

func (l ConfidenceLevel) String() string {
	return strconv.Itoa(int(l)) + "%"
}

// ParseConfidenceLevel accepts "95", "95%" or a fraction such as "0.95".
// Only the exact tiers 90, 95 and 99 are accepted.
func ParseConfidenceLevel(s string) (ConfidenceLevel, error) {
	raw := strings.TrimSuffix(strings.TrimSpace(s), "%")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: confidence level %q is not a number", ErrConfiguration, s)
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	level := ConfidenceLevel(int(f + 0.5))
	if float64(level) != roundTo(f, 6) || !level.Valid() {
		return 0, fmt.Errorf("%w: confidence level %q must be one of 90, 95, 99", ErrConfiguration, s)
	}
	return level, nil
}

func roundTo(f float64, digits int) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', digits, 64), 64)
	return r
}

// WindowPolicy controls how the classifier's window advances once full
type WindowPolicy string

const (
	// PolicyBatch empties the window after every full batch of N samples,
	// so consecutive evaluations never share samples.
	PolicyBatch WindowPolicy = "batch"
	// PolicySliding keeps the N most recent samples and evaluates on every
	// ingest once the window has filled.
	PolicySliding WindowPolicy = "sliding"
)

// Valid reports whether the policy is known
func (p WindowPolicy) Valid() bool {
	return p == PolicyBatch || p == PolicySliding
}

// ParseWindowPolicy parses "batch" or "sliding"; empty selects batch
func ParseWindowPolicy(s string) (WindowPolicy, error) {
	p := WindowPolicy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PolicyBatch, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: window policy %q must be batch or sliding", ErrConfiguration, s)
	}
	return p, nil
}
