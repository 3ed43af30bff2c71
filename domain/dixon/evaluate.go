package dixon

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"dixonq/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of the evaluated sample
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"` // sample standard deviation (n-1)
}

// Evaluation is the result of one Q-test over a complete sample.
// Low and High are set only when the corresponding end was flagged.
type Evaluation struct {
	ID             core.EvaluationID `json:"id"`
	Classification Classification    `json:"classification"`
	SampleSize     int               `json:"sample_size"`
	Level          ConfidenceLevel   `json:"confidence_level"`
	QSmall         float64           `json:"q_small"`
	QBig           float64           `json:"q_big"`
	Critical       float64           `json:"critical_value"`
	Range          float64           `json:"range"`
	Degenerate     bool              `json:"degenerate"` // all values equal, range is zero
	Low            *float64          `json:"low_outlier,omitempty"`
	High           *float64          `json:"high_outlier,omitempty"`
	Ranked         []float64         `json:"ranked"`
	Summary        Summary           `json:"summary"`
	EvaluatedAt    time.Time         `json:"evaluated_at"`
}

// Evaluate runs Dixon's Q-test on a complete sample of 3 to 30 values.
//
//	q_small = (x[1] - x[0]) / (x[n-1] - x[0])
//	q_big   = (x[n-1] - x[n-2]) / (x[n-1] - x[0])
//
// A statistic strictly greater than the critical value flags that end.
// A zero range yields NoOutlier. When the range overflows float64 the
// statistics are taken over halved operands, which leaves the ratios exact.
func Evaluate(values []float64, level ConfidenceLevel) (*Evaluation, error) {
	n := len(values)
	critical, err := CriticalValue(n, level)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %v at position %d", ErrInvalidSample, v, i)
		}
	}

	ranked := Rank(values)
	eval := &Evaluation{
		ID:             core.NewEvaluationID(),
		Classification: NoOutlier,
		SampleSize:     n,
		Level:          level,
		Critical:       critical,
		Ranked:         ranked,
		Summary:        summarize(ranked),
		EvaluatedAt:    time.Now().UTC(),
	}

	denom := ranked[n-1] - ranked[0]
	eval.Range = denom
	if denom == 0 {
		eval.Degenerate = true
		return eval, nil
	}

	if math.IsInf(denom, 0) {
		half := ranked[n-1]/2 - ranked[0]/2
		eval.QSmall = (ranked[1]/2 - ranked[0]/2) / half
		eval.QBig = (ranked[n-1]/2 - ranked[n-2]/2) / half
	} else {
		eval.QSmall = (ranked[1] - ranked[0]) / denom
		eval.QBig = (ranked[n-1] - ranked[n-2]) / denom
	}

	eval.Classification = classify(eval.QSmall, eval.QBig, critical)
	if eval.Classification.HasSmallOutlier() {
		low := ranked[0]
		eval.Low = &low
	}
	if eval.Classification.HasLargeOutlier() {
		high := ranked[n-1]
		eval.High = &high
	}
	return eval, nil
}

func classify(qSmall, qBig, critical float64) Classification {
	small := qSmall > critical
	big := qBig > critical
	switch {
	case small && big:
		return Both
	case small:
		return SmallOutlier
	case big:
		return LargeOutlier
	default:
		return NoOutlier
	}
}

func summarize(ranked []float64) Summary {
	sum := describe(ranked)
	if isFinite(sum.Mean) && isFinite(sum.Median) && isFinite(sum.StdDev) {
		return sum
	}

	// values near the float64 limit overflow the intermediate sums
	scale := math.Max(math.Abs(ranked[0]), math.Abs(ranked[len(ranked)-1]))
	scaled := make([]float64, len(ranked))
	for i, v := range ranked {
		scaled[i] = v / scale
	}
	sum = describe(scaled)
	sum.Mean *= scale
	sum.Median *= scale
	sum.StdDev *= scale
	return sum
}

func describe(values []float64) Summary {
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	return Summary{
		Mean:   mean,
		Median: median,
		StdDev: stat.StdDev(values, nil),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MarshalJSON writes a range beyond float64 as null, since JSON has no
// infinity. UnmarshalJSON reads it back as +Inf.
func (e Evaluation) MarshalJSON() ([]byte, error) {
	type plain Evaluation
	return json.Marshal(struct {
		plain
		Range *float64 `json:"range"`
	}{plain(e), finiteOrNil(e.Range)})
}

func (e *Evaluation) UnmarshalJSON(data []byte) error {
	type plain Evaluation
	aux := struct {
		*plain
		Range json.RawMessage `json:"range"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return decodeOverflow(aux.Range, &e.Range)
}

func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		StdDev *float64 `json:"std_dev"`
	}{plain(s), finiteOrNil(s.StdDev)})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	type plain Summary
	aux := struct {
		*plain
		StdDev json.RawMessage `json:"std_dev"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	return decodeOverflow(aux.StdDev, &s.StdDev)
}

func finiteOrNil(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return &v
}

func decodeOverflow(raw json.RawMessage, dst *float64) error {
	switch string(raw) {
	case "":
		return nil
	case "null":
		*dst = math.Inf(1)
		return nil
	}
	return json.Unmarshal(raw, dst)
}
