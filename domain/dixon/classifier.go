package dixon

import (
	"fmt"
	"math"
)

// Option customises a Classifier at construction
type Option func(*Classifier)

// WithPolicy selects the window policy. The default is PolicyBatch.
func WithPolicy(policy WindowPolicy) Option {
	return func(c *Classifier) {
		c.policy = policy
	}
}

// Classifier owns a fixed-capacity sample window and runs the Q-test each
// time the window completes.
//
// A Classifier is not safe for concurrent use; callers sharing one instance
// must serialize Ingest.
type Classifier struct {
	capacity int
	level    ConfidenceLevel
	policy   WindowPolicy
	window   []float64
}

// NewClassifier builds a classifier for windows of capacity samples
func NewClassifier(capacity int, level ConfidenceLevel, opts ...Option) (*Classifier, error) {
	c := &Classifier{
		capacity: capacity,
		level:    level,
		policy:   PolicyBatch,
	}
	for _, opt := range opts {
		opt(c)
	}

	if capacity < MinSampleSize || capacity > MaxSampleSize {
		return nil, fmt.Errorf("%w: capacity %d outside %d..%d", ErrConfiguration, capacity, MinSampleSize, MaxSampleSize)
	}
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown confidence level %d", ErrConfiguration, int(level))
	}
	if !c.policy.Valid() {
		return nil, fmt.Errorf("%w: unknown window policy %q", ErrConfiguration, string(c.policy))
	}

	c.window = make([]float64, 0, capacity)
	return c, nil
}

// Ingest adds one sample to the window. It returns nil until the window
// holds capacity samples, then the evaluation of that window.
//
// Under PolicyBatch the window empties after each evaluation. Under
// PolicySliding the oldest sample is evicted and every further ingest
// yields an evaluation.
func (c *Classifier) Ingest(value float64) (*Evaluation, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSample, value)
	}

	if c.policy == PolicySliding && len(c.window) == c.capacity {
		copy(c.window, c.window[1:])
		c.window = c.window[:c.capacity-1]
	}
	c.window = append(c.window, value)

	if len(c.window) < c.capacity {
		return nil, nil
	}

	eval, err := Evaluate(c.window, c.level)
	if c.policy == PolicyBatch {
		c.window = c.window[:0]
	}
	if err != nil {
		return nil, err
	}
	return eval, nil
}

// Reset discards the buffered samples
func (c *Classifier) Reset() {
	c.window = c.window[:0]
}

// Len returns the number of buffered samples
func (c *Classifier) Len() int { return len(c.window) }

func (c *Classifier) Capacity() int { return c.capacity }

func (c *Classifier) Level() ConfidenceLevel { return c.level }

func (c *Classifier) Policy() WindowPolicy { return c.policy }

// Window returns a copy of the buffered samples in arrival order
func (c *Classifier) Window() []float64 {
	out := make([]float64, len(c.window))
	copy(out, c.window)
	return out
}

// Critical returns the threshold this classifier compares against
func (c *Classifier) Critical() float64 {
	// capacity and level were validated at construction
	v, _ := CriticalValue(c.capacity, c.level)
	return v
}
