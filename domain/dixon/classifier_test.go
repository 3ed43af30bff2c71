package dixon

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed ingests values and returns the classification produced by each call,
// with nil entries where the window was not yet full.
func feed(t *testing.T, c *Classifier, values ...float64) []*Classification {
	t.Helper()
	out := make([]*Classification, 0, len(values))
	for _, v := range values {
		eval, err := c.Ingest(v)
		require.NoError(t, err)
		if eval == nil {
			out = append(out, nil)
			continue
		}
		cls := eval.Classification
		out = append(out, &cls)
	}
	return out
}

func cls(c Classification) *Classification { return &c }

func TestNewClassifier_CapacityBounds(t *testing.T) {
	for _, capacity := range []int{MinSampleSize, MaxSampleSize} {
		c, err := NewClassifier(capacity, Confidence95)
		require.NoError(t, err, "capacity %d", capacity)
		assert.Equal(t, capacity, c.Capacity())
	}

	for _, capacity := range []int{-3, 0, 2, 31} {
		_, err := NewClassifier(capacity, Confidence95)
		require.Error(t, err, "capacity %d", capacity)
		assert.True(t, IsConfigurationError(err))
	}
}

func TestNewClassifier_InvalidLevelAndPolicy(t *testing.T) {
	_, err := NewClassifier(5, ConfidenceLevel(80))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewClassifier(5, Confidence95, WithPolicy("tumbling"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNewClassifier_Defaults(t *testing.T) {
	c, err := NewClassifier(8, Confidence99)
	require.NoError(t, err)

	assert.Equal(t, PolicyBatch, c.Policy())
	assert.Equal(t, Confidence99, c.Level())
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0.634, c.Critical())
}

func TestIngest_DegenerateWindow(t *testing.T) {
	c, err := NewClassifier(3, Confidence95)
	require.NoError(t, err)

	got := feed(t, c, 1, 1, 1)
	assert.Equal(t, []*Classification{nil, nil, cls(NoOutlier)}, got)
}

func TestIngest_LargeOutlier(t *testing.T) {
	c, err := NewClassifier(3, Confidence95)
	require.NoError(t, err)

	got := feed(t, c, 5, 1, 1)
	assert.Equal(t, []*Classification{nil, nil, cls(LargeOutlier)}, got)
}

func TestIngest_SmallOutlier(t *testing.T) {
	c, err := NewClassifier(3, Confidence95)
	require.NoError(t, err)

	got := feed(t, c, 1, 5, 5)
	assert.Equal(t, []*Classification{nil, nil, cls(SmallOutlier)}, got)
}

func TestIngest_BatchPolicyStartsFreshWindow(t *testing.T) {
	c, err := NewClassifier(3, Confidence95)
	require.NoError(t, err)

	got := feed(t, c, 1, 1, 1, 5, 1, 1, 1, 5, 5)
	want := []*Classification{
		nil, nil, cls(NoOutlier),
		nil, nil, cls(LargeOutlier),
		nil, nil, cls(SmallOutlier),
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 0, c.Len(), "window empties after each batch")
}

func TestIngest_SlidingPolicyEvaluatesEverySample(t *testing.T) {
	c, err := NewClassifier(3, Confidence95, WithPolicy(PolicySliding))
	require.NoError(t, err)

	// windows: [1 1 1] [1 1 5] [1 5 1] [5 1 5] [1 5 5]
	got := feed(t, c, 1, 1, 1, 5, 1, 5, 5)
	want := []*Classification{
		nil, nil,
		cls(NoOutlier),
		cls(LargeOutlier),
		cls(LargeOutlier),
		cls(SmallOutlier),
		cls(SmallOutlier),
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []float64{1, 5, 5}, c.Window())
}

func TestIngest_SlidingAndBatchDiverge(t *testing.T) {
	values := []float64{1, 1, 1, 5, 1, 1}

	batch, err := NewClassifier(3, Confidence95)
	require.NoError(t, err)
	sliding, err := NewClassifier(3, Confidence95, WithPolicy(PolicySliding))
	require.NoError(t, err)

	batchOut := feed(t, batch, values...)
	slidingOut := feed(t, sliding, values...)

	assert.Nil(t, batchOut[3], "batch window restarts after the third sample")
	require.NotNil(t, slidingOut[3])
	assert.Equal(t, LargeOutlier, *slidingOut[3])
}

func TestIngest_RejectsNonFinite(t *testing.T) {
	c, err := NewClassifier(3, Confidence95)
	require.NoError(t, err)

	_, err = c.Ingest(1)
	require.NoError(t, err)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		eval, err := c.Ingest(v)
		assert.ErrorIs(t, err, ErrInvalidSample)
		assert.Nil(t, eval)
	}
	assert.Equal(t, []float64{1}, c.Window(), "rejected values must not enter the window")
}

func TestIngest_EvaluationIndependentOfWindow(t *testing.T) {
	c, err := NewClassifier(3, Confidence95, WithPolicy(PolicySliding))
	require.NoError(t, err)

	feed(t, c, 5, 1)
	eval, err := c.Ingest(1)
	require.NoError(t, err)
	require.NotNil(t, eval)
	ranked := append([]float64(nil), eval.Ranked...)

	feed(t, c, 9, 9, 9)
	assert.Equal(t, ranked, eval.Ranked, "later ingests must not rewrite an earlier snapshot")
}

func TestClassifier_Reset(t *testing.T) {
	c, err := NewClassifier(3, Confidence95)
	require.NoError(t, err)

	feed(t, c, 5, 1)
	c.Reset()
	assert.Equal(t, 0, c.Len())

	got := feed(t, c, 1, 5, 5)
	assert.Equal(t, []*Classification{nil, nil, cls(SmallOutlier)}, got)
}

func TestClassifier_IndependentInstances(t *testing.T) {
	values := []float64{3, 9, 3, 3, 4, 100, 2, 2, 2, 8, 1, 1, 1, 1, 7, 8, 9, 10}

	run := func() []*Classification {
		c, err := NewClassifier(6, Confidence90)
		require.NoError(t, err)
		return feed(t, c, values...)
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestClassifier_ConcurrentInstancesShareNoState(t *testing.T) {
	const streams = 8
	values := []float64{1, 1, 1, 5, 1, 1, 1, 5, 5}

	results := make([][]*Classification, streams)
	var wg sync.WaitGroup
	for i := 0; i < streams; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c, err := NewClassifier(3, Confidence95)
			if err != nil {
				t.Errorf("stream %d: %v", idx, err)
				return
			}
			for _, v := range values {
				eval, err := c.Ingest(v)
				if err != nil {
					t.Errorf("stream %d: %v", idx, err)
					return
				}
				if eval == nil {
					results[idx] = append(results[idx], nil)
					continue
				}
				cl := eval.Classification
				results[idx] = append(results[idx], &cl)
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < streams; i++ {
		assert.Equal(t, results[0], results[i], "stream %d diverged", i)
	}
}
