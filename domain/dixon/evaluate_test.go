package dixon

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_LargeOutlier(t *testing.T) {
	eval, err := Evaluate([]float64{5, 1, 1}, Confidence95)
	require.NoError(t, err)

	assert.Equal(t, LargeOutlier, eval.Classification)
	assert.Equal(t, []float64{1, 1, 5}, eval.Ranked)
	assert.Equal(t, 0.0, eval.QSmall)
	assert.Equal(t, 1.0, eval.QBig)
	assert.Equal(t, 0.970, eval.Critical)
	assert.Equal(t, 4.0, eval.Range)
	assert.Nil(t, eval.Low)
	require.NotNil(t, eval.High)
	assert.Equal(t, 5.0, *eval.High)
	assert.False(t, eval.Degenerate)
	assert.NotEmpty(t, eval.ID.String())
}

func TestEvaluate_SmallOutlier(t *testing.T) {
	eval, err := Evaluate([]float64{1, 5, 5}, Confidence95)
	require.NoError(t, err)

	assert.Equal(t, SmallOutlier, eval.Classification)
	assert.Equal(t, 1.0, eval.QSmall)
	assert.Equal(t, 0.0, eval.QBig)
	require.NotNil(t, eval.Low)
	assert.Equal(t, 1.0, *eval.Low)
	assert.Nil(t, eval.High)
}

func TestEvaluate_DegenerateSample(t *testing.T) {
	eval, err := Evaluate([]float64{1, 1, 1}, Confidence95)
	require.NoError(t, err)

	assert.Equal(t, NoOutlier, eval.Classification)
	assert.True(t, eval.Degenerate)
	assert.Equal(t, 0.0, eval.Range)
	assert.Equal(t, 0.0, eval.QSmall)
	assert.Equal(t, 0.0, eval.QBig)
	assert.False(t, math.IsNaN(eval.QSmall))
}

func TestEvaluate_BothEnds(t *testing.T) {
	// n=10 at 90%: critical 0.412, both gaps are half the range
	values := []float64{0, 50, 50, 50, 50, 50, 50, 50, 50, 100}
	eval, err := Evaluate(values, Confidence90)
	require.NoError(t, err)

	assert.Equal(t, Both, eval.Classification)
	assert.InDelta(t, 0.5, eval.QSmall, 1e-12)
	assert.InDelta(t, 0.5, eval.QBig, 1e-12)
	require.NotNil(t, eval.Low)
	require.NotNil(t, eval.High)
	assert.Equal(t, 0.0, *eval.Low)
	assert.Equal(t, 100.0, *eval.High)
}

func TestEvaluate_NoOutlier(t *testing.T) {
	eval, err := Evaluate([]float64{10, 11, 12, 13, 14}, Confidence95)
	require.NoError(t, err)

	assert.Equal(t, NoOutlier, eval.Classification)
	assert.InDelta(t, 0.25, eval.QSmall, 1e-12)
	assert.InDelta(t, 0.25, eval.QBig, 1e-12)
}

// The same sample can flag at 90% but not at 99%.
func TestEvaluate_LevelChangesOutcome(t *testing.T) {
	// n=4, q_big = 8/10 = 0.8: above 0.765 (90%) and below 0.829 (95%)
	values := []float64{0, 1, 2, 10}

	eval90, err := Evaluate(values, Confidence90)
	require.NoError(t, err)
	assert.Equal(t, LargeOutlier, eval90.Classification)

	eval95, err := Evaluate(values, Confidence95)
	require.NoError(t, err)
	assert.Equal(t, NoOutlier, eval95.Classification)

	eval99, err := Evaluate(values, Confidence99)
	require.NoError(t, err)
	assert.Equal(t, NoOutlier, eval99.Classification)
	assert.Equal(t, 0.926, eval99.Critical)
}

func TestEvaluate_EqualToCriticalIsNotOutlier(t *testing.T) {
	// q_big = 970/1000, exactly the 95% critical value for n=3
	eval, err := Evaluate([]float64{0, 30, 1000}, Confidence95)
	require.NoError(t, err)
	assert.Equal(t, eval.Critical, eval.QBig)
	assert.Equal(t, NoOutlier, eval.Classification)
}

func TestEvaluate_Summary(t *testing.T) {
	eval, err := Evaluate([]float64{2, 4, 4, 4, 5, 5, 7, 9}, Confidence95)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, eval.Summary.Mean, 1e-12)
	assert.InDelta(t, 4.5, eval.Summary.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), eval.Summary.StdDev, 1e-12)
}

func TestEvaluate_InvalidInput(t *testing.T) {
	_, err := Evaluate([]float64{1, 2}, Confidence95)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Evaluate(make([]float64, 31), Confidence95)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Evaluate([]float64{1, math.NaN(), 3}, Confidence95)
	assert.ErrorIs(t, err, ErrInvalidSample)

	_, err = Evaluate([]float64{1, math.Inf(1), 3}, Confidence95)
	assert.ErrorIs(t, err, ErrInvalidSample)

	_, err = Evaluate([]float64{1, 2, 3}, ConfidenceLevel(50))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	values := []float64{9, 3, 1, 7}
	_, err := Evaluate(values, Confidence95)
	require.NoError(t, err)
	assert.Equal(t, []float64{9, 3, 1, 7}, values)
}

func TestEvaluate_RangeBeyondFloat64(t *testing.T) {
	eval, err := Evaluate([]float64{-1.7e308, 1.7e308, 1.7e308}, Confidence95)
	require.NoError(t, err)

	assert.Equal(t, SmallOutlier, eval.Classification)
	assert.Equal(t, 1.0, eval.QSmall)
	assert.Equal(t, 0.0, eval.QBig)
	assert.True(t, math.IsInf(eval.Range, 1))
	require.NotNil(t, eval.Low)
	assert.Equal(t, -1.7e308, *eval.Low)
	assert.InEpsilon(t, 1.7e308/3, eval.Summary.Mean, 1e-9)
	assert.InEpsilon(t, 1.7e308*math.Sqrt(4.0/3.0), eval.Summary.StdDev, 1e-9)

	data, err := json.Marshal(eval)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"range":null`)
	assert.Contains(t, string(data), `"classification":"small_outlier"`)

	var decoded Evaluation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, math.IsInf(decoded.Range, 1))
	assert.Equal(t, SmallOutlier, decoded.Classification)
	assert.Equal(t, eval.Ranked, decoded.Ranked)
	assert.Equal(t, eval.Summary, decoded.Summary)
}

func TestEvaluate_SummaryNearFloat64Limit(t *testing.T) {
	eval, err := Evaluate([]float64{1e308, 1.7e308, 1.7e308, 1.7e308}, Confidence95)
	require.NoError(t, err)

	assert.Equal(t, SmallOutlier, eval.Classification)
	assert.Equal(t, 1.7e308, eval.Summary.Median)
	assert.InEpsilon(t, 1.525e308, eval.Summary.Mean, 1e-9)
	assert.False(t, math.IsInf(eval.Summary.StdDev, 0))
}

func TestEvaluation_JSONRoundTrip(t *testing.T) {
	eval, err := Evaluate([]float64{5, 1, 1}, Confidence95)
	require.NoError(t, err)

	data, err := json.Marshal(eval)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"range":4`)

	var decoded Evaluation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 4.0, decoded.Range)
	assert.Equal(t, eval.ID, decoded.ID)
	require.NotNil(t, decoded.High)
	assert.Equal(t, 5.0, *decoded.High)
	assert.InDelta(t, eval.Summary.StdDev, decoded.Summary.StdDev, 1e-12)
}
