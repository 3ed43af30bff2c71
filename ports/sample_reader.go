package ports

import (
	"context"
)

// SampleSeries is one named column of raw measurements in arrival order
type SampleSeries struct {
	Name   string
	Values []float64
}

// SampleReader loads raw measurements from an external source
type SampleReader interface {
	ReadSeries(ctx context.Context) ([]SampleSeries, error)
}
