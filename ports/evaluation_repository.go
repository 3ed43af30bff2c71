package ports

import (
	"context"

	"dixonq/domain/core"
	"dixonq/domain/dixon"
)

// EvaluationRepository persists completed Q-test evaluations per stream
type EvaluationRepository interface {
	// Save records one evaluation produced by a stream's classifier
	Save(ctx context.Context, streamID core.StreamID, eval *dixon.Evaluation) error

	// ListByStream returns the most recent evaluations of a stream, newest first
	ListByStream(ctx context.Context, streamID core.StreamID, limit int) ([]*dixon.Evaluation, error)
}
