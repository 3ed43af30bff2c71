package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"dixonq/domain/core"
	"dixonq/domain/dixon"
	"dixonq/internal/errors"
	"dixonq/ports"

	"github.com/jmoiron/sqlx"
)

// evaluationRow mirrors the dixon_evaluations table
type evaluationRow struct {
	ID              string          `db:"id"`
	StreamID        string          `db:"stream_id"`
	Classification  string          `db:"classification"`
	SampleSize      int             `db:"sample_size"`
	ConfidenceLevel int             `db:"confidence_level"`
	QSmall          float64         `db:"q_small"`
	QBig            float64         `db:"q_big"`
	CriticalValue   float64         `db:"critical_value"`
	RangeValue      float64         `db:"range_value"`
	Degenerate      bool            `db:"degenerate"`
	LowOutlier      sql.NullFloat64 `db:"low_outlier"`
	HighOutlier     sql.NullFloat64 `db:"high_outlier"`
	Ranked          string          `db:"ranked"`
	Mean            float64         `db:"mean"`
	Median          float64         `db:"median"`
	StdDev          float64         `db:"std_dev"`
	EvaluatedAt     time.Time       `db:"evaluated_at"`
}

func toRow(streamID core.StreamID, eval *dixon.Evaluation) (*evaluationRow, error) {
	ranked, err := json.Marshal(eval.Ranked)
	if err != nil {
		return nil, err
	}
	row := &evaluationRow{
		ID:              eval.ID.String(),
		StreamID:        streamID.String(),
		Classification:  eval.Classification.String(),
		SampleSize:      eval.SampleSize,
		ConfidenceLevel: int(eval.Level),
		QSmall:          eval.QSmall,
		QBig:            eval.QBig,
		CriticalValue:   eval.Critical,
		RangeValue:      eval.Range,
		Degenerate:      eval.Degenerate,
		Ranked:          string(ranked),
		Mean:            eval.Summary.Mean,
		Median:          eval.Summary.Median,
		StdDev:          eval.Summary.StdDev,
		EvaluatedAt:     eval.EvaluatedAt.UTC(),
	}
	if eval.Low != nil {
		row.LowOutlier = sql.NullFloat64{Float64: *eval.Low, Valid: true}
	}
	if eval.High != nil {
		row.HighOutlier = sql.NullFloat64{Float64: *eval.High, Valid: true}
	}
	return row, nil
}

func (row *evaluationRow) toEvaluation() (*dixon.Evaluation, error) {
	var cls dixon.Classification
	if err := cls.UnmarshalText([]byte(row.Classification)); err != nil {
		return nil, err
	}
	eval := &dixon.Evaluation{
		ID:             core.EvaluationID(row.ID),
		Classification: cls,
		SampleSize:     row.SampleSize,
		Level:          dixon.ConfidenceLevel(row.ConfidenceLevel),
		QSmall:         row.QSmall,
		QBig:           row.QBig,
		Critical:       row.CriticalValue,
		Range:          row.RangeValue,
		Degenerate:     row.Degenerate,
		Summary: dixon.Summary{
			Mean:   row.Mean,
			Median: row.Median,
			StdDev: row.StdDev,
		},
		EvaluatedAt: row.EvaluatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.Ranked), &eval.Ranked); err != nil {
		return nil, err
	}
	if row.LowOutlier.Valid {
		low := row.LowOutlier.Float64
		eval.Low = &low
	}
	if row.HighOutlier.Valid {
		high := row.HighOutlier.Float64
		eval.High = &high
	}
	return eval, nil
}

// EvaluationRepositoryImpl stores evaluations with sqlx. Queries use bind
// vars rebound per driver, so the same code serves postgres and sqlite.
type EvaluationRepositoryImpl struct {
	db *sqlx.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *sqlx.DB) ports.EvaluationRepository {
	return &EvaluationRepositoryImpl{db: db}
}

// Save records one evaluation for a stream
func (r *EvaluationRepositoryImpl) Save(ctx context.Context, streamID core.StreamID, eval *dixon.Evaluation) error {
	row, err := toRow(streamID, eval)
	if err != nil {
		return errors.Wrap(err, "failed to encode evaluation")
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO dixon_evaluations (
			id, stream_id, classification, sample_size, confidence_level,
			q_small, q_big, critical_value, range_value, degenerate,
			low_outlier, high_outlier, ranked, mean, median, std_dev, evaluated_at
		) VALUES (
			:id, :stream_id, :classification, :sample_size, :confidence_level,
			:q_small, :q_big, :critical_value, :range_value, :degenerate,
			:low_outlier, :high_outlier, :ranked, :mean, :median, :std_dev, :evaluated_at
		)
	`, row)
	if err != nil {
		return errors.DatabaseError("failed to save evaluation", err)
	}
	return nil
}

// ListByStream returns up to limit evaluations of a stream, newest first
func (r *EvaluationRepositoryImpl) ListByStream(ctx context.Context, streamID core.StreamID, limit int) ([]*dixon.Evaluation, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []evaluationRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, stream_id, classification, sample_size, confidence_level,
		       q_small, q_big, critical_value, range_value, degenerate,
		       low_outlier, high_outlier, ranked, mean, median, std_dev, evaluated_at
		FROM dixon_evaluations
		WHERE stream_id = ?
		ORDER BY evaluated_at DESC, id DESC
		LIMIT ?
	`), streamID.String(), limit)
	if err != nil {
		return nil, errors.DatabaseError("failed to list evaluations", err)
	}

	evals := make([]*dixon.Evaluation, 0, len(rows))
	for i := range rows {
		eval, err := rows[i].toEvaluation()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode evaluation %s", rows[i].ID)
		}
		evals = append(evals, eval)
	}
	return evals, nil
}
