package storage

import (
	"context"

	"utilityfn/internal/model"
)

// Store persists evaluation records.
type Store interface {
	Init(ctx context.Context) error
	SaveEvaluation(ctx context.Context, record model.EvaluationRecord) error
	GetEvaluation(ctx context.Context, id string) (model.EvaluationRecord, bool, error)
	// ListEvaluations returns the newest records first; limit <= 0 means all.
	ListEvaluations(ctx context.Context, modelName string, limit int) ([]model.EvaluationRecord, error)
	DeleteEvaluations(ctx context.Context, modelName string) error
}
