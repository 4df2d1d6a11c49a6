package interfaces

import (
	"context"

	"github.com/ternarybob/modelbench/internal/models"
)

// Evaluator runs one model against the evaluation set and scores it.
// Implementations are opaque to the scheduler: potentially slow, synchronous,
// and allowed to fail. The scheduler applies its own timeout around the call.
type Evaluator interface {
	Evaluate(ctx context.Context, params models.EvaluationParams) (*models.Evaluation, error)
}
