package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/modelbench/internal/models"
)

// ErrNotFound is returned when a cache key or detail record does not exist.
var ErrNotFound = errors.New("record not found")

// ResultCache is the durable per-key store of completed evaluation records.
// One entry exists per cache key; entries are written atomically so readers
// iterating the store never observe a half-written record.
type ResultCache interface {
	// Get returns the record for a key, or ErrNotFound.
	Get(key string) (*models.EvaluationResult, error)

	// Put writes a record under a key, replacing any existing entry.
	// Idempotent for identical parameters.
	Put(key string, result *models.EvaluationResult) error

	// ListAll returns every readable record. Corrupt entries are skipped
	// with a warning rather than aborting the load.
	ListAll() []models.EvaluationResult

	// MeasuredModels returns the set of model names with at least one
	// cached record.
	MeasuredModels() map[string]struct{}
}

// DetailRecord holds the raw per-example outcomes of one evaluation run.
type DetailRecord struct {
	ID        string `badgerhold:"key"` // "{safe_model}|{timestamp}"
	ModelName string
	Timestamp string
	Results   []models.ExampleResult
	CreatedAt time.Time
}

// DetailStorage persists per-example outcomes, addressed by model name and
// timestamp.
type DetailStorage interface {
	Save(ctx context.Context, modelName, timestamp string, results []models.ExampleResult) error
	Get(ctx context.Context, modelName, timestamp string) (*DetailRecord, error)
	List(ctx context.Context) ([]DetailRecord, error)
}
