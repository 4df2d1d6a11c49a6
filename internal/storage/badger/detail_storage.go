package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/modelbench/internal/interfaces"
	"github.com/ternarybob/modelbench/internal/models"
)

// DetailStorage implements the DetailStorage interface for Badger. One
// record holds the raw per-example outcomes of one evaluation run, keyed
// by model name and timestamp.
type DetailStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDetailStorage creates a new DetailStorage instance
func NewDetailStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DetailStorage {
	return &DetailStorage{
		db:     db,
		logger: logger,
	}
}

func detailID(modelName, timestamp string) string {
	return models.SafeModelName(modelName) + "|" + timestamp
}

// Save persists the per-example outcomes of one run. Upsert keeps the
// operation idempotent for repeated writes of the same run.
func (s *DetailStorage) Save(ctx context.Context, modelName, timestamp string, results []models.ExampleResult) error {
	record := interfaces.DetailRecord{
		ID:        detailID(modelName, timestamp),
		ModelName: modelName,
		Timestamp: timestamp,
		Results:   results,
		CreatedAt: time.Now(),
	}

	if err := s.db.Store().Upsert(record.ID, &record); err != nil {
		return fmt.Errorf("failed to save detail record for %s: %w", modelName, err)
	}

	s.logger.Debug().
		Str("model", modelName).
		Str("timestamp", timestamp).
		Int("examples", len(results)).
		Msg("Detail record saved")
	return nil
}

// Get retrieves the detail record for one run, or interfaces.ErrNotFound.
func (s *DetailStorage) Get(ctx context.Context, modelName, timestamp string) (*interfaces.DetailRecord, error) {
	var record interfaces.DetailRecord
	err := s.db.Store().Get(detailID(modelName, timestamp), &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detail record for %s: %w", modelName, err)
	}
	return &record, nil
}

// List returns all detail records ordered by creation time.
func (s *DetailStorage) List(ctx context.Context) ([]interfaces.DetailRecord, error) {
	var records []interfaces.DetailRecord
	err := s.db.Store().Find(&records, badgerhold.Where("ID").Ne("").SortBy("CreatedAt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list detail records: %w", err)
	}
	return records, nil
}
