package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/interfaces"
	"github.com/ternarybob/modelbench/internal/models"
)

// ResultStore holds the working result set, keyed by the composite
// identity "{model_name}_{timestamp}". Entries are never deleted; the
// snapshot file is replaced wholesale once per round. The per-key cache is
// the primary durability mechanism - the snapshot is a convenience
// aggregate, so a crash between the two writes loses nothing.
type ResultStore struct {
	path    string
	results map[string]models.EvaluationResult
	logger  arbor.ILogger
}

// New creates an empty result store backed by the given snapshot path.
func New(path string, logger arbor.ILogger) *ResultStore {
	return &ResultStore{
		path:    path,
		results: make(map[string]models.EvaluationResult),
		logger:  logger,
	}
}

// Hydrate unions the snapshot record set with every cache record. The
// snapshot loads first and cache records apply on top, so on identity
// collision the cache wins: it receives one write per completed task and
// is therefore never staler than the snapshot.
func (s *ResultStore) Hydrate(cache interfaces.ResultCache) {
	s.loadSnapshot()

	for _, result := range cache.ListAll() {
		s.results[result.Key()] = result
	}

	s.logger.Debug().Int("count", len(s.results)).Msg("Result store hydrated")
}

func (s *ResultStore) loadSnapshot() {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to read results snapshot, continuing from cache only")
		return
	}

	var snapshot map[string]models.EvaluationResult
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Corrupt results snapshot, continuing from cache only")
		return
	}

	for key, result := range snapshot {
		s.results[key] = result
	}
}

// Add records a completed evaluation in the working set.
func (s *ResultStore) Add(result models.EvaluationResult) {
	s.results[result.Key()] = result
}

// Results returns a copy of the working result set.
func (s *ResultStore) Results() map[string]models.EvaluationResult {
	out := make(map[string]models.EvaluationResult, len(s.results))
	for key, result := range s.results {
		out[key] = result
	}
	return out
}

// MissingModels returns the configured models with no record in the
// working set, sorted for stable diagnostics.
func (s *ResultStore) MissingModels(configured []string) []string {
	present := make(map[string]struct{}, len(s.results))
	for _, result := range s.results {
		present[result.ModelName] = struct{}{}
	}

	var missing []string
	for _, name := range configured {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Persist writes the fully merged set back to the snapshot as a wholesale
// atomic overwrite. Called only by the orchestrating goroutine after all
// workers of a round have been joined.
func (s *ResultStore) Persist() error {
	data, err := json.MarshalIndent(s.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write results snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace results snapshot: %w", err)
	}

	s.logger.Debug().Int("count", len(s.results)).Str("path", s.path).Msg("Results snapshot persisted")
	return nil
}
