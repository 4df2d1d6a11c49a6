package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/interfaces"
	"github.com/ternarybob/modelbench/internal/models"
)

// FileCache implements the ResultCache interface with one JSON file per
// cache key. Entries are replaced atomically (write-new-then-rename), so
// independent keys never contend and readers never observe a torn record.
type FileCache struct {
	dir    string
	logger arbor.ILogger
}

// NewFileCache creates the cache directory if needed and returns the store.
func NewFileCache(dir string, logger arbor.ILogger) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{dir: dir, logger: logger}, nil
}

// Dir returns the cache directory path.
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the record stored under key, or interfaces.ErrNotFound.
func (c *FileCache) Get(key string) (*models.EvaluationResult, error) {
	data, err := os.ReadFile(c.entryPath(key))
	if os.IsNotExist(err) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var result models.EvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &result, nil
}

// Put writes a record under key as a complete atomic unit. Overwrites any
// existing entry, so repeated runs with identical parameters reuse one file.
func (c *FileCache) Put(key string, result *models.EvaluationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}

	// Write to a temp file in the same directory, then rename over the
	// final path. Rename is atomic on the same filesystem.
	tmp := c.entryPath(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp, c.entryPath(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache entry %s: %w", key, err)
	}
	return nil
}

// ListAll returns every readable record in the store. A corrupt or
// unreadable entry is skipped with a warning; a single bad file never
// aborts hydration.
func (c *FileCache) ListAll() []models.EvaluationResult {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn().Err(err).Str("dir", c.dir).Msg("Failed to read cache directory")
		return nil
	}

	var results []models.EvaluationResult
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			c.logger.Warn().Err(err).Str("entry", name).Msg("Skipping unreadable cache entry")
			continue
		}

		var result models.EvaluationResult
		if err := json.Unmarshal(data, &result); err != nil {
			c.logger.Warn().Err(err).Str("entry", name).Msg("Skipping corrupt cache entry")
			continue
		}
		results = append(results, result)
	}
	return results
}

// MeasuredModels returns the set of model names already present in the
// cache. The pending-work set is the configured models minus this set.
func (c *FileCache) MeasuredModels() map[string]struct{} {
	measured := make(map[string]struct{})
	for _, result := range c.ListAll() {
		measured[result.ModelName] = struct{}{}
	}
	return measured
}
