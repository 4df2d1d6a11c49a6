package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/interfaces"
	"github.com/ternarybob/modelbench/internal/models"
)

// ExportDetails renders the per-example detail records the leaderboard
// links to, one markdown file per run under details/<model>/.
func ExportDetails(ctx context.Context, storage interfaces.DetailStorage, outputDir string, logger arbor.ILogger) error {
	records, err := storage.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list detail records: %w", err)
	}

	for _, record := range records {
		dir := filepath.Join(outputDir, "details", models.SafeModelName(record.ModelName))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create details directory: %w", err)
		}

		path := filepath.Join(dir, fmt.Sprintf("details_%s.md", record.Timestamp))
		if err := os.WriteFile(path, renderDetails(&record), 0644); err != nil {
			return fmt.Errorf("failed to write detail file %s: %w", path, err)
		}
	}

	logger.Debug().Int("records", len(records)).Msg("Detail files exported")
	return nil
}

func renderDetails(record *interfaces.DetailRecord) []byte {
	var b bytes.Buffer
	b.WriteString(fmt.Sprintf("# %s - %s\n\n", record.ModelName, record.Timestamp))
	b.WriteString("| # | Problem | Expected | Answer | Correct | Tokens |\n")
	b.WriteString("|---|---------|----------|--------|---------|--------|\n")
	for _, r := range record.Results {
		correct := "no"
		if r.Correct {
			correct = "yes"
		}
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %d |\n",
			r.Index, r.Problem, r.Expected, r.Answer, correct, r.Tokens))
	}
	return b.Bytes()
}
