package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/models"
)

func strPtr(s string) *string { return &s }

func resultSet(results ...models.EvaluationResult) map[string]models.EvaluationResult {
	set := make(map[string]models.EvaluationResult, len(results))
	for _, r := range results {
		set[r.Key()] = r
	}
	return set
}

func TestBestPerModel_MaxScoreWins(t *testing.T) {
	set := resultSet(
		models.EvaluationResult{ModelName: "a", Timestamp: "20260101_100000", Score: 0.2},
		models.EvaluationResult{ModelName: "a", Timestamp: "20260102_100000", Score: 0.9},
		models.EvaluationResult{ModelName: "a", Timestamp: "20260103_100000", Score: 0.5},
	)

	rows := BestPerModel(set)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.9, rows[0].Score)
}

func TestBestPerModel_TieKeepsEarliest(t *testing.T) {
	set := resultSet(
		models.EvaluationResult{ModelName: "a", Timestamp: "20260101_100000", Score: 0.5, TotalTokens: 1},
		models.EvaluationResult{ModelName: "a", Timestamp: "20260102_100000", Score: 0.5, TotalTokens: 2},
	)

	rows := BestPerModel(set)
	require.Len(t, rows, 1)
	assert.Equal(t, "20260101_100000", rows[0].Timestamp, "ties keep the earliest-encountered entry")
}

func TestBestPerModel_SortedByDescendingScore(t *testing.T) {
	set := resultSet(
		models.EvaluationResult{ModelName: "low", Timestamp: "20260101_100000", Score: 0.1},
		models.EvaluationResult{ModelName: "high", Timestamp: "20260101_100000", Score: 0.9},
		models.EvaluationResult{ModelName: "mid", Timestamp: "20260101_100000", Score: 0.5},
	)

	rows := BestPerModel(set)
	require.Len(t, rows, 3)
	assert.Equal(t, "high", rows[0].ModelName)
	assert.Equal(t, "mid", rows[1].ModelName)
	assert.Equal(t, "low", rows[2].ModelName)
}

func TestTruncatePrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt *string
		want   string
	}{
		{"nil prompt", nil, "None"},
		{"short prompt", strPtr("Be brief."), "Be brief."},
		{"exactly 30 chars unchanged", strPtr(strings.Repeat("x", 30)), strings.Repeat("x", 30)},
		{"40 chars truncated to 27 plus ellipsis", strPtr(strings.Repeat("x", 40)), strings.Repeat("x", 27) + "..."},
		{"31 chars truncated", strPtr(strings.Repeat("x", 31)), strings.Repeat("x", 27) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncatePrompt(tt.prompt))
		})
	}
}

func TestRenderMarkdown_ColumnsAndRows(t *testing.T) {
	r := New(t.TempDir(), map[string]string{"a": "https://example.com/a"}, arbor.NewLogger())

	set := resultSet(
		models.EvaluationResult{ModelName: "a", Timestamp: "20260101_100000", Score: 0.75, TotalTokens: 500, EvaluationTime: 12.3},
		models.EvaluationResult{ModelName: "b", Timestamp: "20260101_110000", Score: 0.25, TotalTokens: 300, EvaluationTime: 4.2},
	)

	md := r.RenderMarkdown(set)

	assert.Contains(t, md, "| Model | Score | Tokens Used | System Prompt | Evaluation Time | Details | Model Info |")
	assert.Contains(t, md, "| a | 0.750 | 500 | None | 12.3s | [Details](details/a/details_20260101_100000.md) | [docs](https://example.com/a) |")
	assert.Contains(t, md, "| b | 0.250 |")

	// One row per model, best run only: exactly 2 data rows.
	dataRows := 0
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "| ") && !strings.HasPrefix(line, "| Model") {
			dataRows++
		}
	}
	assert.Equal(t, 2, dataRows)
}

func TestRenderMarkdown_SafeModelNameInDetailsLink(t *testing.T) {
	r := New(t.TempDir(), nil, arbor.NewLogger())

	set := resultSet(
		models.EvaluationResult{ModelName: "openai/gpt-4o", Timestamp: "20260101_100000", Score: 0.5},
	)

	md := r.RenderMarkdown(set)
	assert.Contains(t, md, "details/openai_gpt-4o/details_20260101_100000.md")
}

func TestGenerate_WritesMarkdownAndHTML(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil, arbor.NewLogger())

	set := resultSet(
		models.EvaluationResult{ModelName: "a", Timestamp: "20260101_100000", Score: 0.5},
	)

	md, err := r.Generate(set)
	require.NoError(t, err)
	assert.NotEmpty(t, md)

	mdData, err := os.ReadFile(filepath.Join(dir, "leaderboard.md"))
	require.NoError(t, err)
	assert.Equal(t, md, string(mdData))

	htmlData, err := os.ReadFile(filepath.Join(dir, "leaderboard.html"))
	require.NoError(t, err)
	assert.Contains(t, string(htmlData), "<table>")
	assert.Contains(t, string(htmlData), "Model Evaluation Leaderboard")
}
