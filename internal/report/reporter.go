package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ternarybob/modelbench/internal/models"
)

// promptPreviewMax is the longest system prompt rendered unmodified; longer
// prompts are truncated to promptPreviewLen characters plus an ellipsis.
const (
	promptPreviewMax = 30
	promptPreviewLen = 27
)

// Reporter turns the merged result set into a ranked best-of-per-model
// leaderboard. Report generation always succeeds with whatever results
// exist; missing models are warnings, not failures.
type Reporter struct {
	outputDir  string
	modelLinks map[string]string
	logger     arbor.ILogger
}

// New creates a reporter writing into outputDir. modelLinks maps model
// names to external documentation URLs for the Model Info column.
func New(outputDir string, modelLinks map[string]string, logger arbor.ILogger) *Reporter {
	return &Reporter{
		outputDir:  outputDir,
		modelLinks: modelLinks,
		logger:     logger,
	}
}

// BestPerModel retains, for each model, the entry with maximal score. Ties
// keep the earliest-encountered entry; traversal is over sorted composite
// keys, so for equal scores the oldest timestamp wins deterministically.
// Rows come back sorted by descending score, ties preserving scan order.
func BestPerModel(results map[string]models.EvaluationResult) []models.EvaluationResult {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	best := make(map[string]models.EvaluationResult)
	var order []string
	for _, key := range keys {
		result := results[key]
		current, seen := best[result.ModelName]
		if !seen {
			best[result.ModelName] = result
			order = append(order, result.ModelName)
			continue
		}
		if result.Score > current.Score {
			best[result.ModelName] = result
		}
	}

	rows := make([]models.EvaluationResult, 0, len(order))
	for _, name := range order {
		rows = append(rows, best[name])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
	return rows
}

// TruncatePrompt renders a system prompt preview: prompts longer than 30
// characters are cut to 27 plus "..."; a 30-character prompt is untouched.
// A nil prompt renders as "None".
func TruncatePrompt(prompt *string) string {
	if prompt == nil {
		return "None"
	}
	runes := []rune(*prompt)
	if len(runes) > promptPreviewMax {
		return string(runes[:promptPreviewLen]) + "..."
	}
	return *prompt
}

// WarnMissing logs the configured models absent from the result set. This
// is diagnostic only and never blocks report generation.
func (r *Reporter) WarnMissing(missing []string) {
	if len(missing) > 0 {
		r.logger.Warn().Strs("models", missing).Msg("Missing results for models")
	}
}

// Generate renders the leaderboard from the merged result set, writes
// leaderboard.md and leaderboard.html, and returns the markdown.
func (r *Reporter) Generate(results map[string]models.EvaluationResult) (string, error) {
	md := r.RenderMarkdown(results)

	mdPath := filepath.Join(r.outputDir, "leaderboard.md")
	if err := os.WriteFile(mdPath, []byte(md), 0644); err != nil {
		return "", fmt.Errorf("failed to write leaderboard markdown: %w", err)
	}

	html, err := renderHTML(md)
	if err != nil {
		return "", fmt.Errorf("failed to render leaderboard HTML: %w", err)
	}
	htmlPath := filepath.Join(r.outputDir, "leaderboard.html")
	if err := os.WriteFile(htmlPath, html, 0644); err != nil {
		return "", fmt.Errorf("failed to write leaderboard HTML: %w", err)
	}

	r.logger.Info().
		Int("rows", len(BestPerModel(results))).
		Str("markdown", mdPath).
		Str("html", htmlPath).
		Msg("Leaderboard generated")
	return md, nil
}

// RenderMarkdown builds the leaderboard table: one row per model, best run
// only, sorted by descending score.
func (r *Reporter) RenderMarkdown(results map[string]models.EvaluationResult) string {
	var b bytes.Buffer
	b.WriteString("# Model Evaluation Leaderboard\n\n")
	b.WriteString(fmt.Sprintf("Last updated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))
	b.WriteString("| Model | Score | Tokens Used | System Prompt | Evaluation Time | Details | Model Info |\n")
	b.WriteString("|-------|--------|-------------|---------------|----------------|----------|------------|\n")

	for _, row := range BestPerModel(results) {
		detailsLink := fmt.Sprintf("[Details](details/%s/details_%s.md)",
			models.SafeModelName(row.ModelName), row.Timestamp)

		modelInfo := ""
		if url, ok := r.modelLinks[row.ModelName]; ok {
			modelInfo = fmt.Sprintf("[docs](%s)", url)
		}

		b.WriteString(fmt.Sprintf("| %s | %.3f | %d | %s | %.1fs | %s | %s |\n",
			row.ModelName,
			row.Score,
			row.TotalTokens,
			TruncatePrompt(row.SystemPrompt),
			row.EvaluationTime,
			detailsLink,
			modelInfo,
		))
	}
	return b.String()
}

func renderHTML(source string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Model Evaluation Leaderboard</title></head>\n<body>\n")
	if err := md.Convert([]byte(source), &buf); err != nil {
		return nil, err
	}
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}
