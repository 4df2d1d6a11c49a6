package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/modelbench/internal/models"
)

func strPtr(s string) *string { return &s }

func baseParams() models.EvaluationParams {
	return models.EvaluationParams{
		ModelName:   "gpt-4o-mini",
		NumExamples: 10,
		Temperature: 0.0,
		MaxTokens:   2048,
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey(baseParams())
	b := DeriveKey(baseParams())
	assert.Equal(t, a, b, "identical parameters must derive identical keys")
	assert.Len(t, a, 64, "key should be a sha256 hex digest")
}

func TestDeriveKey_FieldChangesKey(t *testing.T) {
	base := DeriveKey(baseParams())

	tests := []struct {
		name   string
		mutate func(*models.EvaluationParams)
	}{
		{"model_name", func(p *models.EvaluationParams) { p.ModelName = "gpt-4o" }},
		{"system_prompt", func(p *models.EvaluationParams) { p.SystemPrompt = strPtr("Be terse.") }},
		{"num_examples", func(p *models.EvaluationParams) { p.NumExamples = 20 }},
		{"temperature", func(p *models.EvaluationParams) { p.Temperature = 0.7 }},
		{"max_tokens", func(p *models.EvaluationParams) { p.MaxTokens = 1024 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := baseParams()
			tt.mutate(&params)
			assert.NotEqual(t, base, DeriveKey(params), "changing %s must change the key", tt.name)
		})
	}
}

func TestDeriveKey_AbsentVsEmptyPrompt(t *testing.T) {
	absent := baseParams()

	empty := baseParams()
	empty.SystemPrompt = strPtr("")

	assert.NotEqual(t, DeriveKey(absent), DeriveKey(empty),
		"absent prompt and empty-string prompt must derive different keys")
}

func TestDeriveKey_SlashInModelName(t *testing.T) {
	params := baseParams()
	params.ModelName = "openai/gpt-4o"

	// The key must be derivable and distinct from the sanitized-name form's
	// unsanitized sibling.
	key := DeriveKey(params)
	assert.Len(t, key, 64)
}
