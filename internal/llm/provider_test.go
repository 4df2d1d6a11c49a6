package llm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/common"
)

func testFactory() *ProviderFactory {
	config := common.NewDefaultConfig()
	return NewProviderFactory(config, arbor.NewLogger())
}

func TestDetectProvider(t *testing.T) {
	f := testFactory()

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"claude-sonnet-4-20250514", ProviderClaude},
		{"anthropic/claude-haiku-3-5", ProviderClaude},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"gpt-4o-mini", ProviderOpenAI},
		{"openai/gpt-4o", ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"some-local-model", ProviderOpenAI}, // default provider
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, f.DetectProvider(tt.model))
		})
	}
}

func TestNormalizeModel(t *testing.T) {
	f := testFactory()

	assert.Equal(t, "gpt-4o", f.NormalizeModel("openai/gpt-4o"))
	assert.Equal(t, "claude-haiku-3-5", f.NormalizeModel("anthropic/claude-haiku-3-5"))
	assert.Equal(t, "gpt-4o-mini", f.NormalizeModel("gpt-4o-mini"))
}

// Complete is invoked from every scheduler worker at once; the first calls
// must not race on lazy client construction. Run with -race.
func TestComplete_ConcurrentFirstCalls(t *testing.T) {
	config := common.NewDefaultConfig()
	config.OpenAI.APIKey = "test-key"
	config.OpenAI.BaseURL = "http://127.0.0.1:1" // unreachable, calls fail fast
	config.OpenAI.RateLimit = ""
	f := NewProviderFactory(config, arbor.NewLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.Complete(ctx, &CompletionRequest{
				Model:     "gpt-4o-mini",
				Prompt:    "2+2",
				MaxTokens: 16,
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.Error(t, err, "unreachable endpoint must fail the call")
	}
}

func TestComplete_MissingAPIKey(t *testing.T) {
	f := testFactory() // no keys configured

	_, err := f.Complete(context.Background(), &CompletionRequest{
		Model:     "gpt-4o-mini",
		Prompt:    "2+2",
		MaxTokens: 16,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config inconsistency")
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eval_set.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "q1", "problem": "2+2", "expected": "4"},
		{"id": "q2", "problem": "3*3", "expected": "9"}
	]`), 0644))

	questions, err := LoadDataset(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, "4", questions[0].Expected)
}

func TestLoadDataset_Errors(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0644))
	_, err = LoadDataset(empty)
	assert.Error(t, err)
}
