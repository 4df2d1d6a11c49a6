package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
models = ["gpt-4o-mini", "claude-haiku-3-5"]

[model_links]
"gpt-4o-mini" = "https://platform.openai.com/docs/models"

[prompts]
"gpt-4o-mini" = "Answer with the number only."

[evaluation]
dataset = "./data/eval_set.json"
num_examples = 10
temperature = 0.2
max_tokens = 1024

[workers]
count = 8
task_timeout = "2m"
`

const yamlConfig = `
models:
  - gpt-4o-mini
  - claude-haiku-3-5
model_links:
  gpt-4o-mini: https://platform.openai.com/docs/models
prompts:
  gpt-4o-mini: Answer with the number only.
evaluation:
  dataset: ./data/eval_set.json
  num_examples: 10
  temperature: 0.2
  max_tokens: 1024
workers:
  count: 8
  task_timeout: 2m
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile_TOML(t *testing.T) {
	config, err := LoadFromFile(writeConfig(t, "run.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"gpt-4o-mini", "claude-haiku-3-5"}, config.Models)
	assert.Equal(t, 10, config.Evaluation.NumExamples)
	assert.Equal(t, 8, config.Workers.Count)
	assert.Equal(t, "https://platform.openai.com/docs/models", config.ModelLinks["gpt-4o-mini"])
}

func TestLoadFromFile_YAMLMatchesTOML(t *testing.T) {
	fromTOML, err := LoadFromFile(writeConfig(t, "run.toml", tomlConfig))
	require.NoError(t, err)

	fromYAML, err := LoadFromFile(writeConfig(t, "run.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, fromTOML, fromYAML, "TOML and YAML configs must produce identical values")
}

func TestLoadFromFile_DefaultsApplied(t *testing.T) {
	config, err := LoadFromFile(writeConfig(t, "run.toml", `
models = ["m"]
[evaluation]
dataset = "./x.json"
`))
	require.NoError(t, err)

	assert.Equal(t, 4, config.Workers.Count)
	assert.Equal(t, 2048, config.Evaluation.MaxTokens)
	assert.Equal(t, "./results", config.Storage.OutputDir)
}

func TestLoadFromFile_MissingModelsFails(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "run.toml", `
[evaluation]
dataset = "./x.json"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config inconsistency")
}

func TestLoadFromFile_InvalidTimeoutFails(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "run.toml", `
models = ["m"]
[evaluation]
dataset = "./x.json"
[workers]
task_timeout = "soon"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task_timeout")
}

func TestLoadFromFile_UnparseableIsFatal(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "run.toml", "models = [broken"))
	assert.Error(t, err)
}

func TestSystemPrompt_AbsentVsEmpty(t *testing.T) {
	config, err := LoadFromFile(writeConfig(t, "run.toml", `
models = ["a", "b"]
[evaluation]
dataset = "./x.json"
[prompts]
a = ""
`))
	require.NoError(t, err)

	empty := config.SystemPrompt("a")
	require.NotNil(t, empty, "configured empty prompt is present, not absent")
	assert.Equal(t, "", *empty)

	assert.Nil(t, config.SystemPrompt("b"))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODELBENCH_WORKERS", "16")
	t.Setenv("MODELBENCH_OUTPUT_DIR", "/tmp/bench-out")

	config, err := LoadFromFile(writeConfig(t, "run.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, 16, config.Workers.Count)
	assert.Equal(t, "/tmp/bench-out", config.Storage.OutputDir)
}

func TestWorkersConfig_TimeoutFallbacks(t *testing.T) {
	w := WorkersConfig{}
	assert.Equal(t, "5m0s", w.TaskTimeoutDuration().String())
	assert.Equal(t, "30s", w.DrainTimeoutDuration().String())

	w = WorkersConfig{TaskTimeout: "90s", DrainTimeout: "10s"}
	assert.Equal(t, "1m30s", w.TaskTimeoutDuration().String())
	assert.Equal(t, "10s", w.DrainTimeoutDuration().String())
}

func TestWatchEnabled(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.WatchEnabled(), "watch is off by default")

	config.Schedule.Enabled = true
	assert.True(t, config.WatchEnabled())

	config.Schedule.Cron = ""
	assert.False(t, config.WatchEnabled(), "enabled without a cron expression cannot schedule")
}

func TestApplyFlagOverrides_Watch(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, "", 0, false)
	assert.False(t, config.Schedule.Enabled)

	ApplyFlagOverrides(config, "", 0, true)
	assert.True(t, config.Schedule.Enabled)
	assert.True(t, config.WatchEnabled(), "the -watch flag enables the default schedule")
}
