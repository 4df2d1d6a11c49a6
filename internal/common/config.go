package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Models     []string          `toml:"models" yaml:"models" validate:"required,min=1"`
	ModelLinks map[string]string `toml:"model_links" yaml:"model_links"` // model name -> documentation URL
	Prompts    map[string]string `toml:"prompts" yaml:"prompts"`         // per-model system prompt overrides
	Evaluation EvaluationConfig  `toml:"evaluation" yaml:"evaluation"`
	Workers    WorkersConfig     `toml:"workers" yaml:"workers"`
	Storage    StorageConfig     `toml:"storage" yaml:"storage"`
	Logging    LoggingConfig     `toml:"logging" yaml:"logging"`
	Schedule   ScheduleConfig    `toml:"schedule" yaml:"schedule"`
	OpenAI     OpenAIConfig      `toml:"openai" yaml:"openai"`
	Claude     ClaudeConfig      `toml:"claude" yaml:"claude"`
	Gemini     GeminiConfig      `toml:"gemini" yaml:"gemini"`
	LLM        LLMConfig         `toml:"llm" yaml:"llm"`
}

// EvaluationConfig contains the fixed evaluation parameters. Together with
// the model name and system prompt these determine the cache key.
type EvaluationConfig struct {
	Dataset     string  `toml:"dataset" yaml:"dataset" validate:"required"` // JSON evaluation set path
	NumExamples int     `toml:"num_examples" yaml:"num_examples" validate:"gte=0"`
	Temperature float32 `toml:"temperature" yaml:"temperature" validate:"gte=0"`
	MaxTokens   int     `toml:"max_tokens" yaml:"max_tokens" validate:"gt=0"`
	Debug       bool    `toml:"debug" yaml:"debug"`
}

// WorkersConfig contains worker pool settings
type WorkersConfig struct {
	Count        int    `toml:"count" yaml:"count" validate:"gt=0"` // Concurrent evaluation workers
	TaskTimeout  string `toml:"task_timeout" yaml:"task_timeout"`   // e.g. "5m" - hard per-task timeout
	DrainTimeout string `toml:"drain_timeout" yaml:"drain_timeout"` // Bounded wait for in-flight tasks on interrupt
}

// TaskTimeoutDuration parses the task timeout, falling back to 5 minutes.
func (w WorkersConfig) TaskTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(w.TaskTimeout); err == nil && d > 0 {
		return d
	}
	return 5 * time.Minute
}

// DrainTimeoutDuration parses the drain timeout, falling back to 30 seconds.
func (w WorkersConfig) DrainTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(w.DrainTimeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

type StorageConfig struct {
	OutputDir string       `toml:"output_dir" yaml:"output_dir"` // Cache, snapshot and report directory
	Badger    BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration for detail storage
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path"`                         // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Output []string `toml:"output" yaml:"output"` // "stdout", "file"
}

// ScheduleConfig enables watch mode: the benchmark round re-runs on a cron
// schedule, reusing the cache so only new parameter sets evaluate.
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Cron    string `toml:"cron" yaml:"cron"` // Cron expression, e.g. "0 */6 * * *"
}

// OpenAIConfig contains OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey    string `toml:"api_key" yaml:"api_key"`
	BaseURL   string `toml:"base_url" yaml:"base_url"`     // Optional override for OpenAI-compatible endpoints
	RateLimit string `toml:"rate_limit" yaml:"rate_limit"` // Minimum interval between requests, e.g. "1s"
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey    string `toml:"api_key" yaml:"api_key"`
	RateLimit string `toml:"rate_limit" yaml:"rate_limit"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey    string `toml:"api_key" yaml:"api_key"`
	RateLimit string `toml:"rate_limit" yaml:"rate_limit"`
}

// LLMConfig contains provider selection defaults
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" yaml:"default_provider"` // "openai", "claude" or "gemini"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		ModelLinks: map[string]string{},
		Prompts:    map[string]string{},
		Evaluation: EvaluationConfig{
			Dataset:     "./data/eval_set.json",
			NumExamples: 0, // 0 = whole evaluation set
			Temperature: 0.0,
			MaxTokens:   2048,
		},
		Workers: WorkersConfig{
			Count:        4,
			TaskTimeout:  "5m",
			DrainTimeout: "30s",
		},
		Storage: StorageConfig{
			OutputDir: "./results",
			Badger: BadgerConfig{
				Path: "./results/details.db",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 */6 * * *", // Every 6 hours
		},
		OpenAI: OpenAIConfig{
			RateLimit: "1s",
		},
		Claude: ClaudeConfig{
			RateLimit: "1s",
		},
		Gemini: GeminiConfig{
			RateLimit: "4s", // 15 RPM free tier
		},
		LLM: LLMConfig{
			DefaultProvider: "openai",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
// TOML is the primary format; .yaml/.yml files are accepted for run configs
// carried over from the original tooling.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		default:
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that every field required for the active code path is
// present. A failure here is fatal at process start.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config inconsistency: %w", err)
	}
	if _, err := time.ParseDuration(c.Workers.TaskTimeout); c.Workers.TaskTimeout != "" && err != nil {
		return fmt.Errorf("config inconsistency: invalid workers.task_timeout %q: %w", c.Workers.TaskTimeout, err)
	}
	if _, err := time.ParseDuration(c.Workers.DrainTimeout); c.Workers.DrainTimeout != "" && err != nil {
		return fmt.Errorf("config inconsistency: invalid workers.drain_timeout %q: %w", c.Workers.DrainTimeout, err)
	}
	return nil
}

// WatchEnabled reports whether the process should keep running and
// re-evaluate on the cron schedule after the first round.
func (c *Config) WatchEnabled() bool {
	return c.Schedule.Enabled && c.Schedule.Cron != ""
}

// SystemPrompt returns the configured system prompt override for a model,
// or nil when none is set. Absent and empty prompts are distinct.
func (c *Config) SystemPrompt(modelName string) *string {
	if prompt, ok := c.Prompts[modelName]; ok {
		return &prompt
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if outputDir := os.Getenv("MODELBENCH_OUTPUT_DIR"); outputDir != "" {
		config.Storage.OutputDir = outputDir
	}
	if badgerPath := os.Getenv("MODELBENCH_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if workers := os.Getenv("MODELBENCH_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			config.Workers.Count = w
		}
	}
	if timeout := os.Getenv("MODELBENCH_TASK_TIMEOUT"); timeout != "" {
		config.Workers.TaskTimeout = timeout
	}
	if level := os.Getenv("MODELBENCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.OpenAI.APIKey == "" {
		config.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && config.Claude.APIKey == "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && config.Gemini.APIKey == "" {
		config.Gemini.APIKey = key
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, outputDir string, workers int, watch bool) {
	if outputDir != "" {
		config.Storage.OutputDir = outputDir
		config.Storage.Badger.Path = filepath.Join(outputDir, "details.db")
	}
	if workers > 0 {
		config.Workers.Count = workers
	}
	if watch {
		config.Schedule.Enabled = true
	}
}
