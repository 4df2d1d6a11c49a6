package models

import "strings"

// TimestampLayout is the format used for result timestamps. Seconds
// resolution is enough to disambiguate repeated runs of the same model.
const TimestampLayout = "20060102_150405"

// EvaluationParams fully determines one evaluation run. Equal parameter
// sets always derive equal cache keys; an absent system prompt is distinct
// from an empty one.
type EvaluationParams struct {
	ModelName    string
	SystemPrompt *string
	NumExamples  int
	Temperature  float32
	MaxTokens    int
}

// EvaluationResult is the durable record of one completed evaluation run.
type EvaluationResult struct {
	ModelName      string  `json:"model_name"`
	Score          float64 `json:"score"`
	TotalTokens    int     `json:"total_tokens"`
	EvaluationTime float64 `json:"evaluation_time"` // seconds
	SystemPrompt   *string `json:"system_prompt"`
	Timestamp      string  `json:"timestamp"`
	CacheKey       string  `json:"cache_key"`
}

// Key returns the composite identity used by the result store and snapshot.
func (r *EvaluationResult) Key() string {
	return r.ModelName + "_" + r.Timestamp
}

// ExampleResult is one per-example outcome within an evaluation run.
type ExampleResult struct {
	Index    int    `json:"index"`
	Problem  string `json:"problem"`
	Expected string `json:"expected"`
	Answer   string `json:"answer"`
	Correct  bool   `json:"correct"`
	Tokens   int    `json:"tokens"`
}

// Evaluation is the outcome of the external evaluation collaborator.
type Evaluation struct {
	Score   float64
	Results []ExampleResult
}

// SafeModelName converts a model name to a form usable in file paths and
// cache payloads ("openai/gpt-4o" -> "openai_gpt-4o").
func SafeModelName(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}
