package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ternarybob/modelbench/internal/models"
)

// keyPayload is the canonical form hashed into a cache key. Fields are
// declared in alphabetical order so the marshalled JSON is independent of
// how the parameters were assembled. SystemPrompt stays a pointer: an
// absent prompt serializes as null, an empty one as "", so the two derive
// different keys.
type keyPayload struct {
	MaxTokens    int     `json:"max_tokens"`
	ModelName    string  `json:"model_name"`
	NumExamples  int     `json:"num_examples"`
	SystemPrompt *string `json:"system_prompt"`
	Temperature  float32 `json:"temperature"`
}

// DeriveKey canonicalizes evaluation parameters into a stable digest.
// Equal parameter sets always yield equal keys, across processes and
// platforms; any differing field yields a different key.
func DeriveKey(params models.EvaluationParams) string {
	payload := keyPayload{
		MaxTokens:    params.MaxTokens,
		ModelName:    models.SafeModelName(params.ModelName),
		NumExamples:  params.NumExamples,
		SystemPrompt: params.SystemPrompt,
		Temperature:  params.Temperature,
	}

	// Struct marshalling preserves declaration order, so this cannot fail
	// and the output is deterministic.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
