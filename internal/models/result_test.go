package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeModelName(t *testing.T) {
	assert.Equal(t, "openai_gpt-4o", SafeModelName("openai/gpt-4o"))
	assert.Equal(t, "gpt-4o-mini", SafeModelName("gpt-4o-mini"))
	assert.Equal(t, "a_b_c", SafeModelName("a/b/c"))
}

func TestEvaluationResult_Key(t *testing.T) {
	r := EvaluationResult{ModelName: "gpt-4o", Timestamp: "20260101_120000"}
	assert.Equal(t, "gpt-4o_20260101_120000", r.Key())
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.False(t, TaskPending.IsTerminal())
	assert.False(t, TaskRunning.IsTerminal())
	assert.True(t, TaskCompleted.IsTerminal())
	assert.True(t, TaskTimedOut.IsTerminal())
	assert.True(t, TaskFailed.IsTerminal())
}
