package llm

import (
	"encoding/json"
	"fmt"
	"os"
)

// Question is one problem in the fixed evaluation set.
type Question struct {
	ID       string `json:"id"`
	Problem  string `json:"problem"`
	Expected string `json:"expected"`
}

// LoadDataset reads the evaluation set from a JSON file.
func LoadDataset(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluation set %s: %w", path, err)
	}

	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation set %s: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("evaluation set %s is empty", path)
	}
	return questions, nil
}
