package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/interfaces"
	"github.com/ternarybob/modelbench/internal/models"
)

// EvalService scores one model against the fixed evaluation set. It is the
// evaluation collaborator consumed by the scheduler: synchronous, possibly
// slow, and allowed to fail - the scheduler wraps it with timing, timeout
// and error capture.
type EvalService struct {
	factory   *ProviderFactory
	questions []Question
	debug     bool
	logger    arbor.ILogger
}

// NewEvalService creates an evaluator over a loaded evaluation set.
func NewEvalService(factory *ProviderFactory, questions []Question, debug bool, logger arbor.ILogger) interfaces.Evaluator {
	return &EvalService{
		factory:   factory,
		questions: questions,
		debug:     debug,
		logger:    logger,
	}
}

// Evaluate runs the model over the first NumExamples questions (the whole
// set when zero) and returns the fraction answered correctly plus the
// per-example outcomes with token counts.
func (s *EvalService) Evaluate(ctx context.Context, params models.EvaluationParams) (*models.Evaluation, error) {
	n := params.NumExamples
	if n <= 0 || n > len(s.questions) {
		n = len(s.questions)
	}

	results := make([]models.ExampleResult, 0, n)
	correct := 0

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q := s.questions[i]
		resp, err := s.factory.Complete(ctx, &CompletionRequest{
			Model:        params.ModelName,
			SystemPrompt: params.SystemPrompt,
			Prompt:       q.Problem,
			Temperature:  params.Temperature,
			MaxTokens:    params.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("example %d (%s): %w", i, q.ID, err)
		}

		ok := AnswersEqual(q.Expected, resp.Text)
		if ok {
			correct++
		}
		if s.debug {
			s.logger.Debug().
				Str("model", params.ModelName).
				Str("question", q.ID).
				Bool("correct", ok).
				Int("tokens", resp.Tokens).
				Msg("Example evaluated")
		}

		results = append(results, models.ExampleResult{
			Index:    i,
			Problem:  q.Problem,
			Expected: q.Expected,
			Answer:   resp.Text,
			Correct:  ok,
			Tokens:   resp.Tokens,
		})
	}

	return &models.Evaluation{
		Score:   float64(correct) / float64(n),
		Results: results,
	}, nil
}
