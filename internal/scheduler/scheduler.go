package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/cache"
	"github.com/ternarybob/modelbench/internal/interfaces"
	"github.com/ternarybob/modelbench/internal/models"
)

// Task is one pending evaluation dispatched to the worker pool.
type Task struct {
	Params   models.EvaluationParams
	CacheKey string
	Status   models.TaskStatus
}

// TaskResult is posted on the completion channel by workers and consumed
// by the single collector, which performs every cache and detail write.
type TaskResult struct {
	Task     *Task
	Status   models.TaskStatus
	Result   *models.EvaluationResult
	Details  []models.ExampleResult
	CacheHit bool
	Err      error
}

// RoundSummary reports the outcome of one scheduling pass.
type RoundSummary struct {
	RoundID     string
	Pending     int
	Completed   int
	Failed      int
	TimedOut    int
	Interrupted bool
}

// Scheduler runs pending evaluation tasks on a bounded worker pool with
// cooperative cancellation. Tasks are independent; one task's failure or
// timeout never affects its siblings.
type Scheduler struct {
	cache        interfaces.ResultCache
	details      interfaces.DetailStorage
	evaluator    interfaces.Evaluator
	workers      int
	taskTimeout  time.Duration
	drainTimeout time.Duration
	logger       arbor.ILogger
}

// New creates a scheduler. details may be nil when per-example storage is
// disabled.
func New(
	resultCache interfaces.ResultCache,
	details interfaces.DetailStorage,
	evaluator interfaces.Evaluator,
	workers int,
	taskTimeout time.Duration,
	drainTimeout time.Duration,
	logger arbor.ILogger,
) *Scheduler {
	return &Scheduler{
		cache:        resultCache,
		details:      details,
		evaluator:    evaluator,
		workers:      workers,
		taskTimeout:  taskTimeout,
		drainTimeout: drainTimeout,
		logger:       logger,
	}
}

// Run executes one scheduling round over the configured parameter sets.
// The pending-work set is computed once from a cache snapshot taken before
// dispatch; an entry written externally mid-round is not observed until
// the next round. On context cancellation the scheduler stops admitting
// tasks, waits up to the drain timeout for in-flight tasks, and returns
// with every completed result already flushed to the cache.
func (s *Scheduler) Run(ctx context.Context, configured []models.EvaluationParams) (*RoundSummary, error) {
	roundID := uuid.New().String()[:8]

	measured := s.cache.MeasuredModels()
	var pending []models.EvaluationParams
	for _, params := range configured {
		if _, ok := measured[params.ModelName]; !ok {
			pending = append(pending, params)
		}
	}

	summary := &RoundSummary{RoundID: roundID, Pending: len(pending)}

	if len(pending) == 0 {
		s.logger.Info().Str("round", roundID).Msg("No new models to evaluate, using cached results")
		return summary, nil
	}

	names := make([]string, len(pending))
	for i, params := range pending {
		names[i] = params.ModelName
	}
	s.logger.Info().
		Str("round", roundID).
		Strs("models", names).
		Int("workers", s.workers).
		Msg("Found new models to evaluate")

	tasks := make(chan *Task)
	// Buffered so workers never block posting a result, even if the
	// collector gives up after the drain timeout.
	results := make(chan TaskResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go s.worker(ctx, i, tasks, results, &wg)
	}

	// Feeder: admission stops as soon as the run context is cancelled.
	go func() {
		defer close(tasks)
		for i := range pending {
			if ctx.Err() != nil {
				return
			}
			task := &Task{
				Params:   pending[i],
				CacheKey: cache.DeriveKey(pending[i]),
				Status:   models.TaskPending,
			}
			select {
			case tasks <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single collector: all cache and detail writes happen here, so the
	// shared stores never need cross-task locking.
	done := ctx.Done()
	var drainTimer <-chan time.Time
	for {
		select {
		case res, ok := <-results:
			if !ok {
				// The done case may not have fired if the workers finished
				// at the same moment the context was cancelled; report the
				// cancellation either way.
				if ctx.Err() != nil {
					summary.Interrupted = true
				}
				s.logRoundDone(summary)
				return summary, nil
			}
			s.collect(res, summary)

		case <-done:
			done = nil
			summary.Interrupted = true
			drainTimer = time.After(s.drainTimeout)
			s.logger.Info().
				Str("round", roundID).
				Dur("drain_timeout", s.drainTimeout).
				Msg("Cancellation received - no new tasks admitted, draining in-flight evaluations")

		case <-drainTimer:
			s.logger.Warn().
				Str("round", roundID).
				Msg("Drain timeout elapsed - abandoning remaining in-flight evaluations")
			s.logRoundDone(summary)
			return summary, nil
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int, tasks <-chan *Task, results chan<- TaskResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for task := range tasks {
		results <- s.runTask(ctx, workerID, task)
	}
}

// runTask executes a single task through its state machine:
// Pending -> Running -> {Completed, TimedOut, Failed}.
func (s *Scheduler) runTask(ctx context.Context, workerID int, task *Task) TaskResult {
	// The key was derived before any lookup; a prior run with identical
	// parameters is served from the cache without invoking the evaluator.
	if cached, err := s.cache.Get(task.CacheKey); err == nil {
		task.Status = models.TaskCompleted
		s.logger.Debug().
			Str("model", task.Params.ModelName).
			Int("worker_id", workerID).
			Msg("Using cached result")
		return TaskResult{Task: task, Status: models.TaskCompleted, Result: cached, CacheHit: true}
	}

	task.Status = models.TaskRunning
	s.logger.Info().
		Str("model", task.Params.ModelName).
		Int("worker_id", workerID).
		Msg("Evaluating model")

	type evalOutcome struct {
		eval *models.Evaluation
		err  error
	}
	outcome := make(chan evalOutcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				outcome <- evalOutcome{err: fmt.Errorf("evaluation panicked: %v", r)}
			}
		}()
		eval, err := s.evaluator.Evaluate(ctx, task.Params)
		outcome <- evalOutcome{eval: eval, err: err}
	}()

	select {
	case out := <-outcome:
		duration := time.Since(start)
		if out.err != nil {
			task.Status = models.TaskFailed
			s.logger.Error().
				Err(out.err).
				Str("model", task.Params.ModelName).
				Int("worker_id", workerID).
				Msg("Evaluation failed - model remains pending")
			return TaskResult{Task: task, Status: models.TaskFailed, Err: out.err}
		}

		totalTokens := 0
		for _, r := range out.eval.Results {
			totalTokens += r.Tokens
		}

		task.Status = models.TaskCompleted
		result := &models.EvaluationResult{
			ModelName:      task.Params.ModelName,
			Score:          out.eval.Score,
			TotalTokens:    totalTokens,
			EvaluationTime: duration.Seconds(),
			SystemPrompt:   task.Params.SystemPrompt,
			Timestamp:      time.Now().Format(models.TimestampLayout),
			CacheKey:       task.CacheKey,
		}
		return TaskResult{Task: task, Status: models.TaskCompleted, Result: result, Details: out.eval.Results}

	case <-time.After(s.taskTimeout):
		// The scheduler abandons the task; the underlying evaluation
		// goroutine may keep running in the background until its own call
		// returns. Nothing is written, so the model stays pending for the
		// next round.
		task.Status = models.TaskTimedOut
		s.logger.Warn().
			Str("model", task.Params.ModelName).
			Dur("timeout", s.taskTimeout).
			Int("worker_id", workerID).
			Msg("Evaluation timed out - model remains pending")
		return TaskResult{Task: task, Status: models.TaskTimedOut, Err: errors.New("evaluation timed out")}
	}
}

// collect applies one task result. Completed results are written to the
// cache immediately, independent of sibling tasks, so finished work
// survives a later crash or interrupt. Writes deliberately ignore the run
// context: flushing completed results must succeed during shutdown.
func (s *Scheduler) collect(res TaskResult, summary *RoundSummary) {
	switch res.Status {
	case models.TaskCompleted:
		if !res.CacheHit {
			if err := s.cache.Put(res.Task.CacheKey, res.Result); err != nil {
				s.logger.Error().
					Err(err).
					Str("model", res.Result.ModelName).
					Msg("Failed to write result to cache")
				return
			}
			if s.details != nil && len(res.Details) > 0 {
				if err := s.details.Save(context.Background(), res.Result.ModelName, res.Result.Timestamp, res.Details); err != nil {
					s.logger.Warn().
						Err(err).
						Str("model", res.Result.ModelName).
						Msg("Failed to save detail record")
				}
			}
		}
		summary.Completed++
		s.logger.Info().
			Str("model", res.Result.ModelName).
			Float64("score", res.Result.Score).
			Int("tokens", res.Result.TotalTokens).
			Bool("cache_hit", res.CacheHit).
			Msg("Evaluation completed")

	case models.TaskTimedOut:
		summary.TimedOut++

	case models.TaskFailed:
		summary.Failed++
	}
}

func (s *Scheduler) logRoundDone(summary *RoundSummary) {
	s.logger.Info().
		Str("round", summary.RoundID).
		Int("pending", summary.Pending).
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Int("timed_out", summary.TimedOut).
		Bool("interrupted", summary.Interrupted).
		Msg("Round finished")
}
