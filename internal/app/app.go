package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/cache"
	"github.com/ternarybob/modelbench/internal/common"
	"github.com/ternarybob/modelbench/internal/interfaces"
	"github.com/ternarybob/modelbench/internal/llm"
	"github.com/ternarybob/modelbench/internal/models"
	"github.com/ternarybob/modelbench/internal/report"
	"github.com/ternarybob/modelbench/internal/scheduler"
	"github.com/ternarybob/modelbench/internal/storage/badger"
	"github.com/ternarybob/modelbench/internal/store"
)

// App wires the result cache, detail storage, evaluator, scheduler and
// reporter together for one benchmark installation.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	cache     *cache.FileCache
	badgerDB  *badger.BadgerDB
	details   interfaces.DetailStorage
	factory   *llm.ProviderFactory
	scheduler *scheduler.Scheduler
	reporter  *report.Reporter

	snapshotPath string
}

// New initializes the application. Configuration and evaluation-set load
// failures are fatal here; everything later is per-task and non-fatal.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	outputDir := config.Storage.OutputDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	resultCache, err := cache.NewFileCache(filepath.Join(outputDir, "cache"), logger)
	if err != nil {
		return nil, err
	}

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}
	details := badger.NewDetailStorage(db, logger)

	questions, err := llm.LoadDataset(config.Evaluation.Dataset)
	if err != nil {
		return nil, err
	}

	factory := llm.NewProviderFactory(config, logger)
	evaluator := llm.NewEvalService(factory, questions, config.Evaluation.Debug, logger)

	sched := scheduler.New(
		resultCache,
		details,
		evaluator,
		config.Workers.Count,
		config.Workers.TaskTimeoutDuration(),
		config.Workers.DrainTimeoutDuration(),
		logger,
	)

	return &App{
		Config:       config,
		Logger:       logger,
		cache:        resultCache,
		badgerDB:     db,
		details:      details,
		factory:      factory,
		scheduler:    sched,
		reporter:     report.New(outputDir, config.ModelLinks, logger),
		snapshotPath: filepath.Join(outputDir, "results.json"),
	}, nil
}

// Params assembles the evaluation parameters for every configured model.
// A prompt override naming a model absent from the configured list is a
// config inconsistency; it is logged and skipped rather than aborting.
func (a *App) Params() []models.EvaluationParams {
	configured := make(map[string]struct{}, len(a.Config.Models))
	params := make([]models.EvaluationParams, 0, len(a.Config.Models))
	for _, name := range a.Config.Models {
		configured[name] = struct{}{}
		params = append(params, models.EvaluationParams{
			ModelName:    name,
			SystemPrompt: a.Config.SystemPrompt(name),
			NumExamples:  a.Config.Evaluation.NumExamples,
			Temperature:  a.Config.Evaluation.Temperature,
			MaxTokens:    a.Config.Evaluation.MaxTokens,
		})
	}

	for name := range a.Config.Prompts {
		if _, ok := configured[name]; !ok {
			a.Logger.Warn().Str("model", name).Msg("Prompt override for model not in configured list, ignoring")
		}
	}
	return params
}

// RunRound executes one scheduling pass: evaluate pending models, merge
// cache and snapshot into the working set, persist the snapshot, export
// details and render the leaderboard. The report always generates from
// whatever results exist, even after an interrupt.
func (a *App) RunRound(ctx context.Context) error {
	summary, err := a.scheduler.Run(ctx, a.Params())
	if err != nil {
		return err
	}

	resultStore := store.New(a.snapshotPath, a.Logger)
	resultStore.Hydrate(a.cache)
	if err := resultStore.Persist(); err != nil {
		return err
	}

	a.reporter.WarnMissing(resultStore.MissingModels(a.Config.Models))

	if err := report.ExportDetails(context.Background(), a.details, a.Config.Storage.OutputDir, a.Logger); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to export detail files")
	}

	if _, err := a.reporter.Generate(resultStore.Results()); err != nil {
		return err
	}

	if summary.Interrupted {
		a.Logger.Info().Msg("Round interrupted - completed work flushed")
	}
	return nil
}

// Close releases storage and provider clients.
func (a *App) Close() error {
	if a.factory != nil {
		a.factory.Close()
	}
	if a.badgerDB != nil {
		return a.badgerDB.Close()
	}
	return nil
}
