package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dogemint/internal/adapter/repo"
	"dogemint/internal/domain"
	"dogemint/internal/infra"
	"dogemint/internal/mint"
	"dogemint/internal/providers/dogenode"
	"dogemint/internal/providers/generator"
	"dogemint/internal/providers/inscriber"
	"dogemint/internal/reconcile"
)

type stepWorker struct {
	ctx          context.Context
	logger       infra.Logger
	jobs         domain.StepJobRepository
	svc          *mint.Service
	pollInterval time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	sessions := repo.NewSessionRepository(runner)
	jobs := repo.NewStepJobRepository(runner)

	node := dogenode.NewClient(dogenode.Options{
		URL:    cfg.NodeRPCURL,
		User:   cfg.NodeRPCUser,
		Pass:   cfg.NodeRPCPass,
		Logger: logger,
	})

	gen := generator.NewClient(generator.Options{
		APIKey:         cfg.GeneratorAPIKey,
		BaseURL:        cfg.GeneratorBaseURL,
		Model:          cfg.GeneratorModel,
		Collection:     cfg.CollectionName,
		ContentBaseURL: cfg.ContentBaseURL,
		Logger:         logger,
	})
	if cfg.GeneratorAPIKey == "" {
		logger.Warn().Msg("worker: generator api key missing, using synthetic artwork generation")
	}

	svc := mint.NewService(cfg, logger, mint.Repos{
		Sessions:  sessions,
		Artifacts: repo.NewArtifactRepository(runner),
		Counter:   repo.NewTokenCounterRepository(runner),
		Jobs:      jobs,
		Audit:     repo.NewAuditRepository(runner),
	}, gen, inscriber.NewClient(inscriber.Options{
		BaseURL: cfg.InscriberRPCURL,
		Logger:  logger,
	}), node)

	sweeper := reconcile.NewSweeper(logger, sessions, jobs, cfg.JobLease)
	if err := sweeper.Start(cfg.SweepSpec); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to start reconcile sweeper")
	}
	defer sweeper.Stop()

	worker := &stepWorker{
		ctx:          ctx,
		logger:       logger,
		jobs:         jobs,
		svc:          svc,
		pollInterval: cfg.JobPollInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *stepWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.jobs.Claim(w.ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				time.Sleep(w.pollInterval)
				continue
			}
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
			time.Sleep(w.pollInterval)
			continue
		}

		w.handleJob(job)
	}
}

func (w *stepWorker) handleJob(job *domain.StepJob) {
	w.logger.Info().Str("job_id", job.ID).Str("session_id", job.SessionID).Str("step", string(job.Type)).Msg("worker: picked job")

	status := domain.StepStatusSucceeded
	lastError := ""
	if err := w.svc.HandleStep(w.ctx, job); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: step failed")
		status = domain.StepStatusFailed
		lastError = err.Error()
	}

	if err := w.jobs.Finish(w.ctx, job.ID, status, lastError); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: finish job failed")
	}
}
