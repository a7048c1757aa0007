package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dogemint/internal/adapter/repo"
	"dogemint/internal/http/handlers"
	"dogemint/internal/http/httpapi"
	"dogemint/internal/infra"
	"dogemint/internal/migrate"
	"dogemint/internal/mint"
	"dogemint/internal/providers/dogenode"
	"dogemint/internal/providers/generator"
	"dogemint/internal/providers/inscriber"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, cfg.MaxSupply); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}

	runner := infra.NewSQLRunner(pool, logger)

	node := dogenode.NewClient(dogenode.Options{
		URL:    cfg.NodeRPCURL,
		User:   cfg.NodeRPCUser,
		Pass:   cfg.NodeRPCPass,
		Logger: logger,
	})

	svc := mint.NewService(cfg, logger, mint.Repos{
		Sessions:  repo.NewSessionRepository(runner),
		Artifacts: repo.NewArtifactRepository(runner),
		Counter:   repo.NewTokenCounterRepository(runner),
		Jobs:      repo.NewStepJobRepository(runner),
		Audit:     repo.NewAuditRepository(runner),
	}, generator.NewClient(generator.Options{
		APIKey:         cfg.GeneratorAPIKey,
		BaseURL:        cfg.GeneratorBaseURL,
		Model:          cfg.GeneratorModel,
		Collection:     cfg.CollectionName,
		ContentBaseURL: cfg.ContentBaseURL,
		Logger:         logger,
	}), inscriber.NewClient(inscriber.Options{
		BaseURL: cfg.InscriberRPCURL,
		Logger:  logger,
	}), node)

	app := &handlers.App{
		Config:     cfg,
		Logger:     logger,
		DB:         pool,
		Mint:       svc,
		Challenges: repo.NewChallengeRepository(runner),
		Verifier:   node,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
