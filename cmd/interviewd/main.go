package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/parleylabs/interviewd/internal/dotenv"
	"github.com/parleylabs/interviewd/pkg/analysis"
	backendopenai "github.com/parleylabs/interviewd/pkg/backend/openai"
	"github.com/parleylabs/interviewd/pkg/gateway/config"
	gatewayserver "github.com/parleylabs/interviewd/pkg/gateway/server"
	"github.com/parleylabs/interviewd/pkg/interview"
	"github.com/parleylabs/interviewd/pkg/jobs"
	"github.com/parleylabs/interviewd/pkg/storage"
)

type serverDeps struct {
	loadConfig   func() (config.Config, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultServerDeps() serverDeps {
	return serverDeps{
		loadConfig: config.LoadFromEnv,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func newStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Provider, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("using file storage", "data_dir", cfg.DataDir)
		return storage.NewFileStore(cfg.DataDir)
	}
	pg, err := storage.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if cfg.MigrateOnStart {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
	}
	logger.Info("using postgres storage")
	return pg, nil
}

func runServer(ctx context.Context, logger *slog.Logger, deps serverDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	bank := analysis.DefaultQuestionBank()
	if cfg.QuestionBankPath != "" {
		bank, err = analysis.LoadQuestionBank(cfg.QuestionBankPath)
		if err != nil {
			return fmt.Errorf("load question bank: %w", err)
		}
	}
	planner := analysis.NewPlanner(store, bank, logger)

	llm := backendopenai.New(backendopenai.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		Model:           cfg.Model,
		FillerModel:     cfg.FillerModel,
		MaxTokens:       cfg.MaxTokens,
		FillerMaxTokens: cfg.FillerMaxTokens,
		Temperature:     cfg.Temperature,
	})

	registry := interview.NewRegistry()
	reconciler := interview.NewReconciler(registry, logger)
	pool := jobs.NewPool(llm, reconciler, jobs.Config{
		Workers:        cfg.Workers,
		QueueSize:      cfg.JobQueueSize,
		CallTimeout:    cfg.LLMCallTimeout,
		MaxRetries:     cfg.FinalRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}, logger)
	pool.Start()

	dispatcher := interview.NewDispatcher(pool, reconciler, interview.DispatcherConfig{
		FinalDeadline: cfg.FinalDeadline,
		FillerEnabled: cfg.FillerEnabled,
	}, logger)
	orchestrator := interview.NewOrchestrator(registry, dispatcher, interview.ConnConfig{
		PingInterval: cfg.WSPingInterval,
		WriteTimeout: cfg.WSWriteTimeout,
		QueueSize:    cfg.WSOutboundQueueSize,
	}, logger)

	srv := gatewayserver.New(cfg, gatewayserver.Dependencies{
		Registry:     registry,
		Orchestrator: orchestrator,
		Planner:      planner,
		Store:        store,
	}, logger)
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting interviewd", "addr", cfg.Addr, "auth_mode", cfg.AuthMode, "model", cfg.Model)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	srv.SetDraining()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	ended := srv.EndLiveSessions()
	if ended > 0 {
		logger.Info("terminated live interviews on shutdown", "count", ended)
	}

	poolCtx, poolCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer poolCancel()
	pool.Shutdown(poolCtx)

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("interviewd stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps serverDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "interviewd: %v\n", err)
		return 1
	}

	if err := runServer(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "interviewd: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultServerDeps()))
}
