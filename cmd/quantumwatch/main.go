package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/quantumwatch/internal/api"
	"github.com/jdholdren/quantumwatch/internal/logger"
	"github.com/jdholdren/quantumwatch/internal/migrations"
	"github.com/jdholdren/quantumwatch/internal/pipeline"
	"github.com/jdholdren/quantumwatch/internal/sqlite"
)

var rootCmd = &cobra.Command{
	Use:           "quantumwatch",
	Short:         "Feed ingestion, summarization, podcast synthesis and Telegram delivery",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the API and run every stage on its schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:       "run <stage>",
	Short:     "Run one invocation of a stage and print its report",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: pipeline.Stages,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, runCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup parses the config, installs the logger and opens the migrated store.
func setup(ctx context.Context) (config, *sqlx.DB, error) {
	cfg, err := loadConfig(ctx, envconfig.OsLookuper())
	if err != nil {
		return config{}, nil, err
	}

	// Stdout is left for command output
	l, err := logger.New(os.Stderr, cfg.LoggerFormat, cfg.LogLevel)
	if err != nil {
		return config{}, nil, err
	}
	slog.SetDefault(l)

	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		return config{}, nil, err
	}

	// Retry until the database answers
	backoff := retry.WithMaxDuration(30*time.Second, retry.NewFibonacci(100*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := dbx.PingContext(ctx); err != nil {
			slog.WarnContext(ctx, "database not ready", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		dbx.Close()
		return config{}, nil, fmt.Errorf("error connecting to database: %s", err)
	}

	if err := migrations.Run(dbx); err != nil {
		dbx.Close()
		return config{}, nil, err
	}

	return cfg, dbx, nil
}

func serve(ctx context.Context) error {
	cfg, dbx, err := setup(ctx)
	if err != nil {
		return err
	}
	defer dbx.Close()

	var (
		repo   = sqlite.New(dbx)
		reader = cfg.reader()
		p      = pipeline.New(cfg.pipelineConfig(), cfg.deps(repo, reader))
	)
	for _, stage := range pipeline.Stages {
		if !p.Enabled(stage) {
			slog.WarnContext(ctx, "stage is not configured", "stage", stage)
		}
	}

	var articles pipeline.ArticleReader
	if reader != nil {
		articles = reader
	}
	srv := api.NewServer(api.ServerConfig{
		Port:       cfg.Port,
		CorsOrigin: cfg.CorsOrigin,
		AudioStore: cfg.audioStore(),
	}, repo, p, articles)
	scheduler := pipeline.NewScheduler(p, cfg.schedules())

	var g run.Group
	g.Add(func() error {
		slog.InfoContext(ctx, "serving", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error serving: %s", err)
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})

	schedCtx, cancelSched := context.WithCancel(ctx)
	g.Add(func() error {
		return scheduler.Run(schedCtx)
	}, func(error) {
		cancelSched()
	})

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) || errors.Is(err, context.Canceled) {
		slog.Info("shut down", "reason", err)
		return nil
	}

	return err
}

func runStage(ctx context.Context, stage string) error {
	cfg, dbx, err := setup(ctx)
	if err != nil {
		return err
	}
	defer dbx.Close()

	repo := sqlite.New(dbx)
	p := pipeline.New(cfg.pipelineConfig(), cfg.deps(repo, cfg.reader()))

	reports, err := p.Run(ctx, stage)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
