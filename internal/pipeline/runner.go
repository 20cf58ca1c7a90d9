// Package pipeline advances feed items through ingestion, summarization,
// speech synthesis and notification.
//
// Each stage is a [Stage] driven by a [Runner]: select the pending work, then
// for every entity claim it, re-check that nobody finished it meanwhile,
// throttle, call out to the collaborator, persist and release the claim.
// Stages only talk to each other through the store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jdholdren/quantumwatch/internal/logger"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

// Stage is one step of the pipeline over entities of type T, whose external
// call produces an O.
type Stage[T, O any] interface {
	Name() string
	// Kind namespaces the stage's claims.
	Kind() string
	// Key identifies an entity within the stage.
	Key(T) string
	// Pending selects up to limit entities needing work.
	Pending(ctx context.Context, limit int) ([]T, error)
	// Settled reports whether the entity's work has already been stored.
	Settled(ctx context.Context, entity T) (bool, error)
	// Process does the external call. It runs under the per-call timeout.
	Process(ctx context.Context, entity T) (O, error)
	// Persist stores the outcome and returns how many rows it wrote.
	Persist(ctx context.Context, entity T, outcome O) (int, error)
}

// Report is what a single stage invocation did.
type Report struct {
	Stage     string `json:"stage"`
	Selected  int    `json:"selected"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Written   int    `json:"written"`
}

// errSettled marks an entity someone else finished between selection and processing.
var errSettled = errors.New("already settled")

type RunnerConfig struct {
	Batch       int
	Delay       time.Duration // Minimum spacing between external calls
	CallTimeout time.Duration
	ClaimTTL    time.Duration
}

// Runner executes a [Stage].
type Runner[T, O any] struct {
	stage   Stage[T, O]
	claims  quantumwatch.ClaimRepo
	limiter *rate.Limiter
	cfg     RunnerConfig
}

func NewRunner[T, O any](stage Stage[T, O], claims quantumwatch.ClaimRepo, cfg RunnerConfig) *Runner[T, O] {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	if cfg.ClaimTTL == 0 {
		cfg.ClaimTTL = 2 * time.Minute
	}
	// A claim must outlive the call it guards
	if cfg.CallTimeout > 0 && cfg.ClaimTTL < 2*cfg.CallTimeout {
		cfg.ClaimTTL = 2 * cfg.CallTimeout
	}

	return &Runner[T, O]{
		stage:   stage,
		claims:  claims,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
	}
}

func (r *Runner[T, O]) Name() string {
	return r.stage.Name()
}

// Run processes one batch of pending work. Only a failure to select the
// batch is returned; per-entity failures are logged and counted.
func (r *Runner[T, O]) Run(ctx context.Context) (Report, error) {
	ctx = logger.Ctx(ctx, slog.String("stage", r.stage.Name()))
	report := Report{Stage: r.stage.Name()}

	pending, err := r.stage.Pending(ctx, r.cfg.Batch)
	if err != nil {
		return report, fmt.Errorf("error selecting pending %s work: %w", r.stage.Name(), err)
	}
	report.Selected = len(pending)
	slog.InfoContext(ctx, "stage started", "pending", len(pending))

	for _, entity := range pending {
		if ctx.Err() != nil {
			slog.WarnContext(ctx, "stage interrupted", "error", ctx.Err())
			break
		}

		entityCtx := logger.Ctx(ctx, slog.String("key", r.stage.Key(entity)))
		written, err := r.runOne(entityCtx, entity)
		report.Written += written
		switch {
		case err == nil:
			report.Succeeded++
		case errors.Is(err, errSettled), errors.Is(err, quantumwatch.ErrInFlight), errors.Is(err, quantumwatch.ErrNoContent):
			slog.InfoContext(entityCtx, "skipped", "reason", err)
			report.Skipped++
		default:
			slog.ErrorContext(entityCtx, "failed", "error", err)
			report.Failed++
		}
	}

	slog.InfoContext(ctx, "stage finished",
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"written", report.Written,
	)

	return report, nil
}

// RunOne takes a single entity through the stage, for on-demand requests.
// An entity that turns out to be settled is not an error.
func (r *Runner[T, O]) RunOne(ctx context.Context, entity T) (int, error) {
	ctx = logger.Ctx(ctx,
		slog.String("stage", r.stage.Name()),
		slog.String("key", r.stage.Key(entity)),
	)

	written, err := r.runOne(ctx, entity)
	if errors.Is(err, errSettled) {
		return 0, nil
	}

	return written, err
}

func (r *Runner[T, O]) runOne(ctx context.Context, entity T) (int, error) {
	key := r.stage.Key(entity)

	claimed, err := r.claims.Claim(ctx, r.stage.Kind(), key, r.cfg.ClaimTTL)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, quantumwatch.ErrInFlight
	}
	defer func() {
		// Released even when the run was canceled
		if err := r.claims.Release(context.WithoutCancel(ctx), r.stage.Kind(), key); err != nil {
			slog.ErrorContext(ctx, "error releasing claim", "error", err)
		}
	}()

	settled, err := r.stage.Settled(ctx, entity)
	if err != nil {
		return 0, fmt.Errorf("error checking for existing work: %w", err)
	}
	if settled {
		return 0, errSettled
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("error waiting for throttle: %w", err)
	}

	outcome, err := r.process(ctx, entity)
	if err != nil {
		return 0, err
	}

	return r.stage.Persist(ctx, entity, outcome)
}

func (r *Runner[T, O]) process(ctx context.Context, entity T) (O, error) {
	if r.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
	}

	return r.stage.Process(ctx, entity)
}
