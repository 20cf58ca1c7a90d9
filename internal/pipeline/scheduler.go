package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/jdholdren/quantumwatch/internal/logger"
)

// StageRunner runs a stage by name.
type StageRunner interface {
	Run(ctx context.Context, stage string) ([]Report, error)
}

// Schedule is when a stage runs: a standard five field cron expression, and
// optionally once as soon as the scheduler starts.
type Schedule struct {
	Stage     string
	Spec      string
	AtStartup bool
}

type scheduled struct {
	Schedule
	when cron.Schedule
}

// Scheduler invokes stages on their own cron schedules. A stage never
// overlaps itself: a tick that lands while the previous run is still going is
// skipped.
type Scheduler struct {
	runner  StageRunner
	entries []scheduled
}

// NewScheduler validates the schedules. An invalid expression disables only
// that stage.
func NewScheduler(runner StageRunner, schedules []Schedule) *Scheduler {
	s := &Scheduler{runner: runner}
	for _, sch := range schedules {
		when, err := cron.ParseStandard(sch.Spec)
		if err != nil {
			slog.Error("invalid schedule, stage disabled", "stage", sch.Stage, "spec", sch.Spec, "error", err)
			continue
		}
		s.entries = append(s.entries, scheduled{Schedule: sch, when: when})
	}

	return s
}

// Stages lists the stages that were scheduled.
func (s *Scheduler) Stages() []string {
	stages := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		stages = append(stages, e.Stage)
	}
	return stages
}

// Run blocks until ctx is done, then waits for in-flight stages to return.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{}
	c := cron.New(cron.WithLogger(cl))

	var startup []cron.Job
	for _, e := range s.entries {
		// The same wrapped job backs both the cron entry and the startup run
		// so they share the overlap guard
		job := cron.NewChain(cron.SkipIfStillRunning(cl)).Then(s.job(ctx, e.Stage))
		c.Schedule(e.when, job)
		if e.AtStartup {
			startup = append(startup, job)
		}
		slog.InfoContext(ctx, "stage scheduled", "stage", e.Stage, "spec", e.Spec, "at_startup", e.AtStartup)
	}

	c.Start()
	var wg sync.WaitGroup
	for _, job := range startup {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job.Run()
		}()
	}

	<-ctx.Done()
	<-c.Stop().Done()
	wg.Wait()

	return nil
}

func (s *Scheduler) job(ctx context.Context, stage string) cron.FuncJob {
	return func() {
		if ctx.Err() != nil {
			return
		}

		ctx := logger.Ctx(ctx, slog.String("trigger", "schedule"))
		reports, err := s.runner.Run(ctx, stage)
		if err != nil {
			slog.ErrorContext(ctx, "scheduled stage failed", "stage", stage, "error", err)
			return
		}
		for _, r := range reports {
			slog.InfoContext(ctx, "scheduled stage completed", "stage", r.Stage, "report", r)
		}
	}
}

// cronLogger sends cron's own logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	if err == nil {
		err = errors.New("unknown")
	}
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
