package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdholdren/quantumwatch/internal/audio"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

// Stage names
const (
	StageIngest     = "ingest"
	StageSummarize  = "summarize"
	StageSynthesize = "synthesize"
	StageNotify     = "notify"
)

// Stages lists every stage name in pipeline order.
var Stages = []string{StageIngest, StageSummarize, StageSynthesize, StageNotify}

var ErrUnknownStage = errors.New("unknown stage")

// Delays are the minimum spacing between consecutive external calls of a stage.
type Delays struct {
	Summarize     time.Duration
	Synthesize    time.Duration
	NotifySummary time.Duration
	NotifyPodcast time.Duration
}

var DefaultDelays = Delays{
	Summarize:     500 * time.Millisecond,
	Synthesize:    time.Second,
	NotifySummary: time.Second,
	NotifyPodcast: 2 * time.Second,
}

type Config struct {
	SummarizeBatch  int
	SynthesizeBatch int
	NotifyBatch     int
	CallTimeout     time.Duration
	Delays          Delays
	Voices          Voices
	// Censor profanity in outgoing messages
	Censor     bool
	AudioStore audio.Store
}

// Deps are the pipeline's collaborators. A nil Summarizer, Speaker or
// Messenger disables the stage that needs it.
type Deps struct {
	Repo       quantumwatch.Repository
	Fetcher    quantumwatch.FeedFetcher
	Summarizer quantumwatch.Summarizer
	Speaker    quantumwatch.Speaker
	Messenger  quantumwatch.Messenger
	// Optional, expands preview only items before summarizing
	Reader ArticleReader
}

// Pipeline holds a runner per stage.
type Pipeline struct {
	repo quantumwatch.Repository

	ingest          *Runner[quantumwatch.Feed, quantumwatch.ParsedFeed]
	summarize       *Runner[quantumwatch.Item, string]
	synthesize      *Runner[quantumwatch.PendingPodcast, synthesized]
	notifySummaries *Runner[quantumwatch.PendingDispatch, struct{}]
	notifyPodcasts  *Runner[quantumwatch.PendingDispatch, struct{}]

	enabled map[string]bool
}

func New(cfg Config, deps Deps) *Pipeline {
	runnerCfg := func(batch int, delay time.Duration) RunnerConfig {
		return RunnerConfig{
			Batch:       batch,
			Delay:       delay,
			CallTimeout: cfg.CallTimeout,
		}
	}

	return &Pipeline{
		repo: deps.Repo,
		ingest: NewRunner[quantumwatch.Feed, quantumwatch.ParsedFeed](Ingest{
			repo:    deps.Repo,
			fetcher: deps.Fetcher,
			now:     func() time.Time { return time.Now().UTC() },
		}, deps.Repo, runnerCfg(0, 0)),
		summarize: NewRunner[quantumwatch.Item, string](Summarize{
			repo:       deps.Repo,
			summarizer: deps.Summarizer,
			reader:     deps.Reader,
		}, deps.Repo, runnerCfg(cfg.SummarizeBatch, cfg.Delays.Summarize)),
		synthesize: NewRunner[quantumwatch.PendingPodcast, synthesized](Synthesize{
			repo:    deps.Repo,
			speaker: deps.Speaker,
			store:   cfg.AudioStore,
			voices:  cfg.Voices,
		}, deps.Repo, runnerCfg(cfg.SynthesizeBatch, cfg.Delays.Synthesize)),
		notifySummaries: NewRunner[quantumwatch.PendingDispatch, struct{}](Notify{
			repo:      deps.Repo,
			messenger: deps.Messenger,
			store:     cfg.AudioStore,
			channel:   quantumwatch.ChannelSummary,
			censor:    cfg.Censor,
		}, deps.Repo, runnerCfg(cfg.NotifyBatch, cfg.Delays.NotifySummary)),
		notifyPodcasts: NewRunner[quantumwatch.PendingDispatch, struct{}](Notify{
			repo:      deps.Repo,
			messenger: deps.Messenger,
			store:     cfg.AudioStore,
			channel:   quantumwatch.ChannelPodcast,
			censor:    cfg.Censor,
		}, deps.Repo, runnerCfg(cfg.NotifyBatch, cfg.Delays.NotifyPodcast)),
		enabled: map[string]bool{
			StageIngest:     deps.Fetcher != nil,
			StageSummarize:  deps.Summarizer != nil,
			StageSynthesize: deps.Speaker != nil,
			StageNotify:     deps.Messenger != nil,
		},
	}
}

// Enabled reports whether the stage has what it needs to run.
func (p *Pipeline) Enabled(stage string) bool {
	return p.enabled[stage]
}

// Run executes one invocation of the named stage. Notify runs its summary
// channel, then its podcast channel.
func (p *Pipeline) Run(ctx context.Context, stage string) ([]Report, error) {
	if _, ok := p.enabled[stage]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	if !p.enabled[stage] {
		if stage == StageSynthesize {
			// Without a speech credential there's nothing to do
			slog.InfoContext(ctx, "speech synthesis is not configured, skipping", "stage", stage)
			return []Report{{Stage: stage}}, nil
		}
		return nil, fmt.Errorf("stage %s: %w", stage, quantumwatch.ErrUnconfigured)
	}

	switch stage {
	case StageIngest:
		return single(p.ingest.Run(ctx))
	case StageSummarize:
		return single(p.summarize.Run(ctx))
	case StageSynthesize:
		return single(p.synthesize.Run(ctx))
	default:
		summaries, err := p.notifySummaries.Run(ctx)
		if err != nil {
			return []Report{summaries}, err
		}
		podcasts, err := p.notifyPodcasts.Run(ctx)
		return []Report{summaries, podcasts}, err
	}
}

func single(r Report, err error) ([]Report, error) {
	return []Report{r}, err
}

// Refresh ingests a single feed right now and returns how many new items it stored.
func (p *Pipeline) Refresh(ctx context.Context, feedID string) (int, error) {
	feed, err := p.repo.Feed(ctx, feedID)
	if err != nil {
		return 0, err
	}
	if !feed.Active {
		return 0, fmt.Errorf("feed %s is inactive: %w", feedID, quantumwatch.ErrNotFound)
	}

	return p.ingest.RunOne(ctx, feed)
}

// SummarizeItem returns the item's summary, generating it first if needed.
// The bool reports whether this call created it.
func (p *Pipeline) SummarizeItem(ctx context.Context, itemID string) (quantumwatch.Summary, bool, error) {
	existing, err := p.repo.SummaryByItem(ctx, itemID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, quantumwatch.ErrNotFound) {
		return quantumwatch.Summary{}, false, err
	}
	if !p.enabled[StageSummarize] {
		return quantumwatch.Summary{}, false, quantumwatch.ErrUnconfigured
	}

	item, err := p.repo.Item(ctx, itemID)
	if err != nil {
		return quantumwatch.Summary{}, false, err
	}
	written, err := p.summarize.RunOne(ctx, item)
	if err != nil {
		return quantumwatch.Summary{}, false, err
	}

	s, err := p.repo.SummaryByItem(ctx, itemID)
	return s, written > 0, err
}

// SynthesizeItem returns the item's podcast, generating it first if needed.
// The item must already have a summary.
func (p *Pipeline) SynthesizeItem(ctx context.Context, itemID string) (quantumwatch.Podcast, bool, error) {
	existing, err := p.repo.PodcastByItem(ctx, itemID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, quantumwatch.ErrNotFound) {
		return quantumwatch.Podcast{}, false, err
	}
	if !p.enabled[StageSynthesize] {
		return quantumwatch.Podcast{}, false, quantumwatch.ErrUnconfigured
	}

	pending, err := p.pendingPodcast(ctx, itemID)
	if err != nil {
		return quantumwatch.Podcast{}, false, err
	}
	written, err := p.synthesize.RunOne(ctx, pending)
	if err != nil {
		return quantumwatch.Podcast{}, false, err
	}

	pod, err := p.repo.PodcastBySummary(ctx, pending.ID)
	return pod, written > 0, err
}

func (p *Pipeline) pendingPodcast(ctx context.Context, itemID string) (quantumwatch.PendingPodcast, error) {
	item, err := p.repo.Item(ctx, itemID)
	if err != nil {
		return quantumwatch.PendingPodcast{}, err
	}
	summary, err := p.repo.SummaryByItem(ctx, itemID)
	if errors.Is(err, quantumwatch.ErrNotFound) {
		return quantumwatch.PendingPodcast{}, fmt.Errorf("item has no summary yet: %w", quantumwatch.ErrNotFound)
	}
	if err != nil {
		return quantumwatch.PendingPodcast{}, err
	}
	feed, err := p.repo.Feed(ctx, item.FeedID)
	if err != nil {
		return quantumwatch.PendingPodcast{}, err
	}

	return quantumwatch.PendingPodcast{
		Summary:   summary,
		ItemTitle: item.Title,
		FeedTitle: feed.Title,
	}, nil
}

// Dispatched says what NotifyItem forwarded.
type Dispatched struct {
	Summary bool `json:"summary"`
	Podcast bool `json:"podcast"`
}

// NotifyItem forwards the item's summary and podcast, when present and not
// already sent.
func (p *Pipeline) NotifyItem(ctx context.Context, itemID string) (Dispatched, error) {
	if !p.enabled[StageNotify] {
		return Dispatched{}, quantumwatch.ErrUnconfigured
	}

	item, err := p.repo.Item(ctx, itemID)
	if err != nil {
		return Dispatched{}, err
	}
	feed, err := p.repo.Feed(ctx, item.FeedID)
	if err != nil {
		return Dispatched{}, err
	}
	summary, err := p.repo.SummaryByItem(ctx, itemID)
	if errors.Is(err, quantumwatch.ErrNotFound) {
		return Dispatched{}, fmt.Errorf("item has no summary yet: %w", quantumwatch.ErrNotFound)
	}
	if err != nil {
		return Dispatched{}, err
	}

	d := quantumwatch.PendingDispatch{
		Channel:     quantumwatch.ChannelSummary,
		EntityID:    summary.ID,
		ItemID:      item.ID,
		ItemTitle:   item.Title,
		ItemLink:    item.Link,
		FeedTitle:   feed.Title,
		SummaryText: summary.SummaryText,
		CreatedAt:   summary.CreatedAt,
	}
	var sent Dispatched
	written, err := p.notifySummaries.RunOne(ctx, d)
	if err != nil {
		return sent, err
	}
	sent.Summary = written > 0

	pod, err := p.repo.PodcastBySummary(ctx, summary.ID)
	if errors.Is(err, quantumwatch.ErrNotFound) {
		return sent, nil
	}
	if err != nil {
		return sent, err
	}

	d.Channel = quantumwatch.ChannelPodcast
	d.EntityID = pod.ID
	d.AudioFilePath = pod.AudioFilePath
	d.CreatedAt = pod.CreatedAt
	written, err = p.notifyPodcasts.RunOne(ctx, d)
	if err != nil {
		return sent, err
	}
	sent.Podcast = written > 0

	return sent, nil
}
