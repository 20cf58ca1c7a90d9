package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/jdholdren/quantumwatch/internal/audio"
	"github.com/jdholdren/quantumwatch/internal/extract"
	"github.com/jdholdren/quantumwatch/internal/llm"
	"github.com/jdholdren/quantumwatch/internal/pipeline"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
	feedsync "github.com/jdholdren/quantumwatch/internal/sync"
	"github.com/jdholdren/quantumwatch/internal/telegram"
	"github.com/jdholdren/quantumwatch/internal/tts"
)

type config struct {
	Database     string `env:"DATABASE, default=quantumwatch.db"`
	Port         int    `env:"PORT, default=4444"`
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
	LogLevel     string `env:"LOG_LEVEL, default=info"`
	CorsOrigin   string `env:"CORS_ORIGIN, default=*"`

	IngestCron          string `env:"INGEST_CRON, default=0 * * * *"`
	SummarizeCron       string `env:"SUMMARIZE_CRON, default=0 */3 * * *"`
	SynthesizeCron      string `env:"SYNTHESIZE_CRON, default=0 */6 * * *"`
	NotifyCron          string `env:"NOTIFY_CRON, default=*/30 * * * *"`
	IngestAtStartup     bool   `env:"INGEST_AT_STARTUP, default=true"`
	SummarizeAtStartup  bool   `env:"SUMMARIZE_AT_STARTUP, default=false"`
	SynthesizeAtStartup bool   `env:"SYNTHESIZE_AT_STARTUP, default=false"`
	NotifyAtStartup     bool   `env:"NOTIFY_AT_STARTUP, default=false"`

	SummarizeBatch  int           `env:"SUMMARIZE_BATCH, default=10"`
	SynthesizeBatch int           `env:"SYNTHESIZE_BATCH, default=5"`
	NotifyBatch     int           `env:"NOTIFY_BATCH, default=5"`
	CallTimeout     time.Duration `env:"CALL_TIMEOUT, default=60s"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL"`

	ElevenLabsAPIKey    string `env:"ELEVENLABS_API_KEY"`
	ElevenLabsENVoiceID string `env:"ELEVENLABS_EN_VOICE_ID"`
	ElevenLabsFRVoiceID string `env:"ELEVENLABS_FR_VOICE_ID"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`
	TelegramCensor   bool   `env:"TELEGRAM_CENSOR, default=true"`

	AudioRoot         string `env:"AUDIO_ROOT, default=public/podcasts"`
	AudioPublicPrefix string `env:"AUDIO_PUBLIC_PREFIX, default=/podcasts"`

	// Fetch the full article for items whose feed only carries a preview
	ExtractContent bool   `env:"EXTRACT_CONTENT, default=false"`
	UserAgent      string `env:"USER_AGENT, default=QuantumWatch/1.0"`
}

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (config, error) {
	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return config{}, fmt.Errorf("error parsing config: %s", err)
	}

	return cfg, nil
}

func (c config) audioStore() audio.Store {
	return audio.Store{Root: c.AudioRoot, PublicPrefix: c.AudioPublicPrefix}
}

func (c config) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		SummarizeBatch:  c.SummarizeBatch,
		SynthesizeBatch: c.SynthesizeBatch,
		NotifyBatch:     c.NotifyBatch,
		CallTimeout:     c.CallTimeout,
		Delays:          pipeline.DefaultDelays,
		Voices: pipeline.Voices{
			English: c.ElevenLabsENVoiceID,
			French:  c.ElevenLabsFRVoiceID,
		},
		Censor:     c.TelegramCensor,
		AudioStore: c.audioStore(),
	}
}

func (c config) schedules() []pipeline.Schedule {
	return []pipeline.Schedule{
		{Stage: pipeline.StageIngest, Spec: c.IngestCron, AtStartup: c.IngestAtStartup},
		{Stage: pipeline.StageSummarize, Spec: c.SummarizeCron, AtStartup: c.SummarizeAtStartup},
		{Stage: pipeline.StageSynthesize, Spec: c.SynthesizeCron, AtStartup: c.SynthesizeAtStartup},
		{Stage: pipeline.StageNotify, Spec: c.NotifyCron, AtStartup: c.NotifyAtStartup},
	}
}

// reader is the article reader, when extraction is turned on.
func (c config) reader() *extract.Reader {
	if !c.ExtractContent {
		return nil
	}
	return extract.NewReader(c.CallTimeout, c.UserAgent)
}

// deps wires the collaborators. Ones missing their credentials stay nil so the
// stages depending on them are disabled.
func (c config) deps(repo quantumwatch.Repository, reader *extract.Reader) pipeline.Deps {
	deps := pipeline.Deps{
		Repo:    repo,
		Fetcher: feedsync.NewFetcher(c.CallTimeout, c.UserAgent),
	}
	if reader != nil {
		deps.Reader = reader
	}
	if c.AnthropicAPIKey != "" {
		deps.Summarizer = llm.New(llm.Config{APIKey: c.AnthropicAPIKey, Model: c.AnthropicModel})
	}
	if c.ElevenLabsAPIKey != "" {
		deps.Speaker = tts.New(tts.Config{APIKey: c.ElevenLabsAPIKey, Timeout: c.CallTimeout})
	}
	bot := telegram.New(telegram.Config{BotToken: c.TelegramBotToken, ChatID: c.TelegramChatID, Timeout: c.CallTimeout})
	if bot.Configured() {
		deps.Messenger = bot
	}

	return deps
}
