package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jdholdren/quantumwatch/internal/audio"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

// Default ElevenLabs voices
const (
	DefaultEnglishVoice = "pNInz6obpgDQGcFmaJgB"
	DefaultFrenchVoice  = "EXAVITQu4vr4xnSDxMaL"
)

// Voices maps a summary language to the voice that reads it.
type Voices struct {
	English string
	French  string
}

// For picks the voice for lang, falling back to english.
func (v Voices) For(lang string) string {
	english := v.English
	if english == "" {
		english = DefaultEnglishVoice
	}
	if lang == quantumwatch.LanguageFrench {
		if v.French != "" {
			return v.French
		}
		return DefaultFrenchVoice
	}

	return english
}

// synthesized is an audio file written but not yet recorded.
type synthesized struct {
	publicPath string
	duration   int
	voiceID    string
}

// Synthesize turns summaries into podcast files.
type Synthesize struct {
	repo    quantumwatch.Repository
	speaker quantumwatch.Speaker
	store   audio.Store
	voices  Voices
}

var _ Stage[quantumwatch.PendingPodcast, synthesized] = Synthesize{}

func (Synthesize) Name() string                             { return StageSynthesize }
func (Synthesize) Kind() string                             { return StageSynthesize }
func (Synthesize) Key(p quantumwatch.PendingPodcast) string { return p.ID }

func (s Synthesize) Pending(ctx context.Context, limit int) ([]quantumwatch.PendingPodcast, error) {
	return s.repo.SummariesWithoutPodcast(ctx, limit)
}

func (s Synthesize) Settled(ctx context.Context, p quantumwatch.PendingPodcast) (bool, error) {
	_, err := s.repo.PodcastBySummary(ctx, p.ID)
	return exists(err)
}

// Process speaks the title and summary and writes the stream to the audio store.
func (s Synthesize) Process(ctx context.Context, p quantumwatch.PendingPodcast) (synthesized, error) {
	if s.speaker == nil {
		return synthesized{}, quantumwatch.ErrUnconfigured
	}

	text := speechText(p)
	voice := s.voices.For(p.Language)

	stream, err := s.speaker.Speak(ctx, text, voice)
	if err != nil {
		return synthesized{}, fmt.Errorf("error synthesizing speech: %w", err)
	}
	defer stream.Close()

	fsPath, _ := s.store.Path(p.FeedTitle, p.ItemTitle, p.ID)
	written, public, err := s.store.Write(fsPath, p.ID, stream)
	if err != nil {
		return synthesized{}, fmt.Errorf("error storing audio: %w", err)
	}
	slog.InfoContext(ctx, "audio written", "path", written)

	return synthesized{
		publicPath: public,
		duration:   quantumwatch.EstimateDuration(text),
		voiceID:    voice,
	}, nil
}

// Persist records the podcast. The file is removed if it ends up unowned.
func (s Synthesize) Persist(ctx context.Context, p quantumwatch.PendingPodcast, out synthesized) (int, error) {
	_, inserted, err := s.repo.InsertPodcast(ctx, quantumwatch.Podcast{
		ItemID:        p.ItemID,
		SummaryID:     p.ID,
		AudioFilePath: out.publicPath,
		Duration:      out.duration,
		VoiceID:       out.voiceID,
	})
	if err != nil || !inserted {
		if rmErr := s.store.Remove(out.publicPath); rmErr != nil {
			slog.ErrorContext(ctx, "error removing unowned audio", "path", out.publicPath, "error", rmErr)
		}
	}
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, nil
	}

	return 1, nil
}

func speechText(p quantumwatch.PendingPodcast) string {
	return p.ItemTitle + ". " + p.SummaryText
}
