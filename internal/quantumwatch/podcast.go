package quantumwatch

import (
	"context"
	"time"
)

type (
	PodcastRepo interface {
		Podcast(ctx context.Context, id string) (Podcast, error)
		PodcastBySummary(ctx context.Context, summaryID string) (Podcast, error)
		PodcastByItem(ctx context.Context, itemID string) (Podcast, error)
		// Inserts the podcast unless the summary already has one.
		InsertPodcast(ctx context.Context, p Podcast) (Podcast, bool, error)
	}

	// Podcast is the synthesized audio for a summary. The file under
	// AudioFilePath belongs to this record alone.
	Podcast struct {
		ID            string    `db:"id"`
		ItemID        string    `db:"item_id"`
		SummaryID     string    `db:"summary_id"`
		AudioFilePath string    `db:"audio_file_path"`
		Duration      int       `db:"duration"` // Estimated, in seconds
		VoiceID       string    `db:"voice_id"`
		CreatedAt     time.Time `db:"created_at"`
	}
)
