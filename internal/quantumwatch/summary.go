package quantumwatch

import (
	"context"
	"time"
)

type (
	SummaryRepo interface {
		Summary(ctx context.Context, id string) (Summary, error)
		SummaryByItem(ctx context.Context, itemID string) (Summary, error)
		// Inserts the summary unless the item already has one, and returns
		// whichever row is stored for the item.
		InsertSummary(ctx context.Context, s Summary) (Summary, bool, error)
		// Summaries lacking a podcast, oldest first, with item and feed metadata.
		SummariesWithoutPodcast(ctx context.Context, limit int) ([]PendingPodcast, error)
	}

	// Summary is the generated condensation of an item. At most one exists per item.
	Summary struct {
		ID          string    `db:"id"`
		ItemID      string    `db:"item_id"`
		SummaryText string    `db:"summary_text"`
		Language    string    `db:"language"`
		CreatedAt   time.Time `db:"created_at"`
	}

	// PendingPodcast is a summary waiting for audio.
	PendingPodcast struct {
		Summary

		ItemTitle string `db:"item_title"`
		FeedTitle string `db:"feed_title"`
	}
)
