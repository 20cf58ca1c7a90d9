package quantumwatch

import (
	"context"
	"time"
)

// Channel is what kind of content got forwarded to the messaging channel.
type Channel string

const (
	ChannelSummary Channel = "summary"
	ChannelPodcast Channel = "podcast"
)

type (
	DispatchRepo interface {
		PendingSummaryDispatches(ctx context.Context, limit int) ([]PendingDispatch, error)
		PendingPodcastDispatches(ctx context.Context, limit int) ([]PendingDispatch, error)
		Dispatched(ctx context.Context, channel Channel, entityID string) (bool, error)
		InsertDispatch(ctx context.Context, d Dispatch) error
	}

	// Dispatch records that an entity was forwarded on a channel.
	// Its absence means the entity is still pending.
	Dispatch struct {
		ID        string    `db:"id"`
		Channel   Channel   `db:"channel"`
		EntityID  string    `db:"entity_id"`
		ItemID    string    `db:"item_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	// PendingDispatch is a summary or podcast with everything needed to format
	// the outgoing message.
	PendingDispatch struct {
		Channel       Channel   `db:"channel"`
		EntityID      string    `db:"entity_id"`
		ItemID        string    `db:"item_id"`
		ItemTitle     string    `db:"item_title"`
		ItemLink      string    `db:"item_link"`
		FeedTitle     string    `db:"feed_title"`
		SummaryText   string    `db:"summary_text"`
		AudioFilePath string    `db:"audio_file_path"`
		CreatedAt     time.Time `db:"created_at"`
	}
)
