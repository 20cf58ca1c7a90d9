package quantumwatch

import (
	"context"
	"time"
)

type (
	FeedRepo interface {
		Feed(ctx context.Context, id string) (Feed, error)
		FeedByURL(ctx context.Context, url string) (Feed, error)
		InsertFeed(ctx context.Context, feed Feed) (Feed, error)
		AllFeeds(ctx context.Context) ([]Feed, error)
		ActiveFeeds(ctx context.Context) ([]Feed, error)
		SetFeedActive(ctx context.Context, id string, active bool) error
		// Marks the feed as fetched right now.
		TouchFeed(ctx context.Context, id string) error
	}

	// Feed is a subscribed RSS or Atom source.
	Feed struct {
		ID          string     `db:"id"`
		URL         string     `db:"url"`
		Title       string     `db:"title"`
		Description string     `db:"description"`
		Language    string     `db:"language"`
		Category    string     `db:"category"`
		Active      bool       `db:"active"`
		LastFetched *time.Time `db:"last_fetched"`
		CreatedAt   time.Time  `db:"created_at"`
	}
)
