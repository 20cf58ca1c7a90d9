package quantumwatch

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlaceholderTitle is stored for entries that arrive without a title.
const PlaceholderTitle = "No Title"

type (
	ItemRepo interface {
		Item(ctx context.Context, id string) (Item, error)
		Items(ctx context.Context, args ItemsArgs) ([]ItemListing, error)
		CountItems(ctx context.Context, args ItemsArgs) (int, error)
		// Inserts the item unless (feed_id, guid) already exists.
		// Reports whether a row was written.
		InsertItem(ctx context.Context, item Item) (bool, error)
		SetRead(ctx context.Context, id string, read bool) error
		SetBookmarked(ctx context.Context, id string, bookmarked bool) error
		// Items that have no summary yet, most recently published first.
		ItemsWithoutSummary(ctx context.Context, limit int) ([]Item, error)
	}

	// Item is one ingested entry from a feed.
	Item struct {
		ID            string     `db:"id"`
		FeedID        string     `db:"feed_id"`
		GUID          string     `db:"guid"`
		Title         string     `db:"title"`
		Link          string     `db:"link"`
		Description   string     `db:"description"`
		Content       string     `db:"content"`
		Author        string     `db:"author"`
		PublishedDate time.Time  `db:"published_date"`
		Categories    Categories `db:"categories"`
		IsRead        bool       `db:"is_read"`
		IsBookmarked  bool       `db:"is_bookmarked"`
		CreatedAt     time.Time  `db:"created_at"`
	}

	// ItemListing is an item row along with its pipeline progress.
	ItemListing struct {
		Item

		HasSummary bool `db:"has_summary"`
		HasPodcast bool `db:"has_podcast"`
	}

	// Optional filters for listing items.
	ItemsArgs struct {
		FeedID     string
		Unread     bool
		Bookmarked bool
		Limit      uint64
		Offset     uint64
	}
)

// Categories are stored as a json array.
type Categories []string

func (c Categories) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	byts, err := json.Marshal([]string(c))
	if err != nil {
		return nil, fmt.Errorf("error marshaling categories: %s", err)
	}

	return string(byts), nil
}

func (c *Categories) Scan(src any) error {
	var byts []byte
	switch src := src.(type) {
	case nil:
		*c = Categories{}
		return nil
	case string:
		byts = []byte(src)
	case []byte:
		byts = src
	default:
		return fmt.Errorf("unsupported categories type %T", src)
	}

	var cats []string
	if err := json.Unmarshal(byts, &cats); err != nil {
		return fmt.Errorf("error unmarshaling categories: %s", err)
	}
	*c = cats

	return nil
}

// DedupeKey is the identity of a feed entry within its feed: the guid if
// present, otherwise the link. Empty means the entry can't be deduplicated.
func DedupeKey(guid, link string) string {
	if guid != "" {
		return guid
	}

	return link
}
