package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

// Ingest polls active feeds and inserts the entries it hasn't seen.
type Ingest struct {
	repo    quantumwatch.Repository
	fetcher quantumwatch.FeedFetcher
	now     func() time.Time
}

var _ Stage[quantumwatch.Feed, quantumwatch.ParsedFeed] = Ingest{}

func (Ingest) Name() string                   { return StageIngest }
func (Ingest) Kind() string                   { return StageIngest }
func (Ingest) Key(f quantumwatch.Feed) string { return f.ID }

// Every active feed is polled each run.
func (s Ingest) Pending(ctx context.Context, _ int) ([]quantumwatch.Feed, error) {
	return s.repo.ActiveFeeds(ctx)
}

func (Ingest) Settled(context.Context, quantumwatch.Feed) (bool, error) {
	return false, nil
}

func (s Ingest) Process(ctx context.Context, f quantumwatch.Feed) (quantumwatch.ParsedFeed, error) {
	parsed, err := s.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		return quantumwatch.ParsedFeed{}, fmt.Errorf("error fetching feed %s: %w", f.URL, err)
	}

	return parsed, nil
}

// Persist inserts every entry independently. A bad entry is logged and
// skipped without affecting its siblings.
func (s Ingest) Persist(ctx context.Context, f quantumwatch.Feed, parsed quantumwatch.ParsedFeed) (int, error) {
	if err := s.repo.TouchFeed(ctx, f.ID); err != nil {
		return 0, fmt.Errorf("error marking feed fetched: %w", err)
	}

	var inserted, skipped, failed int
	for _, e := range parsed.Entries {
		item, ok := s.normalize(f.ID, e)
		if !ok {
			skipped++
			continue
		}

		isNew, err := s.repo.InsertItem(ctx, item)
		if err != nil {
			slog.ErrorContext(ctx, "error inserting entry", "guid", item.GUID, "error", err)
			failed++
			continue
		}
		if isNew {
			inserted++
		}
	}

	slog.InfoContext(ctx, "feed ingested",
		"entries", len(parsed.Entries),
		"new", inserted,
		"unkeyed", skipped,
		"failed", failed,
	)

	return inserted, nil
}

// normalize maps a parsed entry onto an item. Entries with neither a guid nor
// a link can't be deduplicated and are dropped.
func (s Ingest) normalize(feedID string, e quantumwatch.ParsedEntry) (quantumwatch.Item, bool) {
	key := quantumwatch.DedupeKey(e.GUID, e.Link)
	if key == "" {
		return quantumwatch.Item{}, false
	}

	title := strings.TrimSpace(e.Title)
	if title == "" {
		title = quantumwatch.PlaceholderTitle
	}
	published := s.now()
	if e.Published != nil && !e.Published.IsZero() {
		published = *e.Published
	}
	categories := quantumwatch.Categories{}
	for _, c := range e.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}

	return quantumwatch.Item{
		FeedID:        feedID,
		GUID:          key,
		Title:         title,
		Link:          e.Link,
		Description:   e.Description,
		Content:       e.Content,
		Author:        e.Author,
		PublishedDate: published.UTC(),
		Categories:    categories,
	}, true
}
