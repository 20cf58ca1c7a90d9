package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

func TestIngest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	good := seedFeed(t, repo, "https://good.example.com/rss", "Good")
	bad := seedFeed(t, repo, "https://bad.example.com/rss", "Bad")

	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fetcher := fakeFetcher{
		feeds: map[string]quantumwatch.ParsedFeed{
			good.URL: {
				Title: "Good",
				Entries: []quantumwatch.ParsedEntry{
					{GUID: "a", Title: "  Qubits  ", Link: "https://good.example.com/a", Published: &published, Categories: []string{" physics ", ""}},
					{Link: "https://good.example.com/b"},
					{Title: "No key at all"},
				},
			},
		},
		errs: map[string]error{bad.URL: errors.New("connection refused")},
	}
	p := New(testConfig(t), Deps{Repo: repo, Fetcher: fetcher})

	reports, err := p.Run(ctx, StageIngest)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, Report{Stage: StageIngest, Selected: 2, Succeeded: 1, Failed: 1, Written: 2}, reports[0])

	listings, err := repo.Items(ctx, quantumwatch.ItemsArgs{FeedID: good.ID})
	require.NoError(t, err)
	require.Len(t, listings, 2)

	byGUID := map[string]quantumwatch.Item{}
	for _, l := range listings {
		byGUID[l.GUID] = l.Item
	}
	a := byGUID["a"]
	assert.Equal(t, "Qubits", a.Title)
	assert.True(t, published.Equal(a.PublishedDate))
	assert.Equal(t, quantumwatch.Categories{"physics"}, a.Categories)

	b, ok := byGUID["https://good.example.com/b"]
	require.True(t, ok, "link stands in for a missing guid")
	assert.Equal(t, quantumwatch.PlaceholderTitle, b.Title)
	assert.False(t, b.PublishedDate.IsZero())

	f, err := repo.Feed(ctx, good.ID)
	require.NoError(t, err)
	assert.NotNil(t, f.LastFetched)

	// Running again stores nothing new
	reports, err = p.Run(ctx, StageIngest)
	require.NoError(t, err)
	assert.Equal(t, 0, reports[0].Written)

	count, err := repo.CountItems(ctx, quantumwatch.ItemsArgs{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestSkipsInactiveFeeds(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seedFeed(t, repo, "https://example.com/rss", "Example")
	require.NoError(t, repo.SetFeedActive(ctx, f.ID, false))

	p := New(testConfig(t), Deps{Repo: repo, Fetcher: fakeFetcher{}})
	reports, err := p.Run(ctx, StageIngest)
	require.NoError(t, err)
	assert.Equal(t, 0, reports[0].Selected)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seedFeed(t, repo, "https://example.com/rss", "Example")
	fetcher := fakeFetcher{feeds: map[string]quantumwatch.ParsedFeed{
		f.URL: {Entries: []quantumwatch.ParsedEntry{{GUID: "1", Title: "One"}, {GUID: "2", Title: "Two"}}},
	}}
	p := New(testConfig(t), Deps{Repo: repo, Fetcher: fetcher})

	n, err := p.Refresh(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.Refresh(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = p.Refresh(ctx, "nope")
	assert.ErrorIs(t, err, quantumwatch.ErrNotFound)

	require.NoError(t, repo.SetFeedActive(ctx, f.ID, false))
	_, err = p.Refresh(ctx, f.ID)
	assert.ErrorIs(t, err, quantumwatch.ErrNotFound)
}

func TestUnknownStage(t *testing.T) {
	p := New(testConfig(t), Deps{Repo: newTestRepo(t)})

	_, err := p.Run(context.Background(), "compact")
	assert.ErrorIs(t, err, ErrUnknownStage)
}

// failingInserts refuses to store the listed guids.
type failingInserts struct {
	quantumwatch.Repository
	guids map[string]bool
}

func (r failingInserts) InsertItem(ctx context.Context, item quantumwatch.Item) (bool, error) {
	if r.guids[item.GUID] {
		return false, errors.New("disk I/O error")
	}
	return r.Repository.InsertItem(ctx, item)
}

func TestIngestIsolatesEntryFailures(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seedFeed(t, repo, "https://example.com/rss", "Example")
	fetcher := fakeFetcher{feeds: map[string]quantumwatch.ParsedFeed{
		f.URL: {Entries: []quantumwatch.ParsedEntry{
			{GUID: "1", Title: "One"},
			{GUID: "2", Title: "Two"},
			{GUID: "3", Title: "Three"},
		}},
	}}
	p := New(testConfig(t), Deps{
		Repo:    failingInserts{Repository: repo, guids: map[string]bool{"2": true}},
		Fetcher: fetcher,
	})

	reports, err := p.Run(ctx, StageIngest)
	require.NoError(t, err)
	assert.Equal(t, Report{Stage: StageIngest, Selected: 1, Succeeded: 1, Written: 2}, reports[0])

	listings, err := repo.Items(ctx, quantumwatch.ItemsArgs{FeedID: f.ID})
	require.NoError(t, err)
	var guids []string
	for _, l := range listings {
		guids = append(guids, l.GUID)
	}
	assert.ElementsMatch(t, []string{"1", "3"}, guids)

	stored, err := repo.Feed(ctx, f.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastFetched)
}
