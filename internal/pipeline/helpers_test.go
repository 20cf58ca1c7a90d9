package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jdholdren/quantumwatch/internal/audio"
	"github.com/jdholdren/quantumwatch/internal/extract"
	"github.com/jdholdren/quantumwatch/internal/migrations"
	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
	"github.com/jdholdren/quantumwatch/internal/sqlite"
)

func newTestRepo(t *testing.T) sqlite.Repo {
	t.Helper()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "qw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	return sqlite.New(dbx)
}

func seedFeed(t *testing.T, repo quantumwatch.Repository, url, title string) quantumwatch.Feed {
	t.Helper()

	f, err := repo.InsertFeed(context.Background(), quantumwatch.Feed{URL: url, Title: title, Active: true})
	require.NoError(t, err)
	return f
}

// seedItems inserts n items, newest first, and returns them in that order.
func seedItems(t *testing.T, repo quantumwatch.Repository, feedID string, n int) []quantumwatch.Item {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < n; i++ {
		_, err := repo.InsertItem(ctx, quantumwatch.Item{
			FeedID:        feedID,
			GUID:          fmt.Sprintf("guid-%d", i),
			Title:         fmt.Sprintf("Item %d", i),
			Link:          fmt.Sprintf("https://example.com/%d", i),
			Content:       strings.Repeat(fmt.Sprintf("Body of item %d. ", i), 100),
			PublishedDate: now.Add(-time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	items, err := repo.ItemsWithoutSummary(ctx, n)
	require.NoError(t, err)
	require.Len(t, items, n)
	return items
}

func testConfig(t *testing.T) Config {
	return Config{
		SummarizeBatch:  10,
		SynthesizeBatch: 5,
		NotifyBatch:     5,
		CallTimeout:     time.Second,
		AudioStore:      audio.Store{Root: t.TempDir(), PublicPrefix: "/podcasts"},
	}
}

type fakeFetcher struct {
	feeds map[string]quantumwatch.ParsedFeed
	errs  map[string]error
}

func (f fakeFetcher) Fetch(_ context.Context, url string) (quantumwatch.ParsedFeed, error) {
	if err, ok := f.errs[url]; ok {
		return quantumwatch.ParsedFeed{}, err
	}
	feed, ok := f.feeds[url]
	if !ok {
		return quantumwatch.ParsedFeed{}, errors.New("no such feed")
	}
	return feed, nil
}

// fakeSummarizer answers with fn, recording every prompt.
type fakeSummarizer struct {
	mu      gosync.Mutex
	prompts []string
	fn      func(prompt string) (string, error)
}

func (f *fakeSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.fn == nil {
		return "The article is about qubits and the people who build them.", nil
	}
	return f.fn(prompt)
}

func (f *fakeSummarizer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type speakCall struct {
	text  string
	voice string
}

type fakeSpeaker struct {
	mu    gosync.Mutex
	calls []speakCall
	err   error
	body  io.Reader // Overrides the returned stream when set
}

func (f *fakeSpeaker) Speak(_ context.Context, text, voice string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, speakCall{text: text, voice: voice})
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.body != nil {
		return io.NopCloser(f.body), nil
	}
	return io.NopCloser(strings.NewReader("ID3 mp3 bytes")), nil
}

type sentAudio struct {
	filename string
	caption  string
	body     string
}

type fakeMessenger struct {
	mu       gosync.Mutex
	messages []string
	audio    []sentAudio
	err      error
}

func (f *fakeMessenger) SendMessage(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeMessenger) SendAudio(_ context.Context, r io.Reader, filename, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	byts, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.audio = append(f.audio, sentAudio{filename: filename, caption: caption, body: string(byts)})
	return nil
}

type fakeReader struct {
	article extract.Article
	err     error
}

func (f fakeReader) Read(context.Context, string) (extract.Article, error) {
	return f.article, f.err
}
