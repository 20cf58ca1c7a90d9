package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

func seedSummary(t *testing.T, repo quantumwatch.Repository, item quantumwatch.Item, text, lang string) quantumwatch.Summary {
	t.Helper()

	s, _, err := repo.InsertSummary(context.Background(), quantumwatch.Summary{ItemID: item.ID, SummaryText: text, Language: lang})
	require.NoError(t, err)
	return s
}

// audioFiles lists every file under root.
func audioFiles(t *testing.T, root string) []string {
	t.Helper()

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	feed := seedFeed(t, repo, "https://example.com/rss", "Quantum Daily!")
	items := seedItems(t, repo, feed.ID, 2)
	english := seedSummary(t, repo, items[0], "A new qubit design.", quantumwatch.LanguageEnglish)
	french := seedSummary(t, repo, items[1], "Un nouveau qubit.", quantumwatch.LanguageFrench)

	cfg := testConfig(t)
	cfg.Voices = Voices{English: "en-voice"}
	speaker := &fakeSpeaker{}
	p := New(cfg, Deps{Repo: repo, Speaker: speaker})

	reports, err := p.Run(ctx, StageSynthesize)
	require.NoError(t, err)
	assert.Equal(t, Report{Stage: StageSynthesize, Selected: 2, Succeeded: 2, Written: 2}, reports[0])

	pod, err := repo.PodcastBySummary(ctx, english.ID)
	require.NoError(t, err)
	assert.Equal(t, "/podcasts/quantum-daily/item-0.mp3", pod.AudioFilePath)
	assert.Equal(t, "en-voice", pod.VoiceID)
	assert.Equal(t, quantumwatch.EstimateDuration("Item 0. A new qubit design."), pod.Duration)
	assert.Equal(t, items[0].ID, pod.ItemID)

	byts, err := os.ReadFile(filepath.Join(cfg.AudioStore.Root, "quantum-daily", "item-0.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "ID3 mp3 bytes", string(byts))

	pod, err = repo.PodcastBySummary(ctx, french.ID)
	require.NoError(t, err)
	assert.Equal(t, DefaultFrenchVoice, pod.VoiceID)

	assert.ElementsMatch(t, []speakCall{
		{text: "Item 0. A new qubit design.", voice: "en-voice"},
		{text: "Item 1. Un nouveau qubit.", voice: DefaultFrenchVoice},
	}, speaker.calls)

	// Nothing left to do
	reports, err = p.Run(ctx, StageSynthesize)
	require.NoError(t, err)
	assert.Equal(t, 0, reports[0].Selected)
}

func TestSynthesizeFailureLeavesNothingBehind(t *testing.T) {
	tests := []struct {
		name    string
		speaker *fakeSpeaker
	}{
		{name: "speaker error", speaker: &fakeSpeaker{err: errors.New("quota exceeded")}},
		{name: "broken stream", speaker: &fakeSpeaker{body: iotest.ErrReader(errors.New("connection reset"))}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := context.Background()
			repo := newTestRepo(t)
			feed := seedFeed(t, repo, "https://example.com/rss", "Example")
			items := seedItems(t, repo, feed.ID, 1)
			s := seedSummary(t, repo, items[0], "A summary.", quantumwatch.LanguageEnglish)

			cfg := testConfig(t)
			p := New(cfg, Deps{Repo: repo, Speaker: test.speaker})

			reports, err := p.Run(ctx, StageSynthesize)
			require.NoError(t, err)
			assert.Equal(t, 1, reports[0].Failed)

			_, err = repo.PodcastBySummary(ctx, s.ID)
			assert.ErrorIs(t, err, quantumwatch.ErrNotFound)
			assert.Empty(t, audioFiles(t, cfg.AudioStore.Root))
		})
	}
}

func TestSynthesizeNameCollision(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	one := seedFeed(t, repo, "https://one.example.com/rss", "News")
	two := seedFeed(t, repo, "https://two.example.com/rss", "News")
	first := seedItems(t, repo, one.ID, 1)[0]
	_, err := repo.InsertItem(ctx, quantumwatch.Item{FeedID: two.ID, GUID: "other", Title: first.Title, Content: "Other"})
	require.NoError(t, err)

	cfg := testConfig(t)
	p := New(cfg, Deps{Repo: repo, Speaker: &fakeSpeaker{}})
	seedSummary(t, repo, first, "First.", quantumwatch.LanguageEnglish)
	_, err = p.Run(ctx, StageSynthesize)
	require.NoError(t, err)

	listings, err := repo.Items(ctx, quantumwatch.ItemsArgs{FeedID: two.ID})
	require.NoError(t, err)
	s := seedSummary(t, repo, listings[0].Item, "Second.", quantumwatch.LanguageEnglish)
	_, err = p.Run(ctx, StageSynthesize)
	require.NoError(t, err)

	pod, err := repo.PodcastBySummary(ctx, s.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "/podcasts/news/item-0.mp3", pod.AudioFilePath)
	assert.Len(t, audioFiles(t, cfg.AudioStore.Root), 2)
}

func TestSynthesizeDisabled(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	feed := seedFeed(t, repo, "https://example.com/rss", "Example")
	items := seedItems(t, repo, feed.ID, 1)
	seedSummary(t, repo, items[0], "A summary.", quantumwatch.LanguageEnglish)
	p := New(testConfig(t), Deps{Repo: repo})

	reports, err := p.Run(ctx, StageSynthesize)
	require.NoError(t, err)
	assert.Equal(t, []Report{{Stage: StageSynthesize}}, reports)

	_, _, err = p.SynthesizeItem(ctx, items[0].ID)
	assert.ErrorIs(t, err, quantumwatch.ErrUnconfigured)
}

func TestSynthesizeItem(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	feed := seedFeed(t, repo, "https://example.com/rss", "Example")
	items := seedItems(t, repo, feed.ID, 2)
	seedSummary(t, repo, items[0], "A summary.", quantumwatch.LanguageEnglish)

	speaker := &fakeSpeaker{}
	p := New(testConfig(t), Deps{Repo: repo, Speaker: speaker})

	pod, created, err := p.SynthesizeItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := p.SynthesizeItem(ctx, items[0].ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, pod.ID, again.ID)
	assert.Len(t, speaker.calls, 1)

	_, _, err = p.SynthesizeItem(ctx, items[1].ID)
	assert.ErrorIs(t, err, quantumwatch.ErrNotFound, "no summary yet")
}
