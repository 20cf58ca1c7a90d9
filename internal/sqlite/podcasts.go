package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const podcastNamespace = "-pod"

func (r Repo) getPodcast(ctx context.Context, q string, arg string) (quantumwatch.Podcast, error) {
	var p quantumwatch.Podcast
	err := r.db.GetContext(ctx, &p, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return quantumwatch.Podcast{}, quantumwatch.ErrNotFound
	}
	if err != nil {
		return quantumwatch.Podcast{}, fmt.Errorf("error fetching podcast: %s", err)
	}

	return p, nil
}

func (r Repo) Podcast(ctx context.Context, id string) (quantumwatch.Podcast, error) {
	return r.getPodcast(ctx, `SELECT * FROM podcasts WHERE id = ?;`, id)
}

func (r Repo) PodcastBySummary(ctx context.Context, summaryID string) (quantumwatch.Podcast, error) {
	return r.getPodcast(ctx, `SELECT * FROM podcasts WHERE summary_id = ?;`, summaryID)
}

func (r Repo) PodcastByItem(ctx context.Context, itemID string) (quantumwatch.Podcast, error) {
	return r.getPodcast(ctx, `SELECT * FROM podcasts WHERE item_id = ? ORDER BY created_at DESC LIMIT 1;`, itemID)
}

// InsertPodcast stores the podcast unless its summary already has one, and
// returns the summary's stored podcast.
func (r Repo) InsertPodcast(ctx context.Context, p quantumwatch.Podcast) (quantumwatch.Podcast, bool, error) {
	const q = `INSERT INTO podcasts (id, item_id, summary_id, audio_file_path, duration, voice_id, created_at)
	VALUES (:id, :item_id, :summary_id, :audio_file_path, :duration, :voice_id, :created_at)
	ON CONFLICT(summary_id) DO NOTHING;`

	p.ID = newID(podcastNamespace)
	p.CreatedAt = r.now()
	res, err := r.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return quantumwatch.Podcast{}, false, fmt.Errorf("error inserting podcast: %s", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return quantumwatch.Podcast{}, false, fmt.Errorf("error reading rows affected: %s", err)
	}

	stored, err := r.PodcastBySummary(ctx, p.SummaryID)
	if err != nil {
		return quantumwatch.Podcast{}, false, err
	}

	return stored, n == 1, nil
}
