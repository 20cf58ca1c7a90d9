package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const summaryNamespace = "-smry"

func (r Repo) Summary(ctx context.Context, id string) (quantumwatch.Summary, error) {
	const q = `SELECT * FROM summaries WHERE id = ?;`

	var s quantumwatch.Summary
	err := r.db.GetContext(ctx, &s, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return quantumwatch.Summary{}, quantumwatch.ErrNotFound
	}
	if err != nil {
		return quantumwatch.Summary{}, fmt.Errorf("error fetching summary: %s", err)
	}

	return s, nil
}

func (r Repo) SummaryByItem(ctx context.Context, itemID string) (quantumwatch.Summary, error) {
	const q = `SELECT * FROM summaries WHERE item_id = ?;`

	var s quantumwatch.Summary
	err := r.db.GetContext(ctx, &s, q, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return quantumwatch.Summary{}, quantumwatch.ErrNotFound
	}
	if err != nil {
		return quantumwatch.Summary{}, fmt.Errorf("error fetching summary for item: %s", err)
	}

	return s, nil
}

// InsertSummary stores the summary unless the item already has one. Either
// way the item's stored summary is returned, along with whether it's the one
// just written.
func (r Repo) InsertSummary(ctx context.Context, s quantumwatch.Summary) (quantumwatch.Summary, bool, error) {
	const q = `INSERT INTO summaries (id, item_id, summary_text, language, created_at)
	VALUES (:id, :item_id, :summary_text, :language, :created_at)
	ON CONFLICT(item_id) DO NOTHING;`

	s.ID = newID(summaryNamespace)
	s.CreatedAt = r.now()
	res, err := r.db.NamedExecContext(ctx, q, s)
	if err != nil {
		return quantumwatch.Summary{}, false, fmt.Errorf("error inserting summary: %s", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return quantumwatch.Summary{}, false, fmt.Errorf("error reading rows affected: %s", err)
	}

	stored, err := r.SummaryByItem(ctx, s.ItemID)
	if err != nil {
		return quantumwatch.Summary{}, false, err
	}

	return stored, n == 1, nil
}

func (r Repo) SummariesWithoutPodcast(ctx context.Context, limit int) ([]quantumwatch.PendingPodcast, error) {
	const q = `
	SELECT
		s.*,
		i.title AS item_title,
		f.title AS feed_title
	FROM
		summaries s
		INNER JOIN items i ON i.id = s.item_id
		INNER JOIN feeds f ON f.id = i.feed_id
	WHERE
		NOT EXISTS (SELECT 1 FROM podcasts p WHERE p.summary_id = s.id)
	ORDER BY
		s.created_at ASC
	LIMIT ?;
	`

	pending := []quantumwatch.PendingPodcast{}
	if err := r.db.SelectContext(ctx, &pending, q, limit); err != nil {
		return nil, fmt.Errorf("error selecting summaries without podcast: %s", err)
	}

	return pending, nil
}
