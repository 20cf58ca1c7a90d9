package sqlite

import (
	"context"
	"fmt"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const dispatchNamespace = "-dsp"

func (r Repo) PendingSummaryDispatches(ctx context.Context, limit int) ([]quantumwatch.PendingDispatch, error) {
	const q = `
	SELECT
		'summary' AS channel,
		s.id AS entity_id,
		s.item_id AS item_id,
		i.title AS item_title,
		i.link AS item_link,
		f.title AS feed_title,
		s.summary_text AS summary_text,
		'' AS audio_file_path,
		s.created_at AS created_at
	FROM
		summaries s
		INNER JOIN items i ON i.id = s.item_id
		INNER JOIN feeds f ON f.id = i.feed_id
	WHERE
		NOT EXISTS (SELECT 1 FROM dispatches d WHERE d.channel = 'summary' AND d.entity_id = s.id)
	ORDER BY
		s.created_at DESC
	LIMIT ?;
	`

	pending := []quantumwatch.PendingDispatch{}
	if err := r.db.SelectContext(ctx, &pending, q, limit); err != nil {
		return nil, fmt.Errorf("error selecting pending summary dispatches: %s", err)
	}

	return pending, nil
}

func (r Repo) PendingPodcastDispatches(ctx context.Context, limit int) ([]quantumwatch.PendingDispatch, error) {
	const q = `
	SELECT
		'podcast' AS channel,
		p.id AS entity_id,
		p.item_id AS item_id,
		i.title AS item_title,
		i.link AS item_link,
		f.title AS feed_title,
		s.summary_text AS summary_text,
		p.audio_file_path AS audio_file_path,
		p.created_at AS created_at
	FROM
		podcasts p
		INNER JOIN summaries s ON s.id = p.summary_id
		INNER JOIN items i ON i.id = p.item_id
		INNER JOIN feeds f ON f.id = i.feed_id
	WHERE
		NOT EXISTS (SELECT 1 FROM dispatches d WHERE d.channel = 'podcast' AND d.entity_id = p.id)
	ORDER BY
		p.created_at DESC
	LIMIT ?;
	`

	pending := []quantumwatch.PendingDispatch{}
	if err := r.db.SelectContext(ctx, &pending, q, limit); err != nil {
		return nil, fmt.Errorf("error selecting pending podcast dispatches: %s", err)
	}

	return pending, nil
}

func (r Repo) Dispatched(ctx context.Context, channel quantumwatch.Channel, entityID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM dispatches WHERE channel = ? AND entity_id = ?);`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, string(channel), entityID); err != nil {
		return false, fmt.Errorf("error checking dispatch: %s", err)
	}

	return exists, nil
}

// InsertDispatch logs a forwarded entity. Logging the same entity twice is a no-op.
func (r Repo) InsertDispatch(ctx context.Context, d quantumwatch.Dispatch) error {
	const q = `INSERT INTO dispatches (id, channel, entity_id, item_id, created_at)
	VALUES (:id, :channel, :entity_id, :item_id, :created_at)
	ON CONFLICT(channel, entity_id) DO NOTHING;`

	d.ID = newID(dispatchNamespace)
	d.CreatedAt = r.now()
	if _, err := r.db.NamedExecContext(ctx, q, d); err != nil {
		return fmt.Errorf("error inserting dispatch: %s", err)
	}

	return nil
}
