package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const feedNamespace = "-fd"

func (r Repo) Feed(ctx context.Context, id string) (quantumwatch.Feed, error) {
	const q = `SELECT * FROM feeds WHERE id = ?;`
	var feed quantumwatch.Feed
	err := r.db.GetContext(ctx, &feed, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return quantumwatch.Feed{}, quantumwatch.ErrNotFound
	}
	if err != nil {
		return quantumwatch.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

func (r Repo) FeedByURL(ctx context.Context, url string) (quantumwatch.Feed, error) {
	const q = `SELECT * FROM feeds WHERE url = ?;`

	var feed quantumwatch.Feed
	err := r.db.GetContext(ctx, &feed, q, url)
	if errors.Is(err, sql.ErrNoRows) {
		return quantumwatch.Feed{}, quantumwatch.ErrNotFound
	}
	if err != nil {
		return quantumwatch.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

// InsertFeed stores a new feed. A url that is already subscribed is an
// [quantumwatch.ErrConflict].
func (r Repo) InsertFeed(ctx context.Context, feed quantumwatch.Feed) (quantumwatch.Feed, error) {
	const q = `INSERT INTO feeds (id, url, title, description, language, category, active, created_at)
	VALUES (:id, :url, :title, :description, :language, :category, :active, :created_at);`

	feed.ID = newID(feedNamespace)
	feed.CreatedAt = r.now()
	_, err := r.db.NamedExecContext(ctx, q, feed)
	if isUniqueViolation(err) {
		return quantumwatch.Feed{}, fmt.Errorf("feed already exists: %w", quantumwatch.ErrConflict)
	}
	if err != nil {
		return quantumwatch.Feed{}, fmt.Errorf("error inserting feed: %s", err)
	}

	return r.Feed(ctx, feed.ID)
}

// AllFeeds retrieves _all_ feeds from the database.
func (r Repo) AllFeeds(ctx context.Context) ([]quantumwatch.Feed, error) {
	const q = "SELECT * FROM feeds ORDER BY created_at ASC;"

	feeds := []quantumwatch.Feed{}
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting all feeds: %s", err)
	}

	return feeds, nil
}

func (r Repo) ActiveFeeds(ctx context.Context) ([]quantumwatch.Feed, error) {
	const q = "SELECT * FROM feeds WHERE active = 1 ORDER BY created_at ASC;"

	feeds := []quantumwatch.Feed{}
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting active feeds: %s", err)
	}

	return feeds, nil
}

func (r Repo) SetFeedActive(ctx context.Context, id string, active bool) error {
	return r.updateFeed(ctx, id, map[string]any{"active": active})
}

func (r Repo) TouchFeed(ctx context.Context, id string) error {
	return r.updateFeed(ctx, id, map[string]any{"last_fetched": r.now()})
}

func (r Repo) updateFeed(ctx context.Context, id string, set map[string]any) error {
	query, args, err := sq.Update("feeds").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error executing feed update: %s", err)
	}

	return expectRow(res)
}

// expectRow maps an update that touched nothing to ErrNotFound.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %s", err)
	}
	if n == 0 {
		return quantumwatch.ErrNotFound
	}

	return nil
}
