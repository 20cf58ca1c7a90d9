package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const itemNamespace = "-item"

func (r Repo) Item(ctx context.Context, id string) (quantumwatch.Item, error) {
	const q = `SELECT * FROM items WHERE id = ?;`

	var item quantumwatch.Item
	err := r.db.GetContext(ctx, &item, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return quantumwatch.Item{}, quantumwatch.ErrNotFound
	}
	if err != nil {
		return quantumwatch.Item{}, fmt.Errorf("error fetching item: %s", err)
	}

	return item, nil
}

func itemFilters(q sq.SelectBuilder, args quantumwatch.ItemsArgs) sq.SelectBuilder {
	if args.FeedID != "" {
		q = q.Where(sq.Eq{"items.feed_id": args.FeedID})
	}
	if args.Unread {
		q = q.Where(sq.Eq{"items.is_read": false})
	}
	if args.Bookmarked {
		q = q.Where(sq.Eq{"items.is_bookmarked": true})
	}

	return q
}

// Items lists items newest first along with whether they've been summarized
// and synthesized.
func (r Repo) Items(ctx context.Context, args quantumwatch.ItemsArgs) ([]quantumwatch.ItemListing, error) {
	q := sq.Select(
		"items.*",
		"EXISTS (SELECT 1 FROM summaries s WHERE s.item_id = items.id) AS has_summary",
		"EXISTS (SELECT 1 FROM podcasts p WHERE p.item_id = items.id) AS has_podcast",
	).From("items")
	q = itemFilters(q, args).OrderBy("items.published_date DESC", "items.id ASC")
	if args.Limit > 0 {
		q = q.Limit(args.Limit)
	}
	if args.Offset > 0 {
		// sqlite won't take an OFFSET without a LIMIT
		if args.Limit == 0 {
			q = q.Limit(uint64(1<<63 - 1))
		}
		q = q.Offset(args.Offset)
	}

	query, qArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	items := []quantumwatch.ItemListing{}
	if err := r.db.SelectContext(ctx, &items, query, qArgs...); err != nil {
		return nil, fmt.Errorf("error selecting items: %s", err)
	}

	return items, nil
}

func (r Repo) CountItems(ctx context.Context, args quantumwatch.ItemsArgs) (int, error) {
	query, qArgs, err := itemFilters(sq.Select("COUNT(*)").From("items"), args).ToSql()
	if err != nil {
		return 0, fmt.Errorf("error constructing sql: %s", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, qArgs...); err != nil {
		return 0, fmt.Errorf("error counting items: %s", err)
	}

	return count, nil
}

// InsertItem writes the item unless its feed already has the guid.
func (r Repo) InsertItem(ctx context.Context, item quantumwatch.Item) (bool, error) {
	const q = `INSERT INTO items (
		id,
		feed_id,
		guid,
		title,
		link,
		description,
		content,
		author,
		published_date,
		categories,
		created_at
	) VALUES (
		:id,
		:feed_id,
		:guid,
		:title,
		:link,
		:description,
		:content,
		:author,
		:published_date,
		:categories,
		:created_at
	) ON CONFLICT(feed_id, guid) DO NOTHING;`

	item.ID = newID(itemNamespace)
	item.CreatedAt = r.now()
	item.PublishedDate = item.PublishedDate.UTC()
	res, err := r.db.NamedExecContext(ctx, q, item)
	if err != nil {
		return false, fmt.Errorf("error inserting item: %s", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %s", err)
	}

	return n == 1, nil
}

func (r Repo) SetRead(ctx context.Context, id string, read bool) error {
	const q = `UPDATE items SET is_read = ? WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, read, id)
	if err != nil {
		return fmt.Errorf("error updating read status: %s", err)
	}

	return expectRow(res)
}

func (r Repo) SetBookmarked(ctx context.Context, id string, bookmarked bool) error {
	const q = `UPDATE items SET is_bookmarked = ? WHERE id = ?;`

	res, err := r.db.ExecContext(ctx, q, bookmarked, id)
	if err != nil {
		return fmt.Errorf("error updating bookmark status: %s", err)
	}

	return expectRow(res)
}

func (r Repo) ItemsWithoutSummary(ctx context.Context, limit int) ([]quantumwatch.Item, error) {
	const q = `
	SELECT
		i.*
	FROM
		items i
		LEFT JOIN summaries s ON s.item_id = i.id
	WHERE
		s.id IS NULL
	ORDER BY
		i.published_date DESC
	LIMIT ?;
	`

	items := []quantumwatch.Item{}
	if err := r.db.SelectContext(ctx, &items, q, limit); err != nil {
		return nil, fmt.Errorf("error selecting items without summary: %s", err)
	}

	return items, nil
}
