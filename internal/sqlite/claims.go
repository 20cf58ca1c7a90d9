package sqlite

import (
	"context"
	"fmt"
	"time"
)

// Claim takes (kind, id) until ttl elapses. An expired claim is taken over.
func (r Repo) Claim(ctx context.Context, kind, id string, ttl time.Duration) (bool, error) {
	const q = `INSERT INTO claims (kind, entity_id, expires_at) VALUES (?, ?, ?)
	ON CONFLICT(kind, entity_id) DO UPDATE SET expires_at = excluded.expires_at
	WHERE claims.expires_at <= ?;`

	now := r.now()
	res, err := r.db.ExecContext(ctx, q, kind, id, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("error claiming %s %s: %s", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %s", err)
	}

	return n == 1, nil
}

func (r Repo) Release(ctx context.Context, kind, id string) error {
	const q = `DELETE FROM claims WHERE kind = ? AND entity_id = ?;`

	if _, err := r.db.ExecContext(ctx, q, kind, id); err != nil {
		return fmt.Errorf("error releasing %s %s: %s", kind, id, err)
	}

	return nil
}
