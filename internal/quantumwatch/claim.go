package quantumwatch

import (
	"context"
	"time"
)

// ClaimRepo guards a unit of work while a runner calls out to a collaborator.
type ClaimRepo interface {
	// Claim takes the (kind, id) pair for ttl. Reports false when someone else
	// holds an unexpired claim.
	Claim(ctx context.Context, kind, id string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, kind, id string) error
}
