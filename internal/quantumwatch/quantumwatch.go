// Package quantumwatch holds the domain types shared by the stores, the pipeline
// stages and the HTTP surface.
package quantumwatch

import (
	"errors"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")

	// ErrNoContent is returned when an item has nothing that can be summarized.
	ErrNoContent = errors.New("item has no content")
	// ErrUnconfigured is returned when a collaborator is missing its credentials.
	ErrUnconfigured = errors.New("collaborator is not configured")
	// ErrInFlight is returned when another runner currently holds the work.
	ErrInFlight = errors.New("work already in flight")
	// ErrUpstream marks failures of an external collaborator.
	ErrUpstream = errors.New("upstream collaborator failed")
)

// Repository is everything the pipeline and the api need from the store.
type Repository interface {
	FeedRepo
	ItemRepo
	SummaryRepo
	PodcastRepo
	DispatchRepo
	ClaimRepo
}
