// Package dependentstore defines the Dependent Store (spec §4.D): the
// persisted edge set recording that a downstream Answer exists (or had its
// display text influenced) because an upstream Answer satisfied a
// Relationship. internal/storage/sqlstore provides the backing
// implementation.
package dependentstore

import (
	"context"

	"github.com/surveyflow/engine/internal/surveytypes"
)

// Store is the Dependent Store boundary. Like answerstore.Store, every
// method runs against whatever transaction ctx carries.
type Store interface {
	ByUpstream(ctx context.Context, respondentID, upstreamID int64) ([]*surveytypes.Dependent, error)
	ByDownstream(ctx context.Context, respondentID, downstreamID int64) ([]*surveytypes.Dependent, error)

	// FindUnique returns the single edge matching (upstream, downstream,
	// relationship) for respondentID, or nil if no such edge exists.
	FindUnique(ctx context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) (*surveytypes.Dependent, error)

	Insert(ctx context.Context, d *surveytypes.Dependent) (int64, error)
	SoftDelete(ctx context.Context, respondentID, dependentID int64) error

	// Revive clears the deleted flag on an edge found via FindUnique.
	Revive(ctx context.Context, respondentID, dependentID int64) error

	// HardDeleteWhereDeleted permanently removes every soft-deleted edge for
	// respondentID and returns the count removed.
	HardDeleteWhereDeleted(ctx context.Context, respondentID int64) (int, error)
}
