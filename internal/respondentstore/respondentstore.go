// Package respondentstore defines the narrow Respondent read/finalize
// boundary the Public Façade needs. Respondent creation is out of scope
// (spec.md's Lifecycle paragraph: an external token/registration
// collaborator owns it) — this package only reads a Respondent and stamps
// finalization.
package respondentstore

import (
	"context"

	"github.com/surveyflow/engine/internal/surveytypes"
)

// Store is the Respondent boundary internal/survey depends on.
type Store interface {
	// ByID returns the respondent, or nil if no such row exists.
	ByID(ctx context.Context, id int64) (*surveytypes.Respondent, error)

	// MarkFinalized sets active=false and stamps finalizedAt if it is not
	// already set (spec Scenario 6: finalize is idempotent).
	MarkFinalized(ctx context.Context, id int64) error
}
