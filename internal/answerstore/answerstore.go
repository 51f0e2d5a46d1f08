// Package answerstore defines the Answer Store (spec §4.C): the persistence
// boundary for respondent answers, keyed by DisplayKey, with soft-delete
// and the wildcard queries that DisplayKey's dash-form patterns make
// possible. The interface is storage-agnostic; internal/storage/sqlstore
// provides the concrete Dolt-backed implementation.
package answerstore

import (
	"context"

	"github.com/surveyflow/engine/internal/surveytypes"
)

// Store is the Answer Store boundary the Propagation Engine and Public
// Façade depend on. Every method runs against whatever transaction ctx
// carries (see internal/storage/sqlstore.WithTx) — callers never manage
// connections directly.
type Store interface {
	// ByID returns the answer with the given ID, or nil if absent
	// (regardless of its deleted flag — callers that care check it).
	ByID(ctx context.Context, respondentID, answerID int64) (*surveytypes.Answer, error)

	// ByDisplayKey returns the answer at key for respondentID. If
	// includeDeleted is false, a soft-deleted row is treated as absent.
	ByDisplayKey(ctx context.Context, respondentID int64, key string, includeDeleted bool) (*surveytypes.Answer, error)

	// BySection returns the non-deleted answers for one section instance,
	// ordered by DisplayKey.
	BySection(ctx context.Context, respondentID, surveyID, stepID int64, stepInstance uint16, sectionID int64, sectionInstance uint16) ([]*surveytypes.Answer, error)

	// ByLikePattern returns every non-deleted answer whose DisplayKey
	// matches likePattern (one of Key.StepQueryPattern/SectionQueryPattern/
	// AnswerQueryPattern), ordered by DisplayKey.
	ByLikePattern(ctx context.Context, respondentID int64, likePattern string) ([]*surveytypes.Answer, error)

	// BySectionInstances is ByLikePattern restricted to section-level rows
	// (questionID is null) — used to enumerate existing section instances
	// before deciding whether REPEAT needs to create another one.
	BySectionInstances(ctx context.Context, respondentID int64, sectionQueryPattern string) ([]*surveytypes.Answer, error)

	// DownstreamAnswersForRelationship returns every answer addressed by
	// relationshipID's downstream target, across all instances, joined
	// through StepsSections to resolve the target's DisplayKey prefix.
	DownstreamAnswersForRelationship(ctx context.Context, respondentID, relationshipID int64) ([]*surveytypes.Answer, error)

	// UpstreamAnswerForRelationship returns the single answer feeding a
	// relationship's upstream question — identified by sectionQuestionID,
	// the SectionsQuestion join row id, which pins down the question
	// uniquely without needing the relationship itself — at the given
	// instance coordinates, or nil if it has not been answered yet.
	UpstreamAnswerForRelationship(ctx context.Context, sectionQuestionID, respondentID int64, stepInstance, sectionInstance uint16) (*surveytypes.Answer, error)

	Insert(ctx context.Context, a *surveytypes.Answer) (int64, error)
	Update(ctx context.Context, a *surveytypes.Answer) error
	SoftDelete(ctx context.Context, respondentID, answerID int64) error

	// HardDeleteWhereDeleted permanently removes every soft-deleted answer
	// for respondentID and returns the count removed (spec §6 removeDeleted).
	HardDeleteWhereDeleted(ctx context.Context, respondentID int64) (int, error)
}
