package propagate

import (
	"context"

	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/surveytypes"
)

// deleteDownstreamAnswers walks every relationship whose upstream is
// upstream's question and, for whichever no longer holds, removes what it
// had materialized. The walk recurses through deleteAnswer, so stack depth
// grows with the length of the dependency chain being removed. Only at the
// root (upstream.ID == rootID) are SHOW conditions re-evaluated and REPEAT
// counts honoured; below it every target is removed.
func (e *Engine) deleteDownstreamAnswers(ctx context.Context, respondentID int64, upstream *surveytypes.Answer, rootID int64) error {
	if upstream.SectionQuestionID == nil {
		return nil
	}

	rels := relationshipsByID(e.Snapshot.RelationshipsByUpstreamQuestion(*upstream.SectionQuestionID))
	coords := e.coordsFor(upstream)

	for _, rel := range rels {
		if !matchesUpstreamStep(rel, upstream) {
			continue
		}
		switch rel.Action {
		case surveytypes.ActionShow:
			satisfied := false
			if upstream.ID == rootID {
				held, err := e.allRelationshipsSatisfied(ctx, respondentID, rel.Downstream, coords)
				if err != nil {
					return err
				}
				satisfied = held
			}
			if !satisfied {
				if err := e.deleteGatingTarget(ctx, respondentID, rel, upstream, rootID); err != nil {
					return err
				}
			}
		case surveytypes.ActionRepeat:
			// REPEAT's count comes straight from upstream.textValue, not a
			// boolean operator evaluation — trimming always runs, and an
			// N of zero (a nil/cleared/unparsable upstream, or any upstream
			// below the root) removes every existing instance.
			n := uint16(0)
			if upstream.ID == rootID {
				n = repeatCount(upstream)
			}
			if err := e.trimRepeatedInstances(ctx, respondentID, rel, upstream, n); err != nil {
				return err
			}
		case surveytypes.ActionText:
			if err := e.clearTextDependent(ctx, respondentID, rel, upstream); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteGatingTarget removes everything a no-longer-satisfied SHOW/REPEAT
// relationship had materialized for its downstream target.
func (e *Engine) deleteGatingTarget(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer, rootID int64) error {
	var answers []*surveytypes.Answer
	var err error

	switch rel.Downstream.Level {
	case surveytypes.TargetQuestion:
		sq, ok := e.Snapshot.SectionsQuestion(rel.Downstream.SectionsQuestionID)
		if !ok {
			return nil
		}
		stepID, stepInstance, sectionInstance, ok := e.targetCoords(upstream, sq.SectionID)
		if !ok {
			return nil
		}
		sectionKey, kerr := e.sectionKey(upstream.DisplayKey.Field(displaykey.Survey), stepID, stepInstance, sq.SectionID, sectionInstance)
		if kerr != nil {
			return kerr
		}
		prefix := sectionKey.WithField(displaykey.Question, uint16(sq.DisplayOrder)).AnswerQueryPattern()
		answers, err = e.Answers.ByLikePattern(ctx, respondentID, prefix)
	case surveytypes.TargetSection, surveytypes.TargetStep:
		answers, err = e.Answers.DownstreamAnswersForRelationship(ctx, respondentID, rel.ID)
	}
	if err != nil {
		return err
	}
	for _, a := range answers {
		if err := e.deleteAnswer(ctx, respondentID, a, rootID); err != nil {
			return err
		}
	}
	return nil
}

// trimRepeatedInstances removes every instance of a REPEAT relationship's
// downstream above n (spec Scenario 3: decreasing "family members" from 3
// to 1 deletes instances 2 and 3).
func (e *Engine) trimRepeatedInstances(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer, n uint16) error {
	switch rel.Downstream.Level {
	case surveytypes.TargetQuestion:
		sq, ok := e.Snapshot.SectionsQuestion(rel.Downstream.SectionsQuestionID)
		if !ok {
			return nil
		}
		stepID, stepInstance, sectionInstance, ok := e.targetCoords(upstream, sq.SectionID)
		if !ok {
			return nil
		}
		sectionKey, err := e.sectionKey(upstream.DisplayKey.Field(displaykey.Survey), stepID, stepInstance, sq.SectionID, sectionInstance)
		if err != nil {
			return err
		}
		return e.trimInstancesAbove(ctx, respondentID, n, func(instance uint16) string {
			return sectionKey.WithField(displaykey.Question, uint16(sq.DisplayOrder)).WithField(displaykey.QuestionInstance, instance).String()
		})
	case surveytypes.TargetSection:
		ss, ok := e.Snapshot.StepsSections(rel.Downstream.StepsSectionsID)
		if !ok {
			return nil
		}
		base := ss.DisplayKey.
			WithField(displaykey.Survey, upstream.DisplayKey.Field(displaykey.Survey)).
			WithField(displaykey.StepInstance, upstream.StepInstance).
			Clear(displaykey.Question).Clear(displaykey.QuestionInstance)
		return e.trimInstancesAbove(ctx, respondentID, n, func(instance uint16) string {
			return base.WithField(displaykey.SectionInstance, instance).String()
		})
	}
	return nil
}

// trimInstancesAbove deletes every existing, non-deleted instance strictly
// above n in ascending order, stopping at the first missing instance.
// Instances are always created contiguously starting at 1, so a gap means
// nothing higher can exist either.
func (e *Engine) trimInstancesAbove(ctx context.Context, respondentID int64, n uint16, keyFor func(instance uint16) string) error {
	instance := n
	for instance < 65535 {
		instance++
		next, err := e.Answers.ByDisplayKey(ctx, respondentID, keyFor(instance), false)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		if err := e.deleteAnswer(ctx, respondentID, next, next.ID); err != nil {
			return err
		}
	}
	return nil
}

// clearTextDependent soft-deletes the Dependent edge a no-longer-satisfied
// TEXT relationship had recorded and recomputes the downstream answer's
// display text back to its un-substituted form. The downstream Answer
// itself is never deleted by a TEXT relationship.
func (e *Engine) clearTextDependent(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
	deps, err := e.Dependents.ByUpstream(ctx, respondentID, upstream.ID)
	if err != nil {
		return err
	}
	for _, d := range deps {
		if d.RelationshipID != rel.ID {
			continue
		}
		if err := e.Dependents.SoftDelete(ctx, respondentID, d.ID); err != nil {
			return err
		}
		downstream, err := e.Answers.ByID(ctx, respondentID, d.DownstreamID)
		if err != nil {
			return err
		}
		if downstream != nil {
			if err := e.rebuildDisplayText(ctx, respondentID, downstream); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteAnswer recursively deletes everything downstream of answer, then
// answer itself and its Dependent edges. rootID is the Answer whose save
// triggered this cascade; a SHOW/EXISTS target for a different relationship
// than the one being unwound is still deleted unconditionally once we are
// no longer at the root: every reachable node in a removed subtree goes
// regardless of why it was first materialized.
func (e *Engine) deleteAnswer(ctx context.Context, respondentID int64, answer *surveytypes.Answer, rootID int64) error {
	if answer.Deleted {
		return nil
	}
	if err := e.deleteDownstreamAnswers(ctx, respondentID, answer, rootID); err != nil {
		return err
	}

	if answer.DisplayKey.IsSectionLevel() || answer.DisplayKey.IsStepLevel() {
		// Children share the row's key up to and including its own instance
		// field: the first three "dddd-" groups (15 characters) of a step
		// row, five (25 characters) of a section row.
		keyText := answer.DisplayKey.String()
		prefix := keyText[:25] + "%"
		if answer.DisplayKey.IsStepLevel() {
			prefix = keyText[:15] + "%"
		}
		children, err := e.Answers.ByLikePattern(ctx, respondentID, prefix)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.ID == answer.ID {
				continue
			}
			if err := e.deleteAnswer(ctx, respondentID, child, rootID); err != nil {
				return err
			}
		}
	}

	if err := e.Answers.SoftDelete(ctx, respondentID, answer.ID); err != nil {
		return err
	}
	return e.softDeleteDependentsFor(ctx, respondentID, answer.ID)
}

func (e *Engine) softDeleteDependentsFor(ctx context.Context, respondentID, answerID int64) error {
	asUpstream, err := e.Dependents.ByUpstream(ctx, respondentID, answerID)
	if err != nil {
		return err
	}
	for _, d := range asUpstream {
		if err := e.Dependents.SoftDelete(ctx, respondentID, d.ID); err != nil {
			return err
		}
	}
	asDownstream, err := e.Dependents.ByDownstream(ctx, respondentID, answerID)
	if err != nil {
		return err
	}
	for _, d := range asDownstream {
		if err := e.Dependents.SoftDelete(ctx, respondentID, d.ID); err != nil {
			return err
		}
	}
	return nil
}
