package propagate

import (
	"context"
	"strconv"
	"strings"

	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/surveyerr"
	"github.com/surveyflow/engine/internal/surveytypes"
)

// SaveAnswer persists a new textValue for an existing Answer and runs the
// full propagation cycle: delete cascade for anything that no longer
// qualifies, then (re)materialize anything that now does, in that order
// (spec §4.G, §5 ordering guarantee (a)/(b)).
func (e *Engine) SaveAnswer(ctx context.Context, respondentID int64, displayKey string, textValue *string) (*surveytypes.Answer, error) {
	answer, err := e.Answers.ByDisplayKey(ctx, respondentID, displayKey, false)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		return nil, surveyerr.ErrUnknownAnswer
	}

	answer.TextValue = textValue
	if err := e.Answers.Update(ctx, answer); err != nil {
		return nil, err
	}
	if err := e.rebuildDisplayText(ctx, respondentID, answer); err != nil {
		return nil, err
	}

	if err := e.deleteDownstreamAnswers(ctx, respondentID, answer, answer.ID); err != nil {
		return nil, err
	}
	if err := e.buildDownstreamQuestions(ctx, respondentID, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// buildDownstreamQuestions fetches every relationship whose upstream is
// answer's question, evaluates SHOW/REPEAT relationships first (in
// ascending relationship ID order), then TEXT relationships.
func (e *Engine) buildDownstreamQuestions(ctx context.Context, respondentID int64, upstream *surveytypes.Answer) error {
	if upstream.SectionQuestionID == nil {
		return nil // section/step placeholder rows are never relationship upstreams
	}

	rels := relationshipsByID(e.Snapshot.RelationshipsByUpstreamQuestion(*upstream.SectionQuestionID))

	var gating, texts []*surveytypes.Relationship
	for _, rel := range rels {
		if !matchesUpstreamStep(rel, upstream) {
			continue
		}
		switch rel.Action {
		case surveytypes.ActionShow, surveytypes.ActionRepeat:
			gating = append(gating, rel)
		case surveytypes.ActionText:
			texts = append(texts, rel)
		}
	}

	for _, rel := range gating {
		if err := e.applyGatingRelationship(ctx, respondentID, rel, upstream); err != nil {
			return err
		}
	}
	for _, rel := range texts {
		if err := e.applyTextRelationship(ctx, respondentID, rel, upstream); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) coordsFor(a *surveytypes.Answer) instanceCoords {
	return instanceCoords{stepInstance: a.StepInstance, sectionInstance: a.SectionInstance}
}

// gatingRelationshipsFor returns the SHOW/REPEAT relationships targeting
// the same downstream target as the one being evaluated, per spec's
// allRelationshipsSatisfied: every one of them must hold for the target to
// materialize.
func (e *Engine) gatingRelationshipsFor(target surveytypes.Target) []*surveytypes.Relationship {
	var all []*surveytypes.Relationship
	switch target.Level {
	case surveytypes.TargetQuestion:
		all = e.Snapshot.RelationshipsByDownstreamQuestion(target.SectionsQuestionID)
	case surveytypes.TargetSection:
		all = e.Snapshot.RelationshipsByDownstreamSection(target.StepsSectionsID)
	case surveytypes.TargetStep:
		all = e.Snapshot.RelationshipsByDownstreamStep(target.StepID)
	}
	var out []*surveytypes.Relationship
	for _, rel := range all {
		if rel.Action == surveytypes.ActionShow || rel.Action == surveytypes.ActionRepeat {
			out = append(out, rel)
		}
	}
	return out
}

// allRelationshipsSatisfied requires every gating relationship on target to
// evaluate true at coords.
func (e *Engine) allRelationshipsSatisfied(ctx context.Context, respondentID int64, target surveytypes.Target, coords instanceCoords) (bool, error) {
	for _, rel := range relationshipsByID(e.gatingRelationshipsFor(target)) {
		ok, _, err := e.evaluateRelationship(ctx, respondentID, rel, coords)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// applyGatingRelationship dispatches a single SHOW/REPEAT relationship.
// REPEAT's visibility is governed entirely by upstream's parsed count
// (repeatCount), not by allRelationshipsSatisfied's boolean operator
// evaluation, so it is handled before and separately from SHOW (spec
// §4.G). A REPEAT targeting a step is a known, unimplemented gap (spec
// §7): it is logged and skipped rather than aborting the whole save —
// surveyerr.ErrUnimplementedRepeatStep remains the sentinel other layers
// can check for, it is simply no longer propagated as a hard error here.
func (e *Engine) applyGatingRelationship(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
	if rel.Action == surveytypes.ActionRepeat {
		switch rel.Downstream.Level {
		case surveytypes.TargetQuestion:
			return e.repeatQuestion(ctx, respondentID, rel, upstream)
		case surveytypes.TargetSection:
			return e.repeatSection(ctx, respondentID, rel, upstream)
		case surveytypes.TargetStep:
			e.log().Warn("relationship skipped: "+surveyerr.ErrUnimplementedRepeatStep.Error(), "relationship_id", rel.ID)
			return nil
		}
		return nil
	}

	coords := e.coordsFor(upstream)
	satisfied, err := e.allRelationshipsSatisfied(ctx, respondentID, rel.Downstream, coords)
	if err != nil {
		return err
	}
	if !satisfied {
		return nil // deletion pass already removed any stale materialization
	}

	switch rel.Downstream.Level {
	case surveytypes.TargetQuestion:
		return e.showQuestion(ctx, respondentID, rel, upstream)
	case surveytypes.TargetSection:
		return e.showSection(ctx, respondentID, rel, upstream)
	case surveytypes.TargetStep:
		return e.showStep(ctx, respondentID, rel, upstream)
	}
	return nil
}

// targetCoords resolves the (stepID, stepInstance, sectionInstance)
// a downstream question/section in targetSectionID should materialize at,
// relative to upstream. A target in upstream's own section/step inherits
// upstream's instance (the same-section REPEAT/SHOW case); a target
// elsewhere in the survey defaults to instance 1 (it has no instance
// history of its own to inherit).
func (e *Engine) targetCoords(upstream *surveytypes.Answer, targetSectionID int64) (stepID int64, stepInstance uint16, sectionInstance uint16, ok bool) {
	ss, found := e.Snapshot.StepsSectionsFor(upstream.StepID, targetSectionID)
	if found {
		return upstream.StepID, upstream.StepInstance, upstream.SectionInstance, true
	}
	for _, candidate := range e.Snapshot.StepsSectionsForSection(targetSectionID) {
		ss = candidate
		found = true
		break
	}
	if !found {
		return 0, 0, 0, false
	}
	stepInstance = uint16(1)
	if ss.StepID == upstream.StepID {
		stepInstance = upstream.StepInstance
	}
	return ss.StepID, stepInstance, 1, true
}

// showQuestion materializes rel's downstream question at its own section,
// using upstream's instance when the target shares upstream's section/step,
// or instance 1 otherwise.
func (e *Engine) showQuestion(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
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
	if _, err := e.ensureSectionAnswer(ctx, respondentID, sectionKey, ""); err != nil {
		return err
	}
	return e.ensureQuestionAnswer(ctx, respondentID, upstream, stepID, sq, sectionKey, 1)
}

// showSection materializes rel's downstream section, scoped to the same
// step instance as upstream, and builds its initial answers.
func (e *Engine) showSection(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
	ss, ok := e.Snapshot.StepsSections(rel.Downstream.StepsSectionsID)
	if !ok {
		return nil
	}
	return e.buildInitialAnswersForSection(ctx, respondentID, upstream.DisplayKey.Field(displaykey.Survey), ss.StepID, upstream.StepInstance, ss.SectionID, 1)
}

// showStep materializes rel's downstream step at a step instance keyed to
// upstream's own question instance, then its initial sections.
func (e *Engine) showStep(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
	stepInstance := upstream.QuestionInstance
	if stepInstance == 0 {
		stepInstance = 1
	}
	return e.buildInitialAnswersForStep(ctx, respondentID, upstream.DisplayKey.Field(displaykey.Survey), rel.Downstream.StepID, stepInstance)
}

// repeatCount parses upstream's textValue as the number of instances a
// REPEAT relationship should materialize (spec §4.G: upstream.textValue is
// parsed as an integer N, and instances 1..N of the downstream
// question/section are created/revived). A nil, blank, or non-numeric
// value repeats zero times.
func repeatCount(upstream *surveytypes.Answer) uint16 {
	if upstream.TextValue == nil {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(*upstream.TextValue), 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

// repeatQuestion materializes instances 1..N of rel's downstream question
// within upstream's own section, where N is upstream's parsed count (spec
// Scenario 3: setting "family members" to 3 materializes three Family
// Member sections/questions).
func (e *Engine) repeatQuestion(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
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
	for instance := uint16(1); instance <= repeatCount(upstream); instance++ {
		if err := e.ensureQuestionAnswer(ctx, respondentID, upstream, stepID, sq, sectionKey, instance); err != nil {
			return err
		}
	}
	return nil
}

// repeatSection materializes instances 1..N of rel's downstream section,
// building each instance's own initial answers, where N is upstream's
// parsed count (spec Scenario 3).
func (e *Engine) repeatSection(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
	ss, ok := e.Snapshot.StepsSections(rel.Downstream.StepsSectionsID)
	if !ok {
		return nil
	}
	for instance := uint16(1); instance <= repeatCount(upstream); instance++ {
		if err := e.buildInitialAnswersForSection(ctx, respondentID, upstream.DisplayKey.Field(displaykey.Survey), ss.StepID, upstream.StepInstance, ss.SectionID, instance); err != nil {
			return err
		}
	}
	return nil
}

// ensureQuestionAnswer creates (or revives) the question-level Answer for
// sq at the given questionInstance within sectionKey, recursing into
// buildDownstreamQuestions if it carries a textValue or is HTML.
func (e *Engine) ensureQuestionAnswer(ctx context.Context, respondentID int64, upstream *surveytypes.Answer, stepID int64, sq *surveytypes.SectionsQuestion, sectionKey displaykey.Key, questionInstance uint16) error {
	q, ok := e.Snapshot.Question(sq.QuestionID)
	if !ok {
		return nil
	}
	qKey := sectionKey.WithField(displaykey.Question, uint16(sq.DisplayOrder)).WithField(displaykey.QuestionInstance, questionInstance)

	existing, err := e.Answers.ByDisplayKey(ctx, respondentID, qKey.String(), true)
	if err != nil {
		return err
	}
	var a *surveytypes.Answer
	if existing != nil {
		if existing.Deleted {
			existing.Deleted = false
			if err := e.Answers.Update(ctx, existing); err != nil {
				return err
			}
		}
		a = existing
	} else {
		a = &surveytypes.Answer{
			RespondentID:     respondentID,
			SurveyID:         upstream.SurveyID,
			StepID:           stepID,
			SectionID:        sq.SectionID,
			StepInstance:     sectionKey.Field(displaykey.StepInstance),
			SectionInstance:  sectionKey.Field(displaykey.SectionInstance),
			QuestionInstance: questionInstance,
			SectionQuestionID: &sq.ID,
			QuestionID:        &q.ID,
			DisplayKey:        qKey,
		}
		if q.DefaultValue != "" {
			dv := q.DefaultValue
			a.TextValue = &dv
		}
		if _, err := e.Answers.Insert(ctx, a); err != nil {
			return err
		}
	}
	if err := e.rebuildDisplayText(ctx, respondentID, a); err != nil {
		return err
	}
	if q.Type == surveytypes.TypeHTML || a.TextValue != nil {
		return e.buildDownstreamQuestions(ctx, respondentID, a)
	}
	return nil
}

// applyTextRelationship resolves rel's downstream (one question, or every
// row of a downstream section) and records/updates a Dependent linking
// upstream's token value to it, then rebuilds its display text regardless
// of whether the operator held (spec Scenario 5: a false TEXT condition
// still re-renders, reverting to default).
func (e *Engine) applyTextRelationship(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, upstream *surveytypes.Answer) error {
	coords := e.coordsFor(upstream)
	satisfied, _, err := e.evaluateRelationship(ctx, respondentID, rel, coords)
	if err != nil {
		return err
	}

	var targets []*surveytypes.Answer
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
		qKey := sectionKey.WithField(displaykey.Question, uint16(sq.DisplayOrder)).WithField(displaykey.QuestionInstance, 1)
		a, err := e.Answers.ByDisplayKey(ctx, respondentID, qKey.String(), false)
		if err != nil {
			return err
		}
		if a != nil {
			targets = append(targets, a)
		}
	case surveytypes.TargetSection:
		a, err := e.Answers.DownstreamAnswersForRelationship(ctx, respondentID, rel.ID)
		if err != nil {
			return err
		}
		targets = a
	}

	for _, downstream := range targets {
		if satisfied {
			if err := e.upsertDependent(ctx, respondentID, upstream.ID, downstream.ID, rel.ID); err != nil {
				return err
			}
		}
		if err := e.rebuildDisplayText(ctx, respondentID, downstream); err != nil {
			return err
		}
	}
	return nil
}

// upsertDependent records (or revives) the edge (upstream, downstream, rel)
// for respondentID, never duplicating an existing non-deleted row.
func (e *Engine) upsertDependent(ctx context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) error {
	existing, err := e.Dependents.FindUnique(ctx, respondentID, upstreamID, downstreamID, relationshipID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Deleted {
			return e.Dependents.Revive(ctx, respondentID, existing.ID)
		}
		return nil
	}
	_, err = e.Dependents.Insert(ctx, &surveytypes.Dependent{
		RespondentID: respondentID, UpstreamID: upstreamID, DownstreamID: downstreamID, RelationshipID: relationshipID,
	})
	return err
}
