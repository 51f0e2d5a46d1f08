// Package propagate implements the Propagation Engine (spec §4.G): the
// center of the system, composing the Definition Store, Answer Store,
// Dependent Store, Operator Evaluator, and Template Expander to turn one
// saved answer into the full set of downstream Answer/Dependent changes.
//
// Answer/Dependent traversal here is recursive: buildDownstreamQuestions and
// ensureQuestionAnswer call each other as new answers materialize, and
// deleteAnswer and deleteDownstreamAnswers do the same when a cascade
// unwinds. Stack depth therefore grows with the length of a survey's
// dependency chain; no explicit worklist bounds it.
package propagate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/surveyflow/engine/internal/answerstore"
	"github.com/surveyflow/engine/internal/defstore"
	"github.com/surveyflow/engine/internal/dependentstore"
	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/operator"
	"github.com/surveyflow/engine/internal/surveyerr"
	"github.com/surveyflow/engine/internal/surveytypes"
	"github.com/surveyflow/engine/internal/template"
)

// Engine composes the definition snapshot with the Answer/Dependent stores
// to drive initial materialization, saves, and cascading deletes. One
// Engine serves every respondent of the survey it was built for; it holds
// no per-respondent state (see internal/survey for the per-respondent
// mutex and transaction wrapping).
type Engine struct {
	Snapshot   *defstore.Snapshot
	Answers    answerstore.Store
	Dependents dependentstore.Store

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time

	// Log receives warnings for relationships that are skipped rather than
	// applied (e.g. a REPEAT targeting a step). Defaults to slog.Default().
	Log *slog.Logger
}

// New builds a propagation Engine over a loaded definition snapshot and
// its storage backends.
func New(snap *defstore.Snapshot, answers answerstore.Store, dependents dependentstore.Store) *Engine {
	return &Engine{Snapshot: snap, Answers: answers, Dependents: dependents, Now: time.Now, Log: slog.Default()}
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Init performs the initial materialization for a respondent entering the
// survey at initialKey's step (spec §4.G "Initial materialization").
// Idempotent: sections/questions already materialized are left untouched.
func (e *Engine) Init(ctx context.Context, respondentID int64, initialKey displaykey.Key) error {
	stepID, ok := e.stepIDForDisplayOrder(initialKey.Field(displaykey.Step))
	if !ok {
		return surveyerr.Wrapf(surveyerr.ErrMalformedKey, "propagate.Init: no step at display order %d", initialKey.Field(displaykey.Step))
	}
	return e.buildInitialAnswersForStep(ctx, respondentID, initialKey.Field(displaykey.Survey), stepID, initialKey.Field(displaykey.StepInstance))
}

// MaterializeSection guarantees sectionKey's section, and its initial
// ungated questions, exist for respondentID — spec §2's "a read (navigate)
// calls [the Propagation Engine] to guarantee materialization of initial
// answers for that section" and §4.I's navigate entry triggering initial
// materialization of the entered section. Unlike Init it does not require
// the respondent to have reached sectionKey through a prior Init call.
func (e *Engine) MaterializeSection(ctx context.Context, respondentID int64, sectionKey displaykey.Key) error {
	stepID, ok := e.stepIDForDisplayOrder(sectionKey.Field(displaykey.Step))
	if !ok {
		return surveyerr.Wrapf(surveyerr.ErrMalformedKey, "propagate.MaterializeSection: no step at display order %d", sectionKey.Field(displaykey.Step))
	}
	sectionID, ok := e.sectionIDForDisplayOrder(stepID, sectionKey.Field(displaykey.Section))
	if !ok {
		return surveyerr.Wrapf(surveyerr.ErrMalformedKey, "propagate.MaterializeSection: no section at display order %d", sectionKey.Field(displaykey.Section))
	}
	stepInstance := sectionKey.Field(displaykey.StepInstance)
	if stepInstance == 0 {
		stepInstance = 1
	}
	sectionInstance := sectionKey.Field(displaykey.SectionInstance)
	if sectionInstance == 0 {
		sectionInstance = 1
	}
	return e.buildInitialAnswersForSection(ctx, respondentID, sectionKey.Field(displaykey.Survey), stepID, stepInstance, sectionID, sectionInstance)
}

// stepIDForDisplayOrder resolves a step's authored ID from its display
// order, the only form a DisplayKey carries.
func (e *Engine) stepIDForDisplayOrder(displayOrder uint16) (int64, bool) {
	for _, st := range e.Snapshot.Steps() {
		if uint16(st.DisplayOrder) == displayOrder {
			return st.ID, true
		}
	}
	return 0, false
}

// sectionIDForDisplayOrder resolves a section's authored ID from the
// Section field carried by one of its steps_section rows' own canonical
// DisplayKey, the same field e.sectionKey fills in by copying that row's
// DisplayKey wholesale.
func (e *Engine) sectionIDForDisplayOrder(stepID int64, sectionField uint16) (int64, bool) {
	for _, ss := range e.Snapshot.StepsSectionsForStep(stepID) {
		if ss.DisplayKey.Field(displaykey.Section) == sectionField {
			return ss.SectionID, true
		}
	}
	return 0, false
}

// buildInitialAnswersForStep materializes every initial section/question of
// one step instance. A child section that a SHOW/REPEAT relationship
// targets as a whole is skipped entirely — not even its placeholder is
// created — until that relationship fires and calls buildInitialAnswersForSection
// directly (spec §4.B's container-level gating).
func (e *Engine) buildInitialAnswersForStep(ctx context.Context, respondentID int64, surveyField uint16, stepID int64, stepInstance uint16) error {
	for _, ss := range e.Snapshot.StepsSectionsForStep(stepID) {
		if e.Snapshot.SectionIsGated(ss.ID) {
			continue
		}
		if err := e.buildInitialAnswersForSection(ctx, respondentID, surveyField, stepID, stepInstance, ss.SectionID, 1); err != nil {
			return err
		}
	}
	return nil
}

// buildInitialAnswersForSection writes the section-level placeholder
// Answer (if absent) and then every ungated question within it, recursing
// into buildDownstreamQuestions for any question that already carries a
// textValue (its default) or is HTML (always "present").
func (e *Engine) buildInitialAnswersForSection(ctx context.Context, respondentID int64, surveyField uint16, stepID int64, stepInstance uint16, sectionID int64, sectionInstance uint16) error {
	sectionKey, err := e.sectionKey(surveyField, stepID, stepInstance, sectionID, sectionInstance)
	if err != nil {
		return err
	}

	section, _ := e.Snapshot.Section(sectionID)
	if _, err := e.ensureSectionAnswer(ctx, respondentID, sectionKey, section.Name); err != nil {
		return err
	}

	for _, sq := range e.Snapshot.InitialCandidatesForSection(sectionID, stepID) {
		answered, err := e.alreadyAnswered(ctx, respondentID, sectionKey, sq)
		if err != nil {
			return err
		}
		if answered {
			continue
		}
		q, _ := e.Snapshot.Question(sq.QuestionID)
		qKey := sectionKey.WithField(displaykey.Question, uint16(sq.DisplayOrder)).WithField(displaykey.QuestionInstance, 1)

		a := &surveytypes.Answer{
			RespondentID: respondentID, SurveyID: int64(surveyField),
			StepID: stepID, StepInstance: stepInstance,
			SectionID: sectionID, SectionInstance: sectionInstance,
			QuestionInstance:  1,
			SectionQuestionID: &sq.ID, QuestionID: &q.ID,
			DisplayKey: qKey,
		}
		if q.DefaultValue != "" {
			dv := q.DefaultValue
			a.TextValue = &dv
		}
		if _, err := e.Answers.Insert(ctx, a); err != nil {
			return err
		}
		if err := e.rebuildDisplayText(ctx, respondentID, a); err != nil {
			return err
		}
		if q.Type == surveytypes.TypeHTML || a.TextValue != nil {
			if err := e.buildDownstreamQuestions(ctx, respondentID, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// alreadyAnswered reports whether sq already has a non-deleted Answer at
// sectionKey — the respondent-aware half of spec §4.B's initial-candidate
// query that internal/defstore deliberately does not perform itself (see
// DESIGN.md's Definition Store respondent-awareness decision).
func (e *Engine) alreadyAnswered(ctx context.Context, respondentID int64, sectionKey displaykey.Key, sq *surveytypes.SectionsQuestion) (bool, error) {
	qKey := sectionKey.WithField(displaykey.Question, uint16(sq.DisplayOrder)).WithField(displaykey.QuestionInstance, 1)
	existing, err := e.Answers.ByDisplayKey(ctx, respondentID, qKey.String(), false)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// ensureSectionAnswer creates the section-level placeholder Answer
// (questionID == nil) at sectionKey if it doesn't already exist, or revives
// it if it was soft-deleted.
func (e *Engine) ensureSectionAnswer(ctx context.Context, respondentID int64, sectionKey displaykey.Key, displayText string) (*surveytypes.Answer, error) {
	existing, err := e.Answers.ByDisplayKey(ctx, respondentID, sectionKey.String(), true)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Deleted {
			existing.Deleted = false
			if err := e.Answers.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	a := &surveytypes.Answer{
		RespondentID: respondentID, SurveyID: int64(sectionKey.Field(displaykey.Survey)),
		StepID:           0, // resolved by caller context; DisplayKey is authoritative
		StepInstance:     sectionKey.Field(displaykey.StepInstance),
		SectionInstance:  sectionKey.Field(displaykey.SectionInstance),
		QuestionInstance: 0,
		DisplayKey:       sectionKey,
		DisplayText:      displayText,
	}
	if _, err := e.Answers.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// sectionKey resolves a (step,section) pair's canonical DisplayKey from the
// snapshot and overrides its instance fields.
func (e *Engine) sectionKey(surveyField uint16, stepID int64, stepInstance uint16, sectionID int64, sectionInstance uint16) (displaykey.Key, error) {
	ss, ok := e.Snapshot.StepsSectionsFor(stepID, sectionID)
	if !ok {
		return displaykey.Key{}, fmt.Errorf("propagate: no steps_section for step %d section %d", stepID, sectionID)
	}
	key := ss.DisplayKey
	key = key.WithField(displaykey.Survey, surveyField)
	key = key.WithField(displaykey.StepInstance, stepInstance)
	key = key.WithField(displaykey.SectionInstance, sectionInstance)
	key = key.Clear(displaykey.Question)
	key = key.Clear(displaykey.QuestionInstance)
	return key, nil
}

// stepKey resolves a step's canonical DisplayKey with a given step instance
// and everything below it cleared.
func (e *Engine) stepKey(surveyField uint16, stepID int64, stepInstance uint16) displaykey.Key {
	st, _ := e.Snapshot.Step(stepID)
	return displaykey.New(surveyField, uint16(st.DisplayOrder), stepInstance, 0, 0, 0, 0)
}

// relationshipsByID returns rels sorted by ascending ID — spec §5's
// deterministic iteration-order guarantee.
func relationshipsByID(rels []*surveytypes.Relationship) []*surveytypes.Relationship {
	out := make([]*surveytypes.Relationship, len(rels))
	copy(out, rels)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// matchesUpstreamStep reports whether rel's optional step-instance scoping
// matches upstream's step.
func matchesUpstreamStep(rel *surveytypes.Relationship, upstream *surveytypes.Answer) bool {
	if rel.UpstreamStepID == nil {
		return true
	}
	return *rel.UpstreamStepID == upstream.StepID
}

// evaluateRelationship fetches rel's own upstream answer at the current
// instance coordinates and evaluates rel's operator against it. The
// upstream answer is resolved by rel.UpstreamQuestionID (a SectionsQuestion
// ID) plus the instance coordinates alone — a relationship's upstream
// question belongs to exactly one section, so neither the relationship ID
// nor the raw step/section ID add any selectivity the SectionsQuestion ID
// doesn't already carry, and including them invites a store implementation
// to key on the wrong thing for a section with more than one question.
func (e *Engine) evaluateRelationship(ctx context.Context, respondentID int64, rel *surveytypes.Relationship, coords instanceCoords) (bool, *surveytypes.Answer, error) {
	sq, ok := e.Snapshot.SectionsQuestion(rel.UpstreamQuestionID)
	if !ok {
		return false, nil, nil
	}
	up, err := e.Answers.UpstreamAnswerForRelationship(ctx, sq.ID, respondentID, coords.stepInstance, coords.sectionInstance)
	if err != nil {
		return false, nil, err
	}
	if up == nil {
		return false, nil, nil
	}
	q, _ := e.Snapshot.Question(sq.QuestionID)
	var qType surveytypes.QuestionType
	if q != nil {
		qType = q.Type
	}
	return operator.Evaluate(rel, up, qType), up, nil
}

// instanceCoords pins down which step/section instance an upstream answer
// must be fetched at when re-evaluating a relationship's own condition.
type instanceCoords struct {
	stepInstance, sectionInstance uint16
}
