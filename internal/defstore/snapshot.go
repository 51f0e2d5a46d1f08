// Package defstore implements the Definition Store (spec §4.B): the
// read-only, process-wide snapshot of one survey's structure — steps,
// sections, questions, select groups, and relationships. A Snapshot is
// built once at startup (see toml.go) and never mutated afterward; every
// query method is a pure lookup over data loaded at construction time.
//
// Respondent-scoped filtering (which candidate questions a specific
// respondent has already answered) is deliberately NOT done here: the
// Definition Store has no notion of a respondent or an Answer Store, per
// spec's Lifecycle paragraph ("Definitions are loaded once at startup and
// treated as immutable"). internal/propagate composes a Snapshot's
// candidate lists with the Answer Store to get the respondent-aware view
// spec §4.B's prose describes.
package defstore

import (
	"sort"

	"github.com/surveyflow/engine/internal/surveytypes"
)

// Snapshot is the immutable, in-memory survey definition. All fields are
// populated once by build (see toml.go) and read-only thereafter; it is
// safe for concurrent use by any number of goroutines.
type Snapshot struct {
	surveyID int64

	steps    map[int64]*surveytypes.Step
	sections map[int64]*surveytypes.Section

	stepsSections          map[int64]*surveytypes.StepsSections
	stepsSectionsByStep    map[int64][]*surveytypes.StepsSections
	stepsSectionsBySection map[int64][]*surveytypes.StepsSections

	questions map[int64]*surveytypes.Question

	sectionsQuestions          map[int64]*surveytypes.SectionsQuestion
	sectionsQuestionsBySection map[int64][]*surveytypes.SectionsQuestion

	selectGroups map[int64]*surveytypes.SelectGroup

	relationships map[int64]*surveytypes.Relationship

	// Indexes built by finalize().
	relationshipsByUpstreamQuestion map[int64][]*surveytypes.Relationship
	relationshipsByDownstreamQ      map[int64][]*surveytypes.Relationship
	relationshipsByDownstreamS      map[int64][]*surveytypes.Relationship
	relationshipsByDownstreamStep   map[int64][]*surveytypes.Relationship

	orderedSteps []*surveytypes.Step
}

func newSnapshot(surveyID int64) *Snapshot {
	return &Snapshot{
		surveyID:                   surveyID,
		steps:                      map[int64]*surveytypes.Step{},
		sections:                   map[int64]*surveytypes.Section{},
		stepsSections:              map[int64]*surveytypes.StepsSections{},
		stepsSectionsByStep:        map[int64][]*surveytypes.StepsSections{},
		stepsSectionsBySection:     map[int64][]*surveytypes.StepsSections{},
		questions:                  map[int64]*surveytypes.Question{},
		sectionsQuestions:          map[int64]*surveytypes.SectionsQuestion{},
		sectionsQuestionsBySection: map[int64][]*surveytypes.SectionsQuestion{},
		selectGroups:               map[int64]*surveytypes.SelectGroup{},
		relationships:              map[int64]*surveytypes.Relationship{},
	}
}

// finalize builds the secondary indexes (relationship dispatch tables,
// sorted step order) once all rows have been loaded.
func (s *Snapshot) finalize() {
	s.relationshipsByUpstreamQuestion = map[int64][]*surveytypes.Relationship{}
	s.relationshipsByDownstreamQ = map[int64][]*surveytypes.Relationship{}
	s.relationshipsByDownstreamS = map[int64][]*surveytypes.Relationship{}
	s.relationshipsByDownstreamStep = map[int64][]*surveytypes.Relationship{}

	for _, rel := range s.relationships {
		s.relationshipsByUpstreamQuestion[rel.UpstreamQuestionID] = append(
			s.relationshipsByUpstreamQuestion[rel.UpstreamQuestionID], rel)

		switch rel.Downstream.Level {
		case surveytypes.TargetQuestion:
			s.relationshipsByDownstreamQ[rel.Downstream.SectionsQuestionID] = append(
				s.relationshipsByDownstreamQ[rel.Downstream.SectionsQuestionID], rel)
		case surveytypes.TargetSection:
			s.relationshipsByDownstreamS[rel.Downstream.StepsSectionsID] = append(
				s.relationshipsByDownstreamS[rel.Downstream.StepsSectionsID], rel)
		case surveytypes.TargetStep:
			s.relationshipsByDownstreamStep[rel.Downstream.StepID] = append(
				s.relationshipsByDownstreamStep[rel.Downstream.StepID], rel)
		}
	}
	for _, index := range []map[int64][]*surveytypes.Relationship{
		s.relationshipsByUpstreamQuestion, s.relationshipsByDownstreamQ,
		s.relationshipsByDownstreamS, s.relationshipsByDownstreamStep,
	} {
		for _, list := range index {
			sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		}
	}

	for _, st := range s.steps {
		s.orderedSteps = append(s.orderedSteps, st)
	}
	sort.Slice(s.orderedSteps, func(i, j int) bool {
		return s.orderedSteps[i].DisplayOrder < s.orderedSteps[j].DisplayOrder
	})
	for _, list := range s.stepsSectionsByStep {
		sort.Slice(list, func(i, j int) bool { return list[i].SectionDisplayOrder < list[j].SectionDisplayOrder })
	}
	for _, list := range s.sectionsQuestionsBySection {
		sort.Slice(list, func(i, j int) bool { return list[i].DisplayOrder < list[j].DisplayOrder })
	}
}

// SurveyID returns the survey this snapshot describes.
func (s *Snapshot) SurveyID() int64 { return s.surveyID }

// Steps returns every step in display order.
func (s *Snapshot) Steps() []*surveytypes.Step {
	out := make([]*surveytypes.Step, len(s.orderedSteps))
	copy(out, s.orderedSteps)
	return out
}

// Step looks up a step by ID.
func (s *Snapshot) Step(id int64) (*surveytypes.Step, bool) {
	st, ok := s.steps[id]
	return st, ok
}

// Section looks up a section by ID.
func (s *Snapshot) Section(id int64) (*surveytypes.Section, bool) {
	sec, ok := s.sections[id]
	return sec, ok
}

// Question looks up a question by ID.
func (s *Snapshot) Question(id int64) (*surveytypes.Question, bool) {
	q, ok := s.questions[id]
	return q, ok
}

// SectionsQuestion looks up a SectionsQuestion join row by ID.
func (s *Snapshot) SectionsQuestion(id int64) (*surveytypes.SectionsQuestion, bool) {
	sq, ok := s.sectionsQuestions[id]
	return sq, ok
}

// QuestionForSectionsQuestion resolves the Question behind a
// SectionsQuestion join row.
func (s *Snapshot) QuestionForSectionsQuestion(id int64) (*surveytypes.Question, bool) {
	sq, ok := s.sectionsQuestions[id]
	if !ok {
		return nil, false
	}
	return s.Question(sq.QuestionID)
}

// SelectGroup looks up a select group (with its items) by ID.
func (s *Snapshot) SelectGroup(id int64) (*surveytypes.SelectGroup, bool) {
	g, ok := s.selectGroups[id]
	return g, ok
}

// StepsSectionsForStep returns the (Section, DisplayKey) join rows for a
// step, in section display order.
func (s *Snapshot) StepsSectionsForStep(stepID int64) []*surveytypes.StepsSections {
	return s.stepsSectionsByStep[stepID]
}

// StepsSectionsForSection returns every step a section is joined to.
func (s *Snapshot) StepsSectionsForSection(sectionID int64) []*surveytypes.StepsSections {
	return s.stepsSectionsBySection[sectionID]
}

// SectionsQuestionsForSection returns the question join rows for a
// section, in display order.
func (s *Snapshot) SectionsQuestionsForSection(sectionID int64) []*surveytypes.SectionsQuestion {
	return s.sectionsQuestionsBySection[sectionID]
}

// SectionIsGated reports whether a SHOW or REPEAT relationship targets
// stepsSectionsID's section as a whole, so a caller materializing a
// step's sections should skip it entirely rather than create even its
// placeholder answer.
func (s *Snapshot) SectionIsGated(stepsSectionsID int64) bool {
	return s.hasSectionLevelGate(stepsSectionsID)
}

// StepsSections looks up a step/section join row by its own ID — used to
// resolve a Relationship's downstream Target when Level == TargetSection.
func (s *Snapshot) StepsSections(id int64) (*surveytypes.StepsSections, bool) {
	ss, ok := s.stepsSections[id]
	return ss, ok
}

// Relationship looks up a relationship by its ID.
func (s *Snapshot) Relationship(id int64) (*surveytypes.Relationship, bool) {
	rel, ok := s.relationships[id]
	return rel, ok
}

// RelationshipsByUpstreamQuestion returns every relationship whose
// upstream is the given SectionsQuestion ID — the set the Propagation
// Engine evaluates whenever that question's answer is saved (spec §4.G).
func (s *Snapshot) RelationshipsByUpstreamQuestion(sectionsQuestionID int64) []*surveytypes.Relationship {
	return s.relationshipsByUpstreamQuestion[sectionsQuestionID]
}

// RelationshipsByDownstreamQuestion returns relationships targeting the
// given SectionsQuestion as their downstream.
func (s *Snapshot) RelationshipsByDownstreamQuestion(sectionsQuestionID int64) []*surveytypes.Relationship {
	return s.relationshipsByDownstreamQ[sectionsQuestionID]
}

// RelationshipsByDownstreamSection returns relationships targeting the
// given StepsSections as their downstream.
func (s *Snapshot) RelationshipsByDownstreamSection(stepsSectionsID int64) []*surveytypes.Relationship {
	return s.relationshipsByDownstreamS[stepsSectionsID]
}

// RelationshipsByDownstreamStep returns relationships targeting the given
// Step as their downstream — the REPEAT-a-step shape spec §9 documents as
// unimplemented (see internal/surveyerr.ErrUnimplementedRepeatStep).
func (s *Snapshot) RelationshipsByDownstreamStep(stepID int64) []*surveytypes.Relationship {
	return s.relationshipsByDownstreamStep[stepID]
}

// InitialCandidatesForStep returns the SectionsQuestion join rows that
// belong to stepID's ungated sections and are not themselves the
// downstream target of any non-TEXT relationship — i.e. the questions
// visible with no upstream dependency, before any respondent-specific
// answered-filter is applied. A child section that a SHOW/REPEAT
// relationship targets as a whole contributes nothing here: stepID itself
// is the only container treated as already authorized, so a section
// gated independently of it is excluded wholesale rather than probed
// question by question. Pairing this with the Answer Store's "not yet
// answered" filter (done in internal/propagate) reproduces spec §4.B's
// full initial-candidate query.
func (s *Snapshot) InitialCandidatesForStep(stepID int64) []*surveytypes.SectionsQuestion {
	var out []*surveytypes.SectionsQuestion
	for _, ss := range s.stepsSectionsByStep[stepID] {
		if s.hasSectionLevelGate(ss.ID) {
			continue
		}
		out = append(out, s.initialCandidatesForSection(ss.SectionID, stepID)...)
	}
	return out
}

// InitialCandidatesForSection is InitialCandidatesForStep narrowed to one
// section already known to belong to stepID. stepID is treated as already
// authorized to materialize (the caller only reaches here once: Init
// entering a fresh step, or a fired SHOW/REPEAT whose own evaluation
// already cleared this exact section or step) — so only a question's own
// direct gate, or a containing step OTHER than stepID, excludes it.
func (s *Snapshot) InitialCandidatesForSection(sectionID, stepID int64) []*surveytypes.SectionsQuestion {
	return s.initialCandidatesForSection(sectionID, stepID)
}

func (s *Snapshot) initialCandidatesForSection(sectionID, stepID int64) []*surveytypes.SectionsQuestion {
	var out []*surveytypes.SectionsQuestion
	for _, sq := range s.sectionsQuestionsBySection[sectionID] {
		if s.hasGatingRelationship(sq.ID) {
			continue
		}
		if s.hasStepLevelGate(sectionID, stepID) {
			continue
		}
		out = append(out, sq)
	}
	return out
}

// hasGatingRelationship reports whether any SHOW or REPEAT relationship
// targets this question directly — such a question only becomes a
// candidate once its upstream condition is satisfied, so it is excluded
// from the unconditional initial set. TEXT-only relationships do not gate
// visibility (spec Scenario 5: a question can be TEXT-targeted without
// ever being SHOW-targeted, and must still appear unconditionally).
func (s *Snapshot) hasGatingRelationship(sectionsQuestionID int64) bool {
	for _, rel := range s.relationshipsByDownstreamQ[sectionsQuestionID] {
		if rel.Action == surveytypes.ActionShow || rel.Action == surveytypes.ActionRepeat {
			return true
		}
	}
	return false
}

// hasSectionLevelGate reports whether a SHOW or REPEAT relationship
// targets stepsSectionsID's section as a whole (spec §4.B: "no non-TEXT
// relationship targets a step/section that contains it").
func (s *Snapshot) hasSectionLevelGate(stepsSectionsID int64) bool {
	for _, rel := range s.relationshipsByDownstreamS[stepsSectionsID] {
		if rel.Action == surveytypes.ActionShow || rel.Action == surveytypes.ActionRepeat {
			return true
		}
	}
	return false
}

// hasStepLevelGate reports whether sectionID's containing step — other
// than authorizedStepID, which the caller has already cleared — is
// itself the target of a SHOW or REPEAT relationship.
func (s *Snapshot) hasStepLevelGate(sectionID, authorizedStepID int64) bool {
	for _, ss := range s.stepsSectionsBySection[sectionID] {
		if ss.StepID == authorizedStepID {
			continue
		}
		for _, rel := range s.relationshipsByDownstreamStep[ss.StepID] {
			if rel.Action == surveytypes.ActionShow || rel.Action == surveytypes.ActionRepeat {
				return true
			}
		}
	}
	return false
}

// StepDisplayOrder returns a step's DisplayOrder.
func (s *Snapshot) StepDisplayOrder(stepID int64) (int, bool) {
	st, ok := s.steps[stepID]
	if !ok {
		return 0, false
	}
	return st.DisplayOrder, true
}

// SectionDisplayOrder returns a section's DisplayOrder.
func (s *Snapshot) SectionDisplayOrder(sectionID int64) (int, bool) {
	sec, ok := s.sections[sectionID]
	if !ok {
		return 0, false
	}
	return sec.DisplayOrder, true
}

// StepsSectionsFor returns the first StepsSections row joining stepID and
// sectionID, used by internal/propagate to resolve a step+section pair back
// to its authored DisplayKey.
func (s *Snapshot) StepsSectionsFor(stepID, sectionID int64) (*surveytypes.StepsSections, bool) {
	for _, ss := range s.stepsSectionsByStep[stepID] {
		if ss.SectionID == sectionID {
			return ss, true
		}
	}
	return nil, false
}
