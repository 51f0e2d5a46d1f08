package defstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveyflow/engine/internal/surveytypes"
)

func loadFixture(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := LoadFile("../../testdata/sample_survey.toml")
	require.NoError(t, err)
	return snap
}

func TestLoadFileParsesAllTables(t *testing.T) {
	snap := loadFixture(t)
	assert.Equal(t, int64(1), snap.SurveyID())
	assert.Len(t, snap.Steps(), 5)

	q, ok := snap.Question(1)
	require.True(t, ok)
	assert.Equal(t, surveytypes.TypeRadio, q.Type)
	assert.NotNil(t, q.SelectGroupID)

	g, ok := snap.SelectGroup(1)
	require.True(t, ok)
	assert.Len(t, g.Items, 2)
}

func TestStepsAreOrdered(t *testing.T) {
	snap := loadFixture(t)
	steps := snap.Steps()
	for i := 1; i < len(steps); i++ {
		assert.Less(t, steps[i-1].DisplayOrder, steps[i].DisplayOrder)
	}
}

func TestRelationshipIndexesByUpstream(t *testing.T) {
	snap := loadFixture(t)
	rels := snap.RelationshipsByUpstreamQuestion(1) // consent question
	require.Len(t, rels, 4)
	assert.Equal(t, surveytypes.ActionShow, rels[0].Action)
}

func TestRelationshipIndexesByDownstreamQuestion(t *testing.T) {
	snap := loadFixture(t)
	rels := snap.RelationshipsByDownstreamQuestion(3) // birthday question
	assert.Len(t, rels, 2, "one SHOW gate and one TEXT token relationship")
}

func TestRelationshipIndexesByDownstreamSection(t *testing.T) {
	snap := loadFixture(t)
	rels := snap.RelationshipsByDownstreamSection(3) // family members section
	require.Len(t, rels, 1)
	assert.Equal(t, surveytypes.ActionRepeat, rels[0].Action)
}

func TestInitialCandidatesExcludesGatedQuestions(t *testing.T) {
	snap := loadFixture(t)

	// Section 2 ("Name") has question 2 (ungated), question 3 (SHOW-gated on
	// consent) and question 7 (ungated): only 2 and 7 should appear.
	candidates := snap.InitialCandidatesForSection(2, 2)
	require.Len(t, candidates, 2)
	assert.Equal(t, int64(2), candidates[0].QuestionID)
	assert.Equal(t, int64(7), candidates[1].QuestionID)
}

func TestInitialCandidatesIncludesTextOnlyTargetedQuestion(t *testing.T) {
	snap := loadFixture(t)

	// Question 6 is targeted only by a TEXT relationship (never SHOW), so it
	// must still appear unconditionally per spec Scenario 5.
	candidates := snap.InitialCandidatesForSection(4, 3)
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(6), candidates[0].QuestionID)
}

func TestInitialCandidatesForStepAggregatesSections(t *testing.T) {
	snap := loadFixture(t)

	// Step 2 has two sections: "Name" (questions 2 and 7 ungated, 3 is
	// SHOW-gated) and "Family Members", whose whole section is the REPEAT
	// target of relationship 4 and so contributes nothing.
	candidates := snap.InitialCandidatesForStep(2)
	assert.Len(t, candidates, 2)
}

func TestInitialCandidatesForStepExcludesSectionGatedSection(t *testing.T) {
	snap := loadFixture(t)

	// Step 4 ("Bonus") has a single section, wholly SHOW-gated by
	// relationship 6, so the step contributes no initial candidates.
	candidates := snap.InitialCandidatesForStep(4)
	assert.Len(t, candidates, 0)
}

func TestInitialCandidatesExcludesQuestionsInStepGatedContainer(t *testing.T) {
	snap := loadFixture(t)

	// Section 7 ("Extra Section") belongs only to step 5, which is wholly
	// SHOW-gated by relationship 7. Passing a stepID other than 5 means the
	// caller has not already authorized step 5, so the walk-up must exclude
	// every question in it.
	candidates := snap.InitialCandidatesForSection(7, 0)
	assert.Len(t, candidates, 0)
}

func TestResolveTargetRejectsAmbiguousRelationship(t *testing.T) {
	q := int64(1)
	sec := int64(1)
	_, err := resolveTarget(&docRelationship{DownstreamQuestionID: &q, DownstreamSectionID: &sec})
	assert.Error(t, err)
}

func TestResolveTargetRejectsMissingTarget(t *testing.T) {
	_, err := resolveTarget(&docRelationship{})
	assert.Error(t, err)
}

func TestLoadBytesRejectsUnknownQuestionType(t *testing.T) {
	bad := `
survey_id = 1
[[step]]
id = 1
display_order = 1
name = "S"
[[section]]
id = 1
display_order = 1
name = "Sec"
[[steps_section]]
id = 1
step_id = 1
step_display_order = 1
section_id = 1
section_display_order = 1
display_key = "0001-0001-0000-0001-0000-0000-0000"
[[question]]
id = 1
type = "BOGUS"
text = "x"
[[sections_question]]
id = 1
section_id = 1
question_id = 1
display_order = 1
`
	_, err := LoadBytes([]byte(bad))
	assert.Error(t, err)
}

func TestStepsSectionsForResolvesDisplayKey(t *testing.T) {
	snap := loadFixture(t)
	ss, ok := snap.StepsSectionsFor(1, 1)
	require.True(t, ok)
	assert.Equal(t, "0001-0001-0000-0001-0000-0000-0000", ss.DisplayKey.String())
}
