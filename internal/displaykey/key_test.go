package displaykey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surveyflow/engine/internal/surveyerr"
)

func TestParseRoundTrip(t *testing.T) {
	k, err := Parse("0001-0002-0001-0003-0001-0004-0001")
	require.NoError(t, err)
	assert.Equal(t, uint16(1), k.Field(Survey))
	assert.Equal(t, uint16(2), k.Field(Step))
	assert.Equal(t, uint16(4), k.Field(Question))
	assert.Equal(t, "0001-0002-0001-0003-0001-0004-0001", k.String())
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"",
		"0001-0002-0001-0003-0001-0004", // too few fields
		"0001-0002-0001-0003-0001-0004-00011",
		"000a-0002-0001-0003-0001-0004-0001", // non-numeric
		"99999-0002-0001-0003-0001-0004-0001",
	}
	for _, c := range cases {
		_, err := Parse(c)
		require.Error(t, err, c)
		assert.ErrorIs(t, err, surveyerr.ErrMalformedKey, c)
	}
}

func TestWithFieldAndClear(t *testing.T) {
	base := New(1, 2, 1, 3, 1, 4, 1)
	withQuestion := base.WithField(Question, 9)
	assert.Equal(t, uint16(9), withQuestion.Field(Question))
	assert.Equal(t, uint16(4), base.Field(Question), "WithField must not mutate the receiver")

	cleared := withQuestion.Clear(QuestionInstance)
	assert.Equal(t, uint16(0), cleared.Field(QuestionInstance))
}

func TestQueryPatterns(t *testing.T) {
	k := New(1, 2, 1, 3, 1, 4, 1)
	assert.Equal(t, "0001-0002-%-0000-0000-0000-0000", k.StepQueryPattern())
	assert.Equal(t, "0001-0002-0001-0003-%-0000-0000", k.SectionQueryPattern())
	assert.Equal(t, "0001-0002-0001-0003-0001-0004-%", k.AnswerQueryPattern())
}

func TestLess(t *testing.T) {
	a := MustParse("0001-0001-0000-0001-0000-0000-0000")
	b := MustParse("0001-0001-0000-0002-0000-0000-0000")
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}

func TestLevelPredicates(t *testing.T) {
	step := MustParse("0001-0002-0001-0000-0000-0000-0000")
	section := MustParse("0001-0002-0001-0003-0001-0000-0000")
	question := MustParse("0001-0002-0001-0003-0001-0004-0001")

	assert.True(t, step.IsStepLevel())
	assert.False(t, step.IsSectionLevel())

	assert.True(t, section.IsSectionLevel())
	assert.False(t, section.IsStepLevel())

	assert.False(t, question.IsSectionLevel())
	assert.False(t, question.IsStepLevel())
}
