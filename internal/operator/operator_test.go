package operator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/surveyflow/engine/internal/surveytypes"
)

func strPtr(s string) *string { return &s }

func answer(v string) *surveytypes.Answer {
	return &surveytypes.Answer{TextValue: strPtr(v)}
}

func TestEvaluateBoolean(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpBoolean}
	assert.True(t, Evaluate(rel, answer("true"), surveytypes.TypeCheckbox))
	assert.True(t, Evaluate(rel, answer("TRUE"), surveytypes.TypeCheckbox))
	assert.False(t, Evaluate(rel, answer("false"), surveytypes.TypeCheckbox))
	assert.False(t, Evaluate(rel, answer("nope"), surveytypes.TypeCheckbox))
	assert.False(t, Evaluate(rel, &surveytypes.Answer{}, surveytypes.TypeCheckbox))
}

func TestEvaluateEqualCaseInsensitive(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpEqual, ReferenceValue: "Yes"}
	assert.True(t, Evaluate(rel, answer("yes"), surveytypes.TypeRadio))
	assert.False(t, Evaluate(rel, answer("no"), surveytypes.TypeRadio))
}

func TestEvaluateNotEqualRequiresPresence(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpNotEqual, ReferenceValue: "yes"}
	assert.True(t, Evaluate(rel, answer("no"), surveytypes.TypeRadio))
	assert.False(t, Evaluate(rel, answer("yes"), surveytypes.TypeRadio))
	assert.False(t, Evaluate(rel, &surveytypes.Answer{}, surveytypes.TypeRadio), "no value present is never not-equal")
}

func TestEvaluateFieldExist(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpFieldExist}
	assert.True(t, Evaluate(rel, &surveytypes.Answer{}, surveytypes.TypeText))
}

func TestEvaluateContains(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpContains, ReferenceValue: "blue"}
	assert.True(t, Evaluate(rel, answer("red,blue,green"), surveytypes.TypeCheckboxGroup))
	assert.False(t, Evaluate(rel, answer("red,green"), surveytypes.TypeCheckboxGroup))
}

func TestEvaluateLessThanNumericIsActuallyGTE(t *testing.T) {
	// Documented defect (spec §9): LESS_THAN's numeric branch is >=, not <.
	rel := &surveytypes.Relationship{Operator: surveytypes.OpLessThan, ReferenceValue: "10"}
	assert.True(t, Evaluate(rel, answer("10"), surveytypes.TypeNumber))
	assert.True(t, Evaluate(rel, answer("11"), surveytypes.TypeNumber))
	assert.False(t, Evaluate(rel, answer("9"), surveytypes.TypeNumber))
}

func TestEvaluateGreaterThanDateIsActuallyGTE(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpGreaterThan, ReferenceValue: "2020-01-01"}
	assert.True(t, Evaluate(rel, answer("2020-01-01"), surveytypes.TypeDate))
	assert.True(t, Evaluate(rel, answer("2021-01-01"), surveytypes.TypeDate))
	assert.False(t, Evaluate(rel, answer("2019-01-01"), surveytypes.TypeDate))
}

func TestEvaluateGreaterThanNumericIsStrict(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpGreaterThan, ReferenceValue: "10"}
	assert.False(t, Evaluate(rel, answer("10"), surveytypes.TypeNumber))
	assert.True(t, Evaluate(rel, answer("11"), surveytypes.TypeNumber))
}

func TestEvaluateParseFailureIsFalseNotPanic(t *testing.T) {
	rel := &surveytypes.Relationship{Operator: surveytypes.OpLessThan, ReferenceValue: "10"}
	assert.NotPanics(t, func() {
		assert.False(t, Evaluate(rel, answer("not-a-number"), surveytypes.TypeNumber))
	})
}
