package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandKnownToken(t *testing.T) {
	lookup := map[string]string{"NAME": "Dennis"}
	got := Expand("What is {NAME|your}' Birthday?", lookup, Instances{})
	assert.Equal(t, "What is Dennis' Birthday?", got)
}

func TestExpandDefaultWhenTokenMissing(t *testing.T) {
	lookup := map[string]string{}
	got := Expand("What is {NAME|your}' Birthday?", lookup, Instances{})
	assert.Equal(t, "What is your' Birthday?", got)
}

func TestExpandNestedDefault(t *testing.T) {
	lookup := map[string]string{"CITY": "Springfield"}
	got := Expand("Welcome to {TOWN|{CITY|your town}}", lookup, Instances{})
	assert.Equal(t, "Welcome to Springfield", got)
}

func TestExpandNestedDefaultFallsThroughToInnerDefault(t *testing.T) {
	lookup := map[string]string{}
	got := Expand("Welcome to {TOWN|{CITY|your town}}", lookup, Instances{})
	assert.Equal(t, "Welcome to your town", got)
}

func TestExpandUnknownTokenNoDefaultIsDropped(t *testing.T) {
	lookup := map[string]string{}
	got := Expand("Hello {GREETING}!", lookup, Instances{})
	assert.Equal(t, "Hello !", got)
}

func TestExpandInstanceMarkers(t *testing.T) {
	got := Expand("Your Pet {Q#} - {NAME}", map[string]string{"NAME": "Fido"}, Instances{QuestionInstance: 1})
	assert.Equal(t, "Your Pet 1 - Fido", got)

	got2 := Expand("Step {S#} of the survey", nil, Instances{StepInstance: 3})
	assert.Equal(t, "Step 3 of the survey", got2)
}

func TestApostropheFixups(t *testing.T) {
	assert.Equal(t, "ask her about it", applyTypographicFixups("ask her's about it"))
	assert.Equal(t, "ask his opinion", applyTypographicFixups("ask his's opinion"))
	assert.Equal(t, "it is Your choice", applyTypographicFixups("it is Your's choice"))
	assert.Equal(t, "the dogs' bones", applyTypographicFixups("the dogs's bones"))
}

func TestScenario2NameSubstitution(t *testing.T) {
	// spec Scenario 2: token resolution substitutes the respondent's entered
	// name and then applies the possessive fixup.
	lookup := map[string]string{"NAME": "Dennis"}
	got := Expand("What is {NAME}'s Birthday?", lookup, Instances{})
	assert.Equal(t, "What is Dennis' Birthday?", got)
}
