// Package displaykey implements the 7-field composite address that every
// visible survey element (step, section, question, and their repetitions)
// is keyed by. See spec §4.A.
//
// A key is formatted as seven zero-padded 4-digit decimal fields joined by
// dashes:
//
//	survey-step-stepInstance-section-sectionInstance-question-questionInstance
//
// giving a fixed 34-character string. Lexical order over that string equals
// the intended navigation order, which is what lets the rest of the engine
// pivot queries and dependency edges on the string form alone. The dash form
// is the sole canonical external representation (see DESIGN.md, Open
// Question 3); no dot-form encoder is implemented here.
package displaykey

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/surveyflow/engine/internal/surveyerr"
)

// Level identifies one of the seven fields of a Key.
type Level int

// The seven fields of a Key, in display order.
const (
	Survey Level = iota
	Step
	StepInstance
	Section
	SectionInstance
	Question
	QuestionInstance
	numFields
)

const (
	fieldWidth  = 4
	keyLength   = int(numFields)*fieldWidth + (int(numFields) - 1) // 7*4 + 6 dashes = 34
	fieldMax    = 9999
)

// Key is the 7-tuple composite address. The zero value is the all-zero key
// ("0000-0000-0000-0000-0000-0000-0000"), meaning "not applicable at this
// level" at every field per spec §4.A.
type Key struct {
	fields [int(numFields)]uint16
}

// New builds a Key from its seven fields, in display order.
func New(survey, step, stepInstance, section, sectionInstance, question, questionInstance uint16) Key {
	return Key{fields: [int(numFields)]uint16{
		survey, step, stepInstance, section, sectionInstance, question, questionInstance,
	}}
}

// Parse parses the canonical dash-separated 34-character form. It returns a
// wrapped surveyerr.ErrMalformedKey on any length or format mismatch.
func Parse(s string) (Key, error) {
	var k Key
	if len(s) != keyLength {
		return k, surveyerr.Wrapf(surveyerr.ErrMalformedKey, "parse display key %q: expected length %d, got %d", s, keyLength, len(s))
	}
	parts := strings.Split(s, "-")
	if len(parts) != int(numFields) {
		return k, surveyerr.Wrapf(surveyerr.ErrMalformedKey, "parse display key %q: expected %d fields, got %d", s, numFields, len(parts))
	}
	for i, p := range parts {
		if len(p) != fieldWidth {
			return k, surveyerr.Wrapf(surveyerr.ErrMalformedKey, "parse display key %q: field %d has width %d, want %d", s, i, len(p), fieldWidth)
		}
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return k, surveyerr.Wrapf(surveyerr.ErrMalformedKey, "parse display key %q: field %d is not numeric: %v", s, i, err)
		}
		if v > fieldMax {
			return k, surveyerr.Wrapf(surveyerr.ErrMalformedKey, "parse display key %q: field %d overflows 4 digits", s, i)
		}
		k.fields[i] = uint16(v)
	}
	return k, nil
}

// MustParse is Parse but panics on error; intended for literal test fixtures
// and definition loading, never for untrusted input.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// String renders the canonical dash-separated form.
func (k Key) String() string {
	var b strings.Builder
	b.Grow(keyLength)
	for i, f := range k.fields {
		if i > 0 {
			b.WriteByte('-')
		}
		fmt.Fprintf(&b, "%04d", f)
	}
	return b.String()
}

// Field returns the value at the given level.
func (k Key) Field(level Level) uint16 {
	return k.fields[int(level)]
}

// WithField returns a copy of k with the given level set to value. Key is a
// small value type, so "mutation" always returns a new Key; there is no
// in-place form exposed outside this package.
func (k Key) WithField(level Level, value uint16) Key {
	out := k
	out.fields[int(level)] = value
	return out
}

// Clear returns a copy of k with the given level (and, implicitly, nothing
// below it — callers are responsible for clearing dependent fields too) set
// to zero.
func (k Key) Clear(level Level) Key {
	return k.WithField(level, 0)
}

// IsZero reports whether every field is zero.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Equal reports whether two keys address the same element.
func (k Key) Equal(other Key) bool {
	return k == other
}

// Less implements the lexical order spec §4.A requires: comparing fields in
// display order, left to right.
func (k Key) Less(other Key) bool {
	for i := range k.fields {
		if k.fields[i] != other.fields[i] {
			return k.fields[i] < other.fields[i]
		}
	}
	return false
}

// StepQueryPattern returns the wildcard LIKE pattern matching every instance
// of the addressed step: "survey-step-*-0-0-0-0".
func (k Key) StepQueryPattern() string {
	return fmt.Sprintf("%04d-%04d-%%-0000-0000-0000-0000", k.fields[Survey], k.fields[Step])
}

// SectionQueryPattern returns the wildcard LIKE pattern matching every
// instance of the addressed section under the current step instance:
// "survey-step-stepInstance-section-*-0-0".
func (k Key) SectionQueryPattern() string {
	return fmt.Sprintf("%04d-%04d-%04d-%04d-%%-0000-0000",
		k.fields[Survey], k.fields[Step], k.fields[StepInstance], k.fields[Section])
}

// AnswerQueryPattern returns the wildcard LIKE pattern matching every
// question instance under the current section instance:
// "survey-step-stepInstance-section-sectionInstance-question-*".
func (k Key) AnswerQueryPattern() string {
	return fmt.Sprintf("%04d-%04d-%04d-%04d-%04d-%04d-%%",
		k.fields[Survey], k.fields[Step], k.fields[StepInstance],
		k.fields[Section], k.fields[SectionInstance], k.fields[Question])
}

// IsSectionLevel reports whether the key addresses a section row
// (question == 0, questionInstance == 0) with a non-zero section.
func (k Key) IsSectionLevel() bool {
	return k.fields[Question] == 0 && k.fields[QuestionInstance] == 0 && k.fields[Section] != 0
}

// IsStepLevel reports whether the key addresses a step row: section and
// everything below it are zero.
func (k Key) IsStepLevel() bool {
	return k.fields[Section] == 0 && k.fields[SectionInstance] == 0 &&
		k.fields[Question] == 0 && k.fields[QuestionInstance] == 0 && k.fields[Step] != 0
}
