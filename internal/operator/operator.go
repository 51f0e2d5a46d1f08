// Package operator implements the Operator Evaluator (spec §4.E): a pure,
// exception-free function that decides whether a Relationship's condition
// holds against a given upstream Answer.
//
// The dispatch shape mirrors a switch over a comparison's field name to
// decide how to interpret the right-hand value; here the switch is on
// OperatorType instead, one function per operator, each tolerant of parse
// failures (never panicking, never returning an error — spec §4.E says
// mismatches yield false).
package operator

import (
	"strconv"
	"strings"
	"time"

	"github.com/surveyflow/engine/internal/surveytypes"
)

const dateLayout = "2006-01-02"

// Evaluate returns whether rel's operator holds against upstream. upstream
// is the Answer produced by rel's upstream question; upstreamType is that
// question's QuestionType, needed only to disambiguate LESS_THAN/
// GREATER_THAN's date-vs-numeric comparison.
func Evaluate(rel *surveytypes.Relationship, upstream *surveytypes.Answer, upstreamType surveytypes.QuestionType) bool {
	if upstream == nil {
		return false
	}
	switch rel.Operator {
	case surveytypes.OpBoolean:
		return evalBoolean(upstream)
	case surveytypes.OpEqual:
		return evalEqual(rel, upstream)
	case surveytypes.OpNotEqual:
		return evalNotEqual(rel, upstream)
	case surveytypes.OpFieldExist:
		return true
	case surveytypes.OpContains:
		return evalContains(rel, upstream)
	case surveytypes.OpLessThan:
		return evalLessThan(rel, upstream, upstreamType)
	case surveytypes.OpGreaterThan:
		return evalGreaterThan(rel, upstream, upstreamType)
	default:
		return false
	}
}

func textValue(a *surveytypes.Answer) (string, bool) {
	if a.TextValue == nil {
		return "", false
	}
	return *a.TextValue, true
}

func evalBoolean(a *surveytypes.Answer) bool {
	v, ok := textValue(a)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
	if err != nil {
		return false
	}
	return b
}

func evalEqual(rel *surveytypes.Relationship, a *surveytypes.Answer) bool {
	v, ok := textValue(a)
	if !ok {
		return false
	}
	return strings.EqualFold(v, rel.ReferenceValue)
}

func evalNotEqual(rel *surveytypes.Relationship, a *surveytypes.Answer) bool {
	v, ok := textValue(a)
	if !ok {
		return false
	}
	return !strings.EqualFold(v, rel.ReferenceValue)
}

func evalContains(rel *surveytypes.Relationship, a *surveytypes.Answer) bool {
	v, ok := textValue(a)
	if !ok {
		return false
	}
	for _, part := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(part), rel.ReferenceValue) {
			return true
		}
	}
	return false
}

// evalLessThan implements the LESS_THAN operator as spec §9 documents it:
// the numeric branch compares dValue >= rVal, which is inconsistent with
// the operator's name. This is a known defect in the source this spec was
// distilled from; spec §9 instructs reimplementers to preserve it rather
// than silently "fix" it, so the >= comparison below is intentional.
func evalLessThan(rel *surveytypes.Relationship, a *surveytypes.Answer, upstreamType surveytypes.QuestionType) bool {
	v, ok := textValue(a)
	if !ok {
		return false
	}
	if upstreamType == surveytypes.TypeDate {
		aDate, err := time.Parse(dateLayout, strings.TrimSpace(v))
		if err != nil {
			return false
		}
		rDate, err := time.Parse(dateLayout, strings.TrimSpace(rel.ReferenceValue))
		if err != nil {
			return false
		}
		return !aDate.Before(rDate) // mirrors the >= numeric defect for dates
	}
	dValue, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return false
	}
	rValue, err := strconv.ParseFloat(strings.TrimSpace(rel.ReferenceValue), 64)
	if err != nil {
		return false
	}
	return dValue >= rValue
}

// evalGreaterThan implements GREATER_THAN as spec §9 documents: the date
// branch uses compareTo > -1 (i.e. >=), which likewise differs from the
// operator's name. Preserved, not "fixed", per spec §9.
func evalGreaterThan(rel *surveytypes.Relationship, a *surveytypes.Answer, upstreamType surveytypes.QuestionType) bool {
	v, ok := textValue(a)
	if !ok {
		return false
	}
	if upstreamType == surveytypes.TypeDate {
		aDate, err := time.Parse(dateLayout, strings.TrimSpace(v))
		if err != nil {
			return false
		}
		rDate, err := time.Parse(dateLayout, strings.TrimSpace(rel.ReferenceValue))
		if err != nil {
			return false
		}
		return !aDate.Before(rDate) // compareTo > -1 === >=
	}
	dValue, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return false
	}
	rValue, err := strconv.ParseFloat(strings.TrimSpace(rel.ReferenceValue), 64)
	if err != nil {
		return false
	}
	return dValue > rValue
}
