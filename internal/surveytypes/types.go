// Package surveytypes holds the survey domain entities described in spec
// §3 (Data Model): the static survey definition (Step, Section,
// StepsSections, Question, SectionsQuestion, SelectGroup, SelectItem,
// Relationship) and respondent-scoped state (Respondent, Answer,
// Dependent).
package surveytypes

import (
	"time"

	"github.com/surveyflow/engine/internal/displaykey"
)

// QuestionType is the closed enumeration of question widget types from
// spec §6. The core only cares about the semantics it relies on (decimal
// vs. coded-value vs. date parsing); rendering is an external collaborator.
type QuestionType string

// The closed set of question types.
const (
	TypeHTML               QuestionType = "HTML"
	TypeText               QuestionType = "TEXT"
	TypeDate               QuestionType = "DATE"
	TypeDateTime           QuestionType = "DATETIME"
	TypeTime               QuestionType = "TIME"
	TypeEmail              QuestionType = "EMAIL"
	TypePassword           QuestionType = "PASSWORD"
	TypeNumber             QuestionType = "NUMBER"
	TypeDouble             QuestionType = "DOUBLE"
	TypeCheckbox           QuestionType = "CHECKBOX"
	TypeCheckboxGroup      QuestionType = "CHECKBOX_GROUP"
	TypeRadio              QuestionType = "RADIO"
	TypeDropdown           QuestionType = "DROPDOWN"
	TypeMultiSelectCombo   QuestionType = "MULTI_SELECT_COMBOBOX"
)

// Valid reports whether t is one of the closed set of question types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeHTML, TypeText, TypeDate, TypeDateTime, TypeTime, TypeEmail,
		TypePassword, TypeNumber, TypeDouble, TypeCheckbox, TypeCheckboxGroup,
		TypeRadio, TypeDropdown, TypeMultiSelectCombo:
		return true
	}
	return false
}

// ActionType is a Relationship's effect on its downstream target.
type ActionType string

const (
	ActionShow   ActionType = "SHOW"
	ActionRepeat ActionType = "REPEAT"
	ActionText   ActionType = "TEXT"
)

// OperatorType is the closed set of comparison operators a Relationship can
// use against its upstream Answer. See spec §4.E.
type OperatorType string

const (
	OpBoolean     OperatorType = "BOOLEAN"
	OpEqual       OperatorType = "EQUAL"
	OpNotEqual    OperatorType = "NOT_EQUAL"
	OpLessThan    OperatorType = "LESS_THAN"
	OpGreaterThan OperatorType = "GREATER_THAN"
	OpContains    OperatorType = "CONTAINS"
	OpFieldExist  OperatorType = "FIELD_EXIST"
)

// TargetLevel identifies which level of the address hierarchy a
// Relationship's downstream points at. Spec §9 calls for a tagged variant
// here rather than three nullable foreign keys, so that "exactly one
// non-null" becomes type-enforced instead of a runtime invariant to check.
type TargetLevel int

const (
	// TargetNone is the zero value; a Relationship is invalid without a target.
	TargetNone TargetLevel = iota
	TargetQuestion
	TargetSection
	TargetStep
)

// Target is the tagged-variant downstream address of a Relationship.
// Exactly one of the ID fields is meaningful, selected by Level.
type Target struct {
	Level            TargetLevel
	StepID           int64 // valid when Level == TargetStep
	StepsSectionsID  int64 // valid when Level == TargetSection
	SectionsQuestionID int64 // valid when Level == TargetQuestion
}

// Step is a top-level grouping of sections within a survey.
type Step struct {
	ID           int64
	SurveyID     int64
	DisplayOrder int
	Name         string
	Description  string
}

// Section groups questions within a step. Name/Description may contain
// substitution tokens and the literal {S#} step-instance marker.
type Section struct {
	ID           int64
	SurveyID     int64
	DisplayOrder int
	Name         string
	Description  string
}

// StepsSections is the join between a Step and a Section, carrying the
// canonical zero-instance DisplayKey for that pair.
type StepsSections struct {
	ID                  int64
	SurveyID            int64
	StepID              int64
	StepDisplayOrder    int
	SectionID           int64
	SectionDisplayOrder int
	DisplayKey          displaykey.Key
}

// Question is a single prompt definition. Text/ToolTip may contain
// substitution tokens. MinValue/MaxValue semantics depend on Type.
type Question struct {
	ID                 int64
	SurveyID           int64
	Type               QuestionType
	Text               string
	ShortText          string
	ToolTip            string
	Mask               string
	Placeholder        string
	DefaultValue       string
	Required           bool
	MinValue           *float64
	MaxValue           *float64
	ValidationText     string
	SelectGroupID      *int64
	Variant            string
}

// SectionsQuestion is the join between a Section and a Question within a
// survey, ordered by DisplayOrder within the section.
type SectionsQuestion struct {
	ID           int64
	SurveyID     int64
	SectionID    int64
	QuestionID   int64
	DisplayOrder int
}

// SelectGroup names an ordered set of SelectItem choices shared by one or
// more CHECKBOX_GROUP/RADIO/DROPDOWN/MULTI_SELECT_COMBOBOX questions.
type SelectGroup struct {
	ID       int64
	SurveyID int64
	Name     string
	Items    []SelectItem
}

// SelectItem is one coded choice within a SelectGroup.
type SelectItem struct {
	ID           int64
	GroupID      int64
	CodedValue   string
	DisplayText  string
	DisplayOrder int
}

// Relationship is an edge in the dependency graph: given an upstream
// question's answer, an operator decides whether to SHOW/REPEAT/substitute
// TEXT into a downstream target.
type Relationship struct {
	ID       int64
	SurveyID int64
	Action   ActionType
	Operator OperatorType

	// UpstreamStepID, when non-nil, additionally scopes the match to a
	// specific step (see spec §4.G buildDownstreamQuestions).
	UpstreamStepID       *int64
	UpstreamQuestionID   int64 // SectionsQuestion.ID, required

	Downstream Target

	// Token is the substitution key this relationship contributes when
	// Action == ActionText (or when any action's token feeds the display
	// text rebuild map in spec §4.G).
	Token string

	// ReferenceValue is the comparand for EQUAL/NOT_EQUAL/CONTAINS/
	// LESS_THAN/GREATER_THAN.
	ReferenceValue string

	// DefaultUpstreamValue, when set, overrides the upstream answer's raw
	// textValue in the token substitution map for certain question types
	// (spec §4.G, Display-text rebuild).
	DefaultUpstreamValue string
}

// Respondent is a survey-taker's session/identity record.
type Respondent struct {
	ID            int64
	SurveyID      int64
	Token         string
	Active        bool
	Logins        int
	CreatedAt     time.Time
	FirstAccessAt *time.Time
	FinalizedAt   *time.Time
}

// Answer is a single persisted response (or section/step placeholder row)
// for one respondent, keyed by DisplayKey.
type Answer struct {
	ID               int64
	RespondentID     int64
	SurveyID         int64
	StepID           int64
	StepInstance     uint16
	SectionID        int64
	SectionInstance  uint16
	QuestionInstance uint16

	// SectionQuestionID and QuestionID are nil for section/step-level rows
	// (questionInstance == 0, no question addressed).
	SectionQuestionID *int64
	QuestionID        *int64

	DisplayKey  displaykey.Key
	DisplayText string
	TextValue   *string

	Deleted bool

	CreatedAt time.Time
	SavedAt   time.Time
}

// IsSectionLevel reports whether this Answer is a section placeholder row.
func (a *Answer) IsSectionLevel() bool {
	return a.QuestionID == nil && a.DisplayKey.Field(displaykey.Section) != 0
}

// Dependent is a persisted edge: downstream Answer exists (or had its
// display text influenced) because upstream Answer satisfied relationship.
type Dependent struct {
	ID             int64
	RespondentID   int64
	UpstreamID     int64
	DownstreamID   int64
	RelationshipID int64
	Deleted        bool
}

// NavigationItem is one entry in the ordered section-level navigation list
// produced by the Navigation Builder (spec §4.H).
type NavigationItem struct {
	Name     string
	Path     string
	Previous *string
	Next     *string
}
