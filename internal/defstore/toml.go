package defstore

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/surveytypes"
)

// docStep, docSection, ... mirror the TOML authoring format documented in
// SPEC_FULL.md §3. The survey definition is authored as a single TOML
// document, parsed once at process startup with BurntSushi/toml, the same
// way a DSL file gets parsed once and held immutable for the life of the
// process.
type document struct {
	SurveyID int64 `toml:"survey_id"`

	Steps             []docStep             `toml:"step"`
	Sections          []docSection          `toml:"section"`
	StepsSections     []docStepsSection     `toml:"steps_section"`
	Questions         []docQuestion         `toml:"question"`
	SectionsQuestions []docSectionsQuestion `toml:"sections_question"`
	SelectGroups      []docSelectGroup      `toml:"select_group"`
	Relationships     []docRelationship     `toml:"relationship"`
}

type docStep struct {
	ID           int64  `toml:"id"`
	DisplayOrder int    `toml:"display_order"`
	Name         string `toml:"name"`
	Description  string `toml:"description"`
}

type docSection struct {
	ID           int64  `toml:"id"`
	DisplayOrder int    `toml:"display_order"`
	Name         string `toml:"name"`
	Description  string `toml:"description"`
}

type docStepsSection struct {
	ID                  int64  `toml:"id"`
	StepID              int64  `toml:"step_id"`
	StepDisplayOrder    int    `toml:"step_display_order"`
	SectionID           int64  `toml:"section_id"`
	SectionDisplayOrder int    `toml:"section_display_order"`
	DisplayKey          string `toml:"display_key"`
}

type docQuestion struct {
	ID             int64    `toml:"id"`
	Type           string   `toml:"type"`
	Text           string   `toml:"text"`
	ShortText      string   `toml:"short_text"`
	ToolTip        string   `toml:"tool_tip"`
	Mask           string   `toml:"mask"`
	Placeholder    string   `toml:"placeholder"`
	DefaultValue   string   `toml:"default_value"`
	Required       bool     `toml:"required"`
	MinValue       *float64 `toml:"min_value"`
	MaxValue       *float64 `toml:"max_value"`
	ValidationText string   `toml:"validation_text"`
	SelectGroupID  *int64   `toml:"select_group_id"`
	Variant        string   `toml:"variant"`
}

type docSectionsQuestion struct {
	ID           int64 `toml:"id"`
	SectionID    int64 `toml:"section_id"`
	QuestionID   int64 `toml:"question_id"`
	DisplayOrder int   `toml:"display_order"`
}

type docSelectGroup struct {
	ID    int64             `toml:"id"`
	Name  string            `toml:"name"`
	Items []docSelectItem   `toml:"item"`
}

type docSelectItem struct {
	ID           int64  `toml:"id"`
	CodedValue   string `toml:"coded_value"`
	DisplayText  string `toml:"display_text"`
	DisplayOrder int    `toml:"display_order"`
}

type docRelationship struct {
	ID       int64  `toml:"id"`
	Action   string `toml:"action"`
	Operator string `toml:"operator"`

	UpstreamStepID     *int64 `toml:"upstream_step_id"`
	UpstreamQuestionID int64  `toml:"upstream_question_id"`

	DownstreamQuestionID *int64 `toml:"downstream_question_id"`
	DownstreamSectionID  *int64 `toml:"downstream_section_id"`
	DownstreamStepID     *int64 `toml:"downstream_step_id"`

	Token                string `toml:"token"`
	ReferenceValue       string `toml:"reference_value"`
	DefaultUpstreamValue string `toml:"default_upstream_value"`
}

// LoadFile parses a TOML survey definition file and builds an immutable
// Snapshot from it.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("defstore: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses TOML survey definition bytes into a Snapshot.
func LoadBytes(data []byte) (*Snapshot, error) {
	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("defstore: decode toml: %w", err)
	}
	return build(&doc)
}

func build(doc *document) (*Snapshot, error) {
	s := newSnapshot(doc.SurveyID)

	for _, d := range doc.Steps {
		s.steps[d.ID] = &surveytypes.Step{
			ID: d.ID, SurveyID: doc.SurveyID, DisplayOrder: d.DisplayOrder,
			Name: d.Name, Description: d.Description,
		}
	}
	for _, d := range doc.Sections {
		s.sections[d.ID] = &surveytypes.Section{
			ID: d.ID, SurveyID: doc.SurveyID, DisplayOrder: d.DisplayOrder,
			Name: d.Name, Description: d.Description,
		}
	}
	for _, d := range doc.StepsSections {
		key, err := displaykey.Parse(d.DisplayKey)
		if err != nil {
			return nil, fmt.Errorf("defstore: steps_section %d: %w", d.ID, err)
		}
		ss := &surveytypes.StepsSections{
			ID: d.ID, SurveyID: doc.SurveyID,
			StepID: d.StepID, StepDisplayOrder: d.StepDisplayOrder,
			SectionID: d.SectionID, SectionDisplayOrder: d.SectionDisplayOrder,
			DisplayKey: key,
		}
		s.stepsSections[d.ID] = ss
		s.stepsSectionsByStep[d.StepID] = append(s.stepsSectionsByStep[d.StepID], ss)
		s.stepsSectionsBySection[d.SectionID] = append(s.stepsSectionsBySection[d.SectionID], ss)
	}
	for _, d := range doc.Questions {
		qt := surveytypes.QuestionType(d.Type)
		if !qt.Valid() {
			return nil, fmt.Errorf("defstore: question %d: unknown type %q", d.ID, d.Type)
		}
		s.questions[d.ID] = &surveytypes.Question{
			ID: d.ID, SurveyID: doc.SurveyID, Type: qt, Text: d.Text,
			ShortText: d.ShortText, ToolTip: d.ToolTip, Mask: d.Mask,
			Placeholder: d.Placeholder, DefaultValue: d.DefaultValue,
			Required: d.Required, MinValue: d.MinValue, MaxValue: d.MaxValue,
			ValidationText: d.ValidationText, SelectGroupID: d.SelectGroupID,
			Variant: d.Variant,
		}
	}
	for _, d := range doc.SectionsQuestions {
		sq := &surveytypes.SectionsQuestion{
			ID: d.ID, SurveyID: doc.SurveyID, SectionID: d.SectionID,
			QuestionID: d.QuestionID, DisplayOrder: d.DisplayOrder,
		}
		s.sectionsQuestions[d.ID] = sq
		s.sectionsQuestionsBySection[d.SectionID] = append(s.sectionsQuestionsBySection[d.SectionID], sq)
	}
	for _, d := range doc.SelectGroups {
		g := &surveytypes.SelectGroup{ID: d.ID, SurveyID: doc.SurveyID, Name: d.Name}
		for _, it := range d.Items {
			g.Items = append(g.Items, surveytypes.SelectItem{
				ID: it.ID, GroupID: d.ID, CodedValue: it.CodedValue,
				DisplayText: it.DisplayText, DisplayOrder: it.DisplayOrder,
			})
		}
		s.selectGroups[d.ID] = g
	}
	for _, d := range doc.Relationships {
		rel, err := buildRelationship(&d, doc.SurveyID)
		if err != nil {
			return nil, err
		}
		s.relationships[d.ID] = rel
	}

	s.finalize()
	return s, nil
}

func buildRelationship(d *docRelationship, surveyID int64) (*surveytypes.Relationship, error) {
	target, err := resolveTarget(d)
	if err != nil {
		return nil, fmt.Errorf("defstore: relationship %d: %w", d.ID, err)
	}
	action := surveytypes.ActionType(d.Action)
	switch action {
	case surveytypes.ActionShow, surveytypes.ActionRepeat, surveytypes.ActionText:
	default:
		return nil, fmt.Errorf("defstore: relationship %d: unknown action %q", d.ID, d.Action)
	}
	op := surveytypes.OperatorType(d.Operator)
	switch op {
	case surveytypes.OpBoolean, surveytypes.OpEqual, surveytypes.OpNotEqual,
		surveytypes.OpLessThan, surveytypes.OpGreaterThan, surveytypes.OpContains,
		surveytypes.OpFieldExist:
	default:
		return nil, fmt.Errorf("defstore: relationship %d: unknown operator %q", d.ID, d.Operator)
	}
	return &surveytypes.Relationship{
		ID: d.ID, SurveyID: surveyID, Action: action, Operator: op,
		UpstreamStepID: d.UpstreamStepID, UpstreamQuestionID: d.UpstreamQuestionID,
		Downstream: target, Token: d.Token, ReferenceValue: d.ReferenceValue,
		DefaultUpstreamValue: d.DefaultUpstreamValue,
	}, nil
}

// resolveTarget enforces spec §3's "exactly one of downstreamStep/
// downstreamSection/downstreamQuestion is the target level" invariant at
// load time, producing the tagged surveytypes.Target variant spec §9 calls
// for instead of three nullable references.
func resolveTarget(d *docRelationship) (surveytypes.Target, error) {
	set := 0
	if d.DownstreamQuestionID != nil {
		set++
	}
	if d.DownstreamSectionID != nil {
		set++
	}
	if d.DownstreamStepID != nil {
		set++
	}
	switch {
	case set == 0:
		return surveytypes.Target{}, fmt.Errorf("no downstream target set")
	case set > 1:
		return surveytypes.Target{}, fmt.Errorf("more than one downstream target set")
	case d.DownstreamQuestionID != nil:
		return surveytypes.Target{Level: surveytypes.TargetQuestion, SectionsQuestionID: *d.DownstreamQuestionID}, nil
	case d.DownstreamSectionID != nil:
		return surveytypes.Target{Level: surveytypes.TargetSection, StepsSectionsID: *d.DownstreamSectionID}, nil
	default:
		return surveytypes.Target{Level: surveytypes.TargetStep, StepID: *d.DownstreamStepID}, nil
	}
}
