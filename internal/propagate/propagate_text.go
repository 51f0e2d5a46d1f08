package propagate

import (
	"context"

	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/surveytypes"
	"github.com/surveyflow/engine/internal/template"
)

// textFeedingTypes are the question types whose rel.defaultUpstreamValue
// (when set) overrides the raw upstream textValue in the token map — spec
// §4.G's display-text rebuild table.
var textFeedingTypes = map[surveytypes.QuestionType]bool{
	surveytypes.TypeCheckbox: true,
	surveytypes.TypeDropdown: true,
	surveytypes.TypeHTML:     true,
	surveytypes.TypeNumber:   true,
	surveytypes.TypeRadio:    true,
}

// baseText returns the starting text for answer: its question's text, or
// its section's name, or its step's name, in that priority order.
func (e *Engine) baseText(answer *surveytypes.Answer) string {
	if answer.QuestionID != nil {
		if q, ok := e.Snapshot.Question(*answer.QuestionID); ok {
			return q.Text
		}
	}
	if answer.DisplayKey.IsSectionLevel() {
		if sec, ok := e.Snapshot.Section(answer.SectionID); ok {
			return sec.Name
		}
	}
	if st, ok := e.Snapshot.Step(answer.StepID); ok {
		return st.Name
	}
	return ""
}

// rebuildDisplayText recomputes answer.DisplayText from its base text, the
// {Q#}/{S#} instance markers, and the token map built from every
// non-deleted Dependent pointing at answer, then persists it.
func (e *Engine) rebuildDisplayText(ctx context.Context, respondentID int64, answer *surveytypes.Answer) error {
	lookup, err := e.tokenLookup(ctx, respondentID, answer)
	if err != nil {
		return err
	}
	inst := template.Instances{
		QuestionInstance: answer.DisplayKey.Field(displaykey.QuestionInstance),
		StepInstance:     answer.DisplayKey.Field(displaykey.StepInstance),
	}
	answer.DisplayText = template.Expand(e.baseText(answer), lookup, inst)
	return e.Answers.Update(ctx, answer)
}

// tokenLookup builds the substitution map for answer from every Dependent
// whose downstream is answer and whose relationship carries a token.
func (e *Engine) tokenLookup(ctx context.Context, respondentID int64, answer *surveytypes.Answer) (map[string]string, error) {
	deps, err := e.Dependents.ByDownstream(ctx, respondentID, answer.ID)
	if err != nil {
		return nil, err
	}
	lookup := map[string]string{}
	for _, d := range deps {
		rel := e.relationshipByID(d.RelationshipID)
		if rel == nil || rel.Token == "" {
			continue
		}
		up, err := e.answerByID(ctx, respondentID, d.UpstreamID)
		if err != nil {
			return nil, err
		}
		if up == nil {
			continue
		}
		value := e.tokenValueFor(rel, up)
		if value == nil {
			continue
		}
		lookup[rel.Token] = *value
	}
	return lookup, nil
}

// tokenValueFor picks the substitution value for one Dependent edge per
// spec §4.G's type table.
func (e *Engine) tokenValueFor(rel *surveytypes.Relationship, upstream *surveytypes.Answer) *string {
	q, _ := e.Snapshot.QuestionForSectionsQuestion(rel.UpstreamQuestionID)
	if q != nil && textFeedingTypes[q.Type] && rel.DefaultUpstreamValue != "" {
		v := rel.DefaultUpstreamValue
		return &v
	}
	return upstream.TextValue
}

// relationshipByID looks up a relationship by its ID.
func (e *Engine) relationshipByID(id int64) *surveytypes.Relationship {
	rel, _ := e.Snapshot.Relationship(id)
	return rel
}

func (e *Engine) answerByID(ctx context.Context, respondentID, answerID int64) (*surveytypes.Answer, error) {
	return e.Answers.ByID(ctx, respondentID, answerID)
}
