package survey

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/surveyflow/engine/internal/defstore"
	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/propagate"
	"github.com/surveyflow/engine/internal/surveyerr"
	"github.com/surveyflow/engine/internal/surveytypes"
)

// noopTx runs fn directly against ctx — the in-memory fakes below need no
// real transaction boundary, only the call shape WithTx provides.
type noopTx struct{}

func (noopTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAnswers struct {
	nextID  int64
	answers map[int64]*surveytypes.Answer
}

func newFakeAnswers() *fakeAnswers {
	return &fakeAnswers{answers: map[int64]*surveytypes.Answer{}}
}

func (f *fakeAnswers) ByID(_ context.Context, respondentID, answerID int64) (*surveytypes.Answer, error) {
	a, ok := f.answers[answerID]
	if !ok || a.RespondentID != respondentID {
		return nil, nil
	}
	return a, nil
}

func (f *fakeAnswers) ByDisplayKey(_ context.Context, respondentID int64, key string, includeDeleted bool) (*surveytypes.Answer, error) {
	for _, a := range f.answers {
		if a.RespondentID == respondentID && a.DisplayKey.String() == key {
			if a.Deleted && !includeDeleted {
				return nil, nil
			}
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAnswers) BySection(_ context.Context, respondentID, surveyID, stepID int64, stepInstance uint16, sectionID int64, sectionInstance uint16) ([]*surveytypes.Answer, error) {
	return nil, nil
}

func (f *fakeAnswers) ByLikePattern(_ context.Context, respondentID int64, likePattern string) ([]*surveytypes.Answer, error) {
	prefix := strings.TrimSuffix(likePattern, "%")
	var out []*surveytypes.Answer
	for _, a := range f.answers {
		if a.Deleted || a.RespondentID != respondentID {
			continue
		}
		if strings.HasPrefix(a.DisplayKey.String(), prefix) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayKey.Less(out[j].DisplayKey) })
	return out, nil
}

func (f *fakeAnswers) BySectionInstances(ctx context.Context, respondentID int64, sectionQueryPattern string) ([]*surveytypes.Answer, error) {
	all, err := f.ByLikePattern(ctx, respondentID, sectionQueryPattern)
	if err != nil {
		return nil, err
	}
	var out []*surveytypes.Answer
	for _, a := range all {
		if a.QuestionID == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnswers) DownstreamAnswersForRelationship(_ context.Context, respondentID, relationshipID int64) ([]*surveytypes.Answer, error) {
	return nil, nil
}

func (f *fakeAnswers) UpstreamAnswerForRelationship(_ context.Context, sectionQuestionID, respondentID int64, stepInstance, sectionInstance uint16) (*surveytypes.Answer, error) {
	for _, a := range f.answers {
		if a.Deleted || a.RespondentID != respondentID {
			continue
		}
		if a.SectionQuestionID != nil && *a.SectionQuestionID == sectionQuestionID &&
			a.StepInstance == stepInstance && a.SectionInstance == sectionInstance {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAnswers) Insert(_ context.Context, a *surveytypes.Answer) (int64, error) {
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.answers[a.ID] = &cp
	return a.ID, nil
}

func (f *fakeAnswers) Update(_ context.Context, a *surveytypes.Answer) error {
	cp := *a
	f.answers[a.ID] = &cp
	return nil
}

func (f *fakeAnswers) SoftDelete(_ context.Context, respondentID, answerID int64) error {
	if a, ok := f.answers[answerID]; ok && a.RespondentID == respondentID {
		a.Deleted = true
	}
	return nil
}

func (f *fakeAnswers) HardDeleteWhereDeleted(_ context.Context, respondentID int64) (int, error) {
	n := 0
	for id, a := range f.answers {
		if a.RespondentID == respondentID && a.Deleted {
			delete(f.answers, id)
			n++
		}
	}
	return n, nil
}

type fakeDependents struct {
	nextID int64
	edges  map[int64]*surveytypes.Dependent
}

func newFakeDependents() *fakeDependents {
	return &fakeDependents{edges: map[int64]*surveytypes.Dependent{}}
}

func (f *fakeDependents) ByUpstream(_ context.Context, respondentID, upstreamID int64) ([]*surveytypes.Dependent, error) {
	return nil, nil
}
func (f *fakeDependents) ByDownstream(_ context.Context, respondentID, downstreamID int64) ([]*surveytypes.Dependent, error) {
	return nil, nil
}
func (f *fakeDependents) FindUnique(_ context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) (*surveytypes.Dependent, error) {
	return nil, nil
}
func (f *fakeDependents) Insert(_ context.Context, d *surveytypes.Dependent) (int64, error) {
	f.nextID++
	d.ID = f.nextID
	cp := *d
	f.edges[d.ID] = &cp
	return d.ID, nil
}
func (f *fakeDependents) SoftDelete(_ context.Context, respondentID, dependentID int64) error {
	if d, ok := f.edges[dependentID]; ok && d.RespondentID == respondentID {
		d.Deleted = true
	}
	return nil
}
func (f *fakeDependents) Revive(_ context.Context, respondentID, dependentID int64) error {
	if d, ok := f.edges[dependentID]; ok && d.RespondentID == respondentID {
		d.Deleted = false
	}
	return nil
}
func (f *fakeDependents) HardDeleteWhereDeleted(_ context.Context, respondentID int64) (int, error) {
	n := 0
	for id, d := range f.edges {
		if d.RespondentID == respondentID && d.Deleted {
			delete(f.edges, id)
			n++
		}
	}
	return n, nil
}

type fakeRespondents struct {
	respondents map[int64]*surveytypes.Respondent
}

func newFakeRespondents(ids ...int64) *fakeRespondents {
	f := &fakeRespondents{respondents: map[int64]*surveytypes.Respondent{}}
	for _, id := range ids {
		f.respondents[id] = &surveytypes.Respondent{ID: id, SurveyID: 1, Active: true}
	}
	return f
}

func (f *fakeRespondents) ByID(_ context.Context, id int64) (*surveytypes.Respondent, error) {
	r, ok := f.respondents[id]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (f *fakeRespondents) MarkFinalized(_ context.Context, id int64) error {
	r, ok := f.respondents[id]
	if !ok {
		return nil
	}
	r.Active = false
	if r.FinalizedAt == nil {
		now := time.Now()
		r.FinalizedAt = &now
	}
	return nil
}

func newTestFacade(t *testing.T, respondentID int64) *Engine {
	t.Helper()
	snap, err := defstore.LoadFile("../../testdata/sample_survey.toml")
	require.NoError(t, err)
	answers := newFakeAnswers()
	deps := newFakeDependents()
	prop := propagate.New(snap, answers, deps)
	respondents := newFakeRespondents(respondentID)
	return New(prop, answers, respondents, noopTx{})
}

func TestInitRejectsUnknownRespondent(t *testing.T) {
	e := newTestFacade(t, 1)
	err := e.Init(context.Background(), 999, displaykey.New(1, 1, 1, 0, 0, 0, 0))
	require.ErrorIs(t, err, surveyerr.ErrUnknownRespondent)
}

func TestInitThenNavigateFindsConsentSection(t *testing.T) {
	e := newTestFacade(t, 1)
	ctx := context.Background()
	require.NoError(t, e.Init(ctx, 1, displaykey.New(1, 1, 1, 0, 0, 0, 0)))

	items, current, err := e.Navigate(ctx, 1, "0001-0001-0001-0001-0001-0000-0000")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, current)
	require.Equal(t, "Consent Section", current.Name)
}

func TestNavigateMaterializesSectionWithoutPriorInit(t *testing.T) {
	e := newTestFacade(t, 1)
	ctx := context.Background()

	// No Init call for this respondent at all: Navigate alone must
	// materialize the Consent section and its question.
	items, current, err := e.Navigate(ctx, 1, "0001-0001-0001-0001-0001-0000-0000")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, current)
	require.Equal(t, "Consent Section", current.Name)

	consentQuestion, err := e.Answers.ByDisplayKey(ctx, 1, "0001-0001-0001-0001-0001-0001-0001", false)
	require.NoError(t, err)
	require.NotNil(t, consentQuestion, "Navigate must materialize the section's own initial question, not just read existing answers")
}

func TestSaveAnswerThroughFacade(t *testing.T) {
	e := newTestFacade(t, 1)
	ctx := context.Background()
	require.NoError(t, e.Init(ctx, 1, displaykey.New(1, 1, 1, 0, 0, 0, 0)))

	trueVal := "true"
	a, err := e.SaveAnswer(ctx, 1, "0001-0001-0001-0001-0001-0001-0001", &trueVal)
	require.NoError(t, err)
	require.Equal(t, "true", *a.TextValue)
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e := newTestFacade(t, 1)
	ctx := context.Background()
	require.NoError(t, e.Finalize(ctx, 1))

	first, err := e.Respondent.ByID(ctx, 1)
	require.NoError(t, err)
	require.False(t, first.Active)
	require.NotNil(t, first.FinalizedAt)
	firstStamp := *first.FinalizedAt

	require.NoError(t, e.Finalize(ctx, 1))
	second, err := e.Respondent.ByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, firstStamp, *second.FinalizedAt)
}

func TestRemoveDeletedPurgesSoftDeletedAnswers(t *testing.T) {
	e := newTestFacade(t, 1)
	ctx := context.Background()
	require.NoError(t, e.Init(ctx, 1, displaykey.New(1, 1, 1, 0, 0, 0, 0)))

	consentKey := "0001-0001-0001-0001-0001-0001-0001"
	trueVal, falseVal := "true", "false"
	_, err := e.SaveAnswer(ctx, 1, consentKey, &trueVal)
	require.NoError(t, err)
	_, err = e.SaveAnswer(ctx, 1, consentKey, &falseVal)
	require.NoError(t, err)

	require.NoError(t, e.RemoveDeleted(ctx, 1))

	fa := e.Answers.(*fakeAnswers)
	for _, a := range fa.answers {
		require.False(t, a.Deleted, "no soft-deleted row should survive removeDeleted")
	}
}
