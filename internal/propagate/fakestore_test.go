package propagate

import (
	"context"
	"sort"
	"strings"

	"github.com/surveyflow/engine/internal/surveytypes"
)

// fakeAnswerStore is a minimal in-memory answerstore.Store used only by
// this package's tests — the real backend (internal/storage/sqlstore)
// requires a live Dolt connection, which unit tests should not need.
type fakeAnswerStore struct {
	nextID  int64
	answers map[int64]*surveytypes.Answer
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{answers: map[int64]*surveytypes.Answer{}}
}

func (f *fakeAnswerStore) ByID(_ context.Context, respondentID, answerID int64) (*surveytypes.Answer, error) {
	a, ok := f.answers[answerID]
	if !ok || a.RespondentID != respondentID {
		return nil, nil
	}
	return a, nil
}

func (f *fakeAnswerStore) ByDisplayKey(_ context.Context, respondentID int64, key string, includeDeleted bool) (*surveytypes.Answer, error) {
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

func (f *fakeAnswerStore) BySection(_ context.Context, respondentID, surveyID, stepID int64, stepInstance uint16, sectionID int64, sectionInstance uint16) ([]*surveytypes.Answer, error) {
	var out []*surveytypes.Answer
	for _, a := range f.answers {
		if a.Deleted || a.RespondentID != respondentID {
			continue
		}
		if a.StepID == stepID && a.StepInstance == stepInstance && a.SectionID == sectionID && a.SectionInstance == sectionInstance {
			out = append(out, a)
		}
	}
	return sortedAnswers(out), nil
}

func (f *fakeAnswerStore) ByLikePattern(_ context.Context, respondentID int64, likePattern string) ([]*surveytypes.Answer, error) {
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
	return sortedAnswers(out), nil
}

func (f *fakeAnswerStore) BySectionInstances(ctx context.Context, respondentID int64, sectionQueryPattern string) ([]*surveytypes.Answer, error) {
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

func (f *fakeAnswerStore) DownstreamAnswersForRelationship(_ context.Context, respondentID, relationshipID int64) ([]*surveytypes.Answer, error) {
	return nil, nil // exercised only indirectly through sqlstore's join; not needed by these tests
}

func (f *fakeAnswerStore) UpstreamAnswerForRelationship(_ context.Context, sectionQuestionID, respondentID int64, stepInstance, sectionInstance uint16) (*surveytypes.Answer, error) {
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

func (f *fakeAnswerStore) Insert(_ context.Context, a *surveytypes.Answer) (int64, error) {
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.answers[a.ID] = &cp
	return a.ID, nil
}

func (f *fakeAnswerStore) Update(_ context.Context, a *surveytypes.Answer) error {
	cp := *a
	f.answers[a.ID] = &cp
	return nil
}

func (f *fakeAnswerStore) SoftDelete(_ context.Context, respondentID, answerID int64) error {
	if a, ok := f.answers[answerID]; ok && a.RespondentID == respondentID {
		a.Deleted = true
	}
	return nil
}

func (f *fakeAnswerStore) HardDeleteWhereDeleted(_ context.Context, respondentID int64) (int, error) {
	n := 0
	for id, a := range f.answers {
		if a.RespondentID == respondentID && a.Deleted {
			delete(f.answers, id)
			n++
		}
	}
	return n, nil
}

func sortedAnswers(in []*surveytypes.Answer) []*surveytypes.Answer {
	sort.Slice(in, func(i, j int) bool { return in[i].DisplayKey.Less(in[j].DisplayKey) })
	return in
}

// fakeDependentStore is a minimal in-memory dependentstore.Store.
type fakeDependentStore struct {
	nextID int64
	edges  map[int64]*surveytypes.Dependent
}

func newFakeDependentStore() *fakeDependentStore {
	return &fakeDependentStore{edges: map[int64]*surveytypes.Dependent{}}
}

func (f *fakeDependentStore) ByUpstream(_ context.Context, respondentID, upstreamID int64) ([]*surveytypes.Dependent, error) {
	var out []*surveytypes.Dependent
	for _, d := range f.edges {
		if d.RespondentID == respondentID && d.UpstreamID == upstreamID && !d.Deleted {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDependentStore) ByDownstream(_ context.Context, respondentID, downstreamID int64) ([]*surveytypes.Dependent, error) {
	var out []*surveytypes.Dependent
	for _, d := range f.edges {
		if d.RespondentID == respondentID && d.DownstreamID == downstreamID && !d.Deleted {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDependentStore) FindUnique(_ context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) (*surveytypes.Dependent, error) {
	for _, d := range f.edges {
		if d.RespondentID == respondentID && d.UpstreamID == upstreamID && d.DownstreamID == downstreamID && d.RelationshipID == relationshipID {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDependentStore) Insert(_ context.Context, d *surveytypes.Dependent) (int64, error) {
	f.nextID++
	d.ID = f.nextID
	cp := *d
	f.edges[d.ID] = &cp
	return d.ID, nil
}

func (f *fakeDependentStore) SoftDelete(_ context.Context, respondentID, dependentID int64) error {
	if d, ok := f.edges[dependentID]; ok && d.RespondentID == respondentID {
		d.Deleted = true
	}
	return nil
}

func (f *fakeDependentStore) Revive(_ context.Context, respondentID, dependentID int64) error {
	if d, ok := f.edges[dependentID]; ok && d.RespondentID == respondentID {
		d.Deleted = false
	}
	return nil
}

func (f *fakeDependentStore) HardDeleteWhereDeleted(_ context.Context, respondentID int64) (int, error) {
	n := 0
	for id, d := range f.edges {
		if d.RespondentID == respondentID && d.Deleted {
			delete(f.edges, id)
			n++
		}
	}
	return n, nil
}
