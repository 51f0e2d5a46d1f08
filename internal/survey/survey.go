// Package survey implements the Public Façade (spec.md §4.I): the only
// entry point external callers use, wiring the Definition Store,
// Propagation Engine, and Navigation Builder behind five operations —
// init, navigate, saveAnswer, finalize, removeDeleted — each run inside
// exactly one storage transaction with a per-respondent mutex serializing
// mutation, matching spec.md §5's concurrency model.
package survey

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/surveyflow/engine/internal/answerstore"
	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/navigation"
	"github.com/surveyflow/engine/internal/propagate"
	"github.com/surveyflow/engine/internal/respondentstore"
	"github.com/surveyflow/engine/internal/surveyerr"
	"github.com/surveyflow/engine/internal/surveytypes"
)

var tracer = otel.Tracer("github.com/surveyflow/engine/survey")

// TxRunner is the transaction boundary the façade wraps every call in.
// internal/storage/sqlstore.Store.WithTx satisfies this.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine is the Public Façade. One Engine serves every respondent of the
// survey it was built for.
type Engine struct {
	Propagate  *propagate.Engine
	Answers    answerstore.Store
	Respondent respondentstore.Store
	Tx         TxRunner

	locks keyedMutex
}

// New builds a Public Façade over an already-constructed Propagation
// Engine and its storage backends.
func New(prop *propagate.Engine, answers answerstore.Store, respondents respondentstore.Store, tx TxRunner) *Engine {
	return &Engine{Propagate: prop, Answers: answers, Respondent: respondents, Tx: tx}
}

// Init materializes a respondent's initial answers for initialKey's step
// (spec.md §4.G "Initial materialization", entry point 1 of 5).
func (e *Engine) Init(ctx context.Context, respondentID int64, initialKey displaykey.Key) error {
	ctx, span := tracer.Start(ctx, "survey.Init")
	defer span.End()

	unlock := e.locks.Lock(respondentID)
	defer unlock()

	err := e.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.requireActiveRespondent(ctx, respondentID); err != nil {
			return err
		}
		return e.Propagate.Init(ctx, respondentID, initialKey)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Navigate returns the respondent's navigation list and the item matching
// sectionKey, first guaranteeing sectionKey's own section is materialized
// (spec.md §2: "a read (navigate) calls [the Propagation Engine] to
// guarantee materialization of initial answers for that section"; §4.I's
// navigate entry triggers initial materialization of the entered section)
// so a respondent can navigate straight to a section without having called
// init on it first.
func (e *Engine) Navigate(ctx context.Context, respondentID int64, sectionKey string) ([]navigation.Item, *navigation.Item, error) {
	ctx, span := tracer.Start(ctx, "survey.Navigate")
	defer span.End()

	unlock := e.locks.Lock(respondentID)
	defer unlock()

	var items []navigation.Item
	var current *navigation.Item
	err := e.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.requireActiveRespondent(ctx, respondentID); err != nil {
			return err
		}
		key, err := displaykey.Parse(sectionKey)
		if err != nil {
			return err
		}
		if err := e.Propagate.MaterializeSection(ctx, respondentID, key); err != nil {
			return err
		}
		all, err := e.Answers.ByLikePattern(ctx, respondentID, "%")
		if err != nil {
			return err
		}
		var sections []*surveytypes.Answer
		for _, a := range all {
			if a.IsSectionLevel() {
				sections = append(sections, a)
			}
		}
		items = navigation.Build(sections)
		current = navigation.Current(items, sectionKey)
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	return items, current, nil
}

// SaveAnswer persists a new textValue and runs the full propagation cycle
// (spec.md §4.I "saveAnswer").
func (e *Engine) SaveAnswer(ctx context.Context, respondentID int64, displayKey string, textValue *string) (*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "survey.SaveAnswer")
	defer span.End()

	unlock := e.locks.Lock(respondentID)
	defer unlock()

	var answer *surveytypes.Answer
	err := e.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.requireActiveRespondent(ctx, respondentID); err != nil {
			return err
		}
		a, err := e.Propagate.SaveAnswer(ctx, respondentID, displayKey, textValue)
		if err != nil {
			return err
		}
		answer = a
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return answer, nil
}

// Finalize marks a respondent inactive and stamps finalizedAt, idempotently
// (spec.md Scenario 6: calling twice leaves the first finalizedAt intact).
func (e *Engine) Finalize(ctx context.Context, respondentID int64) error {
	ctx, span := tracer.Start(ctx, "survey.Finalize")
	defer span.End()

	unlock := e.locks.Lock(respondentID)
	defer unlock()

	err := e.Tx.WithTx(ctx, func(ctx context.Context) error {
		r, err := e.Respondent.ByID(ctx, respondentID)
		if err != nil {
			return err
		}
		if r == nil {
			return surveyerr.ErrUnknownRespondent
		}
		return e.Respondent.MarkFinalized(ctx, respondentID)
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// RemoveDeleted physically purges soft-deleted Dependents then Answers for
// respondentID (spec.md §4.I "removeDeleted"; Dependents first since a
// purged Answer row would otherwise leave dangling edge references).
func (e *Engine) RemoveDeleted(ctx context.Context, respondentID int64) error {
	ctx, span := tracer.Start(ctx, "survey.RemoveDeleted")
	defer span.End()

	unlock := e.locks.Lock(respondentID)
	defer unlock()

	err := e.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := e.requireActiveRespondent(ctx, respondentID); err != nil {
			return err
		}
		if _, err := e.Propagate.Dependents.HardDeleteWhereDeleted(ctx, respondentID); err != nil {
			return err
		}
		_, err := e.Answers.HardDeleteWhereDeleted(ctx, respondentID)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (e *Engine) requireActiveRespondent(ctx context.Context, respondentID int64) error {
	r, err := e.Respondent.ByID(ctx, respondentID)
	if err != nil {
		return err
	}
	if r == nil {
		return surveyerr.ErrUnknownRespondent
	}
	return nil
}

// keyedMutex hands out one *sync.Mutex per respondent ID, locking and
// unlocking it without holding the top-level lock during the caller's
// critical section. Same map-guarded-by-mutex shape as a request
// deduplicator, specialized from coalescing to mutual exclusion.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// Lock acquires the mutex for id, creating it on first use, and returns a
// func to release it.
func (k *keyedMutex) Lock(id int64) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*sync.Mutex)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
