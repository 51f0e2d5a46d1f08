//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/dolt"

	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/surveytypes"
)

// These tests exercise sqlstore against a real `dolt sql-server` started in
// a container, exercising the server-mode connection path. Run with
// `-tags integration`; skipped otherwise since they require a container
// runtime.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := dolt.Run(ctx, "dolthub/dolt-sql-server:latest")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	store, err := Open(ctx, Config{
		ServerMode: true,
		ServerHost: host,
		ServerPort: port.Int(),
		ServerUser: "root",
		Database:   "surveyflow",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAnswerInsertAndFetchRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := displaykey.New(1, 1, 1, 1, 1, 1, 1)
	text := "blue"
	err := store.WithTx(ctx, func(ctx context.Context) error {
		_, err := store.Insert(ctx, &surveytypes.Answer{
			RespondentID: 1, SurveyID: 1, StepID: 1, StepInstance: 1,
			SectionID: 1, SectionInstance: 1, QuestionInstance: 1,
			DisplayKey: key, DisplayText: "Favorite color?", TextValue: &text,
		})
		return err
	})
	require.NoError(t, err)

	got, err := store.ByDisplayKey(ctx, 1, key.String(), false)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "blue", *got.TextValue)
}

func TestSoftDeleteThenHardDeleteRemovesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := displaykey.New(1, 1, 1, 1, 1, 1, 2)
	var id int64
	err := store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		id, err = store.Insert(ctx, &surveytypes.Answer{
			RespondentID: 1, SurveyID: 1, StepID: 1, StepInstance: 1,
			SectionID: 1, SectionInstance: 1, QuestionInstance: 2,
			DisplayKey: key, DisplayText: "x",
		})
		return err
	})
	require.NoError(t, err)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context) error {
		return store.SoftDelete(ctx, 1, id)
	}))

	got, err := store.ByDisplayKey(ctx, 1, key.String(), false)
	require.NoError(t, err)
	require.Nil(t, got)

	var n int
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		n, err = store.HardDeleteWhereDeleted(ctx, 1)
		return err
	}))
	require.Equal(t, 1, n)
}
