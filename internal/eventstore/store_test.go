package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

const testRunID = "run-1"

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	e, err := NewRunStarted(testRunID, RunStartedPayload{Targets: []string{"build"}, Trigger: "build"})
	require.NoError(t, err)
	e.EventMetadata = map[string]string{"key": "value"}
	require.NoError(t, store.Append(ctx, e))

	events, err := store.GetByRunID(ctx, testRunID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, testRunID, got.RunID())
	assert.Equal(t, TypeRunStarted, got.Type())
	assert.Equal(t, "value", got.Metadata()["key"])
	assert.NotZero(t, got.ID())
	assert.WithinDuration(t, e.Timestamp(), got.Timestamp(), time.Millisecond)

	p, err := DecodePayload[RunStartedPayload](got)
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, p.Targets)
}

func TestEventStoreRecent(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	for _, run := range []string{"a", "b", "c"} {
		e, err := NewRunStarted(run, RunStartedPayload{})
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, e))
	}

	events, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].RunID())
	assert.Equal(t, "b", events[1].RunID())
}

func TestEventStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	e, err := NewBundleFinished(testRunID, BundlePayload{Compiled: []string{"app/app.js"}, Size: 10})
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), e))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	events, err := reopened.GetByRunID(t.Context(), testRunID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, TypeBundleBuilt, events[0].Type())
}

func TestEventStoreClosed(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	e, err := NewRunStarted(testRunID, RunStartedPayload{})
	require.NoError(t, err)
	err = store.Append(t.Context(), e)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryEventStore))
}

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mk := func(id int64, run, typ string, payload any, at time.Time) Event {
		e, err := NewEvent(run, typ, payload)
		require.NoError(t, err)
		e.EventID = id
		e.EventTimestamp = at
		return e
	}

	events := []Event{
		mk(1, "r1", TypeRunStarted, RunStartedPayload{Targets: []string{"build"}}, base),
		mk(2, "r1", TypeTaskFinished, TaskFinishedPayload{Task: "css", Written: []string{"css/bundle.css"}}, base),
		mk(3, "r1", TypeTaskFinished, TaskFinishedPayload{Task: "html", Written: []string{"index.html", "a.html"}}, base),
		mk(4, "r1", TypeRunCompleted, RunFinishedPayload{DurationMS: 1500}, base),
		mk(5, "b1", TypeBundleFailed, BundlePayload{Error: "parse error", Module: "app/app.js"}, base.Add(time.Minute)),
		mk(6, "r2", TypeRunStarted, RunStartedPayload{Targets: []string{"css"}}, base.Add(2*time.Minute)),
	}

	got := Summarize(events)
	require.Len(t, got, 3)

	assert.Equal(t, "r2", got[0].RunID)
	assert.Equal(t, statusRunning, got[0].Status)

	assert.Equal(t, "b1", got[1].RunID)
	assert.Equal(t, "bundle", got[1].Kind)
	assert.Equal(t, statusFailed, got[1].Status)
	assert.Equal(t, "parse error", got[1].Error)

	assert.Equal(t, "r1", got[2].RunID)
	assert.Equal(t, statusCompleted, got[2].Status)
	assert.Equal(t, 2, got[2].Tasks)
	assert.Equal(t, 3, got[2].Written)
	assert.Equal(t, 1500*time.Millisecond, got[2].Duration)
	assert.Equal(t, []string{"build"}, got[2].Targets)
}
