package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-draft-system/models"
	"tournament-draft-system/storage"
)

func newTestScheduler(t *testing.T, interval time.Duration) (*AutosaveScheduler, *DraftRepository, *fakeLocal, string) {
	t.Helper()
	repo, local, _, _, audit := newTestRepo(false)
	draft, err := repo.Create(context.Background(), "", models.DocumentMap{"name": "Autosave Cup"})
	require.NoError(t, err)
	return NewAutosaveScheduler(repo, audit, interval), repo, local, draft.ID
}

func document(t *testing.T, repo *DraftRepository, id string) models.DocumentMap {
	t.Helper()
	d, ok := repo.Get(id)
	require.True(t, ok)
	return d.Document
}

func TestEditUnknownDraft(t *testing.T) {
	sched, _, _, _ := newTestScheduler(t, time.Second)
	err := sched.Edit(context.Background(), "nope", models.DocumentMap{"a": 1}, "")
	assert.True(t, storage.IsNotFound(err))
}

func TestDebounceCoalescesEditsLastValueWins(t *testing.T) {
	sched, repo, local, id := newTestScheduler(t, 30*time.Millisecond)
	ctx := context.Background()

	writesBefore := local.writes
	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 1}, ""))
	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 2, "venue": "A"}, ""))
	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 3}, ""))

	// Nothing committed inside the quiet period.
	assert.NotContains(t, document(t, repo, id), "rounds")
	assert.True(t, sched.Pending(id))

	require.Eventually(t, func() bool { return !sched.Pending(id) }, time.Second, 5*time.Millisecond)

	doc := document(t, repo, id)
	assert.EqualValues(t, 3, doc["rounds"])
	assert.Equal(t, "A", doc["venue"])
	assert.Equal(t, writesBefore+1, local.writes, "three edits should coalesce into one commit")
}

func TestCheckpointFlushesImmediately(t *testing.T) {
	sched, repo, _, id := newTestScheduler(t, time.Hour)
	ctx := context.Background()

	// A pending plain edit must ride along with the checkpoint commit.
	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"venue": "Hall C"}, ""))
	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"pairing": "swiss"}, "pairing_method"))

	doc := document(t, repo, id)
	assert.Equal(t, "Hall C", doc["venue"])
	assert.Equal(t, "swiss", doc["pairing"])
	assert.False(t, sched.Pending(id))
}

func TestCheckpointWaitsForInFlightFlush(t *testing.T) {
	sched, repo, local, id := newTestScheduler(t, time.Hour)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	local.onWrite = func() {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}

	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 4}, ""))
	go func() { _ = sched.Flush(ctx, id) }()
	<-started // first flush is now blocked inside the commit

	done := make(chan error, 1)
	go func() {
		done <- sched.Edit(ctx, id, models.DocumentMap{"pairing": "swiss"}, "pairing_method")
	}()

	// The checkpoint must not report committed while the other flush still
	// holds the write.
	select {
	case <-done:
		t.Fatal("checkpoint acknowledged before its patch was persisted")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("checkpoint flush never completed")
	}

	doc := document(t, repo, id)
	assert.EqualValues(t, 4, doc["rounds"])
	assert.Equal(t, "swiss", doc["pairing"])
	assert.False(t, sched.Pending(id))
}

func TestUnknownCheckpointIsDebounced(t *testing.T) {
	sched, repo, _, id := newTestScheduler(t, time.Hour)
	require.NoError(t, sched.Edit(context.Background(), id, models.DocumentMap{"a": 1}, "not_a_milestone"))

	assert.NotContains(t, document(t, repo, id), "a")
	assert.True(t, sched.Pending(id))
}

func TestFlushCommitsAccumulatedPatch(t *testing.T) {
	sched, repo, _, id := newTestScheduler(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 6}, ""))
	require.NoError(t, sched.Flush(ctx, id))

	assert.EqualValues(t, 6, document(t, repo, id)["rounds"])
	assert.False(t, sched.Pending(id))

	// Flushing with nothing pending is a no-op.
	require.NoError(t, sched.Flush(ctx, id))
}

func TestFailedFlushRetainsPatchForRetry(t *testing.T) {
	sched, repo, local, id := newTestScheduler(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 2}, ""))
	local.writeErr = &storage.LocalStorageError{Op: "local write", Err: assert.AnError}
	err := sched.Flush(ctx, id)
	require.Error(t, err)
	assert.True(t, storage.IsLocalStorageError(err))
	assert.True(t, sched.Pending(id), "failed patch stays accumulated")
	assert.NotContains(t, document(t, repo, id), "rounds")

	// Storage recovers; the retained patch commits on the next flush.
	local.writeErr = nil
	require.NoError(t, sched.Flush(ctx, id))
	assert.EqualValues(t, 2, document(t, repo, id)["rounds"])
	assert.False(t, sched.Pending(id))
}

func TestFailedFlushDoesNotClobberNewerEdits(t *testing.T) {
	sched, repo, local, id := newTestScheduler(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 2}, ""))
	local.writeErr = &storage.LocalStorageError{Op: "local write", Err: assert.AnError}
	require.Error(t, sched.Flush(ctx, id))

	// A newer value for the same key arrives after the failure; it must win
	// over the re-accumulated failed value.
	require.NoError(t, sched.Edit(ctx, id, models.DocumentMap{"rounds": 9}, ""))
	local.writeErr = nil
	require.NoError(t, sched.Flush(ctx, id))
	assert.EqualValues(t, 9, document(t, repo, id)["rounds"])
}

func TestFlushAllCommitsEveryDraft(t *testing.T) {
	repo, _, _, _, audit := newTestRepo(false)
	ctx := context.Background()
	a, err := repo.Create(ctx, "", nil)
	require.NoError(t, err)
	b, err := repo.Create(ctx, "", nil)
	require.NoError(t, err)

	sched := NewAutosaveScheduler(repo, audit, time.Hour)
	require.NoError(t, sched.Edit(ctx, a.ID, models.DocumentMap{"x": 1}, ""))
	require.NoError(t, sched.Edit(ctx, b.ID, models.DocumentMap{"y": 2}, ""))

	sched.FlushAll(ctx)

	assert.EqualValues(t, 1, document(t, repo, a.ID)["x"])
	assert.EqualValues(t, 2, document(t, repo, b.ID)["y"])
	assert.False(t, sched.Pending(a.ID))
	assert.False(t, sched.Pending(b.ID))
}

func TestCheckpointRenamesDraft(t *testing.T) {
	sched, repo, _, id := newTestScheduler(t, time.Hour)
	require.NoError(t, sched.Edit(context.Background(), id,
		models.DocumentMap{"name": "Renamed Open"}, "basic_info"))

	d, ok := repo.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Renamed Open", d.Name)
}
