package event

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prodige/prodige/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string, *utils.ManualClock) {
	t.Helper()
	dir := t.TempDir()
	clock := &utils.ManualClock{Current: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	store, err := NewFileStore(dir, clock)
	require.NoError(t, err)
	return store, dir, clock
}

func TestFileStore_CreateAssignsIdentityAndDefaults(t *testing.T) {
	store, _, clock := newTestFileStore(t)

	draft := validEvent()
	draft.Status = ""

	created, err := store.Create(context.Background(), draft)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, DefaultStatus, created.Status)
	assert.Equal(t, clock.Now(), created.CreatedAt)
	assert.Equal(t, clock.Now(), created.UpdatedAt)

	// Callers never set the id.
	other, err := store.Create(context.Background(), validEvent())
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, other.ID)
}

func TestFileStore_CreateRejectsInvalid(t *testing.T) {
	store, _, _ := newTestFileStore(t)

	draft := validEvent()
	draft.End = draft.Start.Add(-time.Hour)

	_, err := store.Create(context.Background(), draft)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	// Nothing must have been persisted.
	events, err := store.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileStore_GetNotFound(t *testing.T) {
	store, _, _ := newTestFileStore(t)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_UpdatePartial(t *testing.T) {
	store, _, clock := newTestFileStore(t)

	created, err := store.Create(context.Background(), validEvent())
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	status := StatusCompleted
	updated, err := store.Update(context.Background(), created.ID, Patch{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, updated.Status)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, created.Start, updated.Start)
	assert.Equal(t, created.End, updated.End)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt must be bumped")
}

func TestFileStore_UpdateRevalidatesAgainstStoredFields(t *testing.T) {
	store, _, _ := newTestFileStore(t)

	created, err := store.Create(context.Background(), validEvent())
	require.NoError(t, err)

	// Moving only start past the stored end must fail the cross-field check.
	badStart := created.End.Add(time.Hour)
	_, err = store.Update(context.Background(), created.ID, Patch{Start: &badStart})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	stored, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Start, stored.Start, "failed update must not change the record")
}

func TestFileStore_UpdateNotFound(t *testing.T) {
	store, _, _ := newTestFileStore(t)
	status := StatusConfirmed
	_, err := store.Update(context.Background(), "missing", Patch{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_DeleteMissingIsNotFound(t *testing.T) {
	store, _, _ := newTestFileStore(t)

	created, err := store.Create(context.Background(), validEvent())
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), created.ID))
	assert.ErrorIs(t, store.Delete(context.Background(), created.ID), ErrNotFound)
	assert.ErrorIs(t, store.Delete(context.Background(), "never-existed"), ErrNotFound)
}

func TestFileStore_FindOrderedByStart(t *testing.T) {
	store, _, _ := newTestFileStore(t)

	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		e := validEvent()
		e.Start = base.Add(offset)
		e.End = e.Start.Add(30 * time.Minute)
		_, err := store.Create(context.Background(), e)
		require.NoError(t, err)
	}

	events, err := store.Find(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Start.Before(events[i-1].Start))
	}
}

func TestFileStore_MonthQueryBoundaryCrossing(t *testing.T) {
	store, _, _ := newTestFileStore(t)

	e := validEvent()
	e.Start = time.Date(2025, 2, 28, 23, 0, 0, 0, time.UTC)
	e.End = time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
	created, err := store.Create(context.Background(), e)
	require.NoError(t, err)

	for _, month := range []time.Month{time.February, time.March} {
		from, to := MonthWindow(2025, month)
		events, err := store.Find(context.Background(), Filter{From: from, To: to})
		require.NoError(t, err)
		require.Len(t, events, 1, "event must appear in %s", month)
		assert.Equal(t, created.ID, events[0].ID)
	}

	from, to := MonthWindow(2025, time.April)
	events, err := store.Find(context.Background(), Filter{From: from, To: to})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileStore_DurabilityAcrossRestart(t *testing.T) {
	store, dir, clock := newTestFileStore(t)

	const n = 5
	ids := make(map[string]bool)
	for i := 0; i < n; i++ {
		e := validEvent()
		e.Title = fmt.Sprintf("Job %d", i)
		created, err := store.Create(context.Background(), e)
		require.NoError(t, err)
		ids[created.ID] = true
	}

	// Simulate a restart: a fresh store over the same directory.
	reopened, err := NewFileStore(dir, clock)
	require.NoError(t, err)

	events, err := reopened.Find(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, events, n)
	for _, e := range events {
		assert.True(t, ids[e.ID])
	}
}

func TestFileStore_CorruptFileQuarantinedAndReset(t *testing.T) {
	dir := t.TempDir()
	corrupt := []byte("{not json at all")
	path := filepath.Join(dir, eventsFileName)
	require.NoError(t, os.WriteFile(path, corrupt, 0o644))

	clock := &utils.ManualClock{Current: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	store, err := NewFileStore(dir, clock)
	require.NoError(t, err)

	events, err := store.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, events)

	// The original bytes must survive under a backup name.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backup string
	for _, entry := range entries {
		if entry.Name() != eventsFileName {
			backup = entry.Name()
		}
	}
	require.NotEmpty(t, backup, "a backup of the corrupt file must exist")
	assert.Contains(t, backup, ".corrupt.")

	saved, err := os.ReadFile(filepath.Join(dir, backup))
	require.NoError(t, err)
	assert.Equal(t, corrupt, saved)
}

func TestFileStore_ConcurrentCreatesLoseNothing(t *testing.T) {
	store, _, _ := newTestFileStore(t)

	const k = 20
	var wg sync.WaitGroup
	errs := make([]error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := validEvent()
			e.Title = fmt.Sprintf("Concurrent job %d", i)
			_, errs[i] = store.Create(context.Background(), e)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "create %d failed", i)
	}

	events, err := store.Find(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, events, k, "every concurrent create must be persisted")
}

func TestFileStore_MissingFileInitialized(t *testing.T) {
	dir := t.TempDir()
	clock := &utils.ManualClock{Current: time.Now()}
	_, err := NewFileStore(dir, clock)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, eventsFileName))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestFileStore_RejectionParityWithValidation(t *testing.T) {
	// The file backend rejects exactly what Validate rejects.
	store, _, _ := newTestFileStore(t)

	e := validEvent()
	e.End = e.Start
	_, createErr := store.Create(context.Background(), e)
	validateErr := e.Validate()
	require.Error(t, createErr)
	require.Error(t, validateErr)

	var vErr *ValidationError
	assert.ErrorAs(t, createErr, &vErr)
	assert.Equal(t, validateErr.Error(), createErr.Error())
}
