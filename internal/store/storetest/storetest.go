// Package storetest provides a conformance suite that every store.TaskStore
// implementation runs from its own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.TaskStore

// NewPendingTask builds a valid pending task with the given slug and creation time.
func NewPendingTask(t *testing.T, slug string, createdAt time.Time) *domain.Task {
	t.Helper()

	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	task := &domain.Task{
		Slug:   slug,
		Status: domain.TaskStatusPending,
		Input: domain.TaskInput{
			YourName: "Su",
			Genders:  []string{"female"},
			Styles:   []string{"poetic"},
			Count:    2,
			Lang:     "en",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, task.Validate())
	return task
}

// SampleResult is the completed payload used throughout the suite.
func SampleResult() *domain.NameResult {
	return &domain.NameResult{
		Style:   "poetic",
		Name:    "苏若凡",
		Meaning: "如飘逸之风，蕴含温润与雅致",
		Story:   "姓氏苏源远流长",
	}
}

// RunTaskStoreSuite exercises the TaskStore contract.
func RunTaskStoreSuite(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateConflict", func(t *testing.T) { testCreateConflict(t, newStore(t)) })
	t.Run("CreateInvalid", func(t *testing.T) { testCreateInvalid(t, newStore(t)) })
	t.Run("SlugNotReusedAfterDelete", func(t *testing.T) { testSlugNotReused(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("UpdateOnce", func(t *testing.T) { testUpdateOnce(t, newStore(t)) })
	t.Run("UpdateFailed", func(t *testing.T) { testUpdateFailed(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("ListOrderAndPaging", func(t *testing.T) { testListOrderAndPaging(t, newStore(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
	t.Run("ListInvalidCursor", func(t *testing.T) { testListInvalidCursor(t, newStore(t)) })
	t.Run("ListPending", func(t *testing.T) { testListPending(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("ConcurrentCreates", func(t *testing.T) { testConcurrentCreates(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { assert.NoError(t, newStore(t).Ping(context.Background())) })
}

func assertSameTask(t *testing.T, want, got *domain.Task) {
	t.Helper()

	assert.Equal(t, want.Slug, got.Slug)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Input, got.Input)
	assert.Equal(t, want.Result, got.Result)
	assert.Equal(t, want.Error, got.Error)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", want.UpdatedAt, got.UpdatedAt)
}

func testCreateAndGet(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewPendingTask(t, "su-ab12cd34", time.Now())

	created, err := s.Create(ctx, task)
	require.NoError(t, err)
	assertSameTask(t, task, created)

	got, err := s.Get(ctx, task.Slug)
	require.NoError(t, err)
	assertSameTask(t, task, got)
}

func testCreateConflict(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewPendingTask(t, "dup-slug", time.Now())

	_, err := s.Create(ctx, task)
	require.NoError(t, err)

	_, err = s.Create(ctx, NewPendingTask(t, "dup-slug", time.Now()))
	assert.ErrorIs(t, err, store.ErrSlugConflict)
}

func testCreateInvalid(t *testing.T, s store.TaskStore) {
	task := NewPendingTask(t, "invalid-task", time.Now())
	task.Result = SampleResult()

	_, err := s.Create(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func testSlugNotReused(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewPendingTask(t, "reused-slug", time.Now())

	_, err := s.Create(ctx, task)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, task.Slug))

	_, err = s.Create(ctx, NewPendingTask(t, "reused-slug", time.Now()))
	assert.ErrorIs(t, err, store.ErrSlugConflict)
}

func testGetMissing(t *testing.T, s store.TaskStore) {
	_, err := s.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func testUpdateOnce(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewPendingTask(t, "update-once", time.Now().Add(-time.Minute))
	_, err := s.Create(ctx, task)
	require.NoError(t, err)

	updated, err := s.Update(ctx, task.Slug, domain.Completed(SampleResult()))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, updated.Status)
	assert.Equal(t, SampleResult(), updated.Result)
	assert.Empty(t, updated.Error)
	assert.True(t, updated.UpdatedAt.After(task.CreatedAt))

	got, err := s.Get(ctx, task.Slug)
	require.NoError(t, err)
	assertSameTask(t, updated, got)

	_, err = s.Update(ctx, task.Slug, domain.Failed("late failure"))
	assert.ErrorIs(t, err, store.ErrTaskFinalized)

	got, err = s.Get(ctx, task.Slug)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
}

func testUpdateFailed(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewPendingTask(t, "update-failed", time.Now())
	_, err := s.Create(ctx, task)
	require.NoError(t, err)

	updated, err := s.Update(ctx, task.Slug, domain.Failed("generation timed out"))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, updated.Status)
	assert.Nil(t, updated.Result)
	assert.Equal(t, "generation timed out", updated.Error)
}

func testUpdateMissing(t *testing.T, s store.TaskStore) {
	_, err := s.Update(context.Background(), "missing-task", domain.Failed("x"))
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func testDelete(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewPendingTask(t, "delete-me", time.Now())
	_, err := s.Create(ctx, task)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, task.Slug))

	_, err = s.Get(ctx, task.Slug)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	err = s.Delete(ctx, task.Slug)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	page, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func testListOrderAndPaging(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)

	// Two tasks share a timestamp so the slug tiebreak is exercised
	fixtures := []*domain.Task{
		NewPendingTask(t, "task-c", base),
		NewPendingTask(t, "task-a", base.Add(2*time.Second)),
		NewPendingTask(t, "task-b", base.Add(time.Second)),
		NewPendingTask(t, "task-d", base.Add(time.Second)),
		NewPendingTask(t, "task-e", base.Add(3*time.Second)),
	}
	for _, task := range fixtures {
		_, err := s.Create(ctx, task)
		require.NoError(t, err)
	}
	want := []string{"task-e", "task-a", "task-b", "task-d", "task-c"}

	page, err := s.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Equal(t, want, slugs(page.Items))
	assert.Empty(t, page.NextCursor)

	// Newest only
	page, err = s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"task-e"}, slugs(page.Items))
	assert.NotEmpty(t, page.NextCursor)

	// Walking the cursor visits every task exactly once
	var walked []string
	cursor := ""
	for i := 0; i < 10; i++ {
		page, err := s.List(ctx, cursor, 2)
		require.NoError(t, err)
		walked = append(walked, slugs(page.Items)...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, want, walked)
}

func testListEmpty(t *testing.T, s store.TaskStore) {
	page, err := s.List(context.Background(), "", 20)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.NextCursor)
}

func testListInvalidCursor(t *testing.T, s store.TaskStore) {
	_, err := s.List(context.Background(), "definitely not a cursor", 10)
	assert.ErrorIs(t, err, store.ErrInvalidCursor)
}

func testListPending(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	now := time.Now()

	old := NewPendingTask(t, "pending-old", now.Add(-2*time.Hour))
	older := NewPendingTask(t, "pending-older", now.Add(-3*time.Hour))
	fresh := NewPendingTask(t, "pending-fresh", now)
	done := NewPendingTask(t, "done-old", now.Add(-4*time.Hour))
	for _, task := range []*domain.Task{old, older, fresh, done} {
		_, err := s.Create(ctx, task)
		require.NoError(t, err)
	}
	_, err := s.Update(ctx, done.Slug, domain.Completed(SampleResult()))
	require.NoError(t, err)

	pending, err := s.ListPending(ctx, now.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"pending-older", "pending-old"}, slugs(pending))

	pending, err = s.ListPending(ctx, now.Add(-time.Hour), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"pending-older"}, slugs(pending))
}

func testConcurrentUpdates(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewPendingTask(t, "contended", time.Now())
	_, err := s.Create(ctx, task)
	require.NoError(t, err)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		finalized int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update(ctx, task.Slug, domain.Failed(fmt.Sprintf("writer %d", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, store.ErrTaskFinalized):
				finalized++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, finalized)
}

func testConcurrentCreates(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < writers; i++ {
		task := NewPendingTask(t, "race-slug", time.Now())
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(ctx, task)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, store.ErrSlugConflict)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func slugs(tasks []*domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Slug)
	}
	return out
}
