// Package memory provides an in-process TaskStore for local development and
// tests. Data is lost when the process exits.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/platform/logger"
	"github.com/phrazzld/namegen-api/internal/store"
)

// TaskStore keeps tasks in a map guarded by a RWMutex.
type TaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.Task
	reserved map[string]struct{}
	logger   *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates an empty in-memory TaskStore.
// If logger is nil, a default logger will be used.
func NewTaskStore(log *slog.Logger) *TaskStore {
	if log == nil {
		log = slog.Default()
	}
	return &TaskStore{
		tasks:    make(map[string]*domain.Task),
		reserved: make(map[string]struct{}),
		logger:   log.With(slog.String("component", "memory_task_store")),
	}
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.reserved[task.Slug]; taken {
		log.Debug("slug already reserved", slog.String("slug", task.Slug))
		return nil, store.ErrSlugConflict
	}

	s.reserved[task.Slug] = struct{}{}
	s.tasks[task.Slug] = task.Clone()

	log.Debug("task created", slog.String("slug", task.Slug))
	return task.Clone(), nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(ctx context.Context, slug string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[slug]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(
	ctx context.Context,
	slug string,
	outcome domain.Outcome,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[slug]
	if !ok {
		return nil, store.ErrTaskNotFound
	}

	updated := current.Clone()
	if err := updated.Apply(outcome, domain.Now()); err != nil {
		if errors.Is(err, domain.ErrTaskNotPending) {
			return nil, store.ErrTaskFinalized
		}
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	s.tasks[slug] = updated

	log.Debug("task outcome recorded",
		slog.String("slug", slug),
		slog.String("status", string(updated.Status)))
	return updated.Clone(), nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[slug]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, slug)
	return nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context, cursor string, limit int) (*store.TaskPage, error) {
	after, hasCursor, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", store.ErrInvalidEntity)
	}

	s.mu.RLock()
	all := make([]*domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if hasCursor && !after.After(task) {
			continue
		}
		all = append(all, task.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return store.Less(all[i], all[j]) })

	page := &store.TaskPage{Items: all}
	if len(all) > limit {
		page.Items = all[:limit]
		page.NextCursor = store.CursorFor(page.Items[limit-1]).Encode()
	}
	return page, nil
}

// ListPending implements store.TaskStore.
func (s *TaskStore) ListPending(
	ctx context.Context,
	createdBefore time.Time,
	limit int,
) ([]*domain.Task, error) {
	s.mu.RLock()
	var pending []*domain.Task
	for _, task := range s.tasks {
		if task.Status == domain.TaskStatusPending && task.CreatedAt.Before(createdBefore) {
			pending = append(pending, task.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].Slug < pending[j].Slug
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// Ping implements store.TaskStore.
func (s *TaskStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
