package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/namegen-api/internal/config"
	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/events"
	"github.com/phrazzld/namegen-api/internal/platform/logger"
	"github.com/phrazzld/namegen-api/internal/redact"
	"github.com/phrazzld/namegen-api/internal/store"
)

// SlugAllocator produces candidate slugs from a human-readable hint.
type SlugAllocator interface {
	Allocate(hint string) (string, error)
}

// TaskService provides task-related operations.
type TaskService interface {
	// CreateTask validates the input, persists a pending task under a fresh
	// slug and requests generation. It returns as soon as the task is stored.
	CreateTask(ctx context.Context, input domain.TaskInput) (*domain.Task, error)

	// ListTasks returns one page of tasks, newest first.
	// A zero limit selects the default page size; larger limits are clamped.
	ListTasks(ctx context.Context, cursor string, limit int) (*store.TaskPage, error)

	// GetTask retrieves a task by its slug.
	GetTask(ctx context.Context, slug string) (*domain.Task, error)

	// DeleteTask removes a task permanently.
	DeleteTask(ctx context.Context, slug string) error
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	store        store.TaskStore
	slugs        SlugAllocator
	eventEmitter events.EventEmitter
	settings     config.TaskConfig
	logger       *slog.Logger
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	slugs SlugAllocator,
	eventEmitter events.EventEmitter,
	settings config.TaskConfig,
	log *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "taskStore cannot be nil"}
	}
	if slugs == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "slugs cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}
	if settings.SlugAttempts < 1 || settings.ListDefaultLimit < 1 || settings.ListMaxLimit < settings.ListDefaultLimit {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   fmt.Sprintf("invalid task settings %+v", settings),
		}
	}

	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		store:        taskStore,
		slugs:        slugs,
		eventEmitter: eventEmitter,
		settings:     settings,
		logger:       log.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.
func (s *taskServiceImpl) CreateTask(ctx context.Context, input domain.TaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	input = input.Normalized()
	if err := input.Validate(); err != nil {
		log.Debug("rejected task input", slog.String("error", err.Error()))
		return nil, err
	}

	hint := input.SlugHint()
	for attempt := 1; attempt <= s.settings.SlugAttempts; attempt++ {
		slug, err := s.slugs.Allocate(hint)
		if err != nil {
			return nil, NewTaskServiceError("create_task", "failed to allocate slug", err)
		}

		task, err := domain.NewTask(slug, input)
		if err != nil {
			return nil, NewTaskServiceError("create_task", "failed to build task", err)
		}

		created, err := s.store.Create(ctx, task)
		if errors.Is(err, store.ErrSlugConflict) {
			log.Warn("slug collision, allocating another",
				slog.String("slug", slug),
				slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			log.Error("failed to persist task",
				slog.String("slug", slug),
				slog.String("error", redact.Error(err)))
			return nil, NewTaskServiceError("create_task", "failed to save task", err)
		}

		log.Info("task created with pending status", slog.String("slug", created.Slug))
		s.requestGeneration(ctx, log, created.Slug)
		return created, nil
	}

	log.Error("slug allocation exhausted",
		slog.String("hint", hint),
		slog.Int("attempts", s.settings.SlugAttempts))
	return nil, ErrSlugExhausted
}

// requestGeneration emits the name_generation event. The task is already
// stored, so a failure here is logged and the stale-task sweep eventually
// fails the task.
func (s *taskServiceImpl) requestGeneration(ctx context.Context, log *slog.Logger, slug string) {
	event, err := events.NewNameGenerationEvent(slug)
	if err != nil {
		log.Error("failed to create name generation event",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
		return
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit name generation event",
			slog.String("slug", slug),
			slog.String("event_id", event.ID.String()),
			slog.String("error", redact.Error(err)))
		return
	}

	log.Debug("name generation event emitted",
		slog.String("slug", slug),
		slog.String("event_id", event.ID.String()))
}

// ListTasks implements TaskService.
func (s *taskServiceImpl) ListTasks(ctx context.Context, cursor string, limit int) (*store.TaskPage, error) {
	switch {
	case limit < 0:
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrValidation)
	case limit == 0:
		limit = s.settings.ListDefaultLimit
	case limit > s.settings.ListMaxLimit:
		limit = s.settings.ListMaxLimit
	}

	page, err := s.store.List(ctx, cursor, limit)
	if err != nil {
		if !errors.Is(err, store.ErrInvalidCursor) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
				slog.String("error", redact.Error(err)))
		}
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return page, nil
}

// GetTask implements TaskService.
func (s *taskServiceImpl) GetTask(ctx context.Context, slug string) (*domain.Task, error) {
	if !domain.IsValidSlug(slug) {
		return nil, ErrTaskNotFound
	}

	task, err := s.store.Get(ctx, slug)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve task",
				slog.String("slug", slug),
				slog.String("error", redact.Error(err)))
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// DeleteTask implements TaskService.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, slug string) error {
	if !domain.IsValidSlug(slug) {
		return ErrTaskNotFound
	}

	log := logger.FromContextOrDefault(ctx, s.logger)
	if err := s.store.Delete(ctx, slug); err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			log.Error("failed to delete task",
				slog.String("slug", slug),
				slog.String("error", redact.Error(err)))
		}
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	log.Info("task deleted", slog.String("slug", slug))
	return nil
}
