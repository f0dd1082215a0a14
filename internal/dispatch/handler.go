package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/events"
	"github.com/phrazzld/namegen-api/internal/store"
)

// TaskDispatcher queues a pending task for generation.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, task *domain.Task) error
}

// EventHandler turns name_generation events into dispatched tasks.
type EventHandler struct {
	store      store.TaskStore
	dispatcher TaskDispatcher
	logger     *slog.Logger
}

var _ events.EventHandler = (*EventHandler)(nil)

// NewEventHandler creates a handler that loads the task named by each event
// and hands it to the dispatcher.
func NewEventHandler(taskStore store.TaskStore, dispatcher TaskDispatcher, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		store:      taskStore,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "generation_event_handler")),
	}
}

// HandleEvent implements events.EventHandler. Events of other types are ignored.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != events.TaskTypeNameGeneration {
		h.logger.Debug("ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	var payload events.NameGenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if !domain.IsValidSlug(payload.Slug) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSlug, payload.Slug)
	}

	task, err := h.store.Get(ctx, payload.Slug)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", payload.Slug, err)
	}
	if task.Status != domain.TaskStatusPending {
		h.logger.Debug("task already finalized, not dispatching",
			slog.String("slug", task.Slug),
			slog.String("status", string(task.Status)))
		return nil
	}

	if err := h.dispatcher.Dispatch(ctx, task); err != nil {
		return fmt.Errorf("failed to dispatch task %s: %w", task.Slug, err)
	}
	return nil
}
