package store

import (
	"context"
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
)

// TaskPage is one page of a task listing.
type TaskPage struct {
	Items []*domain.Task `json:"items"`
	// NextCursor is empty when there are no further items.
	NextCursor string `json:"nextCursor,omitempty"`
}

// TaskStore defines the interface for task persistence.
// Every mutation is atomic with respect to concurrent readers and writers.
type TaskStore interface {
	// Create persists a new pending task.
	// Returns ErrSlugConflict if the slug is in use or was used before.
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// Get retrieves a task by slug.
	// Returns ErrTaskNotFound if the task does not exist.
	Get(ctx context.Context, slug string) (*domain.Task, error)

	// Update records the final outcome of a pending task and sets UpdatedAt.
	// Returns ErrTaskNotFound if the task does not exist and
	// ErrTaskFinalized if it already has an outcome.
	Update(ctx context.Context, slug string, outcome domain.Outcome) (*domain.Task, error)

	// Delete removes a task permanently. The slug stays reserved.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, slug string) error

	// List returns tasks ordered by CreatedAt descending, then slug ascending.
	// Returns ErrInvalidCursor if the cursor cannot be decoded.
	List(ctx context.Context, cursor string, limit int) (*TaskPage, error)

	// ListPending returns up to limit pending tasks created before the given time,
	// oldest first.
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Task, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}
