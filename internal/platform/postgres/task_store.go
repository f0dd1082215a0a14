package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/platform/logger"
	"github.com/phrazzld/namegen-api/internal/store"
)

const taskColumns = `slug, status, input::text, result::text, error_message, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create.
// The slug is reserved in task_slugs within the same transaction, so a slug
// that was ever used yields store.ErrSlugConflict.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("slug", task.Slug))
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	input, err := json.Marshal(task.Input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_slugs (slug) VALUES ($1)`, task.Slug); err != nil {
			if IsUniqueViolation(err) {
				return store.ErrSlugConflict
			}
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (slug, status, input, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			task.Slug,
			string(task.Status),
			string(input),
			task.CreatedAt,
			task.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrSlugConflict) {
			log.Debug("slug already reserved", slog.String("slug", task.Slug))
			return nil, err
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("slug", task.Slug))
		return nil, s.mapError("create", err)
	}

	log.Debug("task created", slog.String("slug", task.Slug))
	return task.Clone(), nil
}

// Get implements store.TaskStore.Get.
func (s *PostgresTaskStore) Get(ctx context.Context, slug string) (*domain.Task, error) {
	task, err := getTask(ctx, s.db, slug, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("slug", slug))
		return nil, s.mapError("get", err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update.
// The row is locked with SELECT ... FOR UPDATE so that concurrent outcomes
// are serialised and only the first one is applied.
func (s *PostgresTaskStore) Update(
	ctx context.Context,
	slug string,
	outcome domain.Outcome,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		task, err := getTask(ctx, tx, slug, true)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrTaskNotFound
			}
			return err
		}

		if err := task.Apply(outcome, domain.Now()); err != nil {
			if errors.Is(err, domain.ErrTaskNotPending) {
				return store.ErrTaskFinalized
			}
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		var result sql.NullString
		if task.Result != nil {
			raw, err := json.Marshal(task.Result)
			if err != nil {
				return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
			}
			result = sql.NullString{String: string(raw), Valid: true}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE tasks
			SET status = $1, result = $2, error_message = $3, updated_at = $4
			WHERE slug = $5 AND status = 'pending'
		`,
			string(task.Status),
			result,
			sql.NullString{String: task.Error, Valid: task.Error != ""},
			task.UpdatedAt,
			slug,
		)
		if err != nil {
			return err
		}
		if err := CheckRowsAffected(res, store.ErrTaskFinalized); err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) && !errors.Is(err, store.ErrTaskFinalized) {
			log.Error("failed to update task",
				slog.String("error", err.Error()),
				slog.String("slug", slug))
		}
		return nil, s.mapError("update", err)
	}

	log.Debug("task outcome recorded",
		slog.String("slug", slug),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

// Delete implements store.TaskStore.Delete.
// Only the task row is removed; its slug reservation remains.
func (s *PostgresTaskStore) Delete(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE slug = $1`, slug)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("slug", slug))
		return s.mapError("delete", err)
	}
	return CheckRowsAffected(res, store.ErrTaskNotFound)
}

// List implements store.TaskStore.List using keyset pagination on
// (created_at DESC, slug ASC).
func (s *PostgresTaskStore) List(ctx context.Context, cursor string, limit int) (*store.TaskPage, error) {
	after, hasCursor, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", store.ErrInvalidEntity)
	}

	var rows *sql.Rows
	if hasCursor {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE created_at < $1 OR (created_at = $1 AND slug > $2)
			ORDER BY created_at DESC, slug ASC
			LIMIT $3
		`, after.CreatedAt, after.Slug, limit+1)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			ORDER BY created_at DESC, slug ASC
			LIMIT $1
		`, limit+1)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("error", err.Error()))
		return nil, s.mapError("list", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, s.mapError("list", err)
	}

	page := &store.TaskPage{Items: tasks}
	if len(tasks) > limit {
		page.Items = tasks[:limit]
		page.NextCursor = store.CursorFor(page.Items[limit-1]).Encode()
	}
	return page, nil
}

// ListPending implements store.TaskStore.ListPending.
func (s *PostgresTaskStore) ListPending(
	ctx context.Context,
	createdBefore time.Time,
	limit int,
) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC, slug ASC
		LIMIT $2
	`, createdBefore.UTC(), limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list pending tasks",
			slog.String("error", err.Error()))
		return nil, s.mapError("list_pending", err)
	}

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, s.mapError("list_pending", err)
	}
	return tasks, nil
}

// Ping implements store.TaskStore.Ping.
func (s *PostgresTaskStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Unavailable("task", "ping", err)
	}
	return nil
}

// mapError passes store sentinels through and maps everything else with MapError.
func (s *PostgresTaskStore) mapError(operation string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrTaskFinalized),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, store.ErrStoreUnavailable):
		return err
	}

	mapped := MapError(err)
	if errors.Is(mapped, store.ErrStoreUnavailable) {
		return store.NewStoreError("task", operation, "database error", mapped)
	}
	return mapped
}

// getTask loads one row through either the pool or a transaction.
// forUpdate locks the row until the transaction ends.
func getTask(ctx context.Context, q store.DBTX, slug string, forUpdate bool) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE slug = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanTask(q.QueryRowContext(ctx, query, slug))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task      domain.Task
		status    string
		input     string
		result    sql.NullString
		errorMsg  sql.NullString
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(
		&task.Slug,
		&status,
		&input,
		&result,
		&errorMsg,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(input), &task.Input); err != nil {
		return nil, fmt.Errorf("failed to decode task input: %w", err)
	}
	if result.Valid {
		task.Result = &domain.NameResult{}
		if err := json.Unmarshal([]byte(result.String), task.Result); err != nil {
			return nil, fmt.Errorf("failed to decode task result: %w", err)
		}
	}

	task.Status = domain.TaskStatus(status)
	task.Error = errorMsg.String
	task.CreatedAt = createdAt.UTC()
	task.UpdatedAt = updatedAt.UTC()
	return &task, nil
}

func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}
