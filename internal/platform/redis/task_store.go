package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/platform/logger"
	"github.com/phrazzld/namegen-api/internal/store"
)

// maxTxAttempts bounds optimistic transaction retries on contended keys.
const maxTxAttempts = 16

// errRetryExhausted is returned when a watched transaction kept conflicting.
var errRetryExhausted = errors.New("redis transaction retries exhausted")

// RedisTaskStore implements the store.TaskStore interface on Redis.
type RedisTaskStore struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

// Ensure RedisTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*RedisTaskStore)(nil)

// NewRedisTaskStore creates a store that keeps all keys under prefix.
// If logger is nil, a default logger will be used.
func NewRedisTaskStore(client goredis.UniversalClient, prefix string, logger *slog.Logger) *RedisTaskStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisTaskStore{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

func (s *RedisTaskStore) taskKey(slug string) string { return s.prefix + ":task:" + slug }
func (s *RedisTaskStore) slugKey(slug string) string { return s.prefix + ":slug:" + slug }
func (s *RedisTaskStore) indexKey() string           { return s.prefix + ":tasks:index" }
func (s *RedisTaskStore) pendingKey() string         { return s.prefix + ":tasks:pending" }

// indexMember sorts lexicographically in (CreatedAt DESC, Slug ASC) order:
// a fixed-width inverted timestamp followed by the slug.
func indexMember(createdAt time.Time, slug string) string {
	return fmt.Sprintf("%020d:%s", math.MaxInt64-createdAt.UnixMicro(), slug)
}

func pendingScore(createdAt time.Time) float64 {
	return float64(createdAt.UnixMicro())
}

// Create implements store.TaskStore.Create.
func (s *RedisTaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	slugKey := s.slugKey(task.Slug)
	err = s.watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, slugKey).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return store.ErrSlugConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, slugKey, task.CreatedAt.Format(time.RFC3339Nano), 0)
			pipe.Set(ctx, s.taskKey(task.Slug), data, 0)
			pipe.ZAdd(ctx, s.indexKey(), &goredis.Z{Member: indexMember(task.CreatedAt, task.Slug)})
			pipe.ZAdd(ctx, s.pendingKey(), &goredis.Z{
				Score:  pendingScore(task.CreatedAt),
				Member: task.Slug,
			})
			return nil
		})
		return err
	}, slugKey)
	if err != nil {
		if errors.Is(err, store.ErrSlugConflict) {
			log.Debug("slug already reserved", slog.String("slug", task.Slug))
			return nil, err
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("slug", task.Slug))
		return nil, store.Unavailable("task", "create", err)
	}

	log.Debug("task created", slog.String("slug", task.Slug))
	return task.Clone(), nil
}

// Get implements store.TaskStore.Get.
func (s *RedisTaskStore) Get(ctx context.Context, slug string) (*domain.Task, error) {
	task, err := s.get(ctx, s.client, slug)
	if err != nil && !errors.Is(err, store.ErrTaskNotFound) {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("slug", slug))
		return nil, store.Unavailable("task", "get", err)
	}
	return task, err
}

// Update implements store.TaskStore.Update.
func (s *RedisTaskStore) Update(
	ctx context.Context,
	slug string,
	outcome domain.Outcome,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	key := s.taskKey(slug)

	var updated *domain.Task
	err := s.watch(ctx, func(tx *goredis.Tx) error {
		task, err := s.get(ctx, tx, slug)
		if err != nil {
			return err
		}

		if err := task.Apply(outcome, domain.Now()); err != nil {
			if errors.Is(err, domain.ErrTaskNotPending) {
				return store.ErrTaskFinalized
			}
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZRem(ctx, s.pendingKey(), slug)
			return nil
		})
		if err != nil {
			return err
		}
		updated = task
		return nil
	}, key)
	if err != nil {
		return nil, s.mapError(log, "update", slug, err)
	}

	log.Debug("task outcome recorded",
		slog.String("slug", slug),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

// Delete implements store.TaskStore.Delete.
// The slug reservation key is left in place.
func (s *RedisTaskStore) Delete(ctx context.Context, slug string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	key := s.taskKey(slug)

	err := s.watch(ctx, func(tx *goredis.Tx) error {
		task, err := s.get(ctx, tx, slug)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, s.indexKey(), indexMember(task.CreatedAt, slug))
			pipe.ZRem(ctx, s.pendingKey(), slug)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return s.mapError(log, "delete", slug, err)
	}
	return nil
}

// List implements store.TaskStore.List.
func (s *RedisTaskStore) List(ctx context.Context, cursor string, limit int) (*store.TaskPage, error) {
	after, hasCursor, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", store.ErrInvalidEntity)
	}

	lower := "-"
	if hasCursor {
		lower = "(" + indexMember(after.CreatedAt, after.Slug)
	}

	// Entries whose record disappeared between the two reads are skipped,
	// so keep reading until the page is full or the index is exhausted.
	var tasks []*domain.Task
	want := limit + 1
	for len(tasks) < want {
		members, err := s.client.ZRangeByLex(ctx, s.indexKey(), &goredis.ZRangeBy{
			Min:   lower,
			Max:   "+",
			Count: int64(want - len(tasks)),
		}).Result()
		if err != nil {
			return nil, s.listError(ctx, err)
		}
		if len(members) == 0 {
			break
		}

		slugs := make([]string, len(members))
		for i, m := range members {
			slugs[i] = slugFromMember(m)
		}
		found, err := s.mget(ctx, slugs)
		if err != nil {
			return nil, s.listError(ctx, err)
		}
		tasks = append(tasks, found...)
		lower = "(" + members[len(members)-1]
	}

	page := &store.TaskPage{Items: tasks}
	if len(tasks) > limit {
		page.Items = tasks[:limit]
		page.NextCursor = store.CursorFor(page.Items[limit-1]).Encode()
	}
	if page.Items == nil {
		page.Items = []*domain.Task{}
	}
	return page, nil
}

// ListPending implements store.TaskStore.ListPending.
func (s *RedisTaskStore) ListPending(
	ctx context.Context,
	createdBefore time.Time,
	limit int,
) ([]*domain.Task, error) {
	slugs, err := s.client.ZRangeByScore(ctx, s.pendingKey(), &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(createdBefore.UnixMicro(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, s.listError(ctx, err)
	}

	tasks, err := s.mget(ctx, slugs)
	if err != nil {
		return nil, s.listError(ctx, err)
	}

	pending := tasks[:0]
	for _, task := range tasks {
		if task.Status == domain.TaskStatusPending {
			pending = append(pending, task)
		}
	}
	return pending, nil
}

// Ping implements store.TaskStore.Ping.
func (s *RedisTaskStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return store.Unavailable("task", "ping", err)
	}
	return nil
}

// watch runs fn in a WATCH/MULTI transaction, retrying when a watched key
// was modified concurrently.
func (s *RedisTaskStore) watch(ctx context.Context, fn func(*goredis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return errRetryExhausted
}

func (s *RedisTaskStore) get(ctx context.Context, c goredis.Cmdable, slug string) (*domain.Task, error) {
	data, err := c.Get(ctx, s.taskKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrTaskNotFound
		}
		return nil, err
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", slug, err)
	}
	return &task, nil
}

// mget loads the given tasks in order, skipping slugs without a record.
func (s *RedisTaskStore) mget(ctx context.Context, slugs []string) ([]*domain.Task, error) {
	if len(slugs) == 0 {
		return []*domain.Task{}, nil
	}

	keys := make([]string, len(slugs))
	for i, slug := range slugs {
		keys[i] = s.taskKey(slug)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var task domain.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", slugs[i], err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

func (s *RedisTaskStore) mapError(log *slog.Logger, operation, slug string, err error) error {
	switch {
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskFinalized),
		errors.Is(err, store.ErrInvalidEntity):
		return err
	}
	log.Error("task store operation failed",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("slug", slug))
	return store.Unavailable("task", operation, err)
}

func (s *RedisTaskStore) listError(ctx context.Context, err error) error {
	logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
		slog.String("error", err.Error()))
	return store.Unavailable("task", "list", err)
}

func slugFromMember(member string) string {
	// members are "<20 digits>:<slug>"
	if len(member) > 21 {
		return member[21:]
	}
	return ""
}
