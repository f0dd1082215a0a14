package service_test

import (
	"context"
	"time"

	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/events"
	"github.com/phrazzld/namegen-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockSlugAllocator is a mock implementation of service.SlugAllocator
type MockSlugAllocator struct {
	mock.Mock
}

func (m *MockSlugAllocator) Allocate(hint string) (string, error) {
	args := m.Called(hint)
	return args.String(0), args.Error(1)
}

// MockEventEmitter is a mock implementation of events.EventEmitter
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTaskStore is a mock implementation of store.TaskStore
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, task)
	created, _ := args.Get(0).(*domain.Task)
	return created, args.Error(1)
}

func (m *MockTaskStore) Get(ctx context.Context, slug string) (*domain.Task, error) {
	args := m.Called(ctx, slug)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *MockTaskStore) Update(ctx context.Context, slug string, outcome domain.Outcome) (*domain.Task, error) {
	args := m.Called(ctx, slug, outcome)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *MockTaskStore) Delete(ctx context.Context, slug string) error {
	args := m.Called(ctx, slug)
	return args.Error(0)
}

func (m *MockTaskStore) List(ctx context.Context, cursor string, limit int) (*store.TaskPage, error) {
	args := m.Called(ctx, cursor, limit)
	page, _ := args.Get(0).(*store.TaskPage)
	return page, args.Error(1)
}

func (m *MockTaskStore) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Task, error) {
	args := m.Called(ctx, createdBefore, limit)
	tasks, _ := args.Get(0).([]*domain.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ store.TaskStore = (*MockTaskStore)(nil)
