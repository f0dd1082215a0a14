package memory

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/namegen-api/internal/store"
	"github.com/phrazzld/namegen-api/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStoreConformance(t *testing.T) {
	storetest.RunTaskStoreSuite(t, func(t *testing.T) store.TaskStore {
		return NewTaskStore(nil)
	})
}

func TestTaskStoreReturnsCopies(t *testing.T) {
	s := NewTaskStore(nil)
	ctx := context.Background()

	task := storetest.NewPendingTask(t, "copy-check", time.Now())
	created, err := s.Create(ctx, task)
	require.NoError(t, err)

	// Mutating returned or input values does not leak into the store
	created.Input.Styles[0] = "changed"
	task.Input.YourName = "changed"

	got, err := s.Get(ctx, "copy-check")
	require.NoError(t, err)
	assert.Equal(t, "poetic", got.Input.Styles[0])
	assert.Equal(t, "Su", got.Input.YourName)
}

func TestTaskStoreRejectsNonPositiveLimit(t *testing.T) {
	_, err := NewTaskStore(nil).List(context.Background(), "", 0)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestPingHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewTaskStore(nil).Ping(ctx))
}
