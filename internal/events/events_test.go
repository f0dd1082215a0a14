package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler counts the events it sees and returns a fixed error.
type recordingHandler struct {
	err    error
	events []*TaskRequestEvent
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestNewNameGenerationEvent(t *testing.T) {
	event, err := NewNameGenerationEvent("su-ruo-fan-abcd1234")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TaskTypeNameGeneration, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var payload NameGenerationPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "su-ruo-fan-abcd1234", payload.Slug)
}

func TestNewTaskRequestEventRejectsUnencodablePayload(t *testing.T) {
	_, err := NewTaskRequestEvent("bad", make(chan int))
	assert.Error(t, err)
}

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("no handlers", func(t *testing.T) {
		event, err := NewNameGenerationEvent("a")
		require.NoError(t, err)
		assert.NoError(t, NewInMemoryEventEmitter(logger).EmitEvent(context.Background(), event))
	})

	t.Run("all handlers receive the event", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		first, second := &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event, err := NewNameGenerationEvent("a")
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, []*TaskRequestEvent{event}, first.events)
		assert.Equal(t, []*TaskRequestEvent{event}, second.events)
	})

	t.Run("first error is returned after all handlers ran", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(nil)
		errFirst := errors.New("first failure")
		failing := &recordingHandler{err: errFirst}
		alsoFailing := &recordingHandler{err: errors.New("second failure")}
		ok := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(alsoFailing)
		emitter.RegisterHandler(ok)

		event, err := NewNameGenerationEvent("a")
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, errFirst)
		assert.Len(t, ok.events, 1)
	})

	t.Run("handler func adapter", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		var got string
		emitter.RegisterHandler(EventHandlerFunc(func(ctx context.Context, e *TaskRequestEvent) error {
			var p NameGenerationPayload
			if err := e.UnmarshalPayload(&p); err != nil {
				return err
			}
			got = p.Slug
			return nil
		}))

		event, err := NewNameGenerationEvent("slug-x")
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, "slug-x", got)
	})
}
