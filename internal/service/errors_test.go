package service_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/service"
	"github.com/phrazzld/namegen-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNewTaskServiceError(t *testing.T) {
	assert.NoError(t, service.NewTaskServiceError("op", "msg", nil))

	assert.Same(t, service.ErrTaskNotFound,
		service.NewTaskServiceError("get_task", "x", store.ErrTaskNotFound))
	assert.Same(t, service.ErrSlugExhausted,
		service.NewTaskServiceError("create_task", "x", service.ErrSlugExhausted))

	validation := fmt.Errorf("%w: count", domain.ErrValidation)
	assert.Same(t, validation, service.NewTaskServiceError("create_task", "x", validation))

	cause := errors.New("boom")
	err := service.NewTaskServiceError("list_tasks", "failed to list tasks", cause)
	var svcErr *service.TaskServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "task service list_tasks failed: failed to list tasks: boom", err.Error())

	bare := &service.TaskServiceError{Operation: "create_service", Message: "nil store"}
	assert.Equal(t, "task service create_service failed: nil store", bare.Error())
}
