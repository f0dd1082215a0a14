package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/namegen-api/internal/api/shared"
	"github.com/phrazzld/namegen-api/internal/generation"
	"github.com/phrazzld/namegen-api/internal/platform/logger"
)

// GenerateHandler serves POST /api/generate: a synchronous generation that
// is not persisted as a task.
type GenerateHandler struct {
	generator generation.Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewGenerateHandler creates a GenerateHandler bounding each call by timeout.
func NewGenerateHandler(generator generation.Generator, timeout time.Duration, log *slog.Logger) *GenerateHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GenerateHandler{
		generator: generator,
		timeout:   timeout,
		logger:    log.With(slog.String("component", "generate_handler")),
	}
}

// Generate handles POST /api/generate. An empty body generates with defaults.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	req = req.Normalized()
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	input := req.ToInput()
	if err := input.Validate(); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.generator.GenerateName(ctx, input)
	if err == nil {
		err = result.Validate()
		if err != nil {
			err = errors.Join(generation.ErrInvalidResponse, err)
		}
	}
	if err != nil {
		if ctx.Err() != nil && r.Context().Err() == nil {
			err = errors.Join(context.DeadlineExceeded, err)
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("direct generation succeeded")
	shared.RespondWithJSON(w, r, http.StatusOK, GenerateResponse{Success: true, Data: result})
}
