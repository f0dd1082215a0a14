// Package service contains the task use cases: validating creation input,
// allocating a slug, persisting the pending task and requesting generation,
// plus get, list and delete. It depends on the store and events interfaces
// only, never on a concrete backend.
//
// Error handling:
//   - Expected conditions are returned as sentinel errors (ErrTaskNotFound,
//     ErrSlugExhausted, domain.ErrValidation, store.ErrInvalidCursor).
//   - Unexpected failures are wrapped in *TaskServiceError, which keeps the
//     cause reachable through errors.Is/errors.As (store.ErrStoreUnavailable
//     in particular).
//   - The API layer maps these to HTTP status codes.
package service
