package generation

import (
	"context"

	"github.com/phrazzld/namegen-api/internal/domain"
)

// Generator defines the interface for producing a name from a task's input.
// Implementations must honour ctx cancellation; the dispatcher bounds every
// call with a deadline.
type Generator interface {
	// GenerateName returns one name result for the input, or an error
	// (see errors.go for the sentinel values).
	GenerateName(ctx context.Context, input domain.TaskInput) (*domain.NameResult, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, input domain.TaskInput) (*domain.NameResult, error)

// GenerateName implements Generator.
func (f GeneratorFunc) GenerateName(ctx context.Context, input domain.TaskInput) (*domain.NameResult, error) {
	return f(ctx, input)
}
