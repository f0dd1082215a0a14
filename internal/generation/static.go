package generation

import (
	"context"

	"github.com/phrazzld/namegen-api/internal/domain"
)

// Fixed output of the static engine.
const (
	StaticName    = "苏若凡"
	StaticMeaning = "如飘逸之风，蕴含温润与雅致"
	StaticStory   = "姓氏苏源远流长，名字若凡映照气质之淡定与风雅"
)

// StaticGenerator always returns the same name, styled after the input's
// preferred style. It needs no credentials and is used for local runs,
// the synchronous /api/generate endpoint and tests.
type StaticGenerator struct{}

// NewStaticGenerator creates a StaticGenerator.
func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{}
}

var _ Generator = (*StaticGenerator)(nil)

// GenerateName implements Generator.
func (g *StaticGenerator) GenerateName(ctx context.Context, input domain.TaskInput) (*domain.NameResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &domain.NameResult{
		Style:   input.PreferredStyle(),
		Name:    StaticName,
		Meaning: StaticMeaning,
		Story:   StaticStory,
	}, nil
}
