package gemini

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/namegen-api/internal/config"
	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// MockContentGenerator is a testify mock of the genai models client.
type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, cfg)
	resp, _ := args.Get(0).(*genai.GenerateContentResponse)
	return resp, args.Error(1)
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:          config.LLMProviderGemini,
		GeminiAPIKey:      "test-key",
		ModelName:         "gemini-test",
		MaxRetries:        2,
		RetryDelaySeconds: 1,
	}
}

func newTestGenerator(t *testing.T, client ContentGenerator) *GeminiGenerator {
	t.Helper()

	g, err := NewGeminiGeneratorWithClient(slog.Default(), testConfig(), client)
	require.NoError(t, err)
	g.baseDelay = time.Millisecond
	return g
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testInput() domain.TaskInput {
	return domain.TaskInput{YourName: "Ada", Styles: []string{"poetic"}, Count: 2, Lang: "en"}
}

func TestGenerateNameSuccess(t *testing.T) {
	client := new(MockContentGenerator)
	output := "```json\n[" +
		`{"name":"苏若凡","style":"poetic","meaning":"graceful","surnameInfo":{"story":"Su Shi..."}},` +
		`{"name":"林清远","meaning":"clear"},` +
		"]\n```"
	client.On("GenerateContent", mock.Anything, "gemini-test", mock.Anything, mock.Anything).
		Return(textResponse(output), nil).Once()

	result, err := newTestGenerator(t, client).GenerateName(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, &domain.NameResult{
		Style:   "poetic",
		Name:    "苏若凡",
		Meaning: "graceful",
		Story:   "Su Shi...",
	}, result)
	client.AssertExpectations(t)
}

func TestGenerateNameSendsRenderedPrompt(t *testing.T) {
	client := new(MockContentGenerator)
	client.On("GenerateContent", mock.Anything, "gemini-test",
		mock.MatchedBy(func(contents []*genai.Content) bool {
			if len(contents) != 1 || len(contents[0].Parts) != 1 {
				return false
			}
			prompt := contents[0].Parts[0].Text
			return strings.Contains(prompt, `"yourName":"Ada"`) &&
				strings.Contains(prompt, "数组长度为 2") &&
				strings.Contains(prompt, "en 语言")
		}),
		mock.MatchedBy(func(cfg *genai.GenerateContentConfig) bool {
			return cfg.ResponseMIMEType == "application/json" && cfg.Temperature != nil
		}),
	).Return(textResponse(`[{"name":"苏若凡"}]`), nil).Once()

	_, err := newTestGenerator(t, client).GenerateName(context.Background(), testInput())
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestGenerateNameRetriesTransientErrors(t *testing.T) {
	client := new(MockContentGenerator)
	client.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("503 unavailable")).Twice()
	client.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(textResponse(`[{"name":"苏若凡"}]`), nil).Once()

	result, err := newTestGenerator(t, client).GenerateName(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "苏若凡", result.Name)
	client.AssertNumberOfCalls(t, "GenerateContent", 3)
}

func TestGenerateNameGivesUpAfterMaxRetries(t *testing.T) {
	client := new(MockContentGenerator)
	client.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	_, err := newTestGenerator(t, client).GenerateName(context.Background(), testInput())
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	client.AssertNumberOfCalls(t, "GenerateContent", 3)
}

func TestGenerateNamePermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want error
	}{
		{"no candidates", &genai.GenerateContentResponse{}, generation.ErrInvalidResponse},
		{
			"safety block",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			generation.ErrContentBlocked,
		},
		{"not json", textResponse("I cannot help with that"), generation.ErrInvalidResponse},
		{"only banned names", textResponse(`[{"name":"李白"}]`), generation.ErrNoCandidates},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := new(MockContentGenerator)
			client.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(tc.resp, nil).Once()

			_, err := newTestGenerator(t, client).GenerateName(context.Background(), testInput())
			assert.ErrorIs(t, err, tc.want)
			client.AssertNumberOfCalls(t, "GenerateContent", 1)
		})
	}
}

func TestGenerateNameHonoursDeadline(t *testing.T) {
	client := new(MockContentGenerator)
	client.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := newTestGenerator(t, client).GenerateName(ctx, testInput())
	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	client.AssertNumberOfCalls(t, "GenerateContent", 1)
}

func TestNewGeminiGeneratorWithClientValidation(t *testing.T) {
	client := new(MockContentGenerator)

	_, err := NewGeminiGeneratorWithClient(nil, testConfig(), client)
	assert.Error(t, err)

	_, err = NewGeminiGeneratorWithClient(slog.Default(), testConfig(), nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg := testConfig()
	cfg.ModelName = ""
	_, err = NewGeminiGeneratorWithClient(slog.Default(), cfg, client)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg = testConfig()
	cfg.PromptTemplatePath = filepath.Join(t.TempDir(), "missing.tmpl")
	_, err = NewGeminiGeneratorWithClient(slog.Default(), cfg, client)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestPromptTemplateOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Name for {{.YourName}} in {{.Lang}}"), 0o600))

	cfg := testConfig()
	cfg.PromptTemplatePath = path
	g, err := NewGeminiGeneratorWithClient(slog.Default(), cfg, new(MockContentGenerator))
	require.NoError(t, err)

	prompt, err := g.createPrompt(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "Name for Ada in en", prompt)

	require.NoError(t, os.WriteFile(path, []byte("{{.Broken"), 0o600))
	_, err = NewGeminiGeneratorWithClient(slog.Default(), cfg, new(MockContentGenerator))
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestNewGeminiGeneratorRequiresKey(t *testing.T) {
	cfg := testConfig()
	cfg.GeminiAPIKey = ""

	_, err := NewGeminiGenerator(context.Background(), slog.Default(), cfg)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
