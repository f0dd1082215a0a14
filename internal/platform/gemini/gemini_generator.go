package gemini

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/namegen-api/internal/config"
	"github.com/phrazzld/namegen-api/internal/domain"
	"github.com/phrazzld/namegen-api/internal/generation"
	"google.golang.org/genai"
)

//go:embed prompt.tmpl
var defaultPromptTemplate string

// sampling temperature for name generation
const temperature float32 = 0.6

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	logger         *slog.Logger
	config         config.LLMConfig
	promptTemplate *template.Template
	client         ContentGenerator
	model          string

	// baseDelay is the first retry delay; it doubles on every attempt.
	baseDelay time.Duration
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a GeminiGenerator with a real genai client.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return NewGeminiGeneratorWithClient(logger, cfg, client.Models)
}

// NewGeminiGeneratorWithClient creates a GeminiGenerator around an existing
// content client. The prompt template is read from cfg.PromptTemplatePath
// when set, otherwise the embedded template is used.
func NewGeminiGeneratorWithClient(
	logger *slog.Logger,
	cfg config.LLMConfig,
	client ContentGenerator,
) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("%w: content client cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	templateContent := defaultPromptTemplate
	if cfg.PromptTemplatePath != "" {
		raw, err := os.ReadFile(cfg.PromptTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				generation.ErrInvalidConfig, cfg.PromptTemplatePath, err)
		}
		templateContent = string(raw)
	}

	promptTemplate, err := template.New("name").Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			generation.ErrInvalidConfig, err)
	}

	baseDelay := time.Duration(cfg.RetryDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}

	return &GeminiGenerator{
		logger:         logger.With(slog.String("component", "gemini_generator")),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
		baseDelay:      baseDelay,
	}, nil
}

// GenerateName implements generation.Generator.
func (g *GeminiGenerator) GenerateName(ctx context.Context, input domain.TaskInput) (*domain.NameResult, error) {
	prompt, err := g.createPrompt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	text, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	candidates, err := generation.ParseCandidates(text)
	if err != nil {
		g.logger.WarnContext(ctx, "unparseable model output",
			slog.Int("output_length", len(text)))
		return nil, err
	}

	candidates = generation.NormalizeCandidates(candidates)
	if len(candidates) == 0 {
		return nil, generation.ErrNoCandidates
	}

	g.logger.DebugContext(ctx, "name candidates generated",
		slog.Int("usable", len(candidates)))
	return candidates[0].ToResult(input.PreferredStyle()), nil
}

// createPrompt renders the prompt template for the input.
func (g *GeminiGenerator) createPrompt(ctx context.Context, input domain.TaskInput) (string, error) {
	prefs, err := json.Marshal(preferences{
		YourName: input.YourName,
		Genders:  nonNil(input.Genders),
		Styles:   nonNil(input.Styles),
		Count:    input.Count,
		Lang:     input.Lang,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode preferences: %w", err)
	}

	data := promptData{
		YourName:    input.YourName,
		Style:       input.PreferredStyle(),
		Count:       input.Count,
		Lang:        input.Lang,
		Preferences: string(prefs),
	}

	var buf bytes.Buffer
	if err := g.promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	prompt := strings.TrimSpace(buf.String())
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	g.logger.DebugContext(ctx, "prompt generated", slog.Int("prompt_length", len(prompt)))
	return prompt, nil
}

// callGeminiWithRetry calls the model with exponential backoff retry logic.
//
// Transport errors are retried up to config.MaxRetries times with
// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5)). Blocked and malformed
// responses are permanent and returned immediately.
func (g *GeminiGenerator) callGeminiWithRetry(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	temp := temperature
	genConfig := &genai.GenerateContentConfig{
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
	}

	for attempt := 0; ; attempt++ {
		g.logger.DebugContext(ctx, "making Gemini API call",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		resp, err := g.client.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
		if err == nil {
			text, perr := responseText(resp)
			if perr != nil {
				g.logger.WarnContext(ctx, "permanent Gemini error, not retrying",
					slog.String("error", perr.Error()))
				return "", perr
			}
			return text, nil
		}

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}

		g.logger.WarnContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		backoff := float64(g.baseDelay) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rand.Float64()*0.5
		delay := time.Duration(backoff * jitter)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// responseText extracts the concatenated text of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
