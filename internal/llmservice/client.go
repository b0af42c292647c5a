package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"activity-rag/internal/config"
	"activity-rag/internal/models"
)

const (
	temperature = 0.2
	topP        = 0.9
	maxTokens   = 300
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Generator answers a question from grounding context with a chat model.
type Generator struct {
	llm     llms.Model
	timeout time.Duration
}

// NewModel builds the chat model for the configured provider.
func NewModel(cfg *config.LLMConfig) (llms.Model, error) {
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("Creating chat model")
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	case config.ProviderOpenAI:
		return openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	}
	return nil, fmt.Errorf("%w: unknown inference provider %q", models.ErrConfiguration, cfg.Provider)
}

func New(cfg *config.LLMConfig) (*Generator, error) {
	llm, err := NewModel(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, cfg.Timeout), nil
}

func NewWithModel(llm llms.Model, timeout time.Duration) *Generator {
	return &Generator{llm: llm, timeout: timeout}
}

// Generate sends the system constraint and the rendered prompt to the
// model and returns its answer without any <think> block.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	res, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithTopP(topP),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("generating answer: model returned no choices")
	}
	return strings.TrimSpace(thinkRe.ReplaceAllString(res.Choices[0].Content, "")), nil
}
