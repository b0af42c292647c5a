package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"activity-rag/internal/config"
	"activity-rag/internal/models"
)

type fakeModel struct {
	answer   string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.answer}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGenerateSendsGroundedMessages(t *testing.T) {
	m := &fakeModel{answer: "<think>\nlooking at sources\n</think>\nThe fee is $12 (https://example.local/activities/ACT-101#registration)."}
	g := NewWithModel(m, 0)

	answer, err := g.Generate(context.Background(), models.SystemConstraint, "Context:\n[0] Fee: $12.\nSource: x\n---\n\nQuestion: What is the fee?")
	require.NoError(t, err)
	assert.Equal(t, "The fee is $12 (https://example.local/activities/ACT-101#registration).", answer)

	require.Len(t, m.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.messages[0].Role)
	assert.Equal(t, llms.TextContent{Text: models.SystemConstraint}, m.messages[0].Parts[0])
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[1].Role)
	assert.Equal(t, llms.TextContent{Text: "Context:\n[0] Fee: $12.\nSource: x\n---\n\nQuestion: What is the fee?"}, m.messages[1].Parts[0])

	assert.Equal(t, 0.2, m.opts.Temperature)
	assert.Equal(t, 0.9, m.opts.TopP)
	assert.Equal(t, 300, m.opts.MaxTokens)
}

func TestGenerateWrapsModelError(t *testing.T) {
	g := NewWithModel(&fakeModel{err: errors.New("model offline")}, 0)

	_, err := g.Generate(context.Background(), "s", "q")
	assert.ErrorContains(t, err, "model offline")
}

func TestNewModelRejectsUnknownProvider(t *testing.T) {
	_, err := New(&config.LLMConfig{Provider: "cohere"})
	assert.ErrorIs(t, err, models.ErrConfiguration)
}
