package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/parleylabs/interviewd/pkg/backend"
)

// Config selects the models and generation limits. Model handles drafts and
// final responses; FillerModel is a cheaper model for courtesy messages and
// defaults to Model when empty.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	FillerModel string

	MaxTokens       int64
	FillerMaxTokens int64
	Temperature     float64
}

// Backend implements backend.Backend against any OpenAI-compatible chat API.
type Backend struct {
	client openai.Client
	cfg    Config
}

func New(cfg Config) *Backend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.FillerModel == "" {
		cfg.FillerModel = cfg.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.FillerMaxTokens <= 0 {
		cfg.FillerMaxTokens = 30
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	return &Backend{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}
}

func (b *Backend) GenerateDraft(ctx context.Context, req backend.Request) (string, error) {
	msgs := b.buildMessages(backend.SystemPrompt, req.History, backend.DraftInstruction(req.Utterance))
	return b.complete(ctx, b.cfg.Model, msgs, b.cfg.MaxTokens)
}

func (b *Backend) GenerateFinal(ctx context.Context, req backend.Request) (string, error) {
	msgs := b.buildMessages(backend.SystemPrompt, req.History, backend.FinalInstruction(req.Utterance, req.Topics))
	return b.complete(ctx, b.cfg.Model, msgs, b.cfg.MaxTokens)
}

func (b *Backend) GenerateFiller(ctx context.Context, triggerContext, snippet string) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(backend.FillerSystemPrompt),
		openai.UserMessage(backend.FillerInstruction(triggerContext, snippet)),
	}
	return b.complete(ctx, b.cfg.FillerModel, msgs, b.cfg.FillerMaxTokens)
}

func (b *Backend) buildMessages(system string, history []backend.Message, instruction string) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	msgs = append(msgs, openai.SystemMessage(system))
	for _, m := range history {
		switch m.Role {
		case backend.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(instruction))
	return msgs
}

func (b *Backend) complete(ctx context.Context, model string, msgs []openai.ChatCompletionMessageParamUnion, maxTokens int64) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(maxTokens),
		Temperature:         openai.Float(b.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
