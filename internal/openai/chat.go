package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/vaidya/internal/service"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// DefaultChatModel is used when no chat model is configured
const DefaultChatModel = openai.GPT4TurboPreview

var errNoChoices = errors.New("no completion choices returned")

// ChatAPI is the subset of the go-openai client used for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ChatConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	RateLimit float64
}

// ChatGenerator produces answer text with the chat completions endpoint.
type ChatGenerator struct {
	api     ChatAPI
	model   string
	limiter *rate.Limiter
}

func NewChatGenerator(cfg ChatConfig) *ChatGenerator {
	return newChatGenerator(newAPIClient(cfg.APIKey, cfg.BaseURL), cfg.Model, newLimiter(cfg.RateLimit))
}

func newChatGenerator(api ChatAPI, model string, limiter *rate.Limiter) *ChatGenerator {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatGenerator{api: api, model: model, limiter: limiter}
}

// Complete implements service.Generator.
func (g *ChatGenerator) Complete(ctx context.Context, req service.CompletionRequest) (string, error) {
	resp, err := g.create(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages(req.SystemPrompt, req.UserPrompt),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *ChatGenerator) create(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, fmt.Errorf("rate limiter: %w", err)
		}
	}
	resp, err := g.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errNoChoices
	}
	return resp, nil
}

func messages(system, user string) []openai.ChatCompletionMessage {
	var out []openai.ChatCompletionMessage
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	return append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})
}
