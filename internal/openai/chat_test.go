package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/service"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
		}},
	}
}

func TestChatGenerator_Complete(t *testing.T) {
	api := new(MockChatAPI)
	gen := newChatGenerator(api, "", nil)

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == DefaultChatModel &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == openai.ChatMessageRoleSystem &&
			req.Messages[1].Content == "what is hypertension?" &&
			req.MaxTokens == 1000
	})).Return(completion("  Hypertension is high blood pressure.\n"), nil)

	text, err := gen.Complete(context.Background(), service.CompletionRequest{
		SystemPrompt: "system",
		UserPrompt:   "what is hypertension?",
		Temperature:  0.3,
		MaxTokens:    1000,
	})

	require.NoError(t, err)
	assert.Equal(t, "Hypertension is high blood pressure.", text)
	api.AssertExpectations(t)
}

func TestChatGenerator_Complete_NoSystemPrompt(t *testing.T) {
	api := new(MockChatAPI)
	gen := newChatGenerator(api, "gpt-4o", nil)

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o" && len(req.Messages) == 1
	})).Return(completion("ok"), nil)

	_, err := gen.Complete(context.Background(), service.CompletionRequest{UserPrompt: "hi"})

	assert.NoError(t, err)
}

func TestChatGenerator_Complete_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		api := new(MockChatAPI)
		gen := newChatGenerator(api, "", nil)
		api.On("CreateChatCompletion", mock.Anything, mock.Anything).
			Return(openai.ChatCompletionResponse{}, errors.New("503"))

		_, err := gen.Complete(context.Background(), service.CompletionRequest{UserPrompt: "q"})

		assert.ErrorContains(t, err, "chat completion failed")
	})

	t.Run("no choices", func(t *testing.T) {
		api := new(MockChatAPI)
		gen := newChatGenerator(api, "", nil)
		api.On("CreateChatCompletion", mock.Anything, mock.Anything).
			Return(openai.ChatCompletionResponse{}, nil)

		_, err := gen.Complete(context.Background(), service.CompletionRequest{UserPrompt: "q"})

		assert.ErrorIs(t, err, errNoChoices)
	})
}

func TestEntityRecognizer_ExtractEntities_NormalizesAndAnchors(t *testing.T) {
	api := new(MockChatAPI)
	rec := NewEntityRecognizer(newChatGenerator(api, "", nil))
	text := "Severe headache after taking Ibuprofen"

	api.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.ResponseFormat != nil && req.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONObject
	})).Return(completion(`{"entities":[
		{"text":"headache","label":"symptom","start":7,"end":15},
		{"text":"ibuprofen","label":"MEDICATION","start":0,"end":3},
		{"text":"aspirin","label":"MEDICATION","start":0,"end":7}
	]}`), nil)

	got, err := rec.ExtractEntities(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, []domain.RawEntity{
		{Text: "headache", Label: "SYMPTOM", Start: 7, End: 15},
		{Text: "Ibuprofen", Label: "MEDICATION", Start: 29, End: 38},
	}, got)
}

func TestEntityRecognizer_BadJSON(t *testing.T) {
	api := new(MockChatAPI)
	rec := NewEntityRecognizer(newChatGenerator(api, "", nil))
	api.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(completion("not json"), nil)

	got, err := rec.ExtractEntities(context.Background(), "fever")

	assert.Error(t, err)
	assert.Nil(t, got)
}
