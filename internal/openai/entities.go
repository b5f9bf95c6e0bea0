package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/vaidya/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

var entitySystemPrompt = `You are a clinical named-entity recogniser. Return JSON of the form
{"entities":[{"text":"...","label":"...","start":0,"end":0}]}
where start and end are byte offsets into the input and label is one of
` + strings.Join(domain.EntityLabels, ", ") + `.
Return {"entities":[]} when nothing matches.`

// EntityRecognizer is an NLP entity backend built on JSON-mode chat completions.
type EntityRecognizer struct {
	chat *ChatGenerator
}

func NewEntityRecognizer(chat *ChatGenerator) *EntityRecognizer {
	return &EntityRecognizer{chat: chat}
}

type entityResponse struct {
	Entities []domain.RawEntity `json:"entities"`
}

// ExtractEntities implements service.EntityBackend. Spans that do not line up
// with the input text are re-anchored on the first occurrence or dropped, as
// are labels outside domain.EntityLabels.
func (r *EntityRecognizer) ExtractEntities(ctx context.Context, text string) ([]domain.RawEntity, error) {
	resp, err := r.chat.create(ctx, openai.ChatCompletionRequest{
		Model:          r.chat.model,
		Messages:       messages(entitySystemPrompt, text),
		Temperature:    0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, err
	}

	var parsed entityResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode entity response: %w", err)
	}

	out := make([]domain.RawEntity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		if anchored, ok := anchor(text, e); ok {
			out = append(out, anchored)
		}
	}
	return out, nil
}

func anchor(text string, e domain.RawEntity) (domain.RawEntity, bool) {
	e.Label = strings.ToUpper(strings.TrimSpace(e.Label))
	if e.Text == "" || !domain.IsEntityLabel(e.Label) {
		return e, false
	}
	if e.Start >= 0 && e.Start < e.End && e.End <= len(text) && text[e.Start:e.End] == e.Text {
		return e, true
	}
	if !utf8.ValidString(e.Text) {
		return e, false
	}
	// Match against the original text: case folding can change byte lengths.
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(e.Text))
	if err != nil {
		return e, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return e, false
	}
	e.Start, e.End = loc[0], loc[1]
	e.Text = text[e.Start:e.End]
	return e, true
}
