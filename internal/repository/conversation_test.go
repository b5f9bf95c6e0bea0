//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationRepository_RecordExchange(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewConversationRepository(pool)

	conversationID := uuid.NewString()
	answer := &domain.Answer{
		Answer:     "Rest and fluids.",
		Confidence: 0.72,
		Sources: []domain.Source{
			{DocumentID: "doc-1", Title: "Influenza Guideline", Score: 0.9},
		},
		MedicalEntities: []domain.MedicalEntity{},
		Disclaimer:      service.MedicalDisclaimer,
	}

	require.NoError(t, repo.RecordExchange(ctx, service.ConversationExchange{
		ConversationID: conversationID,
		Question:       "How do I treat the flu?",
		Answer:         answer,
	}))

	messages, err := repo.ListMessages(ctx, conversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "How do I treat the flu?", messages[0].Content)
	assert.Nil(t, messages[0].Confidence)

	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "Rest and fluids.", messages[1].Content)
	require.NotNil(t, messages[1].Confidence)
	assert.InDelta(t, 0.72, *messages[1].Confidence, 1e-9)
	require.Len(t, messages[1].Sources, 1)
	assert.Equal(t, "Influenza Guideline", messages[1].Sources[0].Title)
}

func TestConversationRepository_NoAnswer(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewConversationRepository(pool)

	err := repo.RecordExchange(ctx, service.ConversationExchange{ConversationID: "c", Question: "q"})
	assert.Error(t, err)
}

func TestSearchLogRepository_Create(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewSearchLogRepository(pool)

	id, err := repo.CreateSearchLog(ctx, service.SearchLogEntry{
		Query:      "chest pain",
		Filters:    service.SearchFilters{Types: []domain.DocumentType{domain.DocumentTypeGuideline}},
		Status:     service.SearchStatusDegraded,
		Limit:      10,
		DurationMs: 42,
		Results:    []service.SearchLogResult{{ID: "doc-1", Score: 0.5}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var (
		status string
		count  int
	)
	err = pool.QueryRow(ctx, `SELECT status, result_count FROM search_logs WHERE id = $1`, id).Scan(&status, &count)
	require.NoError(t, err)
	assert.Equal(t, "degraded", status)
	assert.Equal(t, 1, count)
}
