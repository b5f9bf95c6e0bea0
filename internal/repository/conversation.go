package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository keeps question/answer history per conversation.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// RecordExchange writes the user question and the assistant answer together.
func (r *ConversationRepository) RecordExchange(ctx context.Context, ex service.ConversationExchange) error {
	if ex.Answer == nil {
		return fmt.Errorf("conversation exchange has no answer")
	}
	sources, err := json.Marshal(ex.Answer.Sources)
	if err != nil {
		return err
	}
	entities, err := json.Marshal(ex.Answer.MedicalEntities)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		 VALUES ($1, $2, 'user', $3, $4)`,
		uuid.NewString(), ex.ConversationID, ex.Question, now,
	)
	batch.Queue(
		`INSERT INTO conversation_messages (id, conversation_id, role, content, confidence, sources, entities, created_at)
		 VALUES ($1, $2, 'assistant', $3, $4, $5, $6, $7)`,
		uuid.NewString(), ex.ConversationID, ex.Answer.Answer, ex.Answer.Confidence, sources, entities, now.Add(time.Microsecond),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := sendBatch(ctx, tx, batch); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// ConversationMessage is one stored turn.
type ConversationMessage struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	Confidence     *float64
	Sources        []domain.Source
	CreatedAt      time.Time
}

// ListMessages returns a conversation's turns oldest first.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]ConversationMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, confidence, sources, created_at
		 FROM conversation_messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationMessage
	for rows.Next() {
		var m ConversationMessage
		var sources []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Confidence, &sources, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, err
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
