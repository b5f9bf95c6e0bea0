package service

import (
	"context"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// DefaultNamespace is the vector namespace used for the medical corpus.
const DefaultNamespace = "medical-docs"

// VectorIndex is a namespace-partitioned vector store. Mutations are idempotent
// per vector id and deleting unknown ids is not an error.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []domain.EmbeddingVector, namespace string) error
	Query(ctx context.Context, vector []float32, topK int, namespace string, filter domain.VectorFilter) ([]domain.SearchResult, error)
	Delete(ctx context.Context, ids []string, namespace string) error
	Stats(ctx context.Context, namespace string) (*domain.IndexStats, error)

	// ReplaceDocument removes every vector of documentID and inserts vectors as
	// one unit; readers never observe a partial set.
	ReplaceDocument(ctx context.Context, documentID string, vectors []domain.EmbeddingVector, namespace string) error
	DeleteDocument(ctx context.Context, documentID string, namespace string) error
}
