//go:build integration

package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const testDimension = 384

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	return testutil.NewTestPool(ctx, t, pc)
}

func createTestDocument(ctx context.Context, t *testing.T, repo *DocumentRepository, title, content string, keywords ...string) *domain.Document {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	d := &domain.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Source:    "WHO",
		Type:      domain.DocumentTypeGuideline,
		Status:    domain.DocumentStatusPending,
		Keywords:  keywords,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, d))
	return d
}

// unitVector has a single hot component, so cosine similarity between two of
// them is 1 when hot matches and 0 otherwise.
func unitVector(hot int) []float32 {
	v := make([]float32, testDimension)
	v[hot] = 1
	return v
}

// blend mixes two axes so the result has cosine a with axis i.
func blend(i, j int, a float64) []float32 {
	v := make([]float32, testDimension)
	v[i] = float32(a)
	v[j] = float32(math.Sqrt(1 - a*a))
	return v
}

func testVectors(documentID string, docType domain.DocumentType, values ...[]float32) []domain.EmbeddingVector {
	out := make([]domain.EmbeddingVector, len(values))
	for i, v := range values {
		out[i] = domain.EmbeddingVector{
			ID:      domain.VectorID(documentID, i),
			Values:  v,
			Content: "chunk",
			Metadata: domain.ChunkMetadata{
				SchemaVersion: domain.MetadataSchemaVersion,
				DocumentID:    documentID,
				ChunkIndex:    i,
				TotalChunks:   len(values),
				Title:         "Doc " + documentID,
				DocumentType:  docType,
			},
		}
	}
	return out
}
