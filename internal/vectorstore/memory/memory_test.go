package memory

import (
	"context"
	"testing"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(docID string, idx int, docType domain.DocumentType, values ...float32) domain.EmbeddingVector {
	return domain.EmbeddingVector{
		ID:       domain.VectorID(docID, idx),
		Values:   values,
		Content:  "chunk",
		Metadata: domain.ChunkMetadata{DocumentID: docID, ChunkIndex: idx, DocumentType: docType},
	}
}

func TestIndex_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 0)

	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{
		vec("a", 0, domain.DocumentTypeGuideline, 1, 0),
		vec("b", 0, domain.DocumentTypeDrugInfo, 0.6, 0.8),
		vec("c", 0, domain.DocumentTypeGuideline, 0, 1),
	}, "ns"))

	hits, err := ix.Query(ctx, []float32{1, 0}, 2, "ns", domain.VectorFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a_0", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "b_0", hits[1].ID)
	assert.InDelta(t, 0.6, hits[1].Score, 1e-6)
	assert.Equal(t, "chunk", hits[0].Content)

	hits, err = ix.Query(ctx, []float32{1, 0}, 10, "ns", domain.VectorFilter{
		DocumentTypes: []domain.DocumentType{domain.DocumentTypeGuideline},
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a_0", hits[0].ID)
	assert.Equal(t, "c_0", hits[1].ID)
	assert.Zero(t, hits[1].Score)
}

func TestIndex_QueryEdges(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 0)
	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{vec("a", 0, "", -1, 0)}, "ns"))

	hits, err := ix.Query(ctx, []float32{1, 0}, 0, "ns", domain.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = ix.Query(ctx, []float32{1, 0}, 5, "other", domain.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = ix.Query(ctx, []float32{1, 0}, 5, "ns", domain.VectorFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Zero(t, hits[0].Score, "negative similarity is clamped")
}

func TestIndex_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 0)
	v := vec("a", 0, "", 1, 0)

	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{v}, "ns"))
	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{v}, "ns"))

	stats, err := ix.Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.NamespaceVectors)
}

func TestIndex_UpsertCopiesValues(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 0)
	v := vec("a", 0, "", 1, 0)

	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{v}, "ns"))
	v.Values[0] = -1

	hits, err := ix.Query(ctx, []float32{1, 0}, 1, "ns", domain.VectorFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestIndex_Validation(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 0)

	assert.Error(t, ix.Upsert(ctx, []domain.EmbeddingVector{vec("a", 0, "", 1, 0, 0)}, "ns"))
	assert.Error(t, ix.Upsert(ctx, []domain.EmbeddingVector{{Values: []float32{1, 0}}}, "ns"))

	err := ix.ReplaceDocument(ctx, "a", []domain.EmbeddingVector{vec("b", 0, "", 1, 0)}, "ns")
	assert.Error(t, err, "vectors of another document are rejected")
}

func TestIndex_ReplaceAndDeleteDocument(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 0)

	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{
		vec("a", 0, "", 1, 0), vec("a", 1, "", 1, 0), vec("a", 2, "", 1, 0),
		vec("b", 0, "", 0, 1),
	}, "ns"))
	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{vec("a", 0, "", 1, 0)}, "elsewhere"))

	require.NoError(t, ix.ReplaceDocument(ctx, "a", []domain.EmbeddingVector{vec("a", 0, "", 0, 1)}, "ns"))
	assert.Equal(t, 1, ix.DocumentVectorCount("a", "ns"))
	assert.Equal(t, 1, ix.DocumentVectorCount("b", "ns"))
	assert.Equal(t, 1, ix.DocumentVectorCount("a", "elsewhere"))

	require.NoError(t, ix.DeleteDocument(ctx, "a", "ns"))
	assert.Equal(t, 0, ix.DocumentVectorCount("a", "ns"))
	assert.Equal(t, 1, ix.DocumentVectorCount("a", "elsewhere"))

	require.NoError(t, ix.DeleteDocument(ctx, "missing", "nowhere"))
}

func TestIndex_Delete(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 0)
	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{vec("a", 0, "", 1, 0), vec("a", 1, "", 1, 0)}, "ns"))

	require.NoError(t, ix.Delete(ctx, []string{"a_0", "unknown"}, "ns"))
	require.NoError(t, ix.Delete(ctx, []string{"a_1"}, "missing-namespace"))

	assert.Equal(t, 1, ix.DocumentVectorCount("a", "ns"))
}

func TestIndex_Stats(t *testing.T) {
	ctx := context.Background()
	ix := NewIndex(2, 4)
	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{vec("a", 0, "", 1, 0)}, "ns"))
	require.NoError(t, ix.Upsert(ctx, []domain.EmbeddingVector{vec("b", 0, "", 1, 0)}, "other"))

	stats, err := ix.Stats(ctx, "ns")

	require.NoError(t, err)
	assert.Equal(t, &domain.IndexStats{
		TotalVectors:     2,
		NamespaceVectors: 1,
		Namespace:        "ns",
		Dimension:        2,
		Fullness:         0.5,
	}, stats)

	unbounded, err := NewIndex(2, 0).Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Zero(t, unbounded.Fullness)
}

func TestIndex_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ix := NewIndex(2, 0)

	assert.ErrorIs(t, ix.Upsert(ctx, nil, "ns"), context.Canceled)
	_, err := ix.Query(ctx, []float32{1, 0}, 1, "ns", domain.VectorFilter{})
	assert.ErrorIs(t, err, context.Canceled)
}
