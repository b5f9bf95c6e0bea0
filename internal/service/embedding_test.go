package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{BatchSize: 32, Dimensions: 2, Timeout: time.Second}
}

func TestEmbeddingService_Embed_Normalizes(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	svc := NewEmbeddingService(backend, NewEmbeddingCache(10, time.Hour), testEmbeddingConfig())

	backend.On("EmbedBatch", mock.Anything, []string{"fever"}).Return([][]float32{{3, 4}}, nil).Once()

	vectors, err := svc.Embed(context.Background(), []string{"fever"}, true)

	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.InDelta(t, 0.6, vectors[0][0], 1e-6)
	assert.InDelta(t, 0.8, vectors[0][1], 1e-6)
	backend.AssertExpectations(t)
}

func TestEmbeddingService_Embed_UsesCache(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	svc := NewEmbeddingService(backend, NewEmbeddingCache(10, time.Hour), testEmbeddingConfig())
	ctx := context.Background()

	backend.On("EmbedBatch", mock.Anything, []string{"cough"}).Return([][]float32{{1, 0}}, nil).Once()
	backend.On("EmbedBatch", mock.Anything, []string{"rash"}).Return([][]float32{{0, 1}}, nil).Once()

	first, err := svc.Embed(ctx, []string{"cough"}, true)
	require.NoError(t, err)

	second, err := svc.Embed(ctx, []string{"rash", "cough"}, true)
	require.NoError(t, err)

	assert.Equal(t, first[0], second[1])
	assert.Equal(t, []float32{0, 1}, second[0])
	assert.Equal(t, 2, svc.CacheSize())
	backend.AssertExpectations(t)
}

func TestEmbeddingService_Embed_CachedVectorsAreCopies(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	svc := NewEmbeddingService(backend, NewEmbeddingCache(10, time.Hour), testEmbeddingConfig())
	ctx := context.Background()

	backend.On("EmbedBatch", mock.Anything, []string{"cough"}).Return([][]float32{{1, 0}}, nil).Once()

	first, err := svc.Embed(ctx, []string{"cough"}, true)
	require.NoError(t, err)
	first[0][0] = 42

	again, err := svc.Embed(ctx, []string{"cough"}, true)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, again[0])
}

func TestEmbeddingService_Embed_BypassCache(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	svc := NewEmbeddingService(backend, NewEmbeddingCache(10, time.Hour), testEmbeddingConfig())
	ctx := context.Background()

	backend.On("EmbedBatch", mock.Anything, []string{"cough"}).Return([][]float32{{1, 0}}, nil).Twice()

	_, err := svc.Embed(ctx, []string{"cough"}, false)
	require.NoError(t, err)
	_, err = svc.Embed(ctx, []string{"cough"}, false)
	require.NoError(t, err)

	assert.Equal(t, 0, svc.CacheSize())
	backend.AssertExpectations(t)
}

func TestEmbeddingService_Embed_DeduplicatesAndPreservesOrder(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	svc := NewEmbeddingService(backend, nil, testEmbeddingConfig())

	backend.On("EmbedBatch", mock.Anything, []string{"a", "b"}).Return([][]float32{{1, 0}, {0, 1}}, nil).Once()

	vectors, err := svc.Embed(context.Background(), []string{"a", "b", "a"}, true)

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
	assert.Equal(t, []float32{1, 0}, vectors[2])
	backend.AssertExpectations(t)
}

func TestEmbeddingService_Embed_Batches(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	cfg := testEmbeddingConfig()
	cfg.BatchSize = 2
	svc := NewEmbeddingService(backend, nil, cfg)

	backend.On("EmbedBatch", mock.Anything, []string{"t1", "t2"}).Return([][]float32{{1, 0}, {1, 0}}, nil).Once()
	backend.On("EmbedBatch", mock.Anything, []string{"t3", "t4"}).Return([][]float32{{0, 1}, {0, 1}}, nil).Once()
	backend.On("EmbedBatch", mock.Anything, []string{"t5"}).Return([][]float32{{1, 1}}, nil).Once()

	vectors, err := svc.Embed(context.Background(), []string{"t1", "t2", "t3", "t4", "t5"}, true)

	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	backend.AssertExpectations(t)
}

func TestEmbeddingService_Embed_Empty(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	svc := NewEmbeddingService(backend, nil, testEmbeddingConfig())

	vectors, err := svc.Embed(context.Background(), nil, true)
	require.NoError(t, err)
	assert.Empty(t, vectors)

	_, err = svc.Embed(context.Background(), []string{"ok", "  "}, true)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
	backend.AssertNotCalled(t, "EmbedBatch", mock.Anything, mock.Anything)
}

func TestEmbeddingService_Embed_BackendFailures(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		err     error
	}{
		{"backend error", nil, errors.New("connection refused")},
		{"wrong dimension", [][]float32{{1, 0, 0}}, nil},
		{"wrong count", [][]float32{{1, 0}, {0, 1}}, nil},
		{"zero vector", [][]float32{{0, 0}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := new(MockEmbeddingBackend)
			svc := NewEmbeddingService(backend, nil, testEmbeddingConfig())
			if tt.err != nil {
				backend.On("EmbedBatch", mock.Anything, mock.Anything).Return(nil, tt.err)
			} else {
				backend.On("EmbedBatch", mock.Anything, mock.Anything).Return(tt.vectors, nil)
			}

			_, err := svc.Embed(context.Background(), []string{"fever"}, true)

			require.Error(t, err)
			assert.True(t, domain.IsEmbeddingBackendError(err))
			assert.Equal(t, 0, svc.CacheSize(), "failed batches are not cached")
		})
	}
}

func TestEmbeddingService_Embed_Timeout(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	cfg := testEmbeddingConfig()
	cfg.Timeout = 10 * time.Millisecond
	svc := NewEmbeddingService(backend, nil, cfg)

	backend.On("EmbedBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	_, err := svc.Embed(context.Background(), []string{"fever"}, true)

	require.Error(t, err)
	assert.True(t, domain.IsEmbeddingBackendError(err))
	assert.ErrorIs(t, err, domain.ErrBackendTimeout)
}

func TestEmbeddingService_EmbedQuery(t *testing.T) {
	backend := new(MockEmbeddingBackend)
	svc := NewEmbeddingService(backend, nil, testEmbeddingConfig())

	backend.On("EmbedBatch", mock.Anything, []string{"chest pain"}).Return([][]float32{{0, 2}}, nil).Once()

	vec, err := svc.EmbedQuery(context.Background(), "chest pain")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vec)

	svc.ClearCache()
	assert.Equal(t, 0, svc.CacheSize())
}

func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewEmbeddingCache(2, time.Hour)

	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})
	_, ok := cache.Get("a")
	require.True(t, ok)
	cache.Put("c", []float32{3})

	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = cache.Get("a")
	assert.True(t, ok)
}

func TestEmbeddingCache_Expires(t *testing.T) {
	cache := NewEmbeddingCache(10, 20*time.Millisecond)
	cache.Put("a", []float32{1})

	_, ok := cache.Get("a")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = cache.Get("a")
	assert.False(t, ok)
}

func TestContentHash(t *testing.T) {
	assert.Equal(t, ContentHash("fever"), ContentHash("fever"))
	assert.NotEqual(t, ContentHash("fever"), ContentHash("Fever"))
	assert.Len(t, ContentHash(""), 64)
}

func TestNormalizeVector(t *testing.T) {
	unit, err := NormalizeVector([]float32{0, 0, 5})
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 1}, unit)

	_, err = NormalizeVector([]float32{0, 0})
	assert.Error(t, err)

	_, err = NormalizeVector(nil)
	assert.Error(t, err)
}
