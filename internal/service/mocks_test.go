package service

import (
	"context"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockEmbeddingBackend struct {
	mock.Mock
}

func (m *MockEmbeddingBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string, useCache bool) ([][]float32, error) {
	args := m.Called(ctx, texts, useCache)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Upsert(ctx context.Context, vectors []domain.EmbeddingVector, namespace string) error {
	return m.Called(ctx, vectors, namespace).Error(0)
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float32, topK int, namespace string, filter domain.VectorFilter) ([]domain.SearchResult, error) {
	args := m.Called(ctx, vector, topK, namespace, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResult), args.Error(1)
}

func (m *MockVectorIndex) Delete(ctx context.Context, ids []string, namespace string) error {
	return m.Called(ctx, ids, namespace).Error(0)
}

func (m *MockVectorIndex) Stats(ctx context.Context, namespace string) (*domain.IndexStats, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexStats), args.Error(1)
}

func (m *MockVectorIndex) ReplaceDocument(ctx context.Context, documentID string, vectors []domain.EmbeddingVector, namespace string) error {
	return m.Called(ctx, documentID, vectors, namespace).Error(0)
}

func (m *MockVectorIndex) DeleteDocument(ctx context.Context, documentID string, namespace string) error {
	return m.Called(ctx, documentID, namespace).Error(0)
}

type MockKeywordStore struct {
	mock.Mock
}

func (m *MockKeywordStore) SearchKeyword(ctx context.Context, terms []string, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, terms, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) SearchDocuments(ctx context.Context, input SearchInput) (*SearchOutcome, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SearchOutcome), args.Error(1)
}

type MockConversationRecorder struct {
	mock.Mock
}

func (m *MockConversationRecorder) RecordExchange(ctx context.Context, ex ConversationExchange) error {
	return m.Called(ctx, ex).Error(0)
}

type MockEntityBackend struct {
	mock.Mock
}

func (m *MockEntityBackend) ExtractEntities(ctx context.Context, text string) ([]domain.RawEntity, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawEntity), args.Error(1)
}

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

type MockIngestJobRepository struct {
	mock.Mock
}

func (m *MockIngestJobRepository) Create(ctx context.Context, job *domain.IngestJob) error {
	return m.Called(ctx, job).Error(0)
}

type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) GetDocumentText(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentSource) PutDocumentText(ctx context.Context, key, text string) error {
	return m.Called(ctx, key, text).Error(0)
}

type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	args := m.Called(ctx, fn)
	if repos, ok := args.Get(0).(TxRepositories); ok {
		return fn(repos)
	}
	return args.Error(1)
}

type mockTxRepositories struct {
	docs *MockDocumentRepository
	jobs *MockIngestJobRepository
}

func (r mockTxRepositories) Documents() DocumentRepository   { return r.docs }
func (r mockTxRepositories) IngestJobs() IngestJobRepository { return r.jobs }
