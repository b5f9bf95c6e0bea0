package handlers

import (
	"context"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockAnswerService struct {
	mock.Mock
}

func (m *MockAnswerService) Answer(ctx context.Context, req service.AnswerRequest) (*domain.Answer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Answer), args.Error(1)
}

type MockSymptomService struct {
	mock.Mock
}

func (m *MockSymptomService) AnalyzeSymptoms(ctx context.Context, symptoms []string, userCtx domain.UserContext) (*domain.SymptomReport, error) {
	args := m.Called(ctx, symptoms, userCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SymptomReport), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) SearchDocuments(ctx context.Context, input service.SearchInput) (*service.SearchOutcome, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchOutcome), args.Error(1)
}

func (m *MockSearchService) IndexStats(ctx context.Context) (*domain.IndexStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexStats), args.Error(1)
}

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) SubmitDocument(ctx context.Context, doc *domain.Document) (*domain.IngestJob, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestJob), args.Error(1)
}

func (m *MockIngestService) EnqueueReprocess(ctx context.Context, documentID string) (*domain.IngestJob, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestJob), args.Error(1)
}

func (m *MockIngestService) DeleteDocument(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}
