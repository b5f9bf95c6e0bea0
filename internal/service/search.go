package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
)

const (
	DefaultSearchLimit         = 20
	DefaultSimilarityThreshold = 0.7
	// KeywordOnlyScore is assigned to hits found only by keyword match.
	KeywordOnlyScore = 0.5
)

// SearchStatus tells the caller which retrieval paths contributed.
type SearchStatus string

const (
	SearchStatusOK       SearchStatus = "ok"
	SearchStatusDegraded SearchStatus = "degraded"
	SearchStatusEmpty    SearchStatus = "empty"
)

type SortOrder string

const (
	SortOrderDesc SortOrder = "desc"
	SortOrderAsc  SortOrder = "asc"
)

// SearchFilters are applied after ranking, by intersection.
type SearchFilters struct {
	Types    []domain.DocumentType   `json:"types,omitempty"`
	Statuses []domain.DocumentStatus `json:"statuses,omitempty"`
	// DateFrom and DateTo bound the document's created_at, inclusive.
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
}

// SearchInput represents input for a document search
type SearchInput struct {
	Query     string
	Filters   SearchFilters
	Limit     int
	Offset    int
	SortBy    string
	SortOrder SortOrder
	// SkipSemantic forces keyword-only retrieval.
	SkipSemantic bool
}

// SearchOutcome is the ranked page plus how it was produced. SemanticErr and
// KeywordErr record a failed path when the other one still served the request.
type SearchOutcome struct {
	Results     []domain.SearchResult
	Total       int
	Status      SearchStatus
	SemanticErr error
	KeywordErr  error
}

// Degraded reports whether a retrieval path failed.
func (o *SearchOutcome) Degraded() bool {
	return o.Status == SearchStatusDegraded
}

// QueryEmbedder turns a query into a unit vector.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// KeywordStore is the relational substring search over title, content and keywords.
type KeywordStore interface {
	SearchKeyword(ctx context.Context, terms []string, limit int) ([]*domain.Document, error)
}

type SearchConfig struct {
	Namespace           string
	DefaultLimit        int
	SimilarityThreshold float64
	Timeout             time.Duration
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Namespace:           DefaultNamespace,
		DefaultLimit:        DefaultSearchLimit,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Timeout:             defaultBackendTimeout,
	}
}

// SearchService is the hybrid retriever.
type SearchService struct {
	embedder QueryEmbedder
	index    VectorIndex
	keywords KeywordStore
	cfg      SearchConfig
}

// NewSearchService wires the retriever. keywords may be nil, in which case
// only semantic retrieval is used.
func NewSearchService(embedder QueryEmbedder, index VectorIndex, keywords KeywordStore, cfg SearchConfig) *SearchService {
	def := DefaultSearchConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &SearchService{embedder: embedder, index: index, keywords: keywords, cfg: cfg}
}

// SearchDocuments runs semantic retrieval, falls back to keyword search when
// semantic hits cannot fill the requested page, then filters, sorts and pages.
func (s *SearchService) SearchDocuments(ctx context.Context, input SearchInput) (*SearchOutcome, error) {
	input.Query = strings.TrimSpace(input.Query)
	if input.Query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if input.Limit <= 0 {
		input.Limit = s.cfg.DefaultLimit
	}
	if input.Offset < 0 {
		input.Offset = 0
	}
	switch input.SortOrder {
	case "":
		input.SortOrder = SortOrderDesc
	case SortOrderAsc, SortOrderDesc:
	default:
		return nil, domain.ErrInvalidSortOrder
	}

	ctx, span := telemetry.StartSpan(ctx, "search.documents", telemetry.SpanAttributes{
		Namespace: s.cfg.Namespace,
		Operation: "search",
	})
	defer span.End()

	window := input.Offset + input.Limit
	outcome := &SearchOutcome{}

	var semantic []domain.SearchResult
	if !input.SkipSemantic {
		semantic, outcome.SemanticErr = s.semanticSearch(ctx, input, window)
		if outcome.SemanticErr != nil {
			log.Printf("semantic search failed, falling back to keyword search: %v", outcome.SemanticErr)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// semantic is already aggregated per document, so several chunk hits from
	// one document count once here and can still leave the page short.
	var keyword []domain.SearchResult
	if outcome.SemanticErr != nil || input.SkipSemantic || len(semantic) < window {
		keyword, outcome.KeywordErr = s.keywordSearch(ctx, input.Query, window)
		if outcome.KeywordErr != nil {
			log.Printf("keyword search failed: %v", outcome.KeywordErr)
		}
	}

	semanticFailed := input.SkipSemantic || outcome.SemanticErr != nil
	keywordFailed := outcome.KeywordErr != nil
	if semanticFailed && keywordFailed {
		span.SetError(outcome.KeywordErr)
		return nil, errors.Join(domain.ErrNoRetrievalPath, outcome.SemanticErr, outcome.KeywordErr)
	}

	ranked := mergeHybridResults(semantic, keyword)
	ranked = applySearchFilters(ranked, input.Filters)
	sortSearchResults(ranked, input.SortBy, input.SortOrder)

	outcome.Total = len(ranked)
	outcome.Results = paginate(ranked, input.Offset, input.Limit)
	switch {
	case outcome.SemanticErr != nil || outcome.KeywordErr != nil:
		outcome.Status = SearchStatusDegraded
	case len(outcome.Results) == 0:
		outcome.Status = SearchStatusEmpty
	default:
		outcome.Status = SearchStatusOK
	}
	span.SetData("status", string(outcome.Status))
	span.SetData("total", outcome.Total)
	return outcome, nil
}

// IndexStats reports the state of the configured namespace.
func (s *SearchService) IndexStats(ctx context.Context) (*domain.IndexStats, error) {
	return s.index.Stats(ctx, s.cfg.Namespace)
}

func (s *SearchService) semanticSearch(ctx context.Context, input SearchInput, topK int) ([]domain.SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.semantic", telemetry.SpanAttributes{Namespace: s.cfg.Namespace})
	defer span.End()

	vector, err := s.embedder.EmbedQuery(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// The vector filter only narrows by type; other filters run on the ranked list.
	chunks, err := s.index.Query(qctx, vector, topK, s.cfg.Namespace, domain.VectorFilter{DocumentTypes: input.Filters.Types})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeBackendTimeout, "vector query timed out", err)
		}
		return nil, err
	}

	kept := chunks[:0]
	for _, c := range chunks {
		if c.Score >= s.cfg.SimilarityThreshold {
			kept = append(kept, c)
		}
	}
	span.SetData("chunk_hits", len(kept))
	return aggregateChunkResults(kept), nil
}

func (s *SearchService) keywordSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if s.keywords == nil {
		return nil, errors.New("keyword store not configured")
	}

	ctx, span := telemetry.StartSpan(ctx, "search.keyword", telemetry.SpanAttributes{Operation: "keyword"})
	defer span.End()

	qctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	docs, err := s.keywords.SearchKeyword(qctx, keywordTerms(query), limit)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		updatedAt := d.UpdatedAt
		results = append(results, domain.SearchResult{
			ID:        d.ID,
			Score:     KeywordOnlyScore,
			Content:   d.Content,
			Metadata:  d.Metadata(),
			UpdatedAt: &updatedAt,
		})
	}
	return results, nil
}
