package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cloo-solutions/vaidya/internal/api"
	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/pagination"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

const maxSearchLimit = 100

type SearchService interface {
	SearchDocuments(ctx context.Context, input service.SearchInput) (*service.SearchOutcome, error)
	IndexStats(ctx context.Context) (*domain.IndexStats, error)
}

type IngestService interface {
	SubmitDocument(ctx context.Context, doc *domain.Document) (*domain.IngestJob, error)
	EnqueueReprocess(ctx context.Context, documentID string) (*domain.IngestJob, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type DocumentHandler struct {
	search  SearchService
	ingest  IngestService
	logRepo service.SearchLogRepository
}

// NewDocumentHandler creates the corpus handler. logRepo may be nil.
func NewDocumentHandler(search SearchService, ingest IngestService, logRepo service.SearchLogRepository) *DocumentHandler {
	return &DocumentHandler{search: search, ingest: ingest, logRepo: logRepo}
}

type SearchRequest struct {
	Query     string                `json:"query"`
	Filters   service.SearchFilters `json:"filters"`
	Limit     int                   `json:"limit,omitempty"`
	Offset    int                   `json:"offset,omitempty"`
	Cursor    string                `json:"cursor,omitempty"`
	SortBy    string                `json:"sort_by,omitempty"`
	SortOrder string                `json:"sort_order,omitempty"`
	Mode      string                `json:"mode,omitempty"`
}

type SearchResultResponse struct {
	ID       string               `json:"id"`
	ChunkID  string               `json:"chunk_id,omitempty"`
	Title    string               `json:"title"`
	Score    float64              `json:"score"`
	Snippet  string               `json:"snippet,omitempty"`
	Metadata domain.ChunkMetadata `json:"metadata"`
}

type SearchResponse struct {
	Results  []*SearchResultResponse `json:"results"`
	Total    int                     `json:"total"`
	Status   service.SearchStatus    `json:"status"`
	Cursor   string                  `json:"cursor,omitempty"`
	HasMore  bool                    `json:"has_more"`
	SearchID string                  `json:"search_id,omitempty"`
}

type CreateDocumentRequest struct {
	Title           string     `json:"title"`
	Content         string     `json:"content,omitempty"`
	ContentKey      string     `json:"content_key,omitempty"`
	Source          string     `json:"source,omitempty"`
	Type            string     `json:"document_type"`
	Keywords        []string   `json:"keywords,omitempty"`
	Authors         []string   `json:"authors,omitempty"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
}

type IngestJobResponse struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	offset := req.Offset
	if req.Cursor != "" {
		var err error
		if offset, err = pagination.DecodeCursor(req.Cursor); err != nil {
			api.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if offset < 0 {
		api.Error(w, http.StatusBadRequest, "offset cannot be negative")
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = service.DefaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	if req.Mode != "" && req.Mode != "hybrid" && req.Mode != "keyword" {
		api.Error(w, http.StatusBadRequest, "mode must be hybrid or keyword")
		return
	}

	input := service.SearchInput{
		Query:        req.Query,
		Filters:      req.Filters,
		Limit:        limit,
		Offset:       offset,
		SortBy:       req.SortBy,
		SortOrder:    service.SortOrder(req.SortOrder),
		SkipSemantic: req.Mode == "keyword",
	}

	outcome, err := h.search.SearchDocuments(r.Context(), input)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	responses := make([]*SearchResultResponse, len(outcome.Results))
	for i, result := range outcome.Results {
		responses[i] = &SearchResultResponse{
			ID:       result.ID,
			ChunkID:  result.ChunkID,
			Title:    result.Title(),
			Score:    result.Score,
			Snippet:  snippet(result.Content, 280),
			Metadata: result.Metadata,
		}
	}

	page := pagination.NewPage(responses, offset, outcome.Total)
	resp := SearchResponse{
		Results: page.Items,
		Total:   outcome.Total,
		Status:  outcome.Status,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	}

	if h.logRepo != nil {
		entry := service.NewSearchLogEntry(input, outcome, int(time.Since(start).Milliseconds()))
		if searchID, err := h.logRepo.CreateSearchLog(r.Context(), entry); err == nil {
			resp.SearchID = searchID
		} else {
			log.Printf("failed to record search log: %v", err)
		}
	}

	api.Success(w, http.StatusOK, resp)
}

// Create stores a document and queues it for indexing.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	docType, err := domain.ParseDocumentType(req.Type)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	doc := &domain.Document{
		Title:           req.Title,
		Content:         req.Content,
		ContentKey:      req.ContentKey,
		Source:          req.Source,
		Type:            docType,
		Keywords:        req.Keywords,
		Authors:         req.Authors,
		PublicationDate: req.PublicationDate,
	}
	job, err := h.ingest.SubmitDocument(r.Context(), doc)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.ingest.EnqueueReprocess(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

func (h *DocumentHandler) DeleteVectors(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.ingest.DeleteDocument(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.search.IndexStats(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}

func jobToResponse(job *domain.IngestJob) *IngestJobResponse {
	return &IngestJobResponse{
		JobID:      job.ID,
		DocumentID: job.DocumentID,
		Status:     string(job.Status),
	}
}

func snippet(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}

// handleServiceError reports server-side failures to Sentry before writing the response.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if api.DomainErrorToHTTP(err) >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		telemetry.CaptureError(r.Context(), err)
	}
	api.HandleError(w, err)
}
