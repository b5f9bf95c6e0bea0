package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
	"github.com/google/uuid"
)

// DocumentRepository is the relational record of corpus documents.
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error
}

// IngestJobRepository queues documents for background (re)indexing.
type IngestJobRepository interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// DocumentSource holds raw document text in object storage.
type DocumentSource interface {
	GetDocumentText(ctx context.Context, key string) (string, error)
	PutDocumentText(ctx context.Context, key, text string) error
}

// DocumentContentKey is the object key raw text of a document is stored under.
func DocumentContentKey(documentID string) string {
	return "documents/" + documentID + ".txt"
}

// Embedder is the batch side of EmbeddingService.
type Embedder interface {
	Embed(ctx context.Context, texts []string, useCache bool) ([][]float32, error)
}

type IngestConfig struct {
	Namespace string
}

// IngestService chunks, embeds and indexes documents. Indexing one document is
// a critical section: at most one goroutine replaces a document's vectors at a time.
type IngestService struct {
	chunker  *Chunker
	embedder Embedder
	index    VectorIndex
	docs     DocumentRepository
	tx       TxRunner
	source   DocumentSource
	cfg      IngestConfig
	locks    *keyedMutex
}

// NewIngestService creates the ingestion pipeline. docs, tx and source may be
// nil when only ProcessDocument is needed.
func NewIngestService(chunker *Chunker, embedder Embedder, index VectorIndex, docs DocumentRepository, tx TxRunner, source DocumentSource, cfg IngestConfig) *IngestService {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	return &IngestService{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		docs:     docs,
		tx:       tx,
		source:   source,
		cfg:      cfg,
		locks:    newKeyedMutex(),
	}
}

// ProcessDocument chunks and embeds text, returning vectors ready for upsert.
// Nothing is written.
func (s *IngestService) ProcessDocument(ctx context.Context, documentID, text string, meta domain.ChunkMetadata) ([]domain.EmbeddingVector, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domain.ErrEmptyDocumentID
	}
	meta.DocumentID = documentID
	meta.SchemaVersion = domain.MetadataSchemaVersion

	chunks := s.chunker.Chunk(text, meta)
	if len(chunks) == 0 {
		return []domain.EmbeddingVector{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	values, err := s.embedder.Embed(ctx, texts, true)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document %s: %w", documentID, err)
	}
	if len(values) != len(chunks) {
		return nil, domain.NewDomainError(domain.ErrCodeReprocess,
			fmt.Sprintf("got %d embeddings for %d chunks", len(values), len(chunks)))
	}

	vectors := make([]domain.EmbeddingVector, len(chunks))
	for i, c := range chunks {
		vectors[i] = domain.EmbeddingVector{
			ID:       domain.VectorID(documentID, c.Index),
			Values:   values[i],
			Metadata: c.Metadata,
			Content:  c.Text,
		}
	}
	return vectors, nil
}

// CreateDocument validates and stores a new pending document.
func (s *IngestService) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if err := prepareNewDocument(doc); err != nil {
		return err
	}
	return s.docs.Create(ctx, doc)
}

// SubmitDocument stores a new document and queues it for the ingest worker.
// Inline content is first copied to object storage when a source is
// configured. The record and its job are written in one transaction, so a
// document is never left pending without a job.
func (s *IngestService) SubmitDocument(ctx context.Context, doc *domain.Document) (*domain.IngestJob, error) {
	if err := prepareNewDocument(doc); err != nil {
		return nil, err
	}

	if s.source != nil && doc.ContentKey == "" {
		key := DocumentContentKey(doc.ID)
		if err := s.source.PutDocumentText(ctx, key, doc.Content); err != nil {
			return nil, fmt.Errorf("failed to upload document %s: %w", doc.ID, err)
		}
		doc.ContentKey = key
	}

	job := domain.NewIngestJob(uuid.NewString(), doc.ID, domain.IngestJobStatusPending, doc.CreatedAt)
	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		if doc.ContentKey != "" && doc.Content != "" {
			log.Printf("document %s not stored, uploaded content left at %s", doc.ID, doc.ContentKey)
		}
		return nil, err
	}
	return job, nil
}

func prepareNewDocument(doc *domain.Document) error {
	if doc == nil || strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: title", domain.ErrMissingRequiredField)
	}
	if !domain.IsValidDocumentType(doc.Type) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidDocumentType, doc.Type)
	}
	if doc.Content == "" && doc.ContentKey == "" {
		return domain.ErrNoContent
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.Status = domain.DocumentStatusPending
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

// ReindexDocument loads a stored document and indexes it.
func (s *IngestService) ReindexDocument(ctx context.Context, documentID string) (int, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return s.IndexDocument(ctx, doc)
}

// IndexDocument replaces every vector of doc with a fresh chunking of its
// content and returns the number of vectors written. Embedding happens before
// any index write; a failure leaves the previous vectors in place.
func (s *IngestService) IndexDocument(ctx context.Context, doc *domain.Document) (int, error) {
	if doc == nil || strings.TrimSpace(doc.ID) == "" {
		return 0, domain.ErrEmptyDocumentID
	}

	unlock := s.locks.Lock(doc.ID)
	defer unlock()

	ctx, span := telemetry.StartSpan(ctx, "ingest.index_document", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		Namespace:  s.cfg.Namespace,
		Operation:  "index",
	})
	defer span.End()

	s.setStatus(ctx, doc.ID, domain.DocumentStatusProcessing, "")

	n, err := s.indexLocked(ctx, doc)
	if err != nil {
		span.SetError(err)
		s.setStatus(context.WithoutCancel(ctx), doc.ID, domain.DocumentStatusFailed, err.Error())
		return 0, err
	}

	s.setStatus(ctx, doc.ID, domain.DocumentStatusProcessed, "")
	log.Printf("indexed document %s: %d vectors", doc.ID, n)
	return n, nil
}

func (s *IngestService) indexLocked(ctx context.Context, doc *domain.Document) (int, error) {
	content, err := s.loadContent(ctx, doc)
	if err != nil {
		return 0, err
	}

	meta := doc.Metadata()
	meta.Status = domain.DocumentStatusProcessed

	vectors, err := s.ProcessDocument(ctx, doc.ID, content, meta)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := s.index.ReplaceDocument(ctx, doc.ID, vectors, s.cfg.Namespace); err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeReprocess, domain.ErrReprocessFailed.Message, err)
	}
	return len(vectors), nil
}

func (s *IngestService) loadContent(ctx context.Context, doc *domain.Document) (string, error) {
	if strings.TrimSpace(doc.Content) != "" {
		return doc.Content, nil
	}
	if doc.ContentKey == "" || s.source == nil {
		return "", domain.ErrNoContent
	}
	text, err := s.source.GetDocumentText(ctx, doc.ContentKey)
	if err != nil {
		return "", fmt.Errorf("failed to fetch content %s: %w", doc.ContentKey, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrNoContent
	}
	return text, nil
}

// DeleteDocument removes every vector of a document.
func (s *IngestService) DeleteDocument(ctx context.Context, documentID string) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.ErrEmptyDocumentID
	}
	unlock := s.locks.Lock(documentID)
	defer unlock()
	return s.index.DeleteDocument(ctx, documentID, s.cfg.Namespace)
}

// EnqueueReprocess marks a document pending and queues an ingest job for it
// in one transaction.
func (s *IngestService) EnqueueReprocess(ctx context.Context, documentID string) (*domain.IngestJob, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, domain.ErrEmptyDocumentID
	}

	job := domain.NewIngestJob(uuid.NewString(), documentID, domain.IngestJobStatusPending, time.Now().UTC())
	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if _, err := repos.Documents().GetByID(ctx, documentID); err != nil {
			return err
		}
		if err := repos.Documents().UpdateStatus(ctx, documentID, domain.DocumentStatusPending, ""); err != nil {
			return err
		}
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *IngestService) setStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) {
	if s.docs == nil {
		return
	}
	if err := s.docs.UpdateStatus(ctx, id, status, errMsg); err != nil {
		log.Printf("failed to set document %s status to %s: %v", id, status, err)
	}
}

// keyedMutex serialises work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
