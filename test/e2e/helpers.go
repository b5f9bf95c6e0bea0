//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode"

	"github.com/cloo-solutions/vaidya/internal/api/handlers"
	"github.com/cloo-solutions/vaidya/internal/jobs"
	"github.com/cloo-solutions/vaidya/internal/repository"
	"github.com/cloo-solutions/vaidya/internal/server"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/cloo-solutions/vaidya/internal/storage"
	"github.com/cloo-solutions/vaidya/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	adminToken = "e2e-admin-token"
	dimension  = 384
	namespace  = "e2e-docs"
)

// hashEmbedder is a deterministic bag-of-words embedder: texts that share
// words get similar vectors.
type hashEmbedder struct {
	calls atomic.Int64
	fail  atomic.Bool
}

func (e *hashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return nil, fmt.Errorf("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, dimension)
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[h.Sum32()%dimension]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm == 0 {
			v[0] = 1
			norm = 1
		}
		for j := range v {
			v[j] = float32(float64(v[j]) / math.Sqrt(norm))
		}
		out[i] = v
	}
	return out, nil
}

// scriptedGenerator answers from a fixed script.
type scriptedGenerator struct{}

func (scriptedGenerator) Complete(_ context.Context, req service.CompletionRequest) (string, error) {
	if strings.Contains(req.SystemPrompt, "follow-up") {
		return "1. What dose is typical?\n2. Are there side effects?\n3. How long does it take to work?", nil
	}
	return "Metformin is the usual first-line therapy for type 2 diabetes.", nil
}

// Env holds the running stack.
type Env struct {
	T        *testing.T
	Ctx      context.Context
	Pool     *pgxpool.Pool
	S3       *storage.S3Client
	Server   *httptest.Server
	Embedder *hashEmbedder
	Worker   *jobs.IngestWorker
	client   *http.Client
}

// SetupEnv starts PostgreSQL and S3 containers and serves the full router in
// process.
func SetupEnv(t *testing.T) *Env {
	t.Helper()
	ctx := context.Background()

	pg := testutil.NewPostgresContainer(ctx, t)
	s3c := testutil.NewS3Container(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pg)

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3c.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.S3AccessKey,
		SecretAccessKey: testutil.S3SecretKey,
		Bucket:          "e2e-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	embedder := &hashEmbedder{}
	docs := repository.NewDocumentRepository(pool)
	ingestJobs := repository.NewIngestJobRepository(pool)
	index := repository.NewVectorIndex(pool, repository.VectorIndexConfig{Dimension: dimension})

	embeddings := service.NewEmbeddingService(embedder, service.NewEmbeddingCache(1000, time.Hour),
		service.EmbeddingConfig{BatchSize: 8, Dimensions: dimension, Timeout: 5 * time.Second})
	search := service.NewSearchService(embeddings, index, docs, service.SearchConfig{
		Namespace:           namespace,
		SimilarityThreshold: 0.2,
		Timeout:             5 * time.Second,
	})
	classifier := service.NewClassifier(nil, service.DefaultClassifierPolicy(), time.Second)
	rag := service.NewRAGService(search, scriptedGenerator{}, classifier,
		service.NewConfidenceScorer(service.DefaultConfidencePolicy()),
		repository.NewConversationRepository(pool), service.DefaultRAGConfig())
	symptoms := service.NewSymptomService(classifier, nil, search, scriptedGenerator{}, service.DefaultRAGConfig())
	ingest := service.NewIngestService(
		service.NewChunker(service.ChunkConfig{ChunkSize: 200, Overlap: 40}),
		embeddings, index, docs, repository.NewTxRunner(pool), s3Client,
		service.IngestConfig{Namespace: namespace},
	)

	router := server.NewRouter(server.RouterConfig{
		MedicalHandler:  handlers.NewMedicalHandler(rag, symptoms),
		DocumentHandler: handlers.NewDocumentHandler(search, ingest, repository.NewSearchLogRepository(pool)),
		AdminToken:      adminToken,
		Database:        pool,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &Env{
		T:        t,
		Ctx:      ctx,
		Pool:     pool,
		S3:       s3Client,
		Server:   srv,
		Embedder: embedder,
		Worker:   jobs.NewIngestWorker(ingestJobs, ingest),
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Response is a decoded API envelope.
type Response struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
}

func (e *Env) Do(method, path string, body any, admin bool) *Response {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, reader)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := &Response{Status: resp.StatusCode}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			e.T.Fatalf("failed to decode %s %s response %q: %v", method, path, raw, err)
		}
	}
	return out
}

// Decode unmarshals the response data into v.
func (r *Response) Decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Data, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", r.Data, err)
	}
}

// DrainQueue runs the ingest worker until no jobs are pending.
func (e *Env) DrainQueue() {
	e.T.Helper()
	if err := e.Worker.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("ingest worker failed: %v", err)
	}
}
