package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/vaidya/internal/config"
	"github.com/cloo-solutions/vaidya/internal/database"
	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/openai"
	"github.com/cloo-solutions/vaidya/internal/repository"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/cloo-solutions/vaidya/internal/storage"
	"github.com/cloo-solutions/vaidya/internal/vectorstore/memory"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
)

// app holds every wired component shared by the server and the CLI commands.
type app struct {
	cfg     *config.Config
	storage *storage.S3Client

	documents  *repository.DocumentRepository
	ingestJobs *repository.IngestJobRepository
	searchLogs *repository.SearchLogRepository

	search   *service.SearchService
	rag      *service.RAGService
	symptoms *service.SymptomService
	ingest   *service.IngestService
}

func newApp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*app, error) {
	a := &app{
		cfg:        cfg,
		documents:  repository.NewDocumentRepository(pool),
		ingestJobs: repository.NewIngestJobRepository(pool),
		searchLogs: repository.NewSearchLogRepository(pool),
	}

	var source service.DocumentSource
	if cfg.HasS3() {
		s3Client, err := newStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.storage = s3Client
		source = s3Client
	}

	var (
		embedBackend service.EmbeddingBackend = unavailableBackend{}
		generator    service.Generator        = unavailableBackend{}
		entities     service.EntityBackend
	)
	if cfg.HasOpenAI() {
		embedBackend = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			BaseURL:             cfg.OpenAIBaseURL,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			RateLimit:           cfg.EmbeddingRateLimit,
		})
		chat := openai.NewChatGenerator(openai.ChatConfig{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIChatModel,
			RateLimit: cfg.EmbeddingRateLimit,
		})
		generator = chat
		entities = openai.NewEntityRecognizer(chat)
	} else {
		log.Println("VAIDYA_OPENAI_API_KEY not set: semantic search and generation disabled")
	}

	index := newVectorIndex(cfg, pool)

	embedder := service.NewEmbeddingService(
		embedBackend,
		service.NewEmbeddingCache(cfg.EmbeddingCacheSize, cfg.EmbeddingCacheTTL),
		service.EmbeddingConfig{
			BatchSize:  cfg.EmbeddingBatchSize,
			Dimensions: cfg.EmbeddingDimensions,
			Timeout:    cfg.BackendTimeout,
		},
	)

	a.search = service.NewSearchService(embedder, index, a.documents, service.SearchConfig{
		Namespace:           cfg.VectorNamespace,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Timeout:             cfg.BackendTimeout,
	})

	classifier := service.NewClassifier(entities, service.DefaultClassifierPolicy(), cfg.BackendTimeout)
	scorer := service.NewConfidenceScorer(service.DefaultConfidencePolicy())

	ragCfg := service.DefaultRAGConfig()
	ragCfg.MaxResults = cfg.MaxRetrievalResults
	ragCfg.Timeout = cfg.BackendTimeout

	a.rag = service.NewRAGService(a.search, generator, classifier, scorer,
		repository.NewConversationRepository(pool), ragCfg)
	a.symptoms = service.NewSymptomService(classifier, service.NewStaticInteractionSource(),
		a.search, generator, ragCfg)

	chunker := service.NewChunker(service.ChunkConfig{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
	})
	a.ingest = service.NewIngestService(chunker, embedder, index, a.documents,
		repository.NewTxRunner(pool), source, service.IngestConfig{Namespace: cfg.VectorNamespace})

	return a, nil
}

func newVectorIndex(cfg *config.Config, pool *pgxpool.Pool) service.VectorIndex {
	if cfg.VectorBackend == config.VectorBackendMemory {
		log.Printf("using in-memory vector index (dimension %d)", cfg.EmbeddingDimensions)
		return memory.NewIndex(cfg.EmbeddingDimensions, int(cfg.VectorCapacity))
	}
	return repository.NewVectorIndex(pool, repository.VectorIndexConfig{
		Dimension: cfg.EmbeddingDimensions,
		Capacity:  cfg.VectorCapacity,
		BatchSize: cfg.VectorUpsertBatch,
	})
}

func newStorage(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
	return client, nil
}

// unavailableBackend stands in for the OpenAI adapters when no key is
// configured. Every call fails, so search degrades to keyword matching and
// answers fall back to the canned response.
type unavailableBackend struct{}

func (unavailableBackend) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, domain.NewDomainError(domain.ErrCodeEmbeddingBackend, "embedding backend not configured")
}

func (unavailableBackend) Complete(context.Context, service.CompletionRequest) (string, error) {
	return "", domain.NewDomainError(domain.ErrCodeGeneration, "generation backend not configured")
}

func getDBPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, pool, nil
}
