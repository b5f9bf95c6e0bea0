package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
)

// EmbeddingBackend turns a batch of texts into vectors, one per input, in order.
type EmbeddingBackend interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingConfig controls batching and validation of backend output.
type EmbeddingConfig struct {
	BatchSize  int
	Dimensions int
	Timeout    time.Duration
}

const defaultBackendTimeout = 30 * time.Second

// DefaultEmbeddingConfig returns the batching defaults.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		BatchSize:  32,
		Dimensions: 384,
		Timeout:    defaultBackendTimeout,
	}
}

var errEmptyEmbeddingInput = domain.NewDomainError(domain.ErrCodeValidation, "embedding input cannot be empty")

// EmbeddingService generates unit-length embeddings with a shared content-hash cache.
type EmbeddingService struct {
	backend EmbeddingBackend
	cache   *EmbeddingCache
	cfg     EmbeddingConfig
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(backend EmbeddingBackend, cache *EmbeddingCache, cfg EmbeddingConfig) *EmbeddingService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultEmbeddingConfig().BatchSize
	}
	if cache == nil {
		cache = NewEmbeddingCache(0, defaultEmbeddingCacheTTL)
	}
	return &EmbeddingService{
		backend: backend,
		cache:   cache,
		cfg:     cfg,
	}
}

// Embed returns one vector per text in input order. Cache misses are sent to the
// backend in batches; identical texts in one call share a backend slot.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string, useCache bool) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	pending := make(map[string][]int)
	var missKeys []string
	var missTexts []string
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, errEmptyEmbeddingInput
		}
		key := ContentHash(text)
		if useCache {
			if vec, ok := s.cache.Get(key); ok {
				out[i] = vec
				continue
			}
		}
		if _, seen := pending[key]; !seen {
			missKeys = append(missKeys, key)
			missTexts = append(missTexts, text)
		}
		pending[key] = append(pending[key], i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "embedding.embed", telemetry.SpanAttributes{Operation: "embed"})
	defer span.End()
	span.SetData("texts", len(texts))
	span.SetData("cache_misses", len(missTexts))

	for start := 0; start < len(missTexts); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+s.cfg.BatchSize, len(missTexts))

		vectors, err := s.embedBatch(ctx, missTexts[start:end])
		if err != nil {
			span.SetError(err)
			return nil, err
		}

		for j, vec := range vectors {
			key := missKeys[start+j]
			if useCache {
				s.cache.Put(key, vec)
			}
			for _, idx := range pending[key] {
				out[idx] = cloneVector(vec)
			}
		}
	}

	return out, nil
}

// EmbedQuery embeds a single text through the cache.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.Embed(ctx, []string{text}, true)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// ClearCache drops every cached vector.
func (s *EmbeddingService) ClearCache() {
	s.cache.Clear()
}

// CacheSize returns the number of cached vectors.
func (s *EmbeddingService) CacheSize() int {
	return s.cache.Len()
}

func (s *EmbeddingService) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	vectors, err := s.backend.EmbedBatch(callCtx, batch)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.NewEmbeddingBackendError(fmt.Errorf("%w: %v", domain.ErrBackendTimeout, err))
		}
		return nil, domain.NewEmbeddingBackendError(err)
	}
	if len(vectors) != len(batch) {
		return nil, domain.NewEmbeddingBackendError(
			fmt.Errorf("backend returned %d vectors for %d inputs", len(vectors), len(batch)))
	}

	normalized := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if s.cfg.Dimensions > 0 && len(vec) != s.cfg.Dimensions {
			return nil, domain.NewEmbeddingBackendError(
				fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), s.cfg.Dimensions))
		}
		unit, err := NormalizeVector(vec)
		if err != nil {
			return nil, domain.NewEmbeddingBackendError(err)
		}
		normalized[i] = unit
	}
	return normalized, nil
}

// NormalizeVector scales v to unit L2 norm. Zero or non-finite vectors are rejected.
func NormalizeVector(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("cannot normalize vector with norm %v", norm)
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
