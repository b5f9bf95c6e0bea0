// Package memory is an in-process vector index using brute-force dot product
// over unit vectors.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

type entry struct {
	vector domain.EmbeddingVector
}

// Index is safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	dimension  int
	capacity   int
	namespaces map[string]map[string]entry
}

// NewIndex creates an empty index. capacity <= 0 means unbounded and reports
// zero fullness.
func NewIndex(dimension, capacity int) *Index {
	return &Index{
		dimension:  dimension,
		capacity:   capacity,
		namespaces: make(map[string]map[string]entry),
	}
}

func (ix *Index) Upsert(ctx context.Context, vectors []domain.EmbeddingVector, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ix.validate(vectors); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.insertLocked(namespace, vectors)
	return nil
}

func (ix *Index) Query(ctx context.Context, vector []float32, topK int, namespace string, filter domain.VectorFilter) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []domain.SearchResult{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ns := ix.namespaces[namespace]
	results := make([]domain.SearchResult, 0, len(ns))
	for id, e := range ns {
		if !matches(e.vector.Metadata, filter) {
			continue
		}
		results = append(results, domain.SearchResult{
			ID:       id,
			ChunkID:  id,
			Score:    domain.ClampUnit(dot(e.vector.Values, vector)),
			Content:  e.vector.Content,
			Metadata: e.vector.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (ix *Index) Delete(ctx context.Context, ids []string, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ns := ix.namespaces[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

func (ix *Index) DeleteDocument(ctx context.Context, documentID string, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.deleteDocumentLocked(namespace, documentID)
	return nil
}

func (ix *Index) ReplaceDocument(ctx context.Context, documentID string, vectors []domain.EmbeddingVector, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ix.validate(vectors); err != nil {
		return err
	}
	for _, v := range vectors {
		if v.Metadata.DocumentID != documentID {
			return fmt.Errorf("vector %s belongs to document %q, not %q", v.ID, v.Metadata.DocumentID, documentID)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.deleteDocumentLocked(namespace, documentID)
	ix.insertLocked(namespace, vectors)
	return nil
}

func (ix *Index) Stats(ctx context.Context, namespace string) (*domain.IndexStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var total int64
	for _, ns := range ix.namespaces {
		total += int64(len(ns))
	}
	stats := &domain.IndexStats{
		TotalVectors:     total,
		NamespaceVectors: int64(len(ix.namespaces[namespace])),
		Namespace:        namespace,
		Dimension:        ix.dimension,
	}
	if ix.capacity > 0 {
		stats.Fullness = domain.ClampUnit(float64(total) / float64(ix.capacity))
	}
	return stats, nil
}

// DocumentVectorCount returns how many vectors a document has in a namespace.
func (ix *Index) DocumentVectorCount(documentID, namespace string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := 0
	for _, e := range ix.namespaces[namespace] {
		if e.vector.Metadata.DocumentID == documentID {
			n++
		}
	}
	return n
}

func (ix *Index) validate(vectors []domain.EmbeddingVector) error {
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector id is required")
		}
		if ix.dimension > 0 && len(v.Values) != ix.dimension {
			return fmt.Errorf("vector %s has dimension %d, expected %d", v.ID, len(v.Values), ix.dimension)
		}
	}
	return nil
}

func (ix *Index) insertLocked(namespace string, vectors []domain.EmbeddingVector) {
	ns, ok := ix.namespaces[namespace]
	if !ok {
		ns = make(map[string]entry)
		ix.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		v.Values = values
		ns[v.ID] = entry{vector: v}
	}
}

func (ix *Index) deleteDocumentLocked(namespace, documentID string) {
	ns := ix.namespaces[namespace]
	for id, e := range ns {
		if e.vector.Metadata.DocumentID == documentID {
			delete(ns, id)
		}
	}
}

func matches(meta domain.ChunkMetadata, filter domain.VectorFilter) bool {
	if filter.DocumentID != "" && meta.DocumentID != filter.DocumentID {
		return false
	}
	if len(filter.DocumentTypes) == 0 {
		return true
	}
	for _, t := range filter.DocumentTypes {
		if meta.DocumentType == t {
			return true
		}
	}
	return false
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
