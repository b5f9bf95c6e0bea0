package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const defaultUpsertBatchSize = 100

// VectorIndexConfig controls the pgvector-backed index.
type VectorIndexConfig struct {
	Dimension int
	// Capacity is used only to report fullness; 0 reports zero.
	Capacity  int64
	BatchSize int
}

// VectorIndex stores chunk embeddings in Postgres using pgvector.
type VectorIndex struct {
	pool *pgxpool.Pool
	db   dbtx
	cfg  VectorIndexConfig
}

func NewVectorIndex(pool *pgxpool.Pool, cfg VectorIndexConfig) *VectorIndex {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultUpsertBatchSize
	}
	return &VectorIndex{pool: pool, db: pool, cfg: cfg}
}

const upsertVectorSQL = `
	INSERT INTO vectors (namespace, id, document_id, chunk_index, document_type, content, metadata, embedding, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (namespace, id) DO UPDATE SET
		document_id = EXCLUDED.document_id,
		chunk_index = EXCLUDED.chunk_index,
		document_type = EXCLUDED.document_type,
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding,
		updated_at = EXCLUDED.updated_at`

// Upsert writes vectors in fixed-size batches. The first failing batch aborts
// the call; earlier batches stay written.
func (r *VectorIndex) Upsert(ctx context.Context, vectors []domain.EmbeddingVector, namespace string) error {
	return r.upsert(ctx, r.db, vectors, namespace)
}

func (r *VectorIndex) upsert(ctx context.Context, db dbtx, vectors []domain.EmbeddingVector, namespace string) error {
	now := time.Now().UTC()
	for start := 0; start < len(vectors); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(vectors))

		batch := &pgx.Batch{}
		for _, v := range vectors[start:end] {
			if r.cfg.Dimension > 0 && len(v.Values) != r.cfg.Dimension {
				return domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "invalid vector",
					fmt.Errorf("vector %s has dimension %d, expected %d", v.ID, len(v.Values), r.cfg.Dimension))
			}
			meta, err := json.Marshal(v.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode metadata for %s: %w", v.ID, err)
			}
			batch.Queue(upsertVectorSQL,
				namespace,
				v.ID,
				v.Metadata.DocumentID,
				v.Metadata.ChunkIndex,
				nullableString(string(v.Metadata.DocumentType)),
				v.Content,
				meta,
				pgvector.NewVector(v.Values),
				now,
			)
		}

		if err := sendBatch(ctx, db, batch); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore,
				fmt.Sprintf("upsert batch %d-%d failed", start, end), err)
		}
	}
	return nil
}

// Query returns the topK most similar vectors. Similarity is cosine, clamped to [0,1].
func (r *VectorIndex) Query(ctx context.Context, vector []float32, topK int, namespace string, filter domain.VectorFilter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return []domain.SearchResult{}, nil
	}

	args := []any{pgvector.NewVector(vector), namespace}
	var where []string
	where = append(where, "namespace = $2")
	if len(filter.DocumentTypes) > 0 {
		types := make([]string, len(filter.DocumentTypes))
		for i, t := range filter.DocumentTypes {
			types[i] = string(t)
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("document_type = ANY($%d)", len(args)))
	}
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		where = append(where, fmt.Sprintf("document_id = $%d", len(args)))
	}
	args = append(args, topK)

	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM vectors
		WHERE %s
		ORDER BY embedding <=> $1, id
		LIMIT $%d`, strings.Join(where, " AND "), len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "vector query failed", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		var meta []byte
		if err := rows.Scan(&res.ID, &res.Content, &meta, &res.Score); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &res.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %s: %w", res.ID, err)
			}
		}
		res.ChunkID = res.ID
		res.Score = domain.ClampUnit(res.Score)
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *VectorIndex) Delete(ctx context.Context, ids []string, namespace string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM vectors WHERE namespace = $1 AND id = ANY($2)`, namespace, ids)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "vector delete failed", err)
	}
	return nil
}

func (r *VectorIndex) DeleteDocument(ctx context.Context, documentID string, namespace string) error {
	return r.withDocumentLock(ctx, documentID, func(db dbtx) error {
		_, err := db.Exec(ctx, `DELETE FROM vectors WHERE namespace = $1 AND document_id = $2`, namespace, documentID)
		return err
	})
}

// ReplaceDocument deletes and re-inserts a document's vectors in one transaction,
// holding a transaction-scoped advisory lock on the document id.
func (r *VectorIndex) ReplaceDocument(ctx context.Context, documentID string, vectors []domain.EmbeddingVector, namespace string) error {
	for _, v := range vectors {
		if v.Metadata.DocumentID != documentID {
			return fmt.Errorf("vector %s belongs to document %q, not %q", v.ID, v.Metadata.DocumentID, documentID)
		}
	}
	return r.withDocumentLock(ctx, documentID, func(db dbtx) error {
		if _, err := db.Exec(ctx, `DELETE FROM vectors WHERE namespace = $1 AND document_id = $2`, namespace, documentID); err != nil {
			return err
		}
		return r.upsert(ctx, db, vectors, namespace)
	})
}

func (r *VectorIndex) Stats(ctx context.Context, namespace string) (*domain.IndexStats, error) {
	stats := &domain.IndexStats{Namespace: namespace, Dimension: r.cfg.Dimension}
	err := r.db.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE namespace = $1) FROM vectors`,
		namespace,
	).Scan(&stats.TotalVectors, &stats.NamespaceVectors)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "vector stats failed", err)
	}
	if r.cfg.Capacity > 0 {
		stats.Fullness = domain.ClampUnit(float64(stats.TotalVectors) / float64(r.cfg.Capacity))
	}
	return stats, nil
}

func (r *VectorIndex) withDocumentLock(ctx context.Context, documentID string, fn func(db dbtx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "failed to begin transaction", err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, documentID); err != nil {
		_ = tx.Rollback(ctx)
		return domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "failed to lock document", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "document vector update failed", err)
	}
	return tx.Commit(ctx)
}
