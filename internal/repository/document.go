package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, title, content, source, document_type, status, keywords, authors,
	publication_date, content_key, error, created_at, updated_at, processed_at`

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	keywords := d.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	authors := d.Authors
	if authors == nil {
		authors = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.Title, d.Content, nullableString(d.Source), d.Type, d.Status, keywords, authors,
		d.PublicationDate, nullableString(d.ContentKey), nullableString(d.Error), d.CreatedAt, d.UpdatedAt, d.ProcessedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// UpdateStatus moves a document through its ingestion lifecycle. errMsg is
// stored only for failed documents; processed_at is set on success.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error {
	now := time.Now().UTC()
	var processedAt *time.Time
	if status == domain.DocumentStatusProcessed {
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, error = $2, updated_at = $3, processed_at = COALESCE($4, processed_at)
		 WHERE id = $5`,
		status, nullableString(errMsg), now, processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// SearchKeyword returns documents whose title, content or keywords contain any
// of the terms, case-insensitively. Ordering is stable by id.
func (r *DocumentRepository) SearchKeyword(ctx context.Context, terms []string, limit int) ([]*domain.Document, error) {
	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		patterns = append(patterns, containsPattern(t))
	}
	if len(patterns) == 0 || limit <= 0 {
		return []*domain.Document{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE title ILIKE ANY($1)
		    OR content ILIKE ANY($1)
		    OR EXISTS (SELECT 1 FROM unnest(keywords) AS kw WHERE kw ILIKE ANY($1))
		 ORDER BY id
		 LIMIT $2`,
		patterns, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var source, contentKey, errMsg *string
	err := row.Scan(
		&d.ID, &d.Title, &d.Content, &source, &d.Type, &d.Status, &d.Keywords, &d.Authors,
		&d.PublicationDate, &contentKey, &errMsg, &d.CreatedAt, &d.UpdatedAt, &d.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Source = derefString(source)
	d.ContentKey = derefString(contentKey)
	d.Error = derefString(errMsg)
	return &d, nil
}
