package repository

import (
	"context"
	"encoding/json"

	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchLogRepository stores search logs for retrieval quality review.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	filters := map[string]any{}
	filters["query_length"] = len(entry.Query)
	filters["limit"] = entry.Limit
	filters["offset"] = entry.Offset
	if len(entry.Filters.Types) > 0 {
		filters["types"] = entry.Filters.Types
	}
	if len(entry.Filters.Statuses) > 0 {
		filters["statuses"] = entry.Filters.Statuses
	}
	if entry.Filters.DateFrom != nil {
		filters["date_from"] = entry.Filters.DateFrom
	}
	if entry.Filters.DateTo != nil {
		filters["date_to"] = entry.Filters.DateTo
	}

	filtersJSON, _ := json.Marshal(filters)
	results := entry.Results
	if results == nil {
		results = []service.SearchLogResult{}
	}
	resultsJSON, _ := json.Marshal(results)

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (query, filters, status, results, result_count, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.Query,
		filtersJSON,
		string(entry.Status),
		resultsJSON,
		len(entry.Results),
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
