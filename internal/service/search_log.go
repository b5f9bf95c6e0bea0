package service

import "context"

// SearchLogResult captures a single result entry for logging.
type SearchLogResult struct {
	ID      string  `json:"id"`
	ChunkID string  `json:"chunk_id,omitempty"`
	Score   float64 `json:"score"`
}

// SearchLogEntry captures a search request and its results.
type SearchLogEntry struct {
	Query      string
	Filters    SearchFilters
	Status     SearchStatus
	Limit      int
	Offset     int
	DurationMs int
	Results    []SearchLogResult
}

// SearchLogRepository persists search logs.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}

// NewSearchLogEntry summarises an outcome for logging.
func NewSearchLogEntry(input SearchInput, outcome *SearchOutcome, durationMs int) SearchLogEntry {
	entry := SearchLogEntry{
		Query:      input.Query,
		Filters:    input.Filters,
		Limit:      input.Limit,
		Offset:     input.Offset,
		DurationMs: durationMs,
	}
	if outcome == nil {
		return entry
	}
	entry.Status = outcome.Status
	entry.Results = make([]SearchLogResult, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		entry.Results = append(entry.Results, SearchLogResult{ID: r.ID, ChunkID: r.ChunkID, Score: r.Score})
	}
	return entry
}
