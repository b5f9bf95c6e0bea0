package domain

import "time"

// SearchResult is a ranked retrieval hit. ID is the document id; ChunkID is set
// when the hit came from a vector chunk.
type SearchResult struct {
	ID       string
	ChunkID  string
	Score    float64
	Content  string
	Metadata ChunkMetadata
	// UpdatedAt is only known for hits that came from the relational store.
	UpdatedAt *time.Time
}

// Title is a convenience accessor used by context assembly and sorting.
func (r *SearchResult) Title() string {
	return r.Metadata.Title
}

// VectorFilter is evaluated by the vector backend, not by the caller.
type VectorFilter struct {
	DocumentTypes []DocumentType
	DocumentID    string
}

// IsEmpty reports whether the filter constrains nothing.
func (f VectorFilter) IsEmpty() bool {
	return len(f.DocumentTypes) == 0 && f.DocumentID == ""
}

// IndexStats summarises a vector index.
type IndexStats struct {
	TotalVectors     int64   `json:"total_vectors"`
	NamespaceVectors int64   `json:"namespace_vectors"`
	Namespace        string  `json:"namespace"`
	Dimension        int     `json:"dimension"`
	Fullness         float64 `json:"fullness"`
}

// ClampUnit bounds a score to [0,1], mapping NaN to 0.
func ClampUnit(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp bounds v to [lo,hi], mapping NaN to lo.
func Clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
