package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// MetadataSchemaVersion is bumped whenever a known ChunkMetadata field changes meaning.
const MetadataSchemaVersion = 1

// ChunkMetadata is the closed set of metadata fields the pipeline reads.
// Anything else travels untouched in Extra.
type ChunkMetadata struct {
	SchemaVersion   int
	DocumentID      string
	ChunkIndex      int
	TotalChunks     int
	ChunkLength     int
	IsContinuation  bool
	IsLastChunk     bool
	Title           string
	Source          string
	DocumentType    DocumentType
	Keywords        []string
	Authors         []string
	PublicationDate *time.Time
	StartPosition   int
	EndPosition     int
	Status          DocumentStatus
	CreatedAt       *time.Time
	Extra           map[string]any
}

// Chunk is a bounded, sentence-aligned slice of a cleaned document.
type Chunk struct {
	Text        string
	Index       int
	StartOffset int
	EndOffset   int
	Metadata    ChunkMetadata
}

// EmbeddingVector is one indexed chunk.
type EmbeddingVector struct {
	ID       string
	Values   []float32
	Metadata ChunkMetadata
	Content  string
}

// VectorID derives the stable vector id for a document chunk.
func VectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s_%d", documentID, chunkIndex)
}

var knownMetadataKeys = map[string]struct{}{
	"schema_version": {}, "document_id": {}, "chunk_index": {}, "chunk_id": {}, "total_chunks": {},
	"chunk_length": {}, "is_continuation": {}, "is_last_chunk": {}, "title": {}, "source": {},
	"document_type": {}, "keywords": {}, "authors": {}, "publication_date": {},
	"start_position": {}, "end_position": {}, "status": {}, "created_at": {},
}

type chunkMetadataJSON struct {
	SchemaVersion   int            `json:"schema_version"`
	DocumentID      string         `json:"document_id,omitempty"`
	ChunkIndex      int            `json:"chunk_index"`
	ChunkID         int            `json:"chunk_id"`
	TotalChunks     int            `json:"total_chunks,omitempty"`
	ChunkLength     int            `json:"chunk_length,omitempty"`
	IsContinuation  bool           `json:"is_continuation"`
	IsLastChunk     bool           `json:"is_last_chunk"`
	Title           string         `json:"title,omitempty"`
	Source          string         `json:"source,omitempty"`
	DocumentType    DocumentType   `json:"document_type,omitempty"`
	Keywords        []string       `json:"keywords,omitempty"`
	Authors         []string       `json:"authors,omitempty"`
	PublicationDate *time.Time     `json:"publication_date,omitempty"`
	StartPosition   int            `json:"start_position"`
	EndPosition     int            `json:"end_position"`
	Status          DocumentStatus `json:"status,omitempty"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
}

// MarshalJSON flattens known fields and Extra into a single object.
// Known keys win over Extra entries with the same name.
func (m ChunkMetadata) MarshalJSON() ([]byte, error) {
	version := m.SchemaVersion
	if version == 0 {
		version = MetadataSchemaVersion
	}
	known, err := json.Marshal(chunkMetadataJSON{
		SchemaVersion:   version,
		DocumentID:      m.DocumentID,
		ChunkIndex:      m.ChunkIndex,
		ChunkID:         m.ChunkIndex,
		TotalChunks:     m.TotalChunks,
		ChunkLength:     m.ChunkLength,
		IsContinuation:  m.IsContinuation,
		IsLastChunk:     m.IsLastChunk,
		Title:           m.Title,
		Source:          m.Source,
		DocumentType:    m.DocumentType,
		Keywords:        m.Keywords,
		Authors:         m.Authors,
		PublicationDate: m.PublicationDate,
		StartPosition:   m.StartPosition,
		EndPosition:     m.EndPosition,
		Status:          m.Status,
		CreatedAt:       m.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return known, nil
	}

	out := make(map[string]json.RawMessage, len(m.Extra)+16)
	for k, v := range m.Extra {
		if _, ok := knownMetadataKeys[k]; ok {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", k, err)
		}
		out[k] = raw
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads known fields and keeps the rest in Extra.
func (m *ChunkMetadata) UnmarshalJSON(data []byte) error {
	var known chunkMetadataJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*m = ChunkMetadata{
		SchemaVersion:   known.SchemaVersion,
		DocumentID:      known.DocumentID,
		ChunkIndex:      known.ChunkIndex,
		TotalChunks:     known.TotalChunks,
		ChunkLength:     known.ChunkLength,
		IsContinuation:  known.IsContinuation,
		IsLastChunk:     known.IsLastChunk,
		Title:           known.Title,
		Source:          known.Source,
		DocumentType:    known.DocumentType,
		Keywords:        known.Keywords,
		Authors:         known.Authors,
		PublicationDate: known.PublicationDate,
		StartPosition:   known.StartPosition,
		EndPosition:     known.EndPosition,
		Status:          known.Status,
		CreatedAt:       known.CreatedAt,
	}
	for k, v := range all {
		if _, ok := knownMetadataKeys[k]; ok {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = v
	}
	return nil
}

// Merge overlays caller-supplied document metadata onto chunk-derived fields.
// Chunk position fields are never taken from base.
func (m ChunkMetadata) Merge(base ChunkMetadata) ChunkMetadata {
	m.DocumentID = firstNonEmpty(m.DocumentID, base.DocumentID)
	m.Title = firstNonEmpty(m.Title, base.Title)
	m.Source = firstNonEmpty(m.Source, base.Source)
	if m.DocumentType == "" {
		m.DocumentType = base.DocumentType
	}
	if m.Status == "" {
		m.Status = base.Status
	}
	if len(m.Keywords) == 0 {
		m.Keywords = base.Keywords
	}
	if len(m.Authors) == 0 {
		m.Authors = base.Authors
	}
	if m.PublicationDate == nil {
		m.PublicationDate = base.PublicationDate
	}
	if m.CreatedAt == nil {
		m.CreatedAt = base.CreatedAt
	}
	if len(base.Extra) > 0 {
		extra := make(map[string]any, len(base.Extra)+len(m.Extra))
		for k, v := range base.Extra {
			extra[k] = v
		}
		for k, v := range m.Extra {
			extra[k] = v
		}
		m.Extra = extra
	}
	if m.SchemaVersion == 0 {
		m.SchemaVersion = MetadataSchemaVersion
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
