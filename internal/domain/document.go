package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType represents the kind of medical source a document is
type DocumentType string

const (
	DocumentTypeGuideline     DocumentType = "medical_guideline"
	DocumentTypeDrugInfo      DocumentType = "drug_info"
	DocumentTypeResearchPaper DocumentType = "research_paper"
	DocumentTypeClinicalTrial DocumentType = "clinical_trial"
	DocumentTypeTextbook      DocumentType = "textbook"
)

// DocumentStatus represents where a document is in the ingestion lifecycle
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is a corpus entry as held by the relational store.
type Document struct {
	ID              string
	Title           string
	Content         string
	Source          string
	Type            DocumentType
	Status          DocumentStatus
	Keywords        []string
	Authors         []string
	PublicationDate *time.Time
	// ContentKey points at the raw text in object storage when Content is empty.
	ContentKey  string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// Metadata returns the chunk metadata seeded from the document's own fields.
func (d *Document) Metadata() ChunkMetadata {
	createdAt := d.CreatedAt
	return ChunkMetadata{
		DocumentID:      d.ID,
		Title:           d.Title,
		Source:          d.Source,
		DocumentType:    d.Type,
		Keywords:        d.Keywords,
		Authors:         d.Authors,
		PublicationDate: d.PublicationDate,
		Status:          d.Status,
		CreatedAt:       &createdAt,
	}
}

// ParseDocumentType validates a raw document type string.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidDocumentType(t) {
		return "", fmt.Errorf("%w: %s", ErrInvalidDocumentType, s)
	}
	return t, nil
}

// IsValidDocumentType reports whether t is a known document type
func IsValidDocumentType(t DocumentType) bool {
	switch t {
	case DocumentTypeGuideline, DocumentTypeDrugInfo, DocumentTypeResearchPaper,
		DocumentTypeClinicalTrial, DocumentTypeTextbook:
		return true
	}
	return false
}

// ParseDocumentStatus validates a raw document status string.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	st := DocumentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusProcessed, DocumentStatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidDocumentStatus, s)
}
