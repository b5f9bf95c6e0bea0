package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code and message so that wrapped sentinels compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeEmbeddingBackend = "EMBEDDING_BACKEND_ERROR"
	ErrCodeBackendTimeout   = "BACKEND_TIMEOUT"
	ErrCodeGeneration       = "GENERATION_ERROR"
	ErrCodeVectorStore      = "VECTOR_STORE_ERROR"
	ErrCodeReprocess        = "REPROCESS_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery            = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrEmptySymptoms         = NewDomainError(ErrCodeValidation, "at least one symptom is required")
	ErrEmptyDocumentID       = NewDomainError(ErrCodeValidation, "document id is required")
	ErrInvalidDocumentType   = NewDomainError(ErrCodeValidation, "invalid document type")
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidIngestJob      = NewDomainError(ErrCodeValidation, "invalid ingest job status")
	ErrInvalidSortOrder      = NewDomainError(ErrCodeValidation, "sort order must be asc or desc")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrIngestJobNotFound = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// Backend errors
var (
	ErrEmbeddingBackend = NewDomainError(ErrCodeEmbeddingBackend, "embedding backend unavailable")
	ErrBackendTimeout   = NewDomainError(ErrCodeBackendTimeout, "backend call timed out")
	ErrGeneration       = NewDomainError(ErrCodeGeneration, "text generation failed")
	ErrVectorStore      = NewDomainError(ErrCodeVectorStore, "vector store operation failed")
	ErrNoRetrievalPath  = NewDomainError(ErrCodeInternalError, "all retrieval paths failed")
)

// Operation errors
var (
	ErrReprocessFailed = NewDomainError(ErrCodeReprocess, "document reprocessing failed")
	ErrNoContent       = NewDomainError(ErrCodeInvalidOperation, "document has no content to index")
)

// NewEmbeddingBackendError wraps a backend failure as an embedding backend error.
func NewEmbeddingBackendError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingBackend, ErrEmbeddingBackend.Message, err)
}

// IsEmbeddingBackendError reports whether err is, or wraps, an embedding backend error.
func IsEmbeddingBackendError(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeEmbeddingBackend
	}
	return false
}

// CodeOf returns the code of the outermost DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
