package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors, wrapped or not, to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeInvalidOperation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeBackendTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCodeEmbeddingBackend, domain.ErrCodeGeneration:
		return http.StatusBadGateway
	case domain.ErrCodeVectorStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// 5xx responses hide the error chain behind the domain message.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)
	code := domain.CodeOf(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			message = domainErr.Message
		} else {
			message = http.StatusText(status)
		}
	}

	JSON(w, status, ErrorResponse{Error: message, Code: code})
}
