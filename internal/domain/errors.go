package domain

import "fmt"

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
	ErrCodeEmbedding        = "EMBEDDING_FAILED"
	ErrCodeGeneration       = "GENERATION_FAILED"
)

// Validation errors
var (
	ErrInvalidChunkOverlap  = NewDomainError(ErrCodeValidation, "chunk overlap must be smaller than chunk size")
	ErrEmptyDocumentText    = NewDomainError(ErrCodeValidation, "document text is empty")
	ErrInvalidRole          = NewDomainError(ErrCodeValidation, "invalid conversation role")
	ErrInvalidSummaryType   = NewDomainError(ErrCodeValidation, "invalid summary type")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrIngestJobNotFound = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// Vector errors
var (
	ErrMalformedVector         = NewDomainError(ErrCodeValidation, "stored vector cannot be parsed")
	ErrVectorDimensionMismatch = NewDomainError(ErrCodeValidation, "vector dimensions do not match")
	ErrZeroVector              = NewDomainError(ErrCodeValidation, "vector has zero magnitude")
)

// NewEmbeddingError wraps a provider failure after all embedding models were tried.
func NewEmbeddingError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, "failed to generate embedding", err)
}

// NewGenerationError wraps a text-generation provider failure.
func NewGenerationError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGeneration, "failed to generate text", err)
}
