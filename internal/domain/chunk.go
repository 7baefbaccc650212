package domain

import "time"

// SummaryChunkIndex is the reserved ordinal for chunks that hold a
// conversation summary rather than a slice of document text.
const SummaryChunkIndex = -1

// Chunk is an overlapping slice of a document's text stored with its
// embedding vector. Chunks are written once at ingestion (or summarization)
// time and removed only when their owning document is deleted.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Text       string
	Embedding  []float32
	Metadata   map[string]any
	CreatedAt  time.Time
}

// StoredChunk is a chunk row as read back from the store for the brute-force
// similarity scan. The vector is kept in its stored form so malformed rows
// can be skipped instead of failing the whole scan.
type StoredChunk struct {
	Text     string
	Vector   StoredVector
	Metadata map[string]any
}

// RetrievedContext is a single ranked retrieval result.
type RetrievedContext struct {
	Text       string         `json:"chunk_text"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ValidateChunk validates a Chunk instance before insertion.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "chunk cannot be nil")
	}
	if c.ID == "" {
		return NewDomainError(ErrCodeValidation, "chunk ID is required")
	}
	if c.DocumentID == "" {
		return NewDomainError(ErrCodeValidation, "chunk DocumentID is required")
	}
	if c.Text == "" {
		return NewDomainError(ErrCodeValidation, "chunk Text is required")
	}
	if len(c.Embedding) == 0 {
		return NewDomainError(ErrCodeValidation, "chunk Embedding is required")
	}
	return nil
}
