package domain

import "time"

// Document represents an uploaded source document belonging to a meeting room.
// Documents are immutable once created; deletion cascades to their chunks.
type Document struct {
	ID        string
	RoomID    string
	FileName  string
	FileType  string
	FileSize  int64
	FilePath  string // Optional object-storage key for the archived source
	CreatedAt time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id, roomID, fileName, fileType string, fileSize int64, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		RoomID:    roomID,
		FileName:  fileName,
		FileType:  fileType,
		FileSize:  fileSize,
		CreatedAt: createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return NewDomainError(ErrCodeValidation, "document cannot be nil")
	}
	if d.ID == "" {
		return NewDomainError(ErrCodeValidation, "document ID is required")
	}
	if d.RoomID == "" {
		return NewDomainError(ErrCodeValidation, "document RoomID is required")
	}
	if d.FileName == "" {
		return NewDomainError(ErrCodeValidation, "document FileName is required")
	}
	return nil
}
