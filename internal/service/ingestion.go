package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/morphlabs/roomctx/internal/telemetry"
)

// DocumentRepository is the document store surface used by ingestion.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByRoom(ctx context.Context, roomID string) ([]*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkWriteRepository is the chunk store surface used by ingestion.
type ChunkWriteRepository interface {
	InsertChunks(ctx context.Context, chunks []*domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) error
}

// IngestJobCreator enqueues background ingestion work.
type IngestJobCreator interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// ObjectStore archives raw document text. May be nil when archival is not
// configured; ingestion proceeds without it.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// IngestionService accepts documents, splits them into embedded chunks, and
// manages their lifecycle.
type IngestionService struct {
	documents DocumentRepository
	chunks    ChunkWriteRepository
	jobs      IngestJobCreator
	embedder  EmbeddingProvider
	objects   ObjectStore
	chunkCfg  ChunkConfig
}

func NewIngestionService(documents DocumentRepository, chunks ChunkWriteRepository, jobs IngestJobCreator, embedder EmbeddingProvider, objects ObjectStore, chunkCfg ChunkConfig) *IngestionService {
	if chunkCfg.Size <= 0 {
		chunkCfg = DefaultChunkConfig
	}
	return &IngestionService{
		documents: documents,
		chunks:    chunks,
		jobs:      jobs,
		embedder:  embedder,
		objects:   objects,
		chunkCfg:  chunkCfg,
	}
}

// CreateDocument registers a document and enqueues its text for background
// chunking and embedding. The raw text is archived to object storage when a
// store is configured; archival failures never block ingestion.
func (s *IngestionService) CreateDocument(ctx context.Context, roomID, fileName, fileType, text string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.create_document", telemetry.SpanAttributes{
		RoomID:    roomID,
		Operation: "create_document",
	})
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyDocumentText
	}

	doc := domain.NewDocument(uuid.NewString(), roomID, fileName, fileType, int64(len(text)), time.Now().UTC())
	doc.FilePath = fmt.Sprintf("rooms/%s/%s/raw.txt", roomID, doc.ID)

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	if s.objects != nil {
		if err := s.objects.Put(ctx, doc.FilePath, []byte(text), "text/plain"); err != nil {
			log.Printf("ingestion: failed to archive raw text for document %s: %v", doc.ID, err)
			telemetry.CaptureError(ctx, err)
		}
	}

	job := &domain.IngestJob{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		RawText:    text,
		Status:     domain.IngestJobStatusPending,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueueing ingest job: %w", err)
	}

	return doc, nil
}

// ProcessDocument chunks and embeds a document's raw text. Reprocessing is
// idempotent: existing chunks for the document are replaced. Chunks whose
// embedding fails are skipped; the document still ingests with the rest.
// It fails only when no chunk could be embedded at all or storage fails.
func (s *IngestionService) ProcessDocument(ctx context.Context, documentID, rawText string) error {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.process_document", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "process_document",
	})
	defer span.End()

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}

	pieces, err := ChunkText(rawText, s.chunkCfg)
	if err != nil {
		return fmt.Errorf("chunking document %s: %w", documentID, err)
	}
	if len(pieces) == 0 {
		return domain.ErrEmptyDocumentText
	}

	if err := s.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("clearing existing chunks: %w", err)
	}

	chunks := make([]*domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.embedder.GenerateEmbedding(ctx, piece)
		if err != nil {
			log.Printf("ingestion: skipping chunk %d of document %s: %v", i, documentID, err)
			telemetry.CaptureError(ctx, err)
			continue
		}

		chunks = append(chunks, &domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Index:      i,
			Text:       piece,
			Embedding:  embedding,
			Metadata: map[string]any{
				"file_name":    doc.FileName,
				"chunk_length": len(piece),
			},
		})
	}

	if len(chunks) == 0 {
		return domain.NewEmbeddingError(fmt.Errorf("no chunks of document %s could be embedded", documentID))
	}

	if err := s.chunks.InsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}

	return nil
}

// ListDocuments returns a room's documents, newest first.
func (s *IngestionService) ListDocuments(ctx context.Context, roomID string) ([]*domain.Document, error) {
	return s.documents.ListByRoom(ctx, roomID)
}

// DocumentDownloadURL returns a presigned URL for a document's archived raw
// text. Rooms only see their own documents; rooms without an object store
// cannot serve downloads.
func (s *IngestionService) DocumentDownloadURL(ctx context.Context, roomID, documentID string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.document_download_url", telemetry.SpanAttributes{
		RoomID:     roomID,
		DocumentID: documentID,
		Operation:  "document_download_url",
	})
	defer span.End()

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.RoomID != roomID {
		return "", domain.ErrDocumentNotFound
	}
	if s.objects == nil {
		return "", domain.NewDomainError(domain.ErrCodeInvalidOperation, "document archival is not configured")
	}
	if doc.FilePath == "" {
		return "", domain.NewDomainError(domain.ErrCodeInvalidOperation, "document has no archived source")
	}

	url, err := s.objects.GenerateDownloadURL(ctx, doc.FilePath)
	if err != nil {
		span.SetError(err)
		return "", fmt.Errorf("generating download URL: %w", err)
	}
	return url, nil
}

// DeleteDocument removes a document and its chunks. The archived raw text is
// deleted best-effort.
func (s *IngestionService) DeleteDocument(ctx context.Context, roomID, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.delete_document", telemetry.SpanAttributes{
		RoomID:     roomID,
		DocumentID: documentID,
		Operation:  "delete_document",
	})
	defer span.End()

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.RoomID != roomID {
		return domain.ErrDocumentNotFound
	}

	if err := s.documents.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if s.objects != nil && doc.FilePath != "" {
		if err := s.objects.Delete(ctx, doc.FilePath); err != nil {
			log.Printf("ingestion: failed to delete archived text for document %s: %v", documentID, err)
		}
	}

	return nil
}
