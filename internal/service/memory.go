package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/morphlabs/roomctx/internal/domain"
)

// DocumentFinder locates a room's anchor document for summary chunks.
type DocumentFinder interface {
	FirstIDByRoom(ctx context.Context, roomID string) (string, error)
}

// SummaryReader fetches persisted summary turns for the room digest.
type SummaryReader interface {
	ListRecentSummaries(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error)
}

// MemoryService folds conversation summaries back into the room's searchable
// chunk store so past discussion surfaces in later retrieval.
type MemoryService struct {
	documents DocumentFinder
	chunks    ChunkWriteRepository
	summaries SummaryReader
	embedder  EmbeddingProvider
}

func NewMemoryService(documents DocumentFinder, chunks ChunkWriteRepository, summaries SummaryReader, embedder EmbeddingProvider) *MemoryService {
	return &MemoryService{
		documents: documents,
		chunks:    chunks,
		summaries: summaries,
		embedder:  embedder,
	}
}

// StoreConversationSummary embeds the summary's items as a single memory
// chunk anchored to the room's first document. Rooms without documents have
// nowhere to anchor the chunk, so the summary is silently dropped there.
func (s *MemoryService) StoreConversationSummary(ctx context.Context, roomID string, summary *domain.ConversationSummary) error {
	if summary == nil || summary.IsEmpty() {
		return nil
	}

	documentID, err := s.documents.FirstIDByRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			log.Printf("memory: room %s has no documents, dropping summary", roomID)
			return nil
		}
		return fmt.Errorf("finding anchor document: %w", err)
	}

	text := renderSummaryText(summary)

	embedding, err := s.embedder.GenerateEmbedding(ctx, text)
	if err != nil {
		return domain.NewEmbeddingError(err)
	}

	chunk := &domain.Chunk{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Index:      domain.SummaryChunkIndex,
		Text:       text,
		Embedding:  embedding,
		Metadata: map[string]any{
			"type":      "conversation_summary",
			"room_id":   roomID,
			"stored_at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := s.chunks.InsertChunks(ctx, []*domain.Chunk{chunk}); err != nil {
		return fmt.Errorf("storing summary chunk: %w", err)
	}

	return nil
}

// RoomContext renders a digest of the room's recent summary turns for
// seeding a new conversation.
func (s *MemoryService) RoomContext(ctx context.Context, roomID string) (string, error) {
	turns, err := s.summaries.ListRecentSummaries(ctx, roomID, 10)
	if err != nil {
		return "", fmt.Errorf("listing summaries: %w", err)
	}

	if len(turns) == 0 {
		return "No previous context available for this room.", nil
	}

	var b strings.Builder
	b.WriteString("Previous discussion in this room:\n")
	for i := len(turns) - 1; i >= 0; i-- {
		b.WriteString("- ")
		b.WriteString(turns[i].Message)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func renderSummaryText(summary *domain.ConversationSummary) string {
	var b strings.Builder
	b.WriteString("Conversation summary:\n")
	for _, item := range summary.Items() {
		b.WriteString(item.Message())
		b.WriteString("\n")
	}
	return b.String()
}
