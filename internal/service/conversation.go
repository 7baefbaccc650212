package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/morphlabs/roomctx/internal/domain"
)

// TurnStore is the conversation surface used for recording turns.
type TurnStore interface {
	Append(ctx context.Context, turn *domain.ConversationTurn) error
	ListRecent(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error)
	CountByRoom(ctx context.Context, roomID string) (int, error)
}

// ConversationConfig tunes turn recording.
type ConversationConfig struct {
	// SummaryCadence triggers summarization every N turns. Zero disables it.
	SummaryCadence int
}

var DefaultConversationConfig = ConversationConfig{SummaryCadence: 5}

// ConversationService records turns and signals when a room is due for
// summarization. The caller owns firing the summarizer so a slow or failing
// summary can never block the conversation itself.
type ConversationService struct {
	turns TurnStore
	cfg   ConversationConfig
}

func NewConversationService(turns TurnStore, cfg ConversationConfig) *ConversationService {
	return &ConversationService{turns: turns, cfg: cfg}
}

// RecordTurn validates and appends a turn. The second return reports whether
// the room's turn count has reached a summarization point.
func (s *ConversationService) RecordTurn(ctx context.Context, roomID string, role domain.Role, message string) (*domain.ConversationTurn, bool, error) {
	turn := &domain.ConversationTurn{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Role:      role,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateConversationTurn(turn); err != nil {
		return nil, false, err
	}

	if err := s.turns.Append(ctx, turn); err != nil {
		return nil, false, fmt.Errorf("appending turn: %w", err)
	}

	if s.cfg.SummaryCadence <= 0 {
		return turn, false, nil
	}

	count, err := s.turns.CountByRoom(ctx, roomID)
	if err != nil {
		// A miscount only delays summarization, never the conversation.
		return turn, false, nil
	}

	return turn, count > 0 && count%s.cfg.SummaryCadence == 0, nil
}

// History returns the room's most recent turns, newest first.
func (s *ConversationService) History(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.turns.ListRecent(ctx, roomID, limit)
}
