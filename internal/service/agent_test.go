package service

import (
	"context"
	"errors"
	"testing"

	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	result       *RetrievalResult
	gotLimit     int
	gotThreshold float64
}

func (s *stubRetriever) RetrieveContext(ctx context.Context, query, roomID string, limit int, threshold float64) *RetrievalResult {
	s.gotLimit = limit
	s.gotThreshold = threshold
	if s.result != nil {
		return s.result
	}
	return &RetrievalResult{Contexts: []domain.RetrievedContext{}}
}

func TestAgentRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("folds context and history into the prompt", func(t *testing.T) {
		retriever := &stubRetriever{result: &RetrievalResult{Contexts: []domain.RetrievedContext{
			{Text: "Budget is capped at 50k.", Similarity: 0.91},
		}}}
		store := new(mockTurnStore)
		store.On("ListRecent", mock.Anything, "room-1", DefaultAgentConfig.HistoryTurns).
			Return([]*domain.ConversationTurn{
				{Role: domain.RoleUser, Message: "What did we agree on budget?"},
			}, nil)

		gen := new(mockGenerator)
		var captured string
		gen.On("GenerateText", mock.Anything, mock.MatchedBy(func(p string) bool {
			captured = p
			return true
		})).Return("The budget is capped at 50k.", nil)

		svc := NewAgentService(retriever, store, gen, DefaultAgentConfig)
		reply, err := svc.Respond(ctx, "room-1", "remind me about the budget", RoomMeta{RoomName: "Planning", ProjectName: "Atlas"})

		require.NoError(t, err)
		assert.Equal(t, "The budget is capped at 50k.", reply)
		assert.Contains(t, captured, "Budget is capped at 50k.")
		assert.Contains(t, captured, "Relevance: 91.0%")
		assert.Contains(t, captured, "Room: Planning")
		assert.Contains(t, captured, "Project: Atlas")
		assert.Contains(t, captured, "User: What did we agree on budget?")
	})

	t.Run("responds without context or history", func(t *testing.T) {
		store := new(mockTurnStore)
		store.On("ListRecent", mock.Anything, "room-1", DefaultAgentConfig.HistoryTurns).
			Return([]*domain.ConversationTurn{}, nil)

		gen := new(mockGenerator)
		gen.On("GenerateText", mock.Anything, mock.Anything).Return("Happy to help.", nil)

		svc := NewAgentService(&stubRetriever{}, store, gen, AgentConfig{})
		reply, err := svc.Respond(ctx, "room-1", "hello", RoomMeta{})

		require.NoError(t, err)
		assert.Equal(t, "Happy to help.", reply)
	})

	t.Run("history failure does not block the reply", func(t *testing.T) {
		store := new(mockTurnStore)
		store.On("ListRecent", mock.Anything, "room-1", DefaultAgentConfig.HistoryTurns).
			Return(nil, errors.New("timeout"))

		gen := new(mockGenerator)
		gen.On("GenerateText", mock.Anything, mock.Anything).Return("Reply.", nil)

		svc := NewAgentService(&stubRetriever{}, store, gen, AgentConfig{})
		reply, err := svc.Respond(ctx, "room-1", "hello", RoomMeta{})

		require.NoError(t, err)
		assert.Equal(t, "Reply.", reply)
	})

	t.Run("generation failure propagates", func(t *testing.T) {
		store := new(mockTurnStore)
		store.On("ListRecent", mock.Anything, "room-1", DefaultAgentConfig.HistoryTurns).
			Return([]*domain.ConversationTurn{}, nil)

		gen := new(mockGenerator)
		gen.On("GenerateText", mock.Anything, mock.Anything).Return("", errors.New("overloaded"))

		svc := NewAgentService(&stubRetriever{}, store, gen, AgentConfig{})
		_, err := svc.Respond(ctx, "room-1", "hello", RoomMeta{})

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeGeneration, domainErr.Code)
	})

	t.Run("rejects an empty message", func(t *testing.T) {
		svc := NewAgentService(&stubRetriever{}, new(mockTurnStore), new(mockGenerator), AgentConfig{})
		_, err := svc.Respond(ctx, "room-1", "   ", RoomMeta{})
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("configured limits reach retrieval and history", func(t *testing.T) {
		retriever := &stubRetriever{}
		store := new(mockTurnStore)
		store.On("ListRecent", mock.Anything, "room-1", 3).
			Return([]*domain.ConversationTurn{}, nil)

		gen := new(mockGenerator)
		gen.On("GenerateText", mock.Anything, mock.Anything).Return("Reply.", nil)

		svc := NewAgentService(retriever, store, gen, AgentConfig{
			ContextLimit:     4,
			ContextThreshold: 0.7,
			HistoryTurns:     3,
		})
		_, err := svc.Respond(ctx, "room-1", "hello", RoomMeta{})

		require.NoError(t, err)
		assert.Equal(t, 4, retriever.gotLimit)
		assert.Equal(t, 0.7, retriever.gotThreshold)
		store.AssertExpectations(t)
	})

	t.Run("zero config falls back to defaults", func(t *testing.T) {
		retriever := &stubRetriever{}
		store := new(mockTurnStore)
		store.On("ListRecent", mock.Anything, "room-1", DefaultAgentConfig.HistoryTurns).
			Return([]*domain.ConversationTurn{}, nil)

		gen := new(mockGenerator)
		gen.On("GenerateText", mock.Anything, mock.Anything).Return("Reply.", nil)

		svc := NewAgentService(retriever, store, gen, AgentConfig{})
		_, err := svc.Respond(ctx, "room-1", "hello", RoomMeta{})

		require.NoError(t, err)
		assert.Equal(t, DefaultAgentConfig.ContextLimit, retriever.gotLimit)
		assert.Equal(t, DefaultAgentConfig.ContextThreshold, retriever.gotThreshold)
		store.AssertExpectations(t)
	})
}
