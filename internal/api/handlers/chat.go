package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/morphlabs/roomctx/internal/api"
	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/morphlabs/roomctx/internal/service"
)

type ConversationService interface {
	RecordTurn(ctx context.Context, roomID string, role domain.Role, message string) (*domain.ConversationTurn, bool, error)
	History(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error)
}

type AgentService interface {
	Respond(ctx context.Context, roomID, message string, meta service.RoomMeta) (string, error)
}

type SummaryPipeline interface {
	SummarizeAndStore(ctx context.Context, roomID string) (*domain.ConversationSummary, error)
}

type MemoryService interface {
	StoreConversationSummary(ctx context.Context, roomID string, summary *domain.ConversationSummary) error
}

// ChatHandler runs the room conversation loop: record the user's turn, let
// the agent reply, record the reply, and kick off summarization when due.
type ChatHandler struct {
	conversations ConversationService
	agent         AgentService
	summaries     SummaryPipeline
	memory        MemoryService

	// summaryTimeout bounds the detached summarization run.
	summaryTimeout time.Duration
}

func NewChatHandler(conversations ConversationService, agent AgentService, summaries SummaryPipeline, memory MemoryService) *ChatHandler {
	return &ChatHandler{
		conversations:  conversations,
		agent:          agent,
		summaries:      summaries,
		memory:         memory,
		summaryTimeout: 60 * time.Second,
	}
}

type ChatRequest struct {
	Message     string `json:"message"`
	RoomName    string `json:"room_name,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type TurnResponse struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Message     string `json:"message"`
	SummaryType string `json:"summary_type,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type HistoryResponse struct {
	Turns []*TurnResponse `json:"turns"`
}

// Send handles one user message in the room.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	if _, _, err := h.conversations.RecordTurn(r.Context(), roomID, domain.RoleUser, req.Message); err != nil {
		api.HandleError(w, err)
		return
	}

	reply, err := h.agent.Respond(r.Context(), roomID, req.Message, service.RoomMeta{
		RoomName:    req.RoomName,
		ProjectName: req.ProjectName,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	_, due, err := h.conversations.RecordTurn(r.Context(), roomID, domain.RoleAssistant, reply)
	if err != nil {
		// The reply was generated; losing the record should not fail the chat.
		log.Printf("chat: failed to record assistant turn for room %s: %v", roomID, err)
	}

	if due {
		go h.runSummarization(roomID)
	}

	api.Success(w, http.StatusOK, ChatResponse{Reply: reply})
}

// History returns the room's recent turns, newest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	turns, err := h.conversations.History(r.Context(), roomID, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*TurnResponse, len(turns))
	for i, turn := range turns {
		responses[i] = &TurnResponse{
			ID:          turn.ID,
			Role:        string(turn.Role),
			Message:     turn.Message,
			SummaryType: string(turn.SummaryType),
			CreatedAt:   turn.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	api.Success(w, http.StatusOK, HistoryResponse{Turns: responses})
}

// runSummarization summarizes the room in the background. Failures are logged
// and never surface to the chat that triggered them.
func (h *ChatHandler) runSummarization(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.summaryTimeout)
	defer cancel()

	summary, err := h.summaries.SummarizeAndStore(ctx, roomID)
	if err != nil {
		log.Printf("chat: background summarization for room %s failed: %v", roomID, err)
		return
	}

	if err := h.memory.StoreConversationSummary(ctx, roomID, summary); err != nil {
		log.Printf("chat: storing summary memory for room %s failed: %v", roomID, err)
	}
}
