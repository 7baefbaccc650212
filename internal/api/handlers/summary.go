package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/morphlabs/roomctx/internal/api"
	"github.com/morphlabs/roomctx/internal/domain"
)

type RoomContextService interface {
	RoomContext(ctx context.Context, roomID string) (string, error)
}

// SummaryHandler exposes on-demand summarization and the room context digest.
type SummaryHandler struct {
	summaries SummaryPipeline
	memory    MemoryService
	digest    RoomContextService
}

func NewSummaryHandler(summaries SummaryPipeline, memory MemoryService, digest RoomContextService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, memory: memory, digest: digest}
}

type SummaryItemResponse struct {
	Content   string         `json:"content"`
	Reasoning string         `json:"reasoning,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type SummaryResponse struct {
	Decisions    []SummaryItemResponse `json:"decisions"`
	Tasks        []SummaryItemResponse `json:"tasks"`
	ActionPoints []SummaryItemResponse `json:"action_points"`
	Questions    []SummaryItemResponse `json:"questions"`
}

type RoomContextResponse struct {
	Context string `json:"context"`
}

// Summarize runs summarization for the room immediately.
func (h *SummaryHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	summary, err := h.summaries.SummarizeAndStore(r.Context(), roomID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.memory.StoreConversationSummary(r.Context(), roomID, summary); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, summaryResponse(summary))
}

// RoomContext returns a digest of the room's stored summaries.
func (h *SummaryHandler) RoomContext(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	digest, err := h.digest.RoomContext(r.Context(), roomID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, RoomContextResponse{Context: digest})
}

func summaryResponse(summary *domain.ConversationSummary) SummaryResponse {
	return SummaryResponse{
		Decisions:    summaryItems(summary.Decisions),
		Tasks:        summaryItems(summary.Tasks),
		ActionPoints: summaryItems(summary.ActionPoints),
		Questions:    summaryItems(summary.Questions),
	}
}

func summaryItems(items []domain.SummaryItem) []SummaryItemResponse {
	out := make([]SummaryItemResponse, len(items))
	for i, item := range items {
		out[i] = SummaryItemResponse{Content: item.Content, Reasoning: item.Reasoning, Metadata: item.Metadata}
	}
	return out
}
