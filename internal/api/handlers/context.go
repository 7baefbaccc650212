package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/morphlabs/roomctx/internal/api"
	"github.com/morphlabs/roomctx/internal/service"
)

type RetrievalService interface {
	RetrieveContext(ctx context.Context, query, roomID string, limit int, threshold float64) *service.RetrievalResult
}

type ContextHandler struct {
	svc RetrievalService
}

func NewContextHandler(svc RetrievalService) *ContextHandler {
	return &ContextHandler{svc: svc}
}

type RetrieveRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

type RetrieveResponse struct {
	Contexts []ContextResponse `json:"contexts"`
	Degraded bool              `json:"degraded"`
}

type ContextResponse struct {
	Text       string         `json:"chunk_text"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Retrieve returns the room's document chunks most relevant to the query.
func (h *ContextHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.svc.RetrieveContext(r.Context(), req.Query, roomID, req.Limit, req.Threshold)

	contexts := make([]ContextResponse, len(result.Contexts))
	for i, c := range result.Contexts {
		contexts[i] = ContextResponse{
			Text:       c.Text,
			Similarity: c.Similarity,
			Metadata:   c.Metadata,
		}
	}

	api.Success(w, http.StatusOK, RetrieveResponse{
		Contexts: contexts,
		Degraded: len(result.Diagnostics) > 0,
	})
}
