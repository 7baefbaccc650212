package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/morphlabs/roomctx/internal/api"
	"github.com/morphlabs/roomctx/internal/domain"
)

type IngestionService interface {
	CreateDocument(ctx context.Context, roomID, fileName, fileType, text string) (*domain.Document, error)
	ListDocuments(ctx context.Context, roomID string) ([]*domain.Document, error)
	DeleteDocument(ctx context.Context, roomID, documentID string) error
	DocumentDownloadURL(ctx context.Context, roomID, documentID string) (string, error)
}

type DocumentHandler struct {
	svc IngestionService
}

func NewDocumentHandler(svc IngestionService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type UploadDocumentRequest struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type,omitempty"`
	Text     string `json:"text"`
}

type DocumentResponse struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type,omitempty"`
	FileSize  int64  `json:"file_size"`
	CreatedAt string `json:"created_at"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
}

type DocumentDownloadResponse struct {
	URL string `json:"url"`
}

func documentResponse(doc *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:        doc.ID,
		RoomID:    doc.RoomID,
		FileName:  doc.FileName,
		FileType:  doc.FileType,
		FileSize:  doc.FileSize,
		CreatedAt: doc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Upload accepts extracted document text and queues it for ingestion.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FileName == "" {
		api.Error(w, http.StatusBadRequest, "file_name is required")
		return
	}
	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	doc, err := h.svc.CreateDocument(r.Context(), roomID, req.FileName, req.FileType, req.Text)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	docs, err := h.svc.ListDocuments(r.Context(), roomID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = documentResponse(doc)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{Documents: responses})
}

// Download returns a presigned URL for the document's archived source text.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	documentID := chi.URLParam(r, "documentID")

	url, err := h.svc.DocumentDownloadURL(r.Context(), roomID, documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DocumentDownloadResponse{URL: url})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	documentID := chi.URLParam(r, "documentID")

	if err := h.svc.DeleteDocument(r.Context(), roomID, documentID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
