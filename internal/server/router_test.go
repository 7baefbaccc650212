package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/morphlabs/roomctx/internal/api/handlers"
	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/morphlabs/roomctx/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) CreateDocument(ctx context.Context, roomID, fileName, fileType, text string) (*domain.Document, error) {
	args := m.Called(ctx, roomID, fileName, fileType, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockIngestionService) ListDocuments(ctx context.Context, roomID string) ([]*domain.Document, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockIngestionService) DeleteDocument(ctx context.Context, roomID, documentID string) error {
	args := m.Called(ctx, roomID, documentID)
	return args.Error(0)
}

func (m *MockIngestionService) DocumentDownloadURL(ctx context.Context, roomID, documentID string) (string, error) {
	args := m.Called(ctx, roomID, documentID)
	return args.String(0), args.Error(1)
}

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) RetrieveContext(ctx context.Context, query, roomID string, limit int, threshold float64) *service.RetrievalResult {
	args := m.Called(ctx, query, roomID, limit, threshold)
	return args.Get(0).(*service.RetrievalResult)
}

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) RecordTurn(ctx context.Context, roomID string, role domain.Role, message string) (*domain.ConversationTurn, bool, error) {
	args := m.Called(ctx, roomID, role, message)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.ConversationTurn), args.Bool(1), args.Error(2)
}

func (m *MockConversationService) History(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationTurn), args.Error(1)
}

type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) Respond(ctx context.Context, roomID, message string, meta service.RoomMeta) (string, error) {
	args := m.Called(ctx, roomID, message, meta)
	return args.String(0), args.Error(1)
}

type MockSummaryPipeline struct {
	mock.Mock
}

func (m *MockSummaryPipeline) SummarizeAndStore(ctx context.Context, roomID string) (*domain.ConversationSummary, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversationSummary), args.Error(1)
}

type MockMemoryService struct {
	mock.Mock
}

func (m *MockMemoryService) StoreConversationSummary(ctx context.Context, roomID string, summary *domain.ConversationSummary) error {
	args := m.Called(ctx, roomID, summary)
	return args.Error(0)
}

func (m *MockMemoryService) RoomContext(ctx context.Context, roomID string) (string, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Error(1)
}

func setupRouter() (http.Handler, *MockIngestionService, *MockRetrievalService, *MockConversationService, *MockAgentService, *MockMemoryService) {
	ingestionSvc := new(MockIngestionService)
	retrievalSvc := new(MockRetrievalService)
	conversationSvc := new(MockConversationService)
	agentSvc := new(MockAgentService)
	summarySvc := new(MockSummaryPipeline)
	memorySvc := new(MockMemoryService)

	cfg := RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(ingestionSvc),
		ContextHandler:  handlers.NewContextHandler(retrievalSvc),
		ChatHandler:     handlers.NewChatHandler(conversationSvc, agentSvc, summarySvc, memorySvc),
		SummaryHandler:  handlers.NewSummaryHandler(summarySvc, memorySvc, memorySvc),
	}

	return NewRouter(cfg), ingestionSvc, retrievalSvc, conversationSvc, agentSvc, memorySvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_RetrieveRoute(t *testing.T) {
	router, _, retrievalSvc, _, _, _ := setupRouter()

	result := &service.RetrievalResult{Contexts: []domain.RetrievedContext{{Text: "chunk", Similarity: 0.8}}}
	retrievalSvc.On("RetrieveContext", mock.Anything, "budget", "room-42", 0, 0.0).Return(result)

	body := strings.NewReader(`{"query":"budget"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/rooms/room-42/retrieve", body)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	retrievalSvc.AssertExpectations(t)
}

func TestRouter_DocumentRoutes(t *testing.T) {
	router, ingestionSvc, _, _, _, _ := setupRouter()

	ingestionSvc.On("ListDocuments", mock.Anything, "room-42").Return([]*domain.Document{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/room-42/documents", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	ingestionSvc.AssertExpectations(t)
}

func TestRouter_DocumentDownloadRoute(t *testing.T) {
	router, ingestionSvc, _, _, _, _ := setupRouter()

	ingestionSvc.On("DocumentDownloadURL", mock.Anything, "room-42", "doc-1").
		Return("https://s3.local/bucket/rooms/room-42/doc-1/raw.txt?sig=abc", nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/rooms/room-42/documents/doc-1/download", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	ingestionSvc.AssertExpectations(t)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/unknown", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RejectsOversizedBody(t *testing.T) {
	router, _, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/rooms/room-42/retrieve", strings.NewReader("{}"))
	req.ContentLength = 6 * 1024 * 1024
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router, _, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
