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

type mockChunkSearchRepo struct {
	mock.Mock
}

func (m *mockChunkSearchRepo) HasDocuments(ctx context.Context, roomID string) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *mockChunkSearchRepo) HasChunks(ctx context.Context, roomID string) (bool, error) {
	args := m.Called(ctx, roomID)
	return args.Bool(0), args.Error(1)
}

func (m *mockChunkSearchRepo) SimilaritySearch(ctx context.Context, embedding []float32, roomID string, threshold float64, limit int) ([]domain.RetrievedContext, error) {
	args := m.Called(ctx, embedding, roomID, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedContext), args.Error(1)
}

func (m *mockChunkSearchRepo) ListChunksForRoom(ctx context.Context, roomID string, limit int) ([]*domain.StoredChunk, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StoredChunk), args.Error(1)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func storedChunk(text string, values []float32) *domain.StoredChunk {
	return &domain.StoredChunk{Text: text, Vector: domain.StoredVector{Values: values}}
}

func TestRetrieveContext(t *testing.T) {
	ctx := context.Background()
	queryVec := []float32{1, 0}

	t.Run("room without documents returns empty and never embeds", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(false, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		assert.Empty(t, result.Contexts)
		assert.Empty(t, result.Diagnostics)
		embedder.AssertNotCalled(t, "GenerateEmbedding")
	})

	t.Run("documents without chunks returns empty and never embeds", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(false, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		assert.Empty(t, result.Contexts)
		embedder.AssertNotCalled(t, "GenerateEmbedding")
	})

	t.Run("empty query short-circuits", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		svc := NewRetrievalService(repo, new(mockEmbedder), DefaultRetrievalConfig)

		result := svc.RetrieveContext(ctx, "", "room-1", 5, 0.5)

		assert.Empty(t, result.Contexts)
		repo.AssertNotCalled(t, "HasDocuments")
	})

	t.Run("returns primary search results", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.5, 5).
			Return([]domain.RetrievedContext{{Text: "relevant", Similarity: 0.9}}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		require.Len(t, result.Contexts, 1)
		assert.Equal(t, "relevant", result.Contexts[0].Text)
		assert.Empty(t, result.Diagnostics)
		repo.AssertNotCalled(t, "ListChunksForRoom")
	})

	t.Run("falls back to scan when primary search fails", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.5, 5).
			Return(nil, errors.New("operator does not exist"))
		repo.On("ListChunksForRoom", mock.Anything, "room-1", 200).
			Return([]*domain.StoredChunk{
				storedChunk("close", []float32{0.9, 0.1}),
				storedChunk("far", []float32{0, 1}),
			}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		require.Len(t, result.Contexts, 1)
		assert.Equal(t, "close", result.Contexts[0].Text)
		require.NotEmpty(t, result.Diagnostics)
		assert.Equal(t, "similarity_search", result.Diagnostics[0].Stage)
	})

	t.Run("scan skips chunks that cannot be scored", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.5, 5).
			Return(nil, errors.New("down"))
		repo.On("ListChunksForRoom", mock.Anything, "room-1", 200).
			Return([]*domain.StoredChunk{
				{Text: "broken", Vector: domain.StoredVector{Raw: "not-a-vector"}},
				{Text: "wrong dims", Vector: domain.StoredVector{Values: []float32{1, 0, 0}}},
				storedChunk("good", []float32{1, 0}),
			}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		require.Len(t, result.Contexts, 1)
		assert.Equal(t, "good", result.Contexts[0].Text)
		// one diagnostic for the failed search, two for the unscorable chunks
		assert.Len(t, result.Diagnostics, 3)
	})

	t.Run("relaxes threshold once when nothing qualifies", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.5, 5).
			Return([]domain.RetrievedContext{}, nil)
		repo.On("ListChunksForRoom", mock.Anything, "room-1", 200).
			Return([]*domain.StoredChunk{}, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.3, 5).
			Return([]domain.RetrievedContext{{Text: "weakly related", Similarity: 0.4}}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		require.Len(t, result.Contexts, 1)
		assert.Equal(t, "weakly related", result.Contexts[0].Text)
		embedder.AssertNumberOfCalls(t, "GenerateEmbedding", 1)
	})

	t.Run("stops after the relaxed threshold", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", mock.Anything, 5).
			Return([]domain.RetrievedContext{}, nil)
		repo.On("ListChunksForRoom", mock.Anything, "room-1", 200).
			Return([]*domain.StoredChunk{}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		assert.Empty(t, result.Contexts)
		repo.AssertNumberOfCalls(t, "SimilaritySearch", 2)
	})

	t.Run("threshold already at the floor searches once", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.3, 5).
			Return([]domain.RetrievedContext{}, nil)
		repo.On("ListChunksForRoom", mock.Anything, "room-1", 200).
			Return([]*domain.StoredChunk{}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.3)

		assert.Empty(t, result.Contexts)
		repo.AssertNumberOfCalls(t, "SimilaritySearch", 1)
	})

	t.Run("embedding failure degrades instead of erroring", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(nil, errors.New("provider down"))

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 5, 0.5)

		assert.Empty(t, result.Contexts)
		require.Len(t, result.Diagnostics, 1)
		assert.Equal(t, "embedding", result.Diagnostics[0].Stage)
		repo.AssertNotCalled(t, "SimilaritySearch")
	})

	t.Run("scan orders by similarity and applies the limit", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.5, 2).
			Return(nil, errors.New("down"))
		repo.On("ListChunksForRoom", mock.Anything, "room-1", 200).
			Return([]*domain.StoredChunk{
				storedChunk("second", []float32{0.8, 0.2}),
				storedChunk("first", []float32{1, 0}),
				storedChunk("third", []float32{0.7, 0.3}),
			}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 2, 0.5)

		require.Len(t, result.Contexts, 2)
		assert.Equal(t, "first", result.Contexts[0].Text)
		assert.Equal(t, "second", result.Contexts[1].Text)
	})

	t.Run("zero limit and threshold use defaults", func(t *testing.T) {
		repo := new(mockChunkSearchRepo)
		embedder := new(mockEmbedder)
		repo.On("HasDocuments", mock.Anything, "room-1").Return(true, nil)
		repo.On("HasChunks", mock.Anything, "room-1").Return(true, nil)
		embedder.On("GenerateEmbedding", mock.Anything, "query").Return(queryVec, nil)
		repo.On("SimilaritySearch", mock.Anything, queryVec, "room-1", 0.5, 5).
			Return([]domain.RetrievedContext{{Text: "hit", Similarity: 0.8}}, nil)

		svc := NewRetrievalService(repo, embedder, DefaultRetrievalConfig)
		result := svc.RetrieveContext(ctx, "query", "room-1", 0, 0)

		require.Len(t, result.Contexts, 1)
	})
}
