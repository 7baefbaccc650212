package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/morphlabs/roomctx/internal/telemetry"
)

// ChunkSearchRepository is the chunk store surface needed for retrieval.
type ChunkSearchRepository interface {
	HasDocuments(ctx context.Context, roomID string) (bool, error)
	HasChunks(ctx context.Context, roomID string) (bool, error)
	SimilaritySearch(ctx context.Context, embedding []float32, roomID string, threshold float64, limit int) ([]domain.RetrievedContext, error)
	ListChunksForRoom(ctx context.Context, roomID string, limit int) ([]*domain.StoredChunk, error)
}

// EmbeddingProvider generates an embedding for a piece of text.
type EmbeddingProvider interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RetrievalConfig tunes context retrieval.
type RetrievalConfig struct {
	// DefaultLimit is the maximum number of contexts returned.
	DefaultLimit int
	// DefaultThreshold is the minimum similarity for a chunk to qualify.
	DefaultThreshold float64
	// RelaxedThreshold is the floor used when the initial search is empty.
	RelaxedThreshold float64
	// ScanLimit bounds how many chunks the fallback scan loads per room.
	ScanLimit int
}

// DefaultRetrievalConfig matches the production tuning.
var DefaultRetrievalConfig = RetrievalConfig{
	DefaultLimit:     5,
	DefaultThreshold: 0.5,
	RelaxedThreshold: 0.3,
	ScanLimit:        200,
}

// Diagnostic records a non-fatal degradation observed during retrieval.
type Diagnostic struct {
	Stage string
	Err   error
}

// RetrievalResult carries the retrieved contexts plus any degradations hit
// along the way. An empty Contexts slice with diagnostics means retrieval
// degraded rather than found nothing.
type RetrievalResult struct {
	Contexts    []domain.RetrievedContext
	Diagnostics []Diagnostic
}

// RetrievalService finds the document chunks most relevant to a query.
type RetrievalService struct {
	chunks   ChunkSearchRepository
	embedder EmbeddingProvider
	cfg      RetrievalConfig
}

func NewRetrievalService(chunks ChunkSearchRepository, embedder EmbeddingProvider, cfg RetrievalConfig) *RetrievalService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultRetrievalConfig.DefaultLimit
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = DefaultRetrievalConfig.DefaultThreshold
	}
	if cfg.RelaxedThreshold <= 0 {
		cfg.RelaxedThreshold = DefaultRetrievalConfig.RelaxedThreshold
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultRetrievalConfig.ScanLimit
	}
	return &RetrievalService{chunks: chunks, embedder: embedder, cfg: cfg}
}

// RetrieveContext returns up to limit chunks from the room's documents whose
// similarity to the query meets the threshold, most similar first. Retrieval
// never fails the caller: every degradation is absorbed into the result's
// diagnostics and an empty context list is returned instead.
//
// When the initial threshold finds nothing, the search is retried once at the
// relaxed floor. Zero or negative limit/threshold select the configured
// defaults.
func (s *RetrievalService) RetrieveContext(ctx context.Context, query, roomID string, limit int, threshold float64) *RetrievalResult {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.retrieve_context", telemetry.SpanAttributes{
		RoomID:    roomID,
		Operation: "retrieve_context",
	})
	defer span.End()

	result := &RetrievalResult{Contexts: []domain.RetrievedContext{}}

	if query == "" || roomID == "" {
		return result
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if threshold <= 0 {
		threshold = s.cfg.DefaultThreshold
	}

	hasDocs, err := s.chunks.HasDocuments(ctx, roomID)
	if err != nil {
		result.degrade("precondition", fmt.Errorf("checking documents: %w", err))
		return result
	}
	if !hasDocs {
		return result
	}

	hasChunks, err := s.chunks.HasChunks(ctx, roomID)
	if err != nil {
		result.degrade("precondition", fmt.Errorf("checking chunks: %w", err))
		return result
	}
	if !hasChunks {
		return result
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		result.degrade("embedding", err)
		return result
	}

	effective := threshold
	for {
		contexts := s.search(ctx, result, embedding, roomID, effective, limit)
		if len(contexts) > 0 {
			result.Contexts = contexts
			return result
		}

		if effective <= s.cfg.RelaxedThreshold {
			return result
		}
		effective = s.cfg.RelaxedThreshold
	}
}

// search runs the server-side similarity query, falling back to a bounded
// in-process scan when the primary path fails or comes back empty.
func (s *RetrievalService) search(ctx context.Context, result *RetrievalResult, embedding []float32, roomID string, threshold float64, limit int) []domain.RetrievedContext {
	contexts, err := s.chunks.SimilaritySearch(ctx, embedding, roomID, threshold, limit)
	if err == nil && len(contexts) > 0 {
		return contexts
	}
	if err != nil {
		result.degrade("similarity_search", err)
	}

	return s.scanChunks(ctx, result, embedding, roomID, threshold, limit)
}

// scanChunks loads up to ScanLimit chunks for the room and scores them
// in process. Chunks whose stored vectors cannot be scored are skipped.
func (s *RetrievalService) scanChunks(ctx context.Context, result *RetrievalResult, embedding []float32, roomID string, threshold float64, limit int) []domain.RetrievedContext {
	stored, err := s.chunks.ListChunksForRoom(ctx, roomID, s.cfg.ScanLimit)
	if err != nil {
		result.degrade("fallback_scan", err)
		return nil
	}

	var scored []domain.RetrievedContext
	for _, chunk := range stored {
		values, err := chunk.Vector.Floats()
		if err != nil {
			result.degrade("fallback_scan", fmt.Errorf("chunk vector: %w", err))
			continue
		}

		sim, err := domain.CosineSimilarity(embedding, values)
		if err != nil {
			result.degrade("fallback_scan", fmt.Errorf("chunk similarity: %w", err))
			continue
		}

		if sim >= threshold {
			scored = append(scored, domain.RetrievedContext{
				Text:       chunk.Text,
				Similarity: sim,
				Metadata:   chunk.Metadata,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (r *RetrievalResult) degrade(stage string, err error) {
	log.Printf("retrieval degraded at %s: %v", stage, err)
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Stage: stage, Err: err})
}
