package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of embedded document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []*domain.Chunk) error {
	for _, c := range chunks {
		if err := domain.ValidateChunk(c); err != nil {
			return err
		}

		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var metadata []byte
		if c.Metadata != nil {
			var err error
			metadata, err = json.Marshal(c.Metadata)
			if err != nil {
				return err
			}
		}

		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks (id, document_id, chunk_index, text, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.DocumentID, c.Index, c.Text, pgvector.NewVector(c.Embedding), metadata, createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

// HasDocuments reports whether the room has any documents at all, chunked or
// not. Retrieval uses it to tell an empty room from an unprocessed one.
func (r *ChunkRepository) HasDocuments(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE room_id = $1)`,
		roomID,
	).Scan(&exists)
	return exists, err
}

// HasChunks reports whether any of the room's documents have been chunked.
func (r *ChunkRepository) HasChunks(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM chunks c
			JOIN documents d ON d.id = c.document_id
			WHERE d.room_id = $1
		 )`,
		roomID,
	).Scan(&exists)
	return exists, err
}

// SimilaritySearch runs the cosine search server-side. pgvector's <=> operator
// returns cosine distance, so similarity is 1 - distance.
func (r *ChunkRepository) SimilaritySearch(ctx context.Context, embedding []float32, roomID string, threshold float64, limit int) ([]domain.RetrievedContext, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.db.Query(ctx,
		`SELECT c.text, 1 - (c.embedding <=> $1) AS similarity, c.metadata
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.room_id = $2
		   AND 1 - (c.embedding <=> $1) >= $3
		 ORDER BY c.embedding <=> $1
		 LIMIT $4`,
		vec, roomID, threshold, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contexts := []domain.RetrievedContext{}
	for rows.Next() {
		var rc domain.RetrievedContext
		var metadata []byte
		if err := rows.Scan(&rc.Text, &rc.Similarity, &metadata); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &rc.Metadata)
		}
		contexts = append(contexts, rc)
	}
	return contexts, rows.Err()
}

// ListChunksForRoom loads chunk rows for the in-process similarity scan. The
// embedding comes back in its text form so rows with unexpected dimensions
// can be scored or skipped by the caller instead of failing the query.
func (r *ChunkRepository) ListChunksForRoom(ctx context.Context, roomID string, limit int) ([]*domain.StoredChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.text, c.embedding::text, c.metadata
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.room_id = $1
		 ORDER BY c.created_at DESC
		 LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.StoredChunk
	for rows.Next() {
		var chunk domain.StoredChunk
		var raw pgtype.Text
		var metadata []byte
		if err := rows.Scan(&chunk.Text, &raw, &metadata); err != nil {
			return nil, err
		}
		if raw.Valid {
			chunk.Vector = domain.StoredVector{Raw: raw.String}
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &chunk.Metadata)
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}
