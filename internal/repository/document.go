package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/morphlabs/roomctx/internal/domain"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, room_id, file_name, file_type, file_size, file_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.RoomID, doc.FileName, doc.FileType, doc.FileSize, nullableString(doc.FilePath), doc.CreatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	var filePath pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, room_id, file_name, file_type, file_size, file_path, created_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.RoomID, &doc.FileName, &doc.FileType, &doc.FileSize, &filePath, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if filePath.Valid {
		doc.FilePath = filePath.String
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, room_id, file_name, file_type, file_size, file_path, created_at
		 FROM documents WHERE room_id = $1 ORDER BY created_at DESC`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var doc domain.Document
		var filePath pgtype.Text
		if err := rows.Scan(&doc.ID, &doc.RoomID, &doc.FileName, &doc.FileType, &doc.FileSize, &filePath, &doc.CreatedAt); err != nil {
			return nil, err
		}
		if filePath.Valid {
			doc.FilePath = filePath.String
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// HasDocuments reports whether the room has at least one document.
func (r *DocumentRepository) HasDocuments(ctx context.Context, roomID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE room_id = $1)`,
		roomID,
	).Scan(&exists)
	return exists, err
}

// FirstIDByRoom returns the room's oldest document ID. Summary chunks anchor
// to it since they belong to the room rather than any one upload.
func (r *DocumentRepository) FirstIDByRoom(ctx context.Context, roomID string) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`SELECT id FROM documents WHERE room_id = $1 ORDER BY created_at ASC LIMIT 1`,
		roomID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrDocumentNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
