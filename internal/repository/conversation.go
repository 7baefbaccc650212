package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/morphlabs/roomctx/internal/domain"
)

type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Append(ctx context.Context, turn *domain.ConversationTurn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversations (id, room_id, role, message, summary_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.ID, turn.RoomID, turn.Role, turn.Message, nullableString(string(turn.SummaryType)), createdAt,
	)
	return err
}

// ListRecent returns the room's latest turns, newest first.
func (r *ConversationRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, room_id, role, message, summary_type, created_at
		 FROM conversations
		 WHERE room_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTurnRows(rows)
}

// ListRecentSummaries returns the room's latest summary turns, newest first.
func (r *ConversationRepository) ListRecentSummaries(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, room_id, role, message, summary_type, created_at
		 FROM conversations
		 WHERE room_id = $1 AND summary_type IS NOT NULL
		 ORDER BY created_at DESC
		 LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTurnRows(rows)
}

// CountByRoom counts the room's user and assistant turns. Summary turns are
// bookkeeping and do not advance the summarization cadence.
func (r *ConversationRepository) CountByRoom(ctx context.Context, roomID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversations WHERE room_id = $1 AND summary_type IS NULL`,
		roomID,
	).Scan(&count)
	return count, err
}

func scanTurnRows(rows pgx.Rows) ([]*domain.ConversationTurn, error) {
	var turns []*domain.ConversationTurn
	for rows.Next() {
		var turn domain.ConversationTurn
		var summaryType pgtype.Text
		if err := rows.Scan(&turn.ID, &turn.RoomID, &turn.Role, &turn.Message, &summaryType, &turn.CreatedAt); err != nil {
			return nil, err
		}
		if summaryType.Valid {
			turn.SummaryType = domain.SummaryType(summaryType.String)
		}
		turns = append(turns, &turn)
	}
	return turns, rows.Err()
}
