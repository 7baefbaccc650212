//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/morphlabs/roomctx/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTurn(roomID string, role domain.Role, message string) *domain.ConversationTurn {
	return &domain.ConversationTurn{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Role:      role,
		Message:   message,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestConversationRepository_Append(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewConversationRepository(pool)

	turn := newTestTurn("room-1", domain.RoleUser, "hello")
	require.NoError(t, repo.Append(ctx, turn))

	turns, err := repo.ListRecent(ctx, "room-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, turn.ID, turns[0].ID)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Message)
	assert.Empty(t, turns[0].SummaryType)
}

func TestConversationRepository_Append_SummaryTurn(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewConversationRepository(pool)

	turn := newTestTurn("room-1", domain.RoleSystem, "Decision: ship it")
	turn.SummaryType = domain.SummaryTypeDecision
	require.NoError(t, repo.Append(ctx, turn))

	turns, err := repo.ListRecent(ctx, "room-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, domain.SummaryTypeDecision, turns[0].SummaryType)
}

func TestConversationRepository_ListRecent_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewConversationRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		turn := newTestTurn("room-1", domain.RoleUser, "message")
		turn.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Append(ctx, turn))
	}

	turns, err := repo.ListRecent(ctx, "room-1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.True(t, turns[0].CreatedAt.After(turns[1].CreatedAt))
}

func TestConversationRepository_ListRecentSummaries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewConversationRepository(pool)

	dialogue := newTestTurn("room-1", domain.RoleUser, "hello")
	require.NoError(t, repo.Append(ctx, dialogue))

	summary := newTestTurn("room-1", domain.RoleSystem, "Task: follow up")
	summary.SummaryType = domain.SummaryTypeTask
	summary.CreatedAt = dialogue.CreatedAt.Add(time.Second)
	require.NoError(t, repo.Append(ctx, summary))

	summaries, err := repo.ListRecentSummaries(ctx, "room-1", 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, summary.ID, summaries[0].ID)
}

func TestConversationRepository_CountByRoom_ExcludesSummaries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewConversationRepository(pool)

	require.NoError(t, repo.Append(ctx, newTestTurn("room-1", domain.RoleUser, "hello")))
	require.NoError(t, repo.Append(ctx, newTestTurn("room-1", domain.RoleAssistant, "hi there")))

	summary := newTestTurn("room-1", domain.RoleSystem, "Question: when?")
	summary.SummaryType = domain.SummaryTypeQuestion
	require.NoError(t, repo.Append(ctx, summary))

	count, err := repo.CountByRoom(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountByRoom(ctx, "room-2")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
