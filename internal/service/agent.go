package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/morphlabs/roomctx/internal/telemetry"
)

// ContextRetriever is the retrieval surface the agent depends on.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query, roomID string, limit int, threshold float64) *RetrievalResult
}

// RoomMeta carries display attributes for the agent's prompt.
type RoomMeta struct {
	RoomName    string
	ProjectName string
}

// AgentConfig tunes how much context and history the agent folds into its
// prompt.
type AgentConfig struct {
	ContextLimit     int
	ContextThreshold float64
	HistoryTurns     int
}

var DefaultAgentConfig = AgentConfig{
	ContextLimit:     10,
	ContextThreshold: 0.5,
	HistoryTurns:     8,
}

const agentPersona = `You are Morph, an experienced project manager facilitating this meeting room. You keep discussions focused, surface relevant information from the room's documents, and help the team reach concrete decisions. Be concise and practical.`

// AgentService answers room messages with document context and recent
// conversation folded into the prompt.
type AgentService struct {
	retriever ContextRetriever
	history   TurnStore
	generator TextGenerator
	cfg       AgentConfig
}

func NewAgentService(retriever ContextRetriever, history TurnStore, generator TextGenerator, cfg AgentConfig) *AgentService {
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = DefaultAgentConfig.ContextLimit
	}
	if cfg.ContextThreshold <= 0 {
		cfg.ContextThreshold = DefaultAgentConfig.ContextThreshold
	}
	if cfg.HistoryTurns <= 0 {
		cfg.HistoryTurns = DefaultAgentConfig.HistoryTurns
	}
	return &AgentService{retriever: retriever, history: history, generator: generator, cfg: cfg}
}

// Respond generates the agent's reply to a room message. Context retrieval
// and history loading are best-effort; only generation failures propagate.
func (s *AgentService) Respond(ctx context.Context, roomID, message string, meta RoomMeta) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.respond", telemetry.SpanAttributes{
		RoomID:    roomID,
		Operation: "respond",
	})
	defer span.End()

	if strings.TrimSpace(message) == "" {
		return "", domain.ErrMissingRequiredField
	}

	result := s.retriever.RetrieveContext(ctx, message, roomID, s.cfg.ContextLimit, s.cfg.ContextThreshold)

	var history []*domain.ConversationTurn
	if turns, err := s.history.ListRecent(ctx, roomID, s.cfg.HistoryTurns); err == nil {
		history = turns
	}

	prompt := buildAgentPrompt(message, meta, result.Contexts, history)

	reply, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return "", domain.NewGenerationError(err)
	}

	return reply, nil
}

func buildAgentPrompt(message string, meta RoomMeta, contexts []domain.RetrievedContext, history []*domain.ConversationTurn) string {
	var b strings.Builder
	b.WriteString(agentPersona)
	b.WriteString("\n\n")

	if meta.RoomName != "" {
		fmt.Fprintf(&b, "Room: %s\n", meta.RoomName)
	}
	if meta.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", meta.ProjectName)
	}

	if len(contexts) > 0 {
		b.WriteString("\nRelevant document excerpts:\n")
		for i, c := range contexts {
			fmt.Fprintf(&b, "[Document Chunk %d - Relevance: %.1f%%]\n%s\n\n", i+1, c.Similarity*100, c.Text)
		}
	}

	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for i := len(history) - 1; i >= 0; i-- {
			turn := history[i]
			switch turn.Role {
			case domain.RoleUser:
				fmt.Fprintf(&b, "User: %s\n", turn.Message)
			case domain.RoleAssistant:
				fmt.Fprintf(&b, "Morph: %s\n", turn.Message)
			default:
				fmt.Fprintf(&b, "Note: %s\n", turn.Message)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User message: %s\n\nRespond as Morph.", message)
	return b.String()
}
