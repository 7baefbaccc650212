package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/morphlabs/roomctx/internal/domain"
	"github.com/morphlabs/roomctx/internal/telemetry"
)

// ConversationRepository is the conversation store surface the summarizer needs.
type ConversationRepository interface {
	Append(ctx context.Context, turn *domain.ConversationTurn) error
	ListRecent(ctx context.Context, roomID string, limit int) ([]*domain.ConversationTurn, error)
}

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// SummarizerConfig tunes conversation summarization.
type SummarizerConfig struct {
	// WindowTurns is the number of user/assistant exchanges summarized.
	WindowTurns int
}

var DefaultSummarizerConfig = SummarizerConfig{WindowTurns: 5}

const summaryPromptTemplate = `Analyze the following conversation and extract key information. Respond ONLY with a JSON object, no other text.

The JSON object must have exactly these keys: "decisions", "tasks", "action_points", "questions".
Each key maps to an array of objects. Decision objects have "content" and "reasoning" fields. Task objects have a "content" field and may include a "metadata" object with "priority" (high|medium|low) and "estimated_effort" fields when mentioned. All other objects have a "content" field.

If a category has no items, use an empty array.

Conversation:
%s`

// SummarizerService extracts structured summaries from recent conversation.
type SummarizerService struct {
	conversations ConversationRepository
	generator     TextGenerator
	cfg           SummarizerConfig
}

func NewSummarizerService(conversations ConversationRepository, generator TextGenerator, cfg SummarizerConfig) *SummarizerService {
	if cfg.WindowTurns <= 0 {
		cfg.WindowTurns = DefaultSummarizerConfig.WindowTurns
	}
	return &SummarizerService{conversations: conversations, generator: generator, cfg: cfg}
}

// Summarize builds a structured summary of the room's recent conversation.
// An empty window returns an empty summary without calling the generator.
// Generation failures are returned; a response that cannot be parsed as the
// expected JSON degrades to an empty summary instead.
func (s *SummarizerService) Summarize(ctx context.Context, roomID string) (*domain.ConversationSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "summarizer.summarize", telemetry.SpanAttributes{
		RoomID:    roomID,
		Operation: "summarize",
	})
	defer span.End()

	turns, err := s.conversations.ListRecent(ctx, roomID, s.cfg.WindowTurns*2)
	if err != nil {
		return nil, fmt.Errorf("listing conversation: %w", err)
	}
	if len(turns) == 0 {
		return domain.EmptyConversationSummary(), nil
	}

	prompt := fmt.Sprintf(summaryPromptTemplate, formatTranscript(turns))

	response, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewGenerationError(err)
	}

	summary, err := parseSummaryResponse(response)
	if err != nil {
		log.Printf("summarizer: unparseable response for room %s: %v", roomID, err)
		return domain.EmptyConversationSummary(), nil
	}

	return summary, nil
}

// StoreSummaryItems persists each summary item as a tagged system turn.
// Individual append failures are logged and skipped so one bad item does not
// lose the rest.
func (s *SummarizerService) StoreSummaryItems(ctx context.Context, roomID string, summary *domain.ConversationSummary) {
	if summary == nil || summary.IsEmpty() {
		return
	}

	for _, item := range summary.Items() {
		turn := &domain.ConversationTurn{
			ID:          uuid.NewString(),
			RoomID:      roomID,
			Role:        domain.RoleSystem,
			Message:     item.Message(),
			SummaryType: item.Type,
		}
		if err := s.conversations.Append(ctx, turn); err != nil {
			log.Printf("summarizer: failed to store %s item for room %s: %v", item.Type, roomID, err)
		}
	}
}

// SummarizeAndStore runs Summarize and persists the results.
func (s *SummarizerService) SummarizeAndStore(ctx context.Context, roomID string) (*domain.ConversationSummary, error) {
	summary, err := s.Summarize(ctx, roomID)
	if err != nil {
		return nil, err
	}
	s.StoreSummaryItems(ctx, roomID, summary)
	return summary, nil
}

// formatTranscript renders turns oldest-first as a speaker-labeled transcript.
// Turns arrive newest-first from the store.
func formatTranscript(turns []*domain.ConversationTurn) string {
	var b strings.Builder
	for i := len(turns) - 1; i >= 0; i-- {
		turn := turns[i]
		switch turn.Role {
		case domain.RoleUser:
			b.WriteString("User: ")
		case domain.RoleAssistant:
			b.WriteString("Manager: ")
		default:
			b.WriteString("System: ")
		}
		b.WriteString(turn.Message)
		b.WriteString("\n")
	}
	return b.String()
}

type summaryEntry struct {
	Content   string         `json:"content"`
	Reasoning string         `json:"reasoning"`
	Metadata  map[string]any `json:"metadata"`
}

type summaryPayload struct {
	Decisions    []summaryEntry `json:"decisions"`
	Tasks        []summaryEntry `json:"tasks"`
	ActionPoints []summaryEntry `json:"action_points"`
	Questions    []summaryEntry `json:"questions"`
}

// parseSummaryResponse decodes the generator output. Models wrap JSON in
// prose or code fences often enough that a direct parse failure retries on
// the largest brace-delimited substring.
func parseSummaryResponse(response string) (*domain.ConversationSummary, error) {
	var payload summaryPayload
	if err := json.Unmarshal([]byte(response), &payload); err != nil {
		start := strings.Index(response, "{")
		end := strings.LastIndex(response, "}")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("no JSON object in response: %w", err)
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &payload); err != nil {
			return nil, fmt.Errorf("malformed JSON in response: %w", err)
		}
	}

	summary := domain.EmptyConversationSummary()
	for _, d := range payload.Decisions {
		if d.Content == "" {
			continue
		}
		summary.Decisions = append(summary.Decisions, domain.SummaryItem{
			Type:      domain.SummaryTypeDecision,
			Content:   d.Content,
			Reasoning: d.Reasoning,
		})
	}
	for _, t := range payload.Tasks {
		if t.Content == "" {
			continue
		}
		summary.Tasks = append(summary.Tasks, domain.SummaryItem{
			Type:     domain.SummaryTypeTask,
			Content:  t.Content,
			Metadata: t.Metadata,
		})
	}
	for _, a := range payload.ActionPoints {
		if a.Content == "" {
			continue
		}
		summary.ActionPoints = append(summary.ActionPoints, domain.SummaryItem{Type: domain.SummaryTypeActionPoint, Content: a.Content})
	}
	for _, q := range payload.Questions {
		if q.Content == "" {
			continue
		}
		summary.Questions = append(summary.Questions, domain.SummaryItem{Type: domain.SummaryTypeQuestion, Content: q.Content})
	}

	return summary, nil
}
