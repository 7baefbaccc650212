package domain

import "fmt"

// SummaryItem is a single typed extraction from a conversation window.
type SummaryItem struct {
	Type      SummaryType
	Content   string
	Reasoning string
	Metadata  map[string]any
}

// Message renders the item as the human-readable text persisted on its
// conversation turn.
func (i SummaryItem) Message() string {
	switch i.Type {
	case SummaryTypeDecision:
		if i.Reasoning != "" {
			return fmt.Sprintf("Decision: %s\nReasoning: %s", i.Content, i.Reasoning)
		}
		return fmt.Sprintf("Decision: %s", i.Content)
	case SummaryTypeTask:
		return fmt.Sprintf("Task: %s", i.Content)
	case SummaryTypeActionPoint:
		return fmt.Sprintf("Action Point: %s", i.Content)
	case SummaryTypeQuestion:
		return fmt.Sprintf("Question: %s", i.Content)
	}
	return i.Content
}

// ConversationSummary groups extracted knowledge items by category.
type ConversationSummary struct {
	Decisions    []SummaryItem
	Tasks        []SummaryItem
	ActionPoints []SummaryItem
	Questions    []SummaryItem
}

// EmptyConversationSummary returns a summary with all categories empty.
func EmptyConversationSummary() *ConversationSummary {
	return &ConversationSummary{
		Decisions:    []SummaryItem{},
		Tasks:        []SummaryItem{},
		ActionPoints: []SummaryItem{},
		Questions:    []SummaryItem{},
	}
}

// IsEmpty reports whether no items were extracted in any category.
func (s *ConversationSummary) IsEmpty() bool {
	return len(s.Decisions) == 0 && len(s.Tasks) == 0 &&
		len(s.ActionPoints) == 0 && len(s.Questions) == 0
}

// Items flattens all categories into a single slice, decisions first.
func (s *ConversationSummary) Items() []SummaryItem {
	items := make([]SummaryItem, 0, len(s.Decisions)+len(s.Tasks)+len(s.ActionPoints)+len(s.Questions))
	items = append(items, s.Decisions...)
	items = append(items, s.Tasks...)
	items = append(items, s.ActionPoints...)
	items = append(items, s.Questions...)
	return items
}
