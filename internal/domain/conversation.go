package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SummaryType tags a system-authored turn as a derived knowledge item.
type SummaryType string

const (
	SummaryTypeDecision    SummaryType = "decision"
	SummaryTypeTask        SummaryType = "task"
	SummaryTypeActionPoint SummaryType = "action_point"
	SummaryTypeQuestion    SummaryType = "question"
)

// ConversationTurn is one entry in a room's append-only conversation log.
// Turns with a non-empty SummaryType are derived knowledge items, not live
// dialogue.
type ConversationTurn struct {
	ID          string
	RoomID      string
	Role        Role
	Message     string
	SummaryType SummaryType
	CreatedAt   time.Time
}

// ValidateConversationTurn validates a ConversationTurn instance
func ValidateConversationTurn(t *ConversationTurn) error {
	if t == nil {
		return NewDomainError(ErrCodeValidation, "conversation turn cannot be nil")
	}
	if t.ID == "" {
		return NewDomainError(ErrCodeValidation, "conversation turn ID is required")
	}
	if t.RoomID == "" {
		return NewDomainError(ErrCodeValidation, "conversation turn RoomID is required")
	}
	if t.Message == "" {
		return NewDomainError(ErrCodeValidation, "conversation turn Message is required")
	}
	if !isValidRole(t.Role) {
		return ErrInvalidRole
	}
	if t.SummaryType != "" && !isValidSummaryType(t.SummaryType) {
		return ErrInvalidSummaryType
	}
	return nil
}

func isValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

func isValidSummaryType(s SummaryType) bool {
	switch s {
	case SummaryTypeDecision, SummaryTypeTask, SummaryTypeActionPoint, SummaryTypeQuestion:
		return true
	}
	return false
}
