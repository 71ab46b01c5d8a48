package domain

import "time"

// AuditAction identifies the kind of action recorded in the audit log.
type AuditAction string

const (
	AuditCaseCreated        AuditAction = "case_created"
	AuditCaseAssigned       AuditAction = "case_assigned"
	AuditCaseTransferred    AuditAction = "case_transferred"
	AuditCaseResolved       AuditAction = "case_resolved"
	AuditCaseClosed         AuditAction = "case_closed"
	AuditOfficerCreated     AuditAction = "officer_created"
	AuditOfficerDeactivated AuditAction = "officer_deactivated"
	AuditOfficerRemoved     AuditAction = "officer_removed"
	AuditUserCreated        AuditAction = "user_created"
)

// AuditEntry represents an audit log entry for important domain actions.
// Entries are append-only; nothing in the system updates or deletes them.
type AuditEntry struct {
	ID         string            `json:"id"`
	Action     AuditAction       `json:"action"`
	ActorID    string            `json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Details    map[string]string `json:"details,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewAuditEntry creates an audit entry stamped with the current time.
func NewAuditEntry(id string, action AuditAction, actorID, actorRole, targetType, targetID string, details map[string]string) *AuditEntry {
	return &AuditEntry{
		ID:         id,
		Action:     action,
		ActorID:    actorID,
		ActorRole:  actorRole,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
}

// AuditFilter represents filters for listing audit entries
type AuditFilter struct {
	Action   *AuditAction `json:"action,omitempty"`
	TargetID *string      `json:"target_id,omitempty"`
	ActorID  *string      `json:"actor_id,omitempty"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
}
