package inbound

import (
	"context"

	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
)

type CreateOfficerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
}

type OfficerView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Status   string `json:"status"`
}

type AuditListRequest struct {
	Action   string `json:"action"`
	TargetID string `json:"target_id"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

type AuditListResponse struct {
	Entries []*domain.AuditEntry `json:"entries"`
	Total   int                  `json:"total"`
}

type UserManagementUseCase interface {
	CreateOfficer(ctx context.Context, session *access.Session, req CreateOfficerRequest) (*OfficerView, error)
	ListOfficers(ctx context.Context, session *access.Session) ([]*OfficerView, error)
	DeactivateOfficer(ctx context.Context, session *access.Session, officerID string) (*OfficerView, error)
	RemoveOfficer(ctx context.Context, session *access.Session, officerID string) error
	ListAuditEntries(ctx context.Context, session *access.Session, req AuditListRequest) (*AuditListResponse, error)
}
