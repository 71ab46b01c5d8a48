package inbound

import (
	"context"

	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
)

// CaseQuery holds the view filters applied on top of the role-scoped case
// set. Status "all" (or empty) disables the status filter.
type CaseQuery struct {
	Search string `json:"search"`
	Status string `json:"status"`
}

type FileCaseRequest struct {
	Type        domain.CaseType     `json:"type" validate:"required"`
	Description string              `json:"description" validate:"required,min=10,max=2000"`
	Location    string              `json:"location" validate:"required"`
	Priority    domain.CasePriority `json:"priority" validate:"required"`
}

type TransferCaseRequest struct {
	CaseID      string `json:"-"`
	FromOfficer string `json:"from_officer"`
	ToOfficer   string `json:"to_officer" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
}

// CaseView is a case decorated with its derived reference number for display.
type CaseView struct {
	*domain.Case
	ReferenceNumber string `json:"reference_number"`
}

// CaseSummary holds the dashboard counts: total plus per-status totals keyed
// by the canonical status value.
type CaseSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

type CaseUseCase interface {
	FileCase(ctx context.Context, session *access.Session, req FileCaseRequest) (*CaseView, error)
	ListCases(ctx context.Context, session *access.Session, query CaseQuery) ([]*CaseView, error)
	GetCase(ctx context.Context, session *access.Session, id string) (*CaseView, error)
	Summary(ctx context.Context, session *access.Session) (*CaseSummary, error)
	AssignCase(ctx context.Context, session *access.Session, caseID, officer string) (*CaseView, error)
	MarkResolved(ctx context.Context, session *access.Session, caseID string) (*CaseView, error)
	CloseCase(ctx context.Context, session *access.Session, caseID string) (*CaseView, error)
	TransferCase(ctx context.Context, session *access.Session, req TransferCaseRequest) (*CaseView, error)
}
