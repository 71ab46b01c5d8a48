package domain

import (
	"strings"
	"time"
)

// CaseStatus represents the status of a case
type CaseStatus string

const (
	CaseStatusOpen               CaseStatus = "OPEN"
	CaseStatusUnderInvestigation CaseStatus = "UNDER_INVESTIGATION"
	CaseStatusResolved           CaseStatus = "RESOLVED"
	CaseStatusClosed             CaseStatus = "CLOSED"
)

// CaseType represents the type of a filed complaint
type CaseType string

const (
	CaseTypeTheft         CaseType = "THEFT"
	CaseTypeAssault       CaseType = "ASSAULT"
	CaseTypeFraud         CaseType = "FRAUD"
	CaseTypeMissingPerson CaseType = "MISSING_PERSON"
	CaseTypeCybercrime    CaseType = "CYBERCRIME"
	CaseTypeOther         CaseType = "OTHER"
)

// CasePriority represents the priority of a case
type CasePriority string

const (
	CasePriorityLow    CasePriority = "LOW"
	CasePriorityMedium CasePriority = "MEDIUM"
	CasePriorityHigh   CasePriority = "HIGH"
)

// Case represents a filed complaint or FIR
type Case struct {
	ID               string       `json:"id"`
	Type             CaseType     `json:"type"`
	Description      string       `json:"description"`
	ComplainantName  string       `json:"complainant_name"`
	ComplainantEmail string       `json:"complainant_email"`
	Status           CaseStatus   `json:"status"`
	Priority         CasePriority `json:"priority"`
	AssignedOfficer  *string      `json:"assigned_officer,omitempty"`
	Location         string       `json:"location"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewCase creates a new case in the Open status
func NewCase(id string, caseType CaseType, description, location string, priority CasePriority, complainantName, complainantEmail string) *Case {
	now := time.Now()
	return &Case{
		ID:               id,
		Type:             caseType,
		Description:      description,
		ComplainantName:  complainantName,
		ComplainantEmail: complainantEmail,
		Status:           CaseStatusOpen,
		Priority:         priority,
		Location:         location,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ReferenceNumber derives the display identifier for the case. The value is
// stable for a given id and never stored.
func (c *Case) ReferenceNumber() string {
	return DeriveReferenceNumber(c.ID)
}

// DeriveReferenceNumber builds a reference number from a case id: "FIR-"
// followed by the first eight hex characters of the id, uppercased.
func DeriveReferenceNumber(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "FIR-" + strings.ToUpper(compact)
}

// Assign assigns the case to an officer. Assignment moves an Open case to
// Under Investigation; later statuses keep their status.
func (c *Case) Assign(officer string) error {
	if officer == "" {
		return ErrInvalidAssignment
	}
	if c.Status == CaseStatusClosed {
		return ErrCaseClosed
	}
	c.AssignedOfficer = &officer
	if c.Status == CaseStatusOpen {
		c.Status = CaseStatusUnderInvestigation
	}
	c.UpdatedAt = time.Now()
	return nil
}

// Resolve marks the case as resolved. Resolving an already resolved case is
// a no-op success, reported via the returned flag.
func (c *Case) Resolve() (changed bool, err error) {
	if c.Status == CaseStatusClosed {
		return false, ErrCaseClosed
	}
	if c.Status == CaseStatusResolved {
		return false, nil
	}
	c.Status = CaseStatusResolved
	c.UpdatedAt = time.Now()
	return true, nil
}

// Close closes the case. Only resolved cases can be closed.
func (c *Case) Close() error {
	if c.Status == CaseStatusClosed {
		return ErrCaseClosed
	}
	if c.Status != CaseStatusResolved {
		return ErrCaseNotResolved
	}
	c.Status = CaseStatusClosed
	c.UpdatedAt = time.Now()
	return nil
}

// Transfer reassigns the case to another officer. The case must already be
// assigned and a non-empty reason is required.
func (c *Case) Transfer(toOfficer, reason string) error {
	if c.Status == CaseStatusClosed {
		return ErrCaseClosed
	}
	if c.AssignedOfficer == nil {
		return ErrCaseUnassigned
	}
	if toOfficer == "" {
		return ErrInvalidAssignment
	}
	if strings.TrimSpace(reason) == "" {
		return ErrTransferReasonRequired
	}
	c.AssignedOfficer = &toOfficer
	c.UpdatedAt = time.Now()
	return nil
}

// ValidType reports whether the given case type is one of the known values.
func ValidType(t CaseType) bool {
	switch t {
	case CaseTypeTheft, CaseTypeAssault, CaseTypeFraud, CaseTypeMissingPerson, CaseTypeCybercrime, CaseTypeOther:
		return true
	}
	return false
}

// ValidPriority reports whether the given priority is one of the known values.
func ValidPriority(p CasePriority) bool {
	switch p {
	case CasePriorityLow, CasePriorityMedium, CasePriorityHigh:
		return true
	}
	return false
}

// Custom errors
var (
	ErrCaseNotFound           = NewDomainError("case not found")
	ErrCaseClosed             = NewDomainError("cannot modify closed case")
	ErrCaseNotResolved        = NewDomainError("case must be resolved before closing")
	ErrCaseUnassigned         = NewDomainError("case has no assigned officer")
	ErrInvalidAssignment      = NewDomainError("invalid assignment")
	ErrTransferReasonRequired = NewDomainError("transfer reason is required")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
