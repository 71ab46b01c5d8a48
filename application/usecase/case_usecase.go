package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/infrastructure/service/logger"
)

// CaseUseCase handles case visibility, view filtering and mutations.
type CaseUseCase struct {
	caseRepo outbound.CaseRepository
	logger   logger.Logger
}

func NewCaseUseCase(caseRepo outbound.CaseRepository, logger logger.Logger) inbound.CaseUseCase {
	return &CaseUseCase{
		caseRepo: caseRepo,
		logger:   logger,
	}
}

// FileCase files a complaint. The complainant identity is stamped from the
// session, never taken from the payload.
func (uc *CaseUseCase) FileCase(ctx context.Context, session *access.Session, req inbound.FileCaseRequest) (*inbound.CaseView, error) {
	if d := access.Authorize(session, false); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}
	if !domain.ValidType(req.Type) {
		return nil, fmt.Errorf("invalid case type: %s", req.Type)
	}
	if !domain.ValidPriority(req.Priority) {
		return nil, fmt.Errorf("invalid priority: %s", req.Priority)
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("description is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("location is required")
	}

	c := domain.NewCase(generateID(), req.Type, req.Description, req.Location, req.Priority, session.FullName, session.Email)

	entry := uc.newEntry(session, domain.AuditCaseCreated, c.ID, map[string]string{
		"type":     string(c.Type),
		"priority": string(c.Priority),
		"location": c.Location,
	})
	if err := uc.caseRepo.Create(ctx, c, entry); err != nil {
		uc.logger.Error(ctx, "Failed to create case", err, map[string]interface{}{
			"user_id": session.UserID,
		})
		return nil, fmt.Errorf("failed to create case: %w", err)
	}

	uc.logger.Info(ctx, "Case filed", map[string]interface{}{
		"case_id":   c.ID,
		"reference": c.ReferenceNumber(),
		"user_id":   session.UserID,
	})

	return toView(c), nil
}

// ListCases loads the role-scoped case set and applies the view filters.
// Officers and admins see every case; citizens see only cases whose recorded
// complainant identity matches their own. A repository failure surfaces as
// an error, never as an empty list.
func (uc *CaseUseCase) ListCases(ctx context.Context, session *access.Session, query inbound.CaseQuery) ([]*inbound.CaseView, error) {
	cases, err := uc.loadCasesFor(ctx, session)
	if err != nil {
		return nil, err
	}

	views := make([]*inbound.CaseView, 0, len(cases))
	for _, c := range cases {
		v := toView(c)
		if matchesQuery(v, query) {
			views = append(views, v)
		}
	}
	return views, nil
}

// GetCase returns a single case subject to the same visibility rule as
// ListCases. A citizen asking for someone else's case gets not-found, so the
// response does not reveal that the case exists.
func (uc *CaseUseCase) GetCase(ctx context.Context, session *access.Session, id string) (*inbound.CaseView, error) {
	if d := access.Authorize(session, false); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}
	c, err := uc.caseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Role == access.RoleCitizen && !matchesComplainant(c, session) {
		return nil, domain.ErrCaseNotFound
	}
	return toView(c), nil
}

// Summary computes the dashboard counts over the role-scoped set.
func (uc *CaseUseCase) Summary(ctx context.Context, session *access.Session) (*inbound.CaseSummary, error) {
	cases, err := uc.loadCasesFor(ctx, session)
	if err != nil {
		return nil, err
	}

	summary := &inbound.CaseSummary{
		Total: len(cases),
		ByStatus: map[string]int{
			string(domain.CaseStatusOpen):               0,
			string(domain.CaseStatusUnderInvestigation): 0,
			string(domain.CaseStatusResolved):           0,
			string(domain.CaseStatusClosed):             0,
		},
	}
	for _, c := range cases {
		summary.ByStatus[strings.ToUpper(string(c.Status))]++
	}
	return summary, nil
}

// AssignCase assigns a case to an officer.
func (uc *CaseUseCase) AssignCase(ctx context.Context, session *access.Session, caseID, officer string) (*inbound.CaseView, error) {
	if d := access.Authorize(session, false, access.RoleOfficer, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	c, err := uc.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := c.Assign(officer); err != nil {
		return nil, err
	}

	entry := uc.newEntry(session, domain.AuditCaseAssigned, c.ID, map[string]string{
		"officer": officer,
	})
	if err := uc.caseRepo.Update(ctx, c, entry); err != nil {
		return nil, fmt.Errorf("failed to assign case: %w", err)
	}
	return toView(c), nil
}

// MarkResolved transitions the case to Resolved. Resolving a case that is
// already resolved succeeds without writing anything, so the operation is
// idempotent and no duplicate audit entry appears.
func (uc *CaseUseCase) MarkResolved(ctx context.Context, session *access.Session, caseID string) (*inbound.CaseView, error) {
	if d := access.Authorize(session, false, access.RoleOfficer, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	c, err := uc.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	changed, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	if !changed {
		return toView(c), nil
	}

	entry := uc.newEntry(session, domain.AuditCaseResolved, c.ID, nil)
	if err := uc.caseRepo.Update(ctx, c, entry); err != nil {
		return nil, fmt.Errorf("failed to resolve case: %w", err)
	}

	uc.logger.Info(ctx, "Case resolved", map[string]interface{}{
		"case_id": c.ID,
		"by":      session.UserID,
	})
	return toView(c), nil
}

// CloseCase closes a resolved case.
func (uc *CaseUseCase) CloseCase(ctx context.Context, session *access.Session, caseID string) (*inbound.CaseView, error) {
	if d := access.Authorize(session, false, access.RoleOfficer, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	c, err := uc.caseRepo.FindByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := c.Close(); err != nil {
		return nil, err
	}

	entry := uc.newEntry(session, domain.AuditCaseClosed, c.ID, nil)
	if err := uc.caseRepo.Update(ctx, c, entry); err != nil {
		return nil, fmt.Errorf("failed to close case: %w", err)
	}
	return toView(c), nil
}

// TransferCase reassigns a case between officers. A non-empty reason is
// required and recorded in the audit entry along with both officer names.
// Concurrent transfers of the same case are not coordinated: the last write
// to commit wins.
func (uc *CaseUseCase) TransferCase(ctx context.Context, session *access.Session, req inbound.TransferCaseRequest) (*inbound.CaseView, error) {
	if d := access.Authorize(session, false, access.RoleOfficer, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	c, err := uc.caseRepo.FindByID(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}

	// The stored assignee is authoritative for the audit trail; the caller's
	// from_officer is only a fallback for unassigned snapshots, which
	// Transfer rejects anyway.
	fromOfficer := req.FromOfficer
	if c.AssignedOfficer != nil {
		fromOfficer = *c.AssignedOfficer
	}

	if err := c.Transfer(req.ToOfficer, req.Reason); err != nil {
		return nil, err
	}

	entry := uc.newEntry(session, domain.AuditCaseTransferred, c.ID, map[string]string{
		"from_officer": fromOfficer,
		"to_officer":   req.ToOfficer,
		"reason":       req.Reason,
	})
	if err := uc.caseRepo.Update(ctx, c, entry); err != nil {
		return nil, fmt.Errorf("failed to transfer case: %w", err)
	}

	logger.LogSecurityEvent(ctx, uc.logger, "case_transferred", "LOW", map[string]interface{}{
		"case_id":      c.ID,
		"from_officer": fromOfficer,
		"to_officer":   req.ToOfficer,
		"by":           session.UserID,
	})
	return toView(c), nil
}

// loadCasesFor returns the case subset visible to the session's role.
func (uc *CaseUseCase) loadCasesFor(ctx context.Context, session *access.Session) ([]*domain.Case, error) {
	if d := access.Authorize(session, false); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	all, err := uc.caseRepo.FindAll(ctx)
	if err != nil {
		uc.logger.Error(ctx, "Failed to load cases", err, map[string]interface{}{
			"user_id": session.UserID,
		})
		return nil, fmt.Errorf("failed to load cases: %w", err)
	}

	if session.Role == access.RoleOfficer || session.Role == access.RoleAdmin {
		return all, nil
	}

	own := make([]*domain.Case, 0)
	for _, c := range all {
		if matchesComplainant(c, session) {
			own = append(own, c)
		}
	}
	return own, nil
}

// matchesComplainant reports whether a case belongs to the session's user.
// Complainant identity was recorded inconsistently across intake paths, so
// three fields are tried: the recorded name against the session's full name,
// the recorded contact email against the session's email, and the recorded
// name against the local part of the session's email.
func matchesComplainant(c *domain.Case, session *access.Session) bool {
	if session.FullName != "" && strings.EqualFold(c.ComplainantName, session.FullName) {
		return true
	}
	if session.Email != "" && strings.EqualFold(c.ComplainantEmail, session.Email) {
		return true
	}
	if local := emailLocalPart(session.Email); local != "" && strings.EqualFold(c.ComplainantName, local) {
		return true
	}
	return false
}

func emailLocalPart(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return ""
	}
	return email[:at]
}

// matchesQuery applies the free-text search and status filters. The search
// term is matched case-insensitively as a substring of the type,
// description, location and derived reference number; the status filter is
// an exact case-insensitive match, with "all" or empty disabling it.
func matchesQuery(v *inbound.CaseView, query inbound.CaseQuery) bool {
	if query.Status != "" && !strings.EqualFold(query.Status, "all") {
		if !strings.EqualFold(string(v.Status), query.Status) {
			return false
		}
	}
	if q := strings.TrimSpace(query.Search); q != "" {
		q = strings.ToLower(q)
		haystacks := []string{
			string(v.Type),
			v.Description,
			v.Location,
			v.ReferenceNumber,
		}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (uc *CaseUseCase) newEntry(session *access.Session, action domain.AuditAction, caseID string, details map[string]string) *domain.AuditEntry {
	return domain.NewAuditEntry(generateID(), action, session.UserID, string(session.Role), "case", caseID, details)
}

func toView(c *domain.Case) *inbound.CaseView {
	return &inbound.CaseView{
		Case:            c,
		ReferenceNumber: c.ReferenceNumber(),
	}
}

var ErrNotAuthorized = domain.NewDomainError("not authorized for this operation")
