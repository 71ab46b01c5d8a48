package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/domain/entity"
	"github.com/civiport/civiport/infrastructure/service/logger"
)

// UserManagementUseCase covers the admin surface: officer accounts and the
// audit trail.
type UserManagementUseCase struct {
	userRepo        outbound.UserRepository
	auditRepo       outbound.AuditRepository
	passwordService outbound.PasswordService
	logger          logger.Logger
}

func NewUserManagementUseCase(
	userRepo outbound.UserRepository,
	auditRepo outbound.AuditRepository,
	passwordService outbound.PasswordService,
	logger logger.Logger,
) inbound.UserManagementUseCase {
	return &UserManagementUseCase{
		userRepo:        userRepo,
		auditRepo:       auditRepo,
		passwordService: passwordService,
		logger:          logger,
	}
}

// CreateOfficer creates an officer account. Only admins may do this; the
// role can never be obtained through public sign-up.
func (uc *UserManagementUseCase) CreateOfficer(ctx context.Context, session *access.Session, req inbound.CreateOfficerRequest) (*inbound.OfficerView, error) {
	if d := access.Authorize(session, false, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return nil, fmt.Errorf("email, password and full name are required")
	}

	exists, err := uc.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if exists {
		return nil, outbound.ErrUserAlreadyExists
	}

	hashed, err := uc.passwordService.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	officer := newOfficer(generateID(), req.FullName, req.Email, hashed)
	if err := uc.userRepo.Create(ctx, officer); err != nil {
		uc.logger.Error(ctx, "Failed to create officer", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, fmt.Errorf("failed to create officer: %w", err)
	}

	entry := domain.NewAuditEntry(generateID(), domain.AuditOfficerCreated, session.UserID, string(session.Role), "user", officer.ID, map[string]string{
		"email":     officer.Email,
		"full_name": officer.Name,
	})
	if err := uc.auditRepo.Append(ctx, entry); err != nil {
		uc.logger.Error(ctx, "Failed to append audit entry", err, map[string]interface{}{
			"action":  string(domain.AuditOfficerCreated),
			"user_id": officer.ID,
		})
	}

	uc.logger.Info(ctx, "Officer account created", map[string]interface{}{
		"officer_id": officer.ID,
		"created_by": session.UserID,
	})

	return toOfficerView(officer), nil
}

// ListOfficers returns officer accounts for the assignment and transfer
// views. Citizens have no use for this list and are denied.
func (uc *UserManagementUseCase) ListOfficers(ctx context.Context, session *access.Session) ([]*inbound.OfficerView, error) {
	if d := access.Authorize(session, false, access.RoleOfficer, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	officers, err := uc.userRepo.FindByRole(ctx, string(access.RoleOfficer))
	if err != nil {
		return nil, fmt.Errorf("failed to list officers: %w", err)
	}

	views := make([]*inbound.OfficerView, 0, len(officers))
	for _, o := range officers {
		views = append(views, toOfficerView(o))
	}
	return views, nil
}

// DeactivateOfficer disables an officer account. The account stays on record
// but can no longer log in; active sessions expire with their access tokens.
func (uc *UserManagementUseCase) DeactivateOfficer(ctx context.Context, session *access.Session, officerID string) (*inbound.OfficerView, error) {
	if d := access.Authorize(session, false, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	officer, err := uc.findOfficer(ctx, officerID)
	if err != nil {
		return nil, err
	}

	officer.Status = entity.UserStatusDisabled
	officer.UpdatedAt = time.Now()
	if err := uc.userRepo.Update(ctx, officer); err != nil {
		uc.logger.Error(ctx, "Failed to deactivate officer", err, map[string]interface{}{
			"officer_id": officerID,
		})
		return nil, fmt.Errorf("failed to deactivate officer: %w", err)
	}

	entry := domain.NewAuditEntry(generateID(), domain.AuditOfficerDeactivated, session.UserID, string(session.Role), "user", officer.ID, map[string]string{
		"email": officer.Email,
	})
	if err := uc.auditRepo.Append(ctx, entry); err != nil {
		uc.logger.Error(ctx, "Failed to append audit entry", err, map[string]interface{}{
			"action":  string(domain.AuditOfficerDeactivated),
			"user_id": officer.ID,
		})
	}

	return toOfficerView(officer), nil
}

// RemoveOfficer soft-deletes an officer account. The row survives for the
// audit trail; the email is freed for re-use by the partial unique index.
func (uc *UserManagementUseCase) RemoveOfficer(ctx context.Context, session *access.Session, officerID string) error {
	if d := access.Authorize(session, false, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return ErrNotAuthorized
	}

	officer, err := uc.findOfficer(ctx, officerID)
	if err != nil {
		return err
	}

	if err := uc.userRepo.SoftDelete(ctx, officer.ID); err != nil {
		uc.logger.Error(ctx, "Failed to remove officer", err, map[string]interface{}{
			"officer_id": officerID,
		})
		return fmt.Errorf("failed to remove officer: %w", err)
	}

	entry := domain.NewAuditEntry(generateID(), domain.AuditOfficerRemoved, session.UserID, string(session.Role), "user", officer.ID, map[string]string{
		"email": officer.Email,
	})
	if err := uc.auditRepo.Append(ctx, entry); err != nil {
		uc.logger.Error(ctx, "Failed to append audit entry", err, map[string]interface{}{
			"action":  string(domain.AuditOfficerRemoved),
			"user_id": officer.ID,
		})
	}

	uc.logger.Info(ctx, "Officer account removed", map[string]interface{}{
		"officer_id": officer.ID,
		"removed_by": session.UserID,
	})

	return nil
}

// findOfficer loads an officer account. Citizen and admin accounts are not
// reachable through the officer management surface and read as not found.
func (uc *UserManagementUseCase) findOfficer(ctx context.Context, officerID string) (*entity.User, error) {
	user, err := uc.userRepo.FindByID(ctx, officerID)
	if err != nil {
		return nil, err
	}
	if user.Role != string(access.RoleOfficer) {
		return nil, outbound.ErrUserNotFound
	}
	return user, nil
}

// ListAuditEntries returns the audit trail, admin only.
func (uc *UserManagementUseCase) ListAuditEntries(ctx context.Context, session *access.Session, req inbound.AuditListRequest) (*inbound.AuditListResponse, error) {
	if d := access.Authorize(session, false, access.RoleAdmin); d.Verdict != access.VerdictAllow {
		return nil, ErrNotAuthorized
	}

	filter := domain.AuditFilter{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if req.Action != "" {
		action := domain.AuditAction(req.Action)
		filter.Action = &action
	}
	if req.TargetID != "" {
		filter.TargetID = &req.TargetID
	}

	entries, total, err := uc.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return &inbound.AuditListResponse{
		Entries: entries,
		Total:   total,
	}, nil
}

func newOfficer(id, name, email, hashedPassword string) *entity.User {
	return entity.NewUser(id, name, email, hashedPassword, string(access.RoleOfficer))
}

func toOfficerView(u *entity.User) *inbound.OfficerView {
	return &inbound.OfficerView{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.Name,
		Status:   u.Status,
	}
}
