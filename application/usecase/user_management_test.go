package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/domain/entity"
)

func newUserManagementFixture() (*mockUserRepository, *mockAuditRepository, inbound.UserManagementUseCase) {
	userRepo := newMockUserRepository()
	auditRepo := &mockAuditRepository{}
	uc := NewUserManagementUseCase(userRepo, auditRepo, &mockPasswordService{}, &testLogger{})
	return userRepo, auditRepo, uc
}

func TestCreateOfficer(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminCreatesOfficer", func(t *testing.T) {
		userRepo, auditRepo, uc := newUserManagementFixture()

		view, err := uc.CreateOfficer(ctx, adminSession, inbound.CreateOfficerRequest{
			Email:    "officer@example.com",
			Password: "Password1",
			FullName: "Officer New",
		})
		if err != nil {
			t.Fatalf("CreateOfficer failed: %v", err)
		}

		created, err := userRepo.FindByID(ctx, view.ID)
		if err != nil {
			t.Fatalf("Officer not persisted: %v", err)
		}
		if created.Role != string(access.RoleOfficer) {
			t.Errorf("Expected officer role, got %s", created.Role)
		}
		if created.Password == "Password1" {
			t.Error("Password must be stored hashed")
		}

		if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != domain.AuditOfficerCreated {
			t.Error("CreateOfficer should append an officer_created audit entry")
		}
		if auditRepo.entries[0].ActorID != adminSession.UserID {
			t.Error("Audit entry should name the admin as actor")
		}
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		_, _, uc := newUserManagementFixture()

		for _, session := range []*access.Session{citizenSession, officerSession, nil} {
			_, err := uc.CreateOfficer(ctx, session, inbound.CreateOfficerRequest{
				Email:    "officer@example.com",
				Password: "Password1",
				FullName: "Officer New",
			})
			if !errors.Is(err, ErrNotAuthorized) {
				t.Errorf("Expected ErrNotAuthorized for %v, got %v", session, err)
			}
		}
	})

	t.Run("RejectsDuplicateEmail", func(t *testing.T) {
		userRepo, _, uc := newUserManagementFixture()
		existing := entity.NewUser("u1", "Existing", "taken@example.com", "hashed-pw", string(access.RoleCitizen))
		if err := userRepo.Create(ctx, existing); err != nil {
			t.Fatalf("Failed to seed user: %v", err)
		}

		_, err := uc.CreateOfficer(ctx, adminSession, inbound.CreateOfficerRequest{
			Email:    "taken@example.com",
			Password: "Password1",
			FullName: "Officer New",
		})
		if !errors.Is(err, outbound.ErrUserAlreadyExists) {
			t.Errorf("Expected ErrUserAlreadyExists, got %v", err)
		}
	})
}

func TestListOfficers(t *testing.T) {
	ctx := context.Background()
	userRepo, _, uc := newUserManagementFixture()

	userRepo.Create(ctx, entity.NewUser("o1", "Officer One", "o1@example.com", "pw", string(access.RoleOfficer)))
	userRepo.Create(ctx, entity.NewUser("o2", "Officer Two", "o2@example.com", "pw", string(access.RoleOfficer)))
	userRepo.Create(ctx, entity.NewUser("c1", "Citizen One", "c1@example.com", "pw", string(access.RoleCitizen)))

	t.Run("OfficerAndAdminAllowed", func(t *testing.T) {
		for _, session := range []*access.Session{officerSession, adminSession} {
			officers, err := uc.ListOfficers(ctx, session)
			if err != nil {
				t.Fatalf("ListOfficers failed for %s: %v", session.Role, err)
			}
			if len(officers) != 2 {
				t.Errorf("Expected 2 officers, got %d", len(officers))
			}
		}
	})

	t.Run("CitizenDenied", func(t *testing.T) {
		if _, err := uc.ListOfficers(ctx, citizenSession); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("Expected ErrNotAuthorized, got %v", err)
		}
	})
}

func TestDeactivateOfficer(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminDeactivates", func(t *testing.T) {
		userRepo, auditRepo, uc := newUserManagementFixture()
		userRepo.Create(ctx, entity.NewUser("o1", "Officer One", "o1@example.com", "pw", string(access.RoleOfficer)))

		view, err := uc.DeactivateOfficer(ctx, adminSession, "o1")
		if err != nil {
			t.Fatalf("DeactivateOfficer failed: %v", err)
		}
		if view.Status != entity.UserStatusDisabled {
			t.Errorf("Expected disabled status, got %s", view.Status)
		}

		stored, err := userRepo.FindByID(ctx, "o1")
		if err != nil {
			t.Fatalf("Officer should still exist: %v", err)
		}
		if stored.IsActive() {
			t.Error("Deactivated officer must not be active")
		}

		if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != domain.AuditOfficerDeactivated {
			t.Error("DeactivateOfficer should append an officer_deactivated audit entry")
		}
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		userRepo, _, uc := newUserManagementFixture()
		userRepo.Create(ctx, entity.NewUser("o1", "Officer One", "o1@example.com", "pw", string(access.RoleOfficer)))

		for _, session := range []*access.Session{citizenSession, officerSession, nil} {
			if _, err := uc.DeactivateOfficer(ctx, session, "o1"); !errors.Is(err, ErrNotAuthorized) {
				t.Errorf("Expected ErrNotAuthorized for %v, got %v", session, err)
			}
		}
	})

	t.Run("NonOfficerTargetReadsAsNotFound", func(t *testing.T) {
		userRepo, _, uc := newUserManagementFixture()
		userRepo.Create(ctx, entity.NewUser("c1", "Citizen One", "c1@example.com", "pw", string(access.RoleCitizen)))

		if _, err := uc.DeactivateOfficer(ctx, adminSession, "c1"); !errors.Is(err, outbound.ErrUserNotFound) {
			t.Errorf("Expected ErrUserNotFound for a citizen target, got %v", err)
		}
		if _, err := uc.DeactivateOfficer(ctx, adminSession, "missing"); !errors.Is(err, outbound.ErrUserNotFound) {
			t.Errorf("Expected ErrUserNotFound for an unknown id, got %v", err)
		}
	})
}

func TestRemoveOfficer(t *testing.T) {
	ctx := context.Background()

	t.Run("AdminRemoves", func(t *testing.T) {
		userRepo, auditRepo, uc := newUserManagementFixture()
		userRepo.Create(ctx, entity.NewUser("o1", "Officer One", "o1@example.com", "pw", string(access.RoleOfficer)))

		if err := uc.RemoveOfficer(ctx, adminSession, "o1"); err != nil {
			t.Fatalf("RemoveOfficer failed: %v", err)
		}

		if _, err := userRepo.FindByID(ctx, "o1"); !errors.Is(err, outbound.ErrUserNotFound) {
			t.Errorf("Removed officer should no longer be found, got %v", err)
		}

		if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != domain.AuditOfficerRemoved {
			t.Error("RemoveOfficer should append an officer_removed audit entry")
		}
		if auditRepo.entries[0].ActorID != adminSession.UserID {
			t.Error("Audit entry should name the admin as actor")
		}
	})

	t.Run("NonAdminDenied", func(t *testing.T) {
		userRepo, _, uc := newUserManagementFixture()
		userRepo.Create(ctx, entity.NewUser("o1", "Officer One", "o1@example.com", "pw", string(access.RoleOfficer)))

		for _, session := range []*access.Session{citizenSession, officerSession, nil} {
			if err := uc.RemoveOfficer(ctx, session, "o1"); !errors.Is(err, ErrNotAuthorized) {
				t.Errorf("Expected ErrNotAuthorized for %v, got %v", session, err)
			}
		}
	})
}

func TestListAuditEntries(t *testing.T) {
	ctx := context.Background()
	_, auditRepo, uc := newUserManagementFixture()

	auditRepo.entries = append(auditRepo.entries,
		domain.NewAuditEntry("e1", domain.AuditCaseCreated, "u1", "citizen", "case", "c1", nil),
	)

	t.Run("AdminReadsTrail", func(t *testing.T) {
		resp, err := uc.ListAuditEntries(ctx, adminSession, inbound.AuditListRequest{})
		if err != nil {
			t.Fatalf("ListAuditEntries failed: %v", err)
		}
		if resp.Total != 1 || len(resp.Entries) != 1 {
			t.Errorf("Expected one entry, got total=%d len=%d", resp.Total, len(resp.Entries))
		}
	})

	t.Run("OfficerDenied", func(t *testing.T) {
		if _, err := uc.ListAuditEntries(ctx, officerSession, inbound.AuditListRequest{}); !errors.Is(err, ErrNotAuthorized) {
			t.Errorf("Expected ErrNotAuthorized, got %v", err)
		}
	})
}
