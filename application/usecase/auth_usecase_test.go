package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/domain/entity"
	"github.com/civiport/civiport/infrastructure/service/logger"
)

// Mock implementations

type mockUserRepository struct {
	users map[string]*entity.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*entity.User),
	}
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if user, exists := m.users[id]; exists {
		return user, nil
	}
	return nil, outbound.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, outbound.ErrUserNotFound
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if _, exists := m.users[user.ID]; exists {
		return outbound.ErrUserAlreadyExists
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *entity.User) error {
	if _, exists := m.users[user.ID]; !exists {
		return outbound.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) SoftDelete(ctx context.Context, id string) error {
	if _, exists := m.users[id]; !exists {
		return outbound.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, user := range m.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) FindByRole(ctx context.Context, role string) ([]*entity.User, error) {
	var users []*entity.User
	for _, user := range m.users {
		if user.Role == role {
			users = append(users, user)
		}
	}
	return users, nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*entity.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*entity.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	if token == nil {
		return errors.New("token cannot be nil")
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error) {
	if rt, exists := m.tokens[token]; exists {
		return rt, nil
	}
	return nil, outbound.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	if rt, exists := m.tokens[token]; exists {
		now := time.Now()
		rt.RevokedAt = &now
		return nil
	}
	return outbound.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) error {
	for _, rt := range m.tokens {
		if rt.UserID == userID {
			now := time.Now()
			rt.RevokedAt = &now
		}
	}
	return nil
}

type mockAuditRepository struct {
	entries []*domain.AuditEntry
	failing bool
}

func (m *mockAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if m.failing {
		return errors.New("audit storage unavailable")
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	return m.entries, len(m.entries), nil
}

type mockTokenService struct {
	accessTokenCounter  int
	refreshTokenCounter int
}

func (m *mockTokenService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	m.accessTokenCounter++
	return fmt.Sprintf("mock-access-token-%d", m.accessTokenCounter), nil
}

func (m *mockTokenService) GenerateRefreshToken() (string, error) {
	m.refreshTokenCounter++
	return fmt.Sprintf("mock-refresh-token-%d", m.refreshTokenCounter), nil
}

func (m *mockTokenService) ValidateAccessToken(token string) (*outbound.TokenClaims, error) {
	if token == "valid-token" {
		return &outbound.TokenClaims{UserID: "user123", Email: "test@example.com", Role: "citizen"}, nil
	}
	return nil, errors.New("invalid token")
}

type mockPasswordService struct{}

func (m *mockPasswordService) HashPassword(password string) (string, error) {
	return "hashed-" + password, nil
}

func (m *mockPasswordService) VerifyPassword(password, hash string) (bool, error) {
	return hash == "hashed-"+password, nil
}

type mockRateLimitService struct {
	blocked     bool
	allowed     bool
	blockedKeys map[string]bool
	limitedKeys map[string]bool
}

func (m *mockRateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.limitedKeys[key] {
		return false, nil
	}
	return m.allowed, nil
}
func (m *mockRateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	return nil
}
func (m *mockRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	return nil
}
func (m *mockRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	if m.blockedKeys[key] {
		return true, nil
	}
	return m.blocked, nil
}
func (m *mockRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	return 0, nil
}

// Minimal no-op logger shared across the package's tests

type testLogger struct{}

func (l *testLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {}
func (l *testLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
}
func (l *testLogger) Warn(ctx context.Context, message string, fields map[string]interface{})  {}
func (l *testLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {}
func (l *testLogger) WithFields(fields map[string]interface{}) logger.Logger                   { return l }

type authFixture struct {
	userRepo         *mockUserRepository
	refreshTokenRepo *mockRefreshTokenRepository
	auditRepo        *mockAuditRepository
	useCase          inbound.AuthUseCase
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		userRepo:         newMockUserRepository(),
		refreshTokenRepo: newMockRefreshTokenRepository(),
		auditRepo:        &mockAuditRepository{},
	}
	f.useCase = NewAuthUseCase(
		f.userRepo,
		f.refreshTokenRepo,
		f.auditRepo,
		&mockTokenService{},
		&mockPasswordService{},
		&mockRateLimitService{allowed: true},
		&testLogger{},
		15*time.Minute,
		30*24*time.Hour,
	)
	return f
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	testUser := entity.NewUser("user123", "Test User", "test@example.com", "hashed-password123", string(access.RoleCitizen))
	if err := f.userRepo.Create(ctx, testUser); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	t.Run("Success", func(t *testing.T) {
		resp, err := f.useCase.Login(ctx, inbound.LoginRequest{
			Email:    "test@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("Login should succeed: %v", err)
		}
		if resp.AccessToken == "" {
			t.Error("Access token should not be empty")
		}
		if resp.RefreshToken == "" {
			t.Error("Refresh token should not be empty")
		}
		if resp.User.Role != string(access.RoleCitizen) {
			t.Errorf("Response should carry the server-side role, got %s", resp.User.Role)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := f.useCase.Login(ctx, inbound.LoginRequest{
			Email:    "test@example.com",
			Password: "wrong",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := f.useCase.Login(ctx, inbound.LoginRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("DisabledAccount", func(t *testing.T) {
		disabled := entity.NewUser("user456", "Disabled User", "disabled@example.com", "hashed-password123", string(access.RoleCitizen))
		disabled.Status = entity.UserStatusDisabled
		if err := f.userRepo.Create(ctx, disabled); err != nil {
			t.Fatalf("Failed to create disabled user: %v", err)
		}

		_, err := f.useCase.Login(ctx, inbound.LoginRequest{
			Email:    "disabled@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Expected ErrInvalidCredentials for disabled account, got %v", err)
		}
	})
}

func TestLoginRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.useCase = NewAuthUseCase(
		f.userRepo,
		f.refreshTokenRepo,
		f.auditRepo,
		&mockTokenService{},
		&mockPasswordService{},
		&mockRateLimitService{blocked: true},
		&testLogger{},
		15*time.Minute,
		30*24*time.Hour,
	)

	_, err := f.useCase.Login(ctx, inbound.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("Expected ErrTooManyAttempts for blocked IP, got %v", err)
	}
}

func TestLoginBlockedUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	testUser := entity.NewUser("user123", "Test User", "test@example.com", "hashed-password123", string(access.RoleCitizen))
	if err := f.userRepo.Create(ctx, testUser); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	// The account is blocked after failed attempts elsewhere; a fresh IP with
	// the correct password must still be rejected.
	t.Run("BlockedAccountRejected", func(t *testing.T) {
		f.useCase = NewAuthUseCase(
			f.userRepo,
			f.refreshTokenRepo,
			f.auditRepo,
			&mockTokenService{},
			&mockPasswordService{},
			&mockRateLimitService{allowed: true, blockedKeys: map[string]bool{"user:user123": true}},
			&testLogger{},
			15*time.Minute,
			30*24*time.Hour,
		)

		_, err := f.useCase.Login(ctx, inbound.LoginRequest{
			Email:    "test@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrTooManyAttempts) {
			t.Errorf("Expected ErrTooManyAttempts for blocked user, got %v", err)
		}
	})

	t.Run("ExhaustedAccountCounterRejected", func(t *testing.T) {
		f.useCase = NewAuthUseCase(
			f.userRepo,
			f.refreshTokenRepo,
			f.auditRepo,
			&mockTokenService{},
			&mockPasswordService{},
			&mockRateLimitService{allowed: true, limitedKeys: map[string]bool{"user:user123": true}},
			&testLogger{},
			15*time.Minute,
			30*24*time.Hour,
		)

		_, err := f.useCase.Login(ctx, inbound.LoginRequest{
			Email:    "test@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrTooManyAttempts) {
			t.Errorf("Expected ErrTooManyAttempts when the account counter is exhausted, got %v", err)
		}
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesCitizenAccount", func(t *testing.T) {
		f := newAuthFixture()
		resp, err := f.useCase.Register(ctx, inbound.RegisterRequest{
			Email:    "new@example.com",
			Password: "Password1",
			FullName: "New User",
		})
		if err != nil {
			t.Fatalf("Register should succeed: %v", err)
		}
		// Registration always yields a citizen account; elevated roles only
		// come from the admin API.
		if resp.User.Role != string(access.RoleCitizen) {
			t.Errorf("Registered account must be a citizen, got %s", resp.User.Role)
		}
		if resp.AccessToken == "" {
			t.Error("Register should issue tokens")
		}

		user, err := f.userRepo.FindByEmail(ctx, "new@example.com")
		if err != nil {
			t.Fatalf("Registered user not persisted: %v", err)
		}
		if user.Password == "Password1" {
			t.Error("Password must be stored hashed")
		}

		if len(f.auditRepo.entries) != 1 || f.auditRepo.entries[0].Action != domain.AuditUserCreated {
			t.Error("Register should append a user_created audit entry")
		}
	})

	t.Run("RejectsDuplicateEmail", func(t *testing.T) {
		f := newAuthFixture()
		existing := entity.NewUser("user123", "Test User", "taken@example.com", "hashed-pw", string(access.RoleCitizen))
		if err := f.userRepo.Create(ctx, existing); err != nil {
			t.Fatalf("Failed to seed user: %v", err)
		}

		_, err := f.useCase.Register(ctx, inbound.RegisterRequest{
			Email:    "taken@example.com",
			Password: "Password1",
			FullName: "Other User",
		})
		if !errors.Is(err, outbound.ErrUserAlreadyExists) {
			t.Errorf("Expected ErrUserAlreadyExists, got %v", err)
		}
	})

	t.Run("SurvivesAuditFailure", func(t *testing.T) {
		f := newAuthFixture()
		f.auditRepo.failing = true

		if _, err := f.useCase.Register(ctx, inbound.RegisterRequest{
			Email:    "new@example.com",
			Password: "Password1",
			FullName: "New User",
		}); err != nil {
			t.Errorf("A failed audit append must not lose the account: %v", err)
		}
	})
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	testUser := entity.NewUser("user123", "Test User", "test@example.com", "hashed-password123", string(access.RoleCitizen))
	if err := f.userRepo.Create(ctx, testUser); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	loginResp, err := f.useCase.Login(ctx, inbound.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshResp, err := f.useCase.Refresh(ctx, inbound.RefreshRequest{
		RefreshToken: loginResp.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshResp.AccessToken == "" {
		t.Error("Refresh should issue a new access token")
	}

	// The presented token is revoked during rotation
	if _, err := f.useCase.Refresh(ctx, inbound.RefreshRequest{
		RefreshToken: loginResp.RefreshToken,
	}); err == nil {
		t.Error("Reusing a rotated refresh token should fail")
	}
}

func TestRefreshExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	expired := entity.NewRefreshToken("rt-1", "user123", "expired-token", time.Now().Add(-time.Hour))
	if err := f.refreshTokenRepo.Create(ctx, expired); err != nil {
		t.Fatalf("Failed to seed token: %v", err)
	}

	if _, err := f.useCase.Refresh(ctx, inbound.RefreshRequest{RefreshToken: "expired-token"}); err == nil {
		t.Error("Expired refresh token should be rejected")
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	testUser := entity.NewUser("user123", "Test User", "test@example.com", "hashed-password123", string(access.RoleCitizen))
	if err := f.userRepo.Create(ctx, testUser); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	loginResp, err := f.useCase.Login(ctx, inbound.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := f.useCase.Logout(ctx, inbound.LogoutRequest{UserID: "user123"}); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, err := f.useCase.Refresh(ctx, inbound.RefreshRequest{
		RefreshToken: loginResp.RefreshToken,
	}); err == nil {
		t.Error("Refresh token should be revoked after logout")
	}
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	testUser := entity.NewUser("user123", "Test User", "test@example.com", "hashed-password123", string(access.RoleOfficer))
	if err := f.userRepo.Create(ctx, testUser); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	me, err := f.useCase.Me(ctx, "user123")
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.Email != "test@example.com" || me.Role != string(access.RoleOfficer) {
		t.Errorf("Unexpected profile: %+v", me)
	}

	if _, err := f.useCase.Me(ctx, "missing"); err == nil {
		t.Error("Me for unknown user should fail")
	}
}
