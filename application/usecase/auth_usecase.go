package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/domain/entity"
	"github.com/civiport/civiport/infrastructure/service/logger"
)

type AuthUseCase struct {
	userRepository         outbound.UserRepository
	refreshTokenRepository outbound.RefreshTokenRepository
	auditRepository        outbound.AuditRepository
	tokenService           outbound.TokenService
	passwordService        outbound.PasswordService
	rateLimitService       inbound.RateLimitService
	logger                 logger.Logger
	accessTokenTTL         time.Duration
	refreshTokenTTL        time.Duration
}

func NewAuthUseCase(
	userRepo outbound.UserRepository,
	refreshTokenRepo outbound.RefreshTokenRepository,
	auditRepo outbound.AuditRepository,
	tokenService outbound.TokenService,
	passwordService outbound.PasswordService,
	rateLimitService inbound.RateLimitService,
	logger logger.Logger,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
) inbound.AuthUseCase {
	return &AuthUseCase{
		userRepository:         userRepo,
		refreshTokenRepository: refreshTokenRepo,
		auditRepository:        auditRepo,
		tokenService:           tokenService,
		passwordService:        passwordService,
		rateLimitService:       rateLimitService,
		logger:                 logger,
		accessTokenTTL:         accessTokenTTL,
		refreshTokenTTL:        refreshTokenTTL,
	}
}

// Register creates a citizen account. The role is fixed server-side: public
// sign-up never accepts a role claim, officer and admin accounts are created
// through user management by an admin.
func (uc *AuthUseCase) Register(ctx context.Context, req inbound.RegisterRequest) (*inbound.LoginResponse, error) {
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return nil, fmt.Errorf("email, password and full name are required")
	}

	exists, err := uc.userRepository.ExistsByEmail(ctx, req.Email)
	if err != nil {
		uc.logger.Error(ctx, "Failed to check existing email", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if exists {
		return nil, outbound.ErrUserAlreadyExists
	}

	hashed, err := uc.passwordService.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := entity.NewUser(generateID(), req.FullName, req.Email, hashed, string(access.RoleCitizen))
	if err := uc.userRepository.Create(ctx, user); err != nil {
		uc.logger.Error(ctx, "Failed to create user", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Account creation has no case write to pair with; the audit append is
	// best-effort and a failure must not lose the account.
	entry := domain.NewAuditEntry(generateID(), domain.AuditUserCreated, user.ID, user.Role, "user", user.ID, map[string]string{
		"email": user.Email,
	})
	if err := uc.auditRepository.Append(ctx, entry); err != nil {
		uc.logger.Error(ctx, "Failed to append audit entry", err, map[string]interface{}{
			"action":  string(domain.AuditUserCreated),
			"user_id": user.ID,
		})
	}

	logger.LogAuthEvent(ctx, uc.logger, "register_successful", user.ID, getClientIP(ctx), true, map[string]interface{}{
		"email": req.Email,
	})

	return uc.issueTokens(ctx, user, true)
}

func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	logger.LogAuthEvent(ctx, uc.logger, "login_attempt", "", "", true, map[string]interface{}{
		"email": req.Email,
	})

	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	ip := getClientIP(ctx)
	if uc.rateLimitService != nil {
		isBlocked, err := uc.rateLimitService.IsBlocked(ctx, fmt.Sprintf("ip:%s", ip))
		if err != nil {
			uc.logger.Error(ctx, "Failed to check IP block status", err, map[string]interface{}{
				"ip": ip,
			})
		}
		if isBlocked {
			logger.LogSecurityEvent(ctx, uc.logger, "blocked_ip_login_attempt", "MEDIUM", map[string]interface{}{
				"ip":    ip,
				"email": req.Email,
			})
			return nil, ErrTooManyAttempts
		}

		allowed, err := uc.rateLimitService.CheckLimit(ctx, fmt.Sprintf("ip:%s", ip), 5, 15*time.Minute)
		if err != nil {
			uc.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{
				"ip": ip,
			})
		}
		if !allowed {
			uc.rateLimitService.Block(ctx, fmt.Sprintf("ip:%s", ip), 30*time.Minute, "Rate limit exceeded")
			logger.LogSecurityEvent(ctx, uc.logger, "ip_rate_limit_exceeded", "HIGH", map[string]interface{}{
				"ip":    ip,
				"email": req.Email,
			})
			return nil, ErrTooManyAttempts
		}
	}

	user, err := uc.userRepository.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			if uc.rateLimitService != nil {
				uc.rateLimitService.Increment(ctx, fmt.Sprintf("ip:%s", ip), 15*time.Minute)
			}
			logger.LogAuthEvent(ctx, uc.logger, "login_failed_user_not_found", "", ip, false, map[string]interface{}{
				"email": req.Email,
			})
			return nil, ErrInvalidCredentials
		}
		uc.logger.Error(ctx, "Failed to find user", err, map[string]interface{}{
			"email": req.Email,
		})
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if uc.rateLimitService != nil {
		isUserBlocked, err := uc.rateLimitService.IsBlocked(ctx, fmt.Sprintf("user:%s", user.ID))
		if err != nil {
			uc.logger.Error(ctx, "Failed to check user block status", err, map[string]interface{}{
				"user_id": user.ID,
			})
		}
		if isUserBlocked {
			logger.LogSecurityEvent(ctx, uc.logger, "blocked_user_login_attempt", "MEDIUM", map[string]interface{}{
				"user_id": user.ID,
				"email":   req.Email,
			})
			return nil, ErrTooManyAttempts
		}

		allowed, err := uc.rateLimitService.CheckLimit(ctx, fmt.Sprintf("user:%s", user.ID), 10, 1*time.Hour)
		if err != nil {
			uc.logger.Error(ctx, "Failed to check user rate limit", err, map[string]interface{}{
				"user_id": user.ID,
			})
		}
		if !allowed {
			uc.rateLimitService.Block(ctx, fmt.Sprintf("user:%s", user.ID), 30*time.Minute, "Rate limit exceeded")
			logger.LogSecurityEvent(ctx, uc.logger, "user_rate_limit_exceeded", "HIGH", map[string]interface{}{
				"user_id": user.ID,
				"email":   req.Email,
			})
			return nil, ErrTooManyAttempts
		}
	}

	if !user.IsActive() {
		logger.LogSecurityEvent(ctx, uc.logger, "disabled_account_login_attempt", "MEDIUM", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, ErrInvalidCredentials
	}

	isValid, err := uc.passwordService.VerifyPassword(req.Password, user.Password)
	if err != nil {
		uc.logger.Error(ctx, "Password verification error", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("password verification failed")
	}
	if !isValid {
		if uc.rateLimitService != nil {
			uc.rateLimitService.Increment(ctx, fmt.Sprintf("ip:%s", ip), 15*time.Minute)
			uc.rateLimitService.Increment(ctx, fmt.Sprintf("user:%s", user.ID), 1*time.Hour)
		}
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_invalid_password", user.ID, ip, false, map[string]interface{}{
			"email": req.Email,
		})
		return nil, ErrInvalidCredentials
	}

	logger.LogAuthEvent(ctx, uc.logger, "login_successful", user.ID, ip, true, map[string]interface{}{
		"email":       req.Email,
		"remember_me": req.RememberMe,
	})

	return uc.issueTokens(ctx, user, req.RememberMe)
}

func (uc *AuthUseCase) issueTokens(ctx context.Context, user *entity.User, rememberMe bool) (*inbound.LoginResponse, error) {
	accessToken, err := uc.tokenService.GenerateAccessToken(outbound.TokenClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.Name,
		Role:     user.Role,
	})
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate access token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := uc.tokenService.GenerateRefreshToken()
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate refresh token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshTTL := uc.refreshTokenTTL
	if !rememberMe {
		if refreshTTL >= 14*24*time.Hour {
			refreshTTL = 7 * 24 * time.Hour
		} else {
			refreshTTL = refreshTTL / 2
		}
	}

	refreshTokenEntity := entity.NewRefreshToken(
		generateID(),
		user.ID,
		refreshToken,
		time.Now().Add(refreshTTL),
	)
	if err := uc.refreshTokenRepository.Create(ctx, refreshTokenEntity); err != nil {
		uc.logger.Error(ctx, "Failed to store refresh token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &inbound.LoginResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int(uc.accessTokenTTL.Seconds()),
		RefreshExpiresIn: int(refreshTTL.Seconds()),
		User: inbound.MeResponse{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.Name,
			Role:     user.Role,
		},
	}, nil
}

func (uc *AuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.RefreshResponse, error) {
	if req.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	refreshTokenEntity, err := uc.refreshTokenRepository.FindByToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_token_not_found", "MEDIUM", nil)
			return nil, fmt.Errorf("invalid refresh token")
		}
		uc.logger.Error(ctx, "Failed to find refresh token", err, nil)
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}

	if refreshTokenEntity.IsExpired() {
		logger.LogSecurityEvent(ctx, uc.logger, "refresh_token_expired", "MEDIUM", map[string]interface{}{
			"user_id": refreshTokenEntity.UserID,
		})
		return nil, fmt.Errorf("refresh token expired")
	}
	if refreshTokenEntity.IsRevoked() {
		logger.LogSecurityEvent(ctx, uc.logger, "refresh_token_revoked", "HIGH", map[string]interface{}{
			"user_id": refreshTokenEntity.UserID,
		})
		return nil, fmt.Errorf("refresh token revoked")
	}

	// Rotate: the presented token is revoked before a replacement is issued.
	if err := uc.refreshTokenRepository.Revoke(ctx, req.RefreshToken); err != nil {
		uc.logger.Error(ctx, "Failed to revoke refresh token", err, map[string]interface{}{
			"user_id": refreshTokenEntity.UserID,
		})
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	user, err := uc.userRepository.FindByID(ctx, refreshTokenEntity.UserID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogSecurityEvent(ctx, uc.logger, "refresh_user_not_found", "HIGH", map[string]interface{}{
				"user_id": refreshTokenEntity.UserID,
			})
			return nil, fmt.Errorf("user not found")
		}
		uc.logger.Error(ctx, "Failed to find user", err, map[string]interface{}{
			"user_id": refreshTokenEntity.UserID,
		})
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	accessToken, err := uc.tokenService.GenerateAccessToken(outbound.TokenClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.Name,
		Role:     user.Role,
	})
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate access token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	newRefreshToken, err := uc.tokenService.GenerateRefreshToken()
	if err != nil {
		uc.logger.Error(ctx, "Failed to generate refresh token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	newEntity := entity.NewRefreshToken(
		generateID(),
		user.ID,
		newRefreshToken,
		time.Now().Add(uc.refreshTokenTTL),
	)
	if err := uc.refreshTokenRepository.Create(ctx, newEntity); err != nil {
		uc.logger.Error(ctx, "Failed to store refresh token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "token_refresh_successful", user.ID, "", true, nil)

	return &inbound.RefreshResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(uc.accessTokenTTL.Seconds()),
	}, nil
}

func (uc *AuthUseCase) Logout(ctx context.Context, req inbound.LogoutRequest) error {
	if req.RefreshToken != "" {
		if err := uc.refreshTokenRepository.Revoke(ctx, req.RefreshToken); err != nil {
			if errors.Is(err, outbound.ErrRefreshTokenNotFound) {
				return fmt.Errorf("token not found")
			}
			uc.logger.Error(ctx, "Failed to revoke refresh token", err, nil)
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		logger.LogAuthEvent(ctx, uc.logger, "logout_successful", "", "", true, nil)
		return nil
	}

	if req.UserID != "" {
		if err := uc.refreshTokenRepository.RevokeByUserID(ctx, req.UserID); err != nil {
			uc.logger.Error(ctx, "Failed to revoke refresh tokens by user", err, map[string]interface{}{
				"user_id": req.UserID,
			})
			return fmt.Errorf("failed to revoke refresh tokens by user: %w", err)
		}
		logger.LogAuthEvent(ctx, uc.logger, "logout_successful", req.UserID, "", true, nil)
		return nil
	}

	return fmt.Errorf("refresh token or user id required")
}

func (uc *AuthUseCase) Me(ctx context.Context, userID string) (*inbound.MeResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	user, err := uc.userRepository.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, fmt.Errorf("user not found")
		}
		uc.logger.Error(ctx, "Failed to find user", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &inbound.MeResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.Name,
		Role:     user.Role,
	}, nil
}

// Sentinel errors surfaced to handlers for status mapping.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// Helper functions

func generateID() string {
	return uuid.New().String()
}

type clientIPKey struct{}

// WithClientIP stores the caller's IP on the context for auth logging and
// rate limiting.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func getClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return "unknown"
}
