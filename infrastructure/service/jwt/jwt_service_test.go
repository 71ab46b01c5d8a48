package jwt

import (
	"testing"
	"time"

	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/infrastructure/config"
)

func TestJWTService(t *testing.T) {
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		JWTAlgorithm:   "HS256",
		AccessTokenTTL: time.Hour,
	}

	service, err := NewJWTService(cfg)
	if err != nil {
		t.Fatalf("Failed to create JWT service: %v", err)
	}

	claims := outbound.TokenClaims{
		UserID:   "user123",
		Email:    "test@example.com",
		FullName: "Test User",
		Role:     "officer",
	}

	t.Run("GenerateAccessToken", func(t *testing.T) {
		token, err := service.GenerateAccessToken(claims)
		if err != nil {
			t.Errorf("Failed to generate access token: %v", err)
		}
		if token == "" {
			t.Error("Access token should not be empty")
		}
	})

	t.Run("GenerateRefreshToken", func(t *testing.T) {
		token, err := service.GenerateRefreshToken()
		if err != nil {
			t.Errorf("Failed to generate refresh token: %v", err)
		}
		if token == "" {
			t.Error("Refresh token should not be empty")
		}
	})

	t.Run("ValidateAccessTokenRoundTrip", func(t *testing.T) {
		tokenString, err := service.GenerateAccessToken(claims)
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}

		got, err := service.ValidateAccessToken(tokenString)
		if err != nil {
			t.Fatalf("Failed to validate token: %v", err)
		}
		if got.UserID != claims.UserID {
			t.Errorf("Expected user ID %q, got %q", claims.UserID, got.UserID)
		}
		if got.Role != claims.Role {
			t.Errorf("Expected role %q, got %q", claims.Role, got.Role)
		}
		if got.Email != claims.Email {
			t.Errorf("Expected email %q, got %q", claims.Email, got.Email)
		}
	})

	t.Run("ValidateInvalidToken", func(t *testing.T) {
		if _, err := service.ValidateAccessToken("invalid-token"); err == nil {
			t.Error("Invalid token should fail validation")
		}
	})

	t.Run("ValidateTokenFromOtherSecret", func(t *testing.T) {
		other, err := NewJWTService(&config.Config{
			JWTSecret:      "different-secret",
			JWTAlgorithm:   "HS256",
			AccessTokenTTL: time.Hour,
		})
		if err != nil {
			t.Fatalf("Failed to create JWT service: %v", err)
		}
		tokenString, err := other.GenerateAccessToken(claims)
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}

		if _, err := service.ValidateAccessToken(tokenString); err == nil {
			t.Error("Token signed with another secret should fail validation")
		}
	})

	t.Run("ValidateExpiredToken", func(t *testing.T) {
		expiring, err := NewJWTService(&config.Config{
			JWTSecret:      "test-secret",
			JWTAlgorithm:   "HS256",
			AccessTokenTTL: -time.Minute,
		})
		if err != nil {
			t.Fatalf("Failed to create JWT service: %v", err)
		}
		tokenString, err := expiring.GenerateAccessToken(claims)
		if err != nil {
			t.Fatalf("Failed to generate token: %v", err)
		}

		if _, err := service.ValidateAccessToken(tokenString); err == nil {
			t.Error("Expired token should fail validation")
		}
	})
}

func TestNewJWTServiceValidation(t *testing.T) {
	t.Run("RejectsMissingSecret", func(t *testing.T) {
		if _, err := NewJWTService(&config.Config{JWTAlgorithm: "HS256"}); err == nil {
			t.Error("Missing secret should be rejected")
		}
	})

	t.Run("RejectsUnsupportedAlgorithm", func(t *testing.T) {
		if _, err := NewJWTService(&config.Config{JWTSecret: "s", JWTAlgorithm: "RS256"}); err == nil {
			t.Error("Unsupported algorithm should be rejected")
		}
	})
}
