package jwt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/infrastructure/config"
)

type JWTService struct {
	hmacSecret     []byte
	accessTokenTTL time.Duration
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

func NewJWTService(cfg *config.Config) (*JWTService, error) {
	if cfg.JWTAlgorithm != "HS256" {
		return nil, fmt.Errorf("unsupported JWT algorithm: %s", cfg.JWTAlgorithm)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &JWTService{
		hmacSecret:     []byte(cfg.JWTSecret),
		accessTokenTTL: cfg.AccessTokenTTL,
	}, nil
}

func (s *JWTService) GenerateAccessToken(claims outbound.TokenClaims) (string, error) {
	now := time.Now()
	tokenClaims := jwt.MapClaims{
		"user_id":   claims.UserID,
		"email":     claims.Email,
		"full_name": claims.FullName,
		"role":      claims.Role,
		"exp":       now.Add(s.accessTokenTTL).Unix(),
		"iat":       now.Unix(),
		"type":      "access",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

func (s *JWTService) GenerateRefreshToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*outbound.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.hmacSecret, nil
	})
	if err != nil {
		return nil, s.handleValidationError(err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}
	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		return nil, ErrInvalidToken
	}

	result := &outbound.TokenClaims{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		result.Email = email
	}
	if fullName, ok := claims["full_name"].(string); ok {
		result.FullName = fullName
	}
	if role, ok := claims["role"].(string); ok {
		result.Role = role
	}
	return result, nil
}

func (s *JWTService) handleValidationError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrInvalidToken
}
