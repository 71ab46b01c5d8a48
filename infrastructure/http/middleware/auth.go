package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/infrastructure/http/response"
)

type sessionKey struct{}

type AuthMiddleware struct {
	tokenService outbound.TokenService
}

func NewAuthMiddleware(tokenService outbound.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// RequireAuth validates the bearer token and places the resulting session
// in the request context. The role inside the session comes from the signed
// token only; nothing sent by the client body or query is trusted.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		token := parts[1]
		if token == "" {
			response.Unauthorized(w, "Token cannot be empty")
			return
		}

		claims, err := m.tokenService.ValidateAccessToken(token)
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		session := &access.Session{
			UserID:   claims.UserID,
			Email:    claims.Email,
			FullName: claims.FullName,
			Role:     access.Role(claims.Role),
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireRole wraps RequireAuth and rejects sessions whose role is not in
// the required set.
func (m *AuthMiddleware) RequireRole(next http.HandlerFunc, required ...access.Role) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		session := GetSession(r.Context())

		decision := access.Authorize(session, false, required...)
		switch decision.Verdict {
		case access.VerdictAllow:
			next.ServeHTTP(w, r)
		case access.VerdictRedirect:
			response.Unauthorized(w, "Authentication required")
		default:
			response.Forbidden(w, fmt.Sprintf("Access denied for role %s, requires one of %s", decision.ActualRole, joinRoles(decision.RequiredRoles)))
		}
	})
}

func joinRoles(roles []access.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// GetSession retrieves the authenticated session from context. Returns nil
// when the request did not pass RequireAuth.
func GetSession(ctx context.Context) *access.Session {
	if session, ok := ctx.Value(sessionKey{}).(*access.Session); ok {
		return session
	}
	return nil
}
