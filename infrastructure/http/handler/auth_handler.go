package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/application/usecase"
	"github.com/civiport/civiport/infrastructure/http/middleware"
	"github.com/civiport/civiport/infrastructure/http/response"
	"github.com/civiport/civiport/infrastructure/http/validator"
	"github.com/civiport/civiport/infrastructure/metrics"
)

type AuthHandler struct {
	authUseCase inbound.AuthUseCase
}

func NewAuthHandler(authUseCase inbound.AuthUseCase) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
	}
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type TokenResponse struct {
	AccessToken string              `json:"access_token"`
	ExpiresIn   int                 `json:"expires_in"`
	User        *inbound.MeResponse `json:"user,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.UnprocessableEntity(w, "Invalid email format")
		return
	}
	if !validator.ValidatePassword(req.Password) {
		response.UnprocessableEntity(w, "Password must be at least 8 characters with upper case, lower case and a digit")
		return
	}
	if !validator.ValidateRequired(req.FullName) {
		response.UnprocessableEntity(w, "Full name is required")
		return
	}

	ctx := usecase.WithClientIP(r.Context(), clientIP(r))

	res, err := h.authUseCase.Register(ctx, inbound.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			response.Conflict(w, "An account with this email already exists")
			return
		}
		response.InternalServerError(w, "Internal server error")
		return
	}

	setRefreshCookie(w, res.RefreshToken, res.RefreshExpiresIn)

	response.Success(w, http.StatusCreated, "account created", TokenResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
		User:        &res.User,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !validator.ValidateEmail(req.Email) {
		response.UnprocessableEntity(w, "Invalid email format")
		return
	}
	if !validator.ValidateRequired(req.Password) {
		response.UnprocessableEntity(w, "Password is required")
		return
	}

	ctx := usecase.WithClientIP(r.Context(), clientIP(r))

	res, err := h.authUseCase.Login(ctx, inbound.LoginRequest{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		metrics.RecordLoginAttempt(false)
		switch {
		case errors.Is(err, usecase.ErrTooManyAttempts):
			response.TooManyRequests(w, "Too many login attempts, try again later")
		case errors.Is(err, usecase.ErrInvalidCredentials):
			response.Unauthorized(w, "Invalid email or password")
		default:
			response.InternalServerError(w, "Internal server error")
		}
		return
	}

	metrics.RecordLoginAttempt(true)
	setRefreshCookie(w, res.RefreshToken, res.RefreshExpiresIn)

	response.Success(w, http.StatusOK, "success", TokenResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
		User:        &res.User,
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if cookie, err := r.Cookie("refresh_token"); err == nil && cookie.Value != "" {
		refreshToken = cookie.Value
	} else {
		refreshToken = r.Header.Get("Refresh-Token")
	}

	if refreshToken == "" {
		response.Unauthorized(w, "Refresh token required")
		return
	}

	res, err := h.authUseCase.Refresh(r.Context(), inbound.RefreshRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		switch err.Error() {
		case "invalid refresh token", "refresh token expired", "refresh token revoked", "user not found":
			response.Unauthorized(w, "Invalid or expired refresh token")
		default:
			response.InternalServerError(w, "Internal server error")
		}
		return
	}

	response.Success(w, http.StatusOK, "success", TokenResponse{
		AccessToken: res.AccessToken,
		ExpiresIn:   res.ExpiresIn,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil || session.UserID == "" {
		response.Unauthorized(w, "Authorization header required")
		return
	}

	if err := h.authUseCase.Logout(r.Context(), inbound.LogoutRequest{UserID: session.UserID}); err != nil {
		response.InternalServerError(w, "Internal server error")
		return
	}

	// Clear refresh token cookie if present
	setRefreshCookie(w, "", -1)

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		response.Unauthorized(w, "User not authenticated")
		return
	}

	res, err := h.authUseCase.Me(r.Context(), session.UserID)
	if err != nil {
		switch err.Error() {
		case "user not found":
			response.NotFound(w, "User not found")
		default:
			response.InternalServerError(w, "Internal server error")
		}
		return
	}

	response.Success(w, http.StatusOK, "success", res)
}

func setRefreshCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    token,
		Path:     "/v1/auth/refresh",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clientIP extracts the caller address, preferring proxy headers.
func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
