package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/port/outbound"
	"github.com/civiport/civiport/application/usecase"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/infrastructure/http/middleware"
	"github.com/civiport/civiport/infrastructure/http/response"
	"github.com/civiport/civiport/infrastructure/http/validator"
)

type UserManagementHandler struct {
	userManagement inbound.UserManagementUseCase
	auth           *middleware.AuthMiddleware
}

func NewUserManagementHandler(userManagement inbound.UserManagementUseCase, auth *middleware.AuthMiddleware) *UserManagementHandler {
	return &UserManagementHandler{
		userManagement: userManagement,
		auth:           auth,
	}
}

func (h *UserManagementHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/users/officers", h.auth.RequireRole(h.CreateOfficer, access.RoleAdmin)).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/officers", h.auth.RequireRole(h.ListOfficers, access.RoleOfficer, access.RoleAdmin)).Methods(http.MethodGet)
	r.HandleFunc("/v1/users/officers/{id}/deactivate", h.auth.RequireRole(h.DeactivateOfficer, access.RoleAdmin)).Methods(http.MethodPost)
	r.HandleFunc("/v1/users/officers/{id}", h.auth.RequireRole(h.RemoveOfficer, access.RoleAdmin)).Methods(http.MethodDelete)
	r.HandleFunc("/v1/audit", h.auth.RequireRole(h.ListAuditEntries, access.RoleAdmin)).Methods(http.MethodGet)
}

type CreateOfficerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (h *UserManagementHandler) CreateOfficer(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	var req CreateOfficerRequest
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

	officer, err := h.userManagement.CreateOfficer(r.Context(), session, inbound.CreateOfficerRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotAuthorized):
			response.Forbidden(w, err.Error())
		case errors.Is(err, outbound.ErrUserAlreadyExists):
			response.Conflict(w, "An account with this email already exists")
		default:
			response.InternalServerError(w, "Internal server error")
		}
		return
	}

	response.Success(w, http.StatusCreated, "officer created", officer)
}

func (h *UserManagementHandler) ListOfficers(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	officers, err := h.userManagement.ListOfficers(r.Context(), session)
	if err != nil {
		if errors.Is(err, usecase.ErrNotAuthorized) {
			response.Forbidden(w, err.Error())
			return
		}
		response.InternalServerError(w, "Internal server error")
		return
	}

	response.Success(w, http.StatusOK, "success", officers)
}

func (h *UserManagementHandler) DeactivateOfficer(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	officerID := mux.Vars(r)["id"]

	officer, err := h.userManagement.DeactivateOfficer(r.Context(), session, officerID)
	if err != nil {
		writeOfficerError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "officer deactivated", officer)
}

func (h *UserManagementHandler) RemoveOfficer(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	officerID := mux.Vars(r)["id"]

	if err := h.userManagement.RemoveOfficer(r.Context(), session, officerID); err != nil {
		writeOfficerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeOfficerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrNotAuthorized):
		response.Forbidden(w, err.Error())
	case errors.Is(err, outbound.ErrUserNotFound):
		response.NotFound(w, "Officer not found")
	default:
		response.InternalServerError(w, "Internal server error")
	}
}

func (h *UserManagementHandler) ListAuditEntries(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	q := r.URL.Query()
	req := inbound.AuditListRequest{
		Action:   q.Get("action"),
		TargetID: q.Get("target_id"),
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			req.Limit = n
		}
	}
	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			req.Offset = n
		}
	}

	entries, err := h.userManagement.ListAuditEntries(r.Context(), session, req)
	if err != nil {
		if errors.Is(err, usecase.ErrNotAuthorized) {
			response.Forbidden(w, err.Error())
			return
		}
		response.InternalServerError(w, "Internal server error")
		return
	}

	response.Success(w, http.StatusOK, "success", entries)
}
