package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/civiport/civiport/application/port/inbound"
	"github.com/civiport/civiport/application/usecase"
	"github.com/civiport/civiport/domain"
	"github.com/civiport/civiport/domain/access"
	"github.com/civiport/civiport/infrastructure/http/middleware"
	"github.com/civiport/civiport/infrastructure/http/response"
	"github.com/civiport/civiport/infrastructure/http/validator"
	"github.com/civiport/civiport/infrastructure/metrics"
)

type CaseHandler struct {
	caseUseCase inbound.CaseUseCase
	auth        *middleware.AuthMiddleware
}

func NewCaseHandler(caseUseCase inbound.CaseUseCase, auth *middleware.AuthMiddleware) *CaseHandler {
	return &CaseHandler{
		caseUseCase: caseUseCase,
		auth:        auth,
	}
}

// RegisterRoutes mounts the case endpoints. Listing and filing are open to
// any authenticated session; mutations require officer or admin.
func (h *CaseHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/cases", h.auth.RequireAuth(h.List)).Methods(http.MethodGet)
	r.HandleFunc("/v1/cases", h.auth.RequireAuth(h.File)).Methods(http.MethodPost)
	r.HandleFunc("/v1/cases/summary", h.auth.RequireAuth(h.Summary)).Methods(http.MethodGet)
	r.HandleFunc("/v1/cases/{id}", h.auth.RequireAuth(h.Get)).Methods(http.MethodGet)

	officerOnly := []access.Role{access.RoleOfficer, access.RoleAdmin}
	r.HandleFunc("/v1/cases/{id}/assign", h.auth.RequireRole(h.Assign, officerOnly...)).Methods(http.MethodPost)
	r.HandleFunc("/v1/cases/{id}/resolve", h.auth.RequireRole(h.Resolve, officerOnly...)).Methods(http.MethodPost)
	r.HandleFunc("/v1/cases/{id}/close", h.auth.RequireRole(h.Close, officerOnly...)).Methods(http.MethodPost)
	r.HandleFunc("/v1/cases/{id}/transfer", h.auth.RequireRole(h.Transfer, officerOnly...)).Methods(http.MethodPost)
}

func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	query := inbound.CaseQuery{
		Search: r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
	}

	cases, err := h.caseUseCase.ListCases(r.Context(), session, query)
	if err != nil {
		writeCaseError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", cases)
}

func (h *CaseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	summary, err := h.caseUseCase.Summary(r.Context(), session)
	if err != nil {
		writeCaseError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", summary)
}

func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	caseID := mux.Vars(r)["id"]

	view, err := h.caseUseCase.GetCase(r.Context(), session, caseID)
	if err != nil {
		writeCaseError(w, err)
		return
	}

	response.Success(w, http.StatusOK, "success", view)
}

type FileCaseRequest struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Priority    string `json:"priority"`
}

func (h *CaseHandler) File(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())

	var req FileCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if !validator.ValidateRequired(req.Description) {
		response.UnprocessableEntity(w, "Description is required")
		return
	}
	if !validator.ValidateRequired(req.Location) {
		response.UnprocessableEntity(w, "Location is required")
		return
	}

	view, err := h.caseUseCase.FileCase(r.Context(), session, inbound.FileCaseRequest{
		Type:        domain.CaseType(req.Type),
		Description: req.Description,
		Location:    req.Location,
		Priority:    domain.CasePriority(req.Priority),
	})
	if err != nil {
		writeCaseError(w, err)
		return
	}

	metrics.RecordCaseFiled(string(view.Type))
	response.Success(w, http.StatusCreated, "case filed", view)
}

type AssignCaseRequest struct {
	Officer string `json:"officer"`
}

func (h *CaseHandler) Assign(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	caseID := mux.Vars(r)["id"]

	var req AssignCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if !validator.ValidateRequired(req.Officer) {
		response.UnprocessableEntity(w, "Officer is required")
		return
	}

	view, err := h.caseUseCase.AssignCase(r.Context(), session, caseID, req.Officer)
	if err != nil {
		writeCaseError(w, err)
		return
	}

	metrics.RecordCaseStatusChange(string(view.Status))
	response.Success(w, http.StatusOK, "case assigned", view)
}

func (h *CaseHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	caseID := mux.Vars(r)["id"]

	view, err := h.caseUseCase.MarkResolved(r.Context(), session, caseID)
	if err != nil {
		writeCaseError(w, err)
		return
	}

	metrics.RecordCaseStatusChange(string(view.Status))
	response.Success(w, http.StatusOK, "case resolved", view)
}

func (h *CaseHandler) Close(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	caseID := mux.Vars(r)["id"]

	view, err := h.caseUseCase.CloseCase(r.Context(), session, caseID)
	if err != nil {
		writeCaseError(w, err)
		return
	}

	metrics.RecordCaseStatusChange(string(view.Status))
	response.Success(w, http.StatusOK, "case closed", view)
}

type TransferCaseRequest struct {
	FromOfficer string `json:"from_officer"`
	ToOfficer   string `json:"to_officer"`
	Reason      string `json:"reason"`
}

func (h *CaseHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	caseID := mux.Vars(r)["id"]

	var req TransferCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if !validator.ValidateRequired(req.ToOfficer) {
		response.UnprocessableEntity(w, "Target officer is required")
		return
	}
	if !validator.ValidateRequired(req.Reason) {
		response.UnprocessableEntity(w, "Transfer reason is required")
		return
	}

	view, err := h.caseUseCase.TransferCase(r.Context(), session, inbound.TransferCaseRequest{
		CaseID:      caseID,
		FromOfficer: req.FromOfficer,
		ToOfficer:   req.ToOfficer,
		Reason:      req.Reason,
	})
	if err != nil {
		writeCaseError(w, err)
		return
	}

	metrics.RecordCaseTransfer()
	response.Success(w, http.StatusOK, "case transferred", view)
}

// writeCaseError maps domain and use case errors onto HTTP statuses.
func writeCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrNotAuthorized):
		response.Forbidden(w, err.Error())
	case errors.Is(err, domain.ErrCaseNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrCaseClosed),
		errors.Is(err, domain.ErrCaseNotResolved),
		errors.Is(err, domain.ErrCaseUnassigned),
		errors.Is(err, domain.ErrInvalidAssignment):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrTransferReasonRequired):
		response.UnprocessableEntity(w, err.Error())
	default:
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			response.UnprocessableEntity(w, domainErr.Message)
			return
		}
		response.InternalServerError(w, "Internal server error")
	}
}
