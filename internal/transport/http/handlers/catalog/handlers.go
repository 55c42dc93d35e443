package cataloghandler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/catalog"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
)

type Handler struct {
	Service *catalog.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *catalog.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermCatalogRead, h.Perms)

	r.Route("/positions", func(r chi.Router) {
		r.With(read).Get("/", h.handleListPositions)
		r.With(read).Get("/{positionID}", h.handleGetPosition)
		r.With(read).Get("/{positionID}/kpis", h.handlePositionKPIs)
		r.With(read).Get("/{positionID}/fields", h.handlePositionFields)
	})
	r.With(read).Get("/job-levels", h.handleListJobLevels)
	r.With(read).Get("/employees/probationary", h.handleListProbationary)
	r.With(read).Get("/employees/{employeeID}/fields", h.handleEmployeeFields)
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	positions, err := h.Service.ListPositions(r.Context(), user.TenantID, search)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "catalog_failed", "failed to list positions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, positions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	position, err := h.Service.GetPosition(r.Context(), user.TenantID, chi.URLParam(r, "positionID"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "position not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "catalog_failed", "failed to load position", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, position, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePositionKPIs(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	templates, err := h.Service.PositionKPIs(r.Context(), user.TenantID, chi.URLParam(r, "positionID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "catalog_failed", "failed to load KPI template", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, templates, middleware.GetRequestID(r.Context()))
}

// handlePositionFields serves the dependent-field set a form derives when a
// position is selected.
func (h *Handler) handlePositionFields(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	position, err := h.Service.GetPosition(r.Context(), user.TenantID, chi.URLParam(r, "positionID"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "position not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "catalog_failed", "failed to load position", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, catalog.FieldsForPosition(position), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListJobLevels(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	levels, err := h.Service.ListJobLevels(r.Context(), user.TenantID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "catalog_failed", "failed to list job levels", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, levels, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListProbationary(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	employees, err := h.Service.ListProbationaryEmployees(r.Context(), user.TenantID, search)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "catalog_failed", "failed to list probationary employees", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEmployeeFields(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	fields, err := h.Service.EmployeeFormFields(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "catalog_failed", "failed to derive employee fields", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, fields, middleware.GetRequestID(r.Context()))
}
