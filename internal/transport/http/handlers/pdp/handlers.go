package pdphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/dasub"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/pdp"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Handler struct {
	Service     *pdp.Service
	Submissions *dasub.Service
	Perms       middleware.PermissionStore
	Notify      *notifications.Service
	Audit       *audit.Service
}

func NewHandler(service *pdp.Service, submissions *dasub.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Submissions: submissions, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/pdp-tasks", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermPDPRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermPDPWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermPDPRead, h.Perms)).Get("/{taskID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermPDPWrite, h.Perms)).Patch("/{taskID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermPDPWrite, h.Perms)).Post("/{taskID}/complete", h.handleComplete)
	})
}

func failTaskError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, pdp.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "task not found", requestID)
	case errors.Is(err, pdp.ErrTitleRequired), errors.Is(err, pdp.ErrSubmissionRequired):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "task_failed", "task operation failed", requestID)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	submissionID := r.URL.Query().Get("da_submission_id")
	if submissionID == "" {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "da_submission_id", Reason: "required"}})
		return
	}

	tasks, err := h.Service.ListBySubmission(r.Context(), user.TenantID, submissionID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "task_failed", "failed to list tasks", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, tasks, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload pdp.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "due_date", Reason: "invalid date"}})
		return
	}

	task, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, payload, dueDate)
	if err != nil {
		failTaskError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionCreate, audit.EntityPDPTask, task.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, task); err != nil {
		slog.Warn("audit pdp task create failed", "err", err)
	}
	h.notifyAssigned(r, user.TenantID, task)
	api.Created(w, task, middleware.GetRequestID(r.Context()))
}

func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := shared.ParseDate(raw)
	if err != nil || parsed.IsZero() {
		return nil, errors.New("invalid due date")
	}
	return &parsed, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	task, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "taskID"))
	if err != nil {
		failTaskError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload pdp.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.Status != "" && !pdp.ValidStatus(payload.Status) {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "status", Reason: "unknown status"}})
		return
	}
	dueDate, err := parseDueDate(payload.DueDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "due_date", Reason: "invalid date"}})
		return
	}

	taskID := chi.URLParam(r, "taskID")
	task, err := h.Service.Update(r.Context(), user.TenantID, taskID, payload, dueDate)
	if err != nil {
		failTaskError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUpdate, audit.EntityPDPTask, taskID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit pdp task update failed", "err", err)
	}
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	taskID := chi.URLParam(r, "taskID")
	task, err := h.Service.Complete(r.Context(), user.TenantID, taskID)
	if err != nil {
		failTaskError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUpdate, audit.EntityPDPTask, taskID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]string{"status": task.Status}); err != nil {
		slog.Warn("audit pdp task complete failed", "err", err)
	}
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

// notifyAssigned tells the development plan's subject employee a task was
// added to their plan.
func (h *Handler) notifyAssigned(r *http.Request, tenantID string, task pdp.Task) {
	if h.Notify == nil || h.Submissions == nil {
		return
	}
	sub, err := h.Submissions.Get(r.Context(), tenantID, task.DASubmissionID)
	if err != nil {
		slog.Warn("pdp task submission lookup failed", "taskId", task.ID, "err", err)
		return
	}
	userID, err := h.Submissions.EmployeeUserID(r.Context(), tenantID, sub.EmployeeID)
	if err != nil {
		slog.Warn("pdp task employee user lookup failed", "taskId", task.ID, "err", err)
		return
	}
	if err := h.Notify.NotifyWorkflow(r.Context(), tenantID, userID, notifications.TypePDPTaskAssigned, task.Title); err != nil {
		slog.Warn("pdp task notification failed", "err", err)
	}
}
