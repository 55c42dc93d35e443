package mdahandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/mda"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/workflow"
	cryptoutil "hrflow/internal/platform/crypto"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Handler struct {
	Service *mda.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Crypto  *cryptoutil.Service
}

func NewHandler(service *mda.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, crypto *cryptoutil.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Crypto: crypto}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/mda", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermMDARead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermMDAWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermMDAWrite, h.Perms)).Get("/prefill-da/{submissionID}", h.handlePrefill)
		r.With(middleware.RequirePermission(auth.PermMDARead, h.Perms)).Get("/{adviceID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermMDAWrite, h.Perms)).Patch("/{adviceID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermMDARead, h.Perms)).Get("/{adviceID}/document", h.handleDocument)
		r.With(middleware.RequirePermission(auth.PermMDAProcess, h.Perms)).Post("/{adviceID}/process", h.handleAction(workflow.ActionProcess))
		r.With(middleware.RequirePermission(auth.PermMDAProcess, h.Perms)).Post("/{adviceID}/complete", h.handleAction(workflow.ActionComplete))
		r.With(middleware.RequirePermission(auth.PermMDAWrite, h.Perms)).Post("/{adviceID}/cancel", h.handleAction(workflow.ActionCancel))
	})
}

func failAdviceError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, mda.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "advice not found", requestID)
	case errors.Is(err, mda.ErrSubmissionNotApproved):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, workflow.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, mda.ErrUnknownStatus):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "advice_failed", "advice operation failed", requestID)
	}
}

// handlePrefill builds the advice form seed from an approved DA submission.
func (h *Handler) handlePrefill(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	prefill, err := h.Service.PrefillFromDA(r.Context(), user.TenantID, chi.URLParam(r, "submissionID"))
	if err != nil {
		failAdviceError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, prefill, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload mda.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	effectiveDate, err := parseEffectiveDate(payload.EffectiveDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "effective_date", Reason: "invalid date"}})
		return
	}

	advice, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, payload, effectiveDate)
	if err != nil {
		if errors.Is(err, mda.ErrNotFound) || errors.Is(err, workflow.ErrInvalidTransition) {
			failAdviceError(w, err, middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionCreate, audit.EntityAdvice, advice.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, advice); err != nil {
		slog.Warn("audit advice create failed", "err", err)
	}
	h.notifyEmployee(r, user.TenantID, advice, notifications.TypeAdviceIssued)

	api.Created(w, advice, middleware.GetRequestID(r.Context()))
}

func parseEffectiveDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := shared.ParseDate(raw)
	if err != nil || parsed.IsZero() {
		return nil, errors.New("invalid effective date")
	}
	return &parsed, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	advice, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "adviceID"))
	if err != nil {
		failAdviceError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, advice, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	query := shared.ParseListQuery(r)
	filter := mda.ListFilter{
		Status:    query.Status,
		Search:    query.Search,
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
	}

	result, err := h.Service.List(r.Context(), user.TenantID, filter, query.Limit(), query.Offset())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "advice_failed", "failed to list advices", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"items": result.Advices,
		"meta":  query.Meta(result.Total),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload mda.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	effectiveDate, err := parseEffectiveDate(payload.EffectiveDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "effective_date", Reason: "invalid date"}})
		return
	}

	adviceID := chi.URLParam(r, "adviceID")
	advice, err := h.Service.Update(r.Context(), user.TenantID, adviceID, payload, effectiveDate)
	if err != nil {
		failAdviceError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUpdate, audit.EntityAdvice, adviceID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit advice update failed", "err", err)
	}
	api.Success(w, advice, middleware.GetRequestID(r.Context()))
}

// handleDocument renders the advice PDF and reports where it was stored.
// With encryption configured the stored copy is the .enc ciphertext.
func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	adviceID := chi.URLParam(r, "adviceID")
	path, err := h.Service.GenerateAdvicePDF(r.Context(), user.TenantID, adviceID, h.Crypto)
	if err != nil {
		failAdviceError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionExport, audit.EntityAdvice, adviceID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]string{"path": path}); err != nil {
		slog.Warn("audit advice export failed", "err", err)
	}
	api.Success(w, map[string]string{"path": path}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAction(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}

		adviceID := chi.URLParam(r, "adviceID")
		advice, err := h.Service.Transition(r.Context(), user.TenantID, user.UserID, adviceID, action)
		if err != nil {
			failAdviceError(w, err, middleware.GetRequestID(r.Context()))
			return
		}

		if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionTransition, audit.EntityAdvice, adviceID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"action": string(action)}, map[string]any{"status": advice.Status}); err != nil {
			slog.Warn("audit advice transition failed", "action", string(action), "err", err)
		}
		if action == workflow.ActionComplete {
			h.notifyEmployee(r, user.TenantID, advice, notifications.TypeSubmissionCompleted)
		}
		api.Success(w, advice, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) notifyEmployee(r *http.Request, tenantID string, advice mda.Advice, ntype string) {
	if h.Notify == nil || h.Service.Submissions == nil {
		return
	}
	userID, err := h.Service.Submissions.EmployeeUserID(r.Context(), tenantID, advice.EmployeeID)
	if err != nil {
		slog.Warn("advice employee user lookup failed", "adviceId", advice.ID, "err", err)
		return
	}
	if err := h.Notify.NotifyWorkflow(r.Context(), tenantID, userID, ntype, advice.ReferenceNumber); err != nil {
		slog.Warn("advice notification failed", "type", ntype, "err", err)
	}
}
