package dasubhandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/dasub"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Handler struct {
	Service *dasub.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
	Idempo  *middleware.IdempotencyStore
}

func NewHandler(service *dasub.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, idempo *middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Idempo: idempo}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermWorkflowRead, h.Perms)).Get("/me/da-submissions", h.handleListMine)

	r.Route("/form-submissions", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermWorkflowRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermWorkflowWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermWorkflowRead, h.Perms)).Get("/{submissionID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermWorkflowRead, h.Perms)).Get("/{submissionID}/events", h.handleEvents)
		r.With(middleware.RequirePermission(auth.PermWorkflowWrite, h.Perms)).Post("/{submissionID}/apply-template", h.handleApplyTemplate)
		r.With(middleware.RequirePermission(auth.PermWorkflowRecommend, h.Perms)).Put("/{submissionID}/recommendation", h.handleSaveRecommendation)
		r.With(middleware.RequirePermission(auth.PermWorkflowRecommend, h.Perms)).Post("/{submissionID}/recommend", h.handleRecommend)
		r.With(middleware.RequirePermission(auth.PermWorkflowApprove, h.Perms)).Post("/{submissionID}/approve", h.handleAction(workflow.ActionApprove))
		r.With(middleware.RequirePermission(auth.PermWorkflowApprove, h.Perms)).Post("/{submissionID}/reject", h.handleAction(workflow.ActionReject))
		r.With(middleware.RequirePermission(auth.PermWorkflowApprove, h.Perms)).Post("/{submissionID}/return", h.handleAction(workflow.ActionReturn))
		r.With(middleware.RequirePermission(auth.PermWorkflowRecommend, h.Perms)).Post("/{submissionID}/resubmit", h.handleResubmit)
		r.With(middleware.RequirePermission(auth.PermWorkflowCancel, h.Perms)).Post("/{submissionID}/cancel", h.handleAction(workflow.ActionCancel))
		r.With(middleware.RequirePermission(auth.PermWorkflowProcess, h.Perms)).Post("/{submissionID}/process", h.handleAction(workflow.ActionProcess))
		r.With(middleware.RequirePermission(auth.PermWorkflowProcess, h.Perms)).Post("/{submissionID}/complete", h.handleAction(workflow.ActionComplete))
	})
}

// resolveActions combines the status gate with the caller's workflow
// permissions so the capability flags never promise more than the route
// guards allow.
func (h *Handler) resolveActions(r *http.Request, user auth.UserContext, status string) workflow.Actions {
	normalized, ok := workflow.Normalize(status)
	if !ok {
		return workflow.Actions{}
	}
	mayWrite, err := h.Perms.HasPermission(r.Context(), user.RoleID, auth.PermWorkflowWrite)
	if err != nil {
		slog.Warn("workflow write permission check failed", "err", err)
	}
	mayCancel, err := h.Perms.HasPermission(r.Context(), user.RoleID, auth.PermWorkflowCancel)
	if err != nil {
		slog.Warn("workflow cancel permission check failed", "err", err)
	}
	return workflow.ResolveActions(workflow.FamilyDARecommendation, normalized, mayWrite, mayCancel)
}

func (h *Handler) withActions(r *http.Request, user auth.UserContext, sub dasub.Submission) dasub.Submission {
	sub.Actions = h.resolveActions(r, user, sub.Status)
	return sub
}

func failSubmissionError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, dasub.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "submission not found", requestID)
	case errors.Is(err, workflow.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, dasub.ErrEmployeeRequired),
		errors.Is(err, dasub.ErrPositionRequired),
		errors.Is(err, dasub.ErrNoObjectives),
		errors.Is(err, dasub.ErrRecommendationRequired),
		errors.Is(err, dasub.ErrExtensionDateRequired),
		errors.Is(err, dasub.ErrPerformanceMissing),
		errors.Is(err, dasub.ErrUnknownStatus):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "submission_failed", "submission operation failed", requestID)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	var payload dasub.CreateInput
	if err := json.Unmarshal(body, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	// An Idempotency-Key makes the create safe to retry: the stored
	// response is replayed instead of cutting a second submission.
	idempotencyKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash(body)
	if idempotencyKey != "" {
		stored, found, err := h.Idempo.Check(r.Context(), user.TenantID, user.UserID, "da_submissions.create", idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			api.Created(w, json.RawMessage(stored), middleware.GetRequestID(r.Context()))
			return
		}
	}

	startDate, endDate, issues := parseSubmissionDates(payload.StartDate, payload.EndDate)
	if len(issues) > 0 {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), issues)
		return
	}

	sub, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, payload, startDate, endDate)
	if err != nil {
		failSubmissionError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionCreate, audit.EntityDASubmission, sub.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, sub); err != nil {
		slog.Warn("audit da submission create failed", "err", err)
	}
	h.notifyEmployee(r, user.TenantID, sub, notifications.TypeSubmissionCreated)

	result := h.withActions(r, user, sub)
	if idempotencyKey != "" {
		if response, err := json.Marshal(result); err == nil {
			if err := h.Idempo.Save(r.Context(), user.TenantID, user.UserID, "da_submissions.create", idempotencyKey, requestHash, response); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		}
	}

	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func parseSubmissionDates(startRaw, endRaw string) (*time.Time, *time.Time, []shared.ValidationIssue) {
	var issues []shared.ValidationIssue
	var startDate, endDate *time.Time

	if startRaw != "" {
		parsed, err := shared.ParseDate(startRaw)
		if err != nil || parsed.IsZero() {
			issues = append(issues, shared.ValidationIssue{Field: "start_date", Reason: "invalid date"})
		} else {
			startDate = &parsed
		}
	}
	if endRaw != "" {
		parsed, err := shared.ParseDate(endRaw)
		if err != nil || parsed.IsZero() {
			issues = append(issues, shared.ValidationIssue{Field: "end_date", Reason: "invalid date"})
		} else {
			endDate = &parsed
		}
	}
	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		issues = append(issues, shared.ValidationIssue{Field: "end_date", Reason: "must not precede start_date"})
	}
	return startDate, endDate, issues
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	sub, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "submissionID"))
	if err != nil {
		failSubmissionError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, h.withActions(r, user, sub), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	if _, err := h.Service.Get(r.Context(), user.TenantID, submissionID); err != nil {
		failSubmissionError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	events, err := h.Service.Events(r.Context(), user.TenantID, submissionID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "submission_failed", "failed to list events", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

// validStatusFilter accepts an empty filter or any recognized workflow
// status; an unrecognized value gets a 400 instead of silently matching
// everything.
func validStatusFilter(raw string) bool {
	if raw == "" {
		return true
	}
	_, ok := workflow.Normalize(raw)
	return ok
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

// handleListMine is the "my submissions" view: the list is always scoped to
// records the caller created or is the subject of, whatever the query says.
func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "mine")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, forceViewMode string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	query := shared.ParseListQuery(r)
	if !validStatusFilter(query.Status) {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "status", Reason: "unknown status"}})
		return
	}
	if !validStatusFilter(query.ApprovalStatus) {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "approval_status", Reason: "unknown status"}})
		return
	}
	filter := dasub.ListFilter{
		Status:         query.Status,
		ApprovalStatus: query.ApprovalStatus,
		Search:         query.Search,
		StartDate:      query.StartDate,
		EndDate:        query.EndDate,
		ViewMode:       query.ViewMode,
		Stage:          query.DAStage,
	}
	if forceViewMode != "" {
		filter.ViewMode = forceViewMode
	}

	var employeeID string
	if filter.ViewMode == "mine" {
		if id, err := h.Service.Catalog.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID); err == nil {
			employeeID = id
		} else {
			slog.Warn("submission list employee lookup failed", "err", err)
		}
	}

	result, err := h.Service.List(r.Context(), user.TenantID, user.UserID, employeeID, filter, query.Limit(), query.Offset())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "submission_failed", "failed to list submissions", middleware.GetRequestID(r.Context()))
		return
	}

	items := make([]dasub.Submission, 0, len(result.Submissions))
	for _, sub := range result.Submissions {
		items = append(items, h.withActions(r, user, sub))
	}
	api.Success(w, map[string]any{
		"items": items,
		"meta":  query.Meta(result.Total),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		PositionID string `json:"position_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.PositionID == "" {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "position_id", Reason: "required"}})
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	sub, err := h.Service.ApplyTemplate(r.Context(), user.TenantID, user.UserID, submissionID, payload.PositionID)
	if err != nil {
		failSubmissionError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUpdate, audit.EntityDASubmission, submissionID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]any{"position_id": payload.PositionID, "objectives": len(sub.Objectives)}); err != nil {
		slog.Warn("audit da template apply failed", "err", err)
	}
	api.Success(w, h.withActions(r, user, sub), middleware.GetRequestID(r.Context()))
}

type recommendationPayload struct {
	FinalRecommendation string                     `json:"final_recommendation"`
	ExtensionEndDate    string                     `json:"extension_end_date,omitempty"`
	Objectives          []dasub.ObjectiveScoreLine `json:"objectives"`
}

func (p recommendationPayload) input() dasub.RecommendationInput {
	return dasub.RecommendationInput{
		FinalRecommendation: p.FinalRecommendation,
		ExtensionEndDate:    p.ExtensionEndDate,
		Objectives:          p.Objectives,
	}
}

func parseExtensionEnd(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := shared.ParseDate(raw)
	if err != nil || parsed.IsZero() {
		return nil, errors.New("invalid extension end date")
	}
	return &parsed, nil
}

func (h *Handler) handleSaveRecommendation(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload recommendationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	extensionEnd, err := parseExtensionEnd(payload.ExtensionEndDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "extension_end_date", Reason: "invalid date"}})
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	result, err := h.Service.SaveRecommendation(r.Context(), user.TenantID, user.UserID, submissionID, payload.input(), extensionEnd)
	if err != nil {
		failSubmissionError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUpdate, audit.EntityDASubmission, submissionID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit da recommendation save failed", "err", err)
	}
	if result.Advanced {
		h.notifyEmployee(r, user.TenantID, result.Submission, notifications.TypeRecommendationRequested)
	}

	api.Success(w, h.withActions(r, user, result.Submission), middleware.GetRequestID(r.Context()))
}

// handleRecommend submits the saved recommendation without touching it. The
// save endpoint already advances FOR RECOMMENDATION submissions; this route
// covers clients that save and submit in separate steps.
func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, workflow.ActionRecommend)
}

func (h *Handler) handleAction(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.transition(w, r, action)
	}
}

type actionPayload struct {
	Remarks string `json:"remarks,omitempty"`
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action workflow.Action) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload actionPayload
	if r.Body != nil {
		// Remarks are optional; an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	submissionID := chi.URLParam(r, "submissionID")
	sub, err := h.Service.Transition(r.Context(), user.TenantID, user.UserID, submissionID, action, payload.Remarks)
	if err != nil {
		failSubmissionError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionTransition, audit.EntityDASubmission, submissionID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"action": string(action)}, map[string]any{"status": sub.Status}); err != nil {
		slog.Warn("audit da transition failed", "action", string(action), "err", err)
	}
	if ntype := notificationTypeFor(action); ntype != "" {
		h.notifyEmployee(r, user.TenantID, sub, ntype)
	}

	api.Success(w, h.withActions(r, user, sub), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload recommendationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	extensionEnd, err := parseExtensionEnd(payload.ExtensionEndDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "extension_end_date", Reason: "invalid date"}})
		return
	}

	submissionID := chi.URLParam(r, "submissionID")
	sub, err := h.Service.Resubmit(r.Context(), user.TenantID, user.UserID, submissionID, payload.input(), extensionEnd)
	if err != nil {
		failSubmissionError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionTransition, audit.EntityDASubmission, submissionID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"action": string(workflow.ActionResubmit)}, map[string]any{"status": sub.Status}); err != nil {
		slog.Warn("audit da resubmit failed", "err", err)
	}
	h.notifyEmployee(r, user.TenantID, sub, notifications.TypeRecommendationRequested)

	api.Success(w, h.withActions(r, user, sub), middleware.GetRequestID(r.Context()))
}

func notificationTypeFor(action workflow.Action) string {
	switch action {
	case workflow.ActionRecommend:
		return notifications.TypeRecommendationRequested
	case workflow.ActionApprove:
		return notifications.TypeRecommendationApproved
	case workflow.ActionReject:
		return notifications.TypeRecommendationRejected
	case workflow.ActionReturn:
		return notifications.TypeResubmissionRequested
	case workflow.ActionProcess:
		return notifications.TypeSubmissionProcessed
	case workflow.ActionComplete:
		return notifications.TypeSubmissionCompleted
	case workflow.ActionCancel:
		return notifications.TypeSubmissionCancelled
	}
	return ""
}

func (h *Handler) notifyEmployee(r *http.Request, tenantID string, sub dasub.Submission, ntype string) {
	if h.Notify == nil {
		return
	}
	userID, err := h.Service.EmployeeUserID(r.Context(), tenantID, sub.EmployeeID)
	if err != nil {
		slog.Warn("submission employee user lookup failed", "submissionId", sub.ID, "err", err)
		return
	}
	if err := h.Notify.NotifyWorkflow(r.Context(), tenantID, userID, ntype, sub.ReferenceNumber); err != nil {
		slog.Warn("submission notification failed", "type", ntype, "err", err)
	}
}
