package evaluationhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/domain/evaluation"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

const maxEvaluationFormBytes = 1 << 20

type Handler struct {
	Service *evaluation.Service
	Perms   middleware.PermissionStore
	Notify  *notifications.Service
	Audit   *audit.Service
}

func NewHandler(service *evaluation.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermEvaluationRead, h.Perms)).Get("/me/probationary-evaluations", h.handleListMine)

	r.Route("/probationary-evaluations", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEvaluationRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermEvaluationWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermEvaluationRead, h.Perms)).Get("/{evaluationID}", h.handleGet)
		// The evaluation form posts multipart with a _method=PATCH override.
		r.With(middleware.RequirePermission(auth.PermEvaluationWrite, h.Perms)).Post("/{evaluationID}", h.handleFormUpdate)
		r.With(middleware.RequirePermission(auth.PermEvaluationWrite, h.Perms)).Patch("/{evaluationID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermEvaluationReview, h.Perms)).Post("/{evaluationID}/recommend", h.handleAction(workflow.ActionRecommend))
		r.With(middleware.RequirePermission(auth.PermEvaluationReview, h.Perms)).Post("/{evaluationID}/approve", h.handleAction(workflow.ActionApprove))
		r.With(middleware.RequirePermission(auth.PermEvaluationReview, h.Perms)).Post("/{evaluationID}/reject", h.handleAction(workflow.ActionReject))
		r.With(middleware.RequirePermission(auth.PermEvaluationReview, h.Perms)).Post("/{evaluationID}/return", h.handleAction(workflow.ActionReturn))
		r.With(middleware.RequirePermission(auth.PermEvaluationWrite, h.Perms)).Post("/{evaluationID}/resubmit", h.handleResubmit)
		r.With(middleware.RequirePermission(auth.PermEvaluationWrite, h.Perms)).Post("/{evaluationID}/cancel", h.handleAction(workflow.ActionCancel))
		r.With(middleware.RequirePermission(auth.PermEvaluationReview, h.Perms)).Post("/{evaluationID}/complete", h.handleAction(workflow.ActionComplete))
	})
}

func (h *Handler) resolveActions(r *http.Request, user auth.UserContext, status string) workflow.Actions {
	normalized, ok := workflow.Normalize(status)
	if !ok {
		return workflow.Actions{}
	}
	mayWrite, err := h.Perms.HasPermission(r.Context(), user.RoleID, auth.PermEvaluationWrite)
	if err != nil {
		slog.Warn("evaluation write permission check failed", "err", err)
	}
	return workflow.ResolveActions(workflow.FamilyEvaluation, normalized, mayWrite, mayWrite)
}

func (h *Handler) withActions(r *http.Request, user auth.UserContext, ev evaluation.Evaluation) evaluation.Evaluation {
	ev.Actions = h.resolveActions(r, user, ev.Status)
	return ev
}

func failEvaluationError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, evaluation.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", requestID)
	case errors.Is(err, workflow.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrEmployeeRequired),
		errors.Is(err, evaluation.ErrProbationStartMissing),
		errors.Is(err, evaluation.ErrNoObjectives),
		errors.Is(err, evaluation.ErrUnknownStatus):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "evaluation_failed", "evaluation operation failed", requestID)
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload evaluation.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.ProbationStartDate == "" {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "probation_start_date", Reason: evaluation.ErrProbationStartMissing.Error()}})
		return
	}

	probationStart, err := parseOptionalDate(payload.ProbationStartDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "probation_start_date", Reason: "invalid date"}})
		return
	}
	probationEnd, err := parseOptionalDate(payload.ProbationEndDate)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "probation_end_date", Reason: "invalid date"}})
		return
	}

	ev, err := h.Service.Create(r.Context(), user.TenantID, user.UserID, payload, probationStart, probationEnd)
	if err != nil {
		failEvaluationError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionCreate, audit.EntityEvaluation, ev.ID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, ev); err != nil {
		slog.Warn("audit evaluation create failed", "err", err)
	}
	api.Created(w, h.withActions(r, user, ev), middleware.GetRequestID(r.Context()))
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := shared.ParseDate(raw)
	if err != nil || parsed.IsZero() {
		return nil, errors.New("invalid date")
	}
	return &parsed, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	ev, err := h.Service.Get(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		failEvaluationError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, h.withActions(r, user, ev), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

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
	if query.Status != "" {
		if _, ok := workflow.Normalize(query.Status); !ok {
			shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "status", Reason: "unknown status"}})
			return
		}
	}
	filter := evaluation.ListFilter{
		Status:    query.Status,
		Search:    query.Search,
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		ViewMode:  query.ViewMode,
	}
	if forceViewMode != "" {
		filter.ViewMode = forceViewMode
	}

	var employeeID string
	if filter.ViewMode == "mine" {
		if id, err := h.Service.Catalog.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID); err == nil {
			employeeID = id
		} else {
			slog.Warn("evaluation list employee lookup failed", "err", err)
		}
	}

	result, err := h.Service.List(r.Context(), user.TenantID, user.UserID, employeeID, filter, query.Limit(), query.Offset())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "evaluation_failed", "failed to list evaluations", middleware.GetRequestID(r.Context()))
		return
	}

	items := make([]evaluation.Evaluation, 0, len(result.Evaluations))
	for _, ev := range result.Evaluations {
		items = append(items, h.withActions(r, user, ev))
	}
	api.Success(w, map[string]any{
		"items": items,
		"meta":  query.Meta(result.Total),
	}, middleware.GetRequestID(r.Context()))
}

// handleFormUpdate accepts the evaluation form's multipart POST. Anything
// other than a PATCH override is rejected so plain POSTs cannot silently
// mutate the record.
func (h *Handler) handleFormUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxEvaluationFormBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid multipart payload", middleware.GetRequestID(r.Context()))
		return
	}
	if shared.MethodOverride(r) != http.MethodPatch {
		api.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "expected _method=PATCH", middleware.GetRequestID(r.Context()))
		return
	}

	input, issues := decodeUpdateForm(r.MultipartForm.Value)
	if len(issues) > 0 {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), issues)
		return
	}
	h.update(w, r, input)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload evaluation.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	h.update(w, r, payload)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, input evaluation.UpdateInput) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	evaluationID := chi.URLParam(r, "evaluationID")
	ev, err := h.Service.Update(r.Context(), user.TenantID, evaluationID, input)
	if err != nil {
		failEvaluationError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionUpdate, audit.EntityEvaluation, evaluationID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, input); err != nil {
		slog.Warn("audit evaluation update failed", "err", err)
	}
	api.Success(w, h.withActions(r, user, ev), middleware.GetRequestID(r.Context()))
}

// decodeUpdateForm maps the flattened bracket keys
// (objectives[0][id], objectives[0][actual_performance], ...) onto the
// update payload.
func decodeUpdateForm(values map[string][]string) (evaluation.UpdateInput, []shared.ValidationIssue) {
	form := shared.ParseBracketForm(values)
	input := evaluation.UpdateInput{
		RatingPeriod:   form.Value("rating_period"),
		OverallRemarks: form.Value("overall_remarks"),
	}

	var issues []shared.ValidationIssue
	for i, row := range form.Rows("objectives") {
		id := row["id"]
		if id == "" {
			issues = append(issues, shared.ValidationIssue{
				Field:  "objectives[" + strconv.Itoa(i) + "][id]",
				Reason: "required",
			})
			continue
		}
		update := evaluation.ObjectiveUpdate{ID: id, Remarks: row["remarks"]}
		if raw, ok := row["actual_performance"]; ok && raw != "" {
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				issues = append(issues, shared.ValidationIssue{
					Field:  "objectives[" + strconv.Itoa(i) + "][actual_performance]",
					Reason: "must be numeric",
				})
				continue
			}
			update.ActualPerformance = &score
		}
		input.Objectives = append(input.Objectives, update)
	}
	return input, issues
}

func (h *Handler) handleAction(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
			return
		}

		evaluationID := chi.URLParam(r, "evaluationID")
		ev, err := h.Service.Transition(r.Context(), user.TenantID, user.UserID, evaluationID, action)
		if err != nil {
			failEvaluationError(w, err, middleware.GetRequestID(r.Context()))
			return
		}

		if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionTransition, audit.EntityEvaluation, evaluationID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"action": string(action)}, map[string]any{"status": ev.Status}); err != nil {
			slog.Warn("audit evaluation transition failed", "action", string(action), "err", err)
		}
		api.Success(w, h.withActions(r, user, ev), middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload evaluation.UpdateInput
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}

	evaluationID := chi.URLParam(r, "evaluationID")
	ev, err := h.Service.Resubmit(r.Context(), user.TenantID, user.UserID, evaluationID, payload)
	if err != nil {
		failEvaluationError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, audit.ActionTransition, audit.EntityEvaluation, evaluationID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), map[string]any{"action": string(workflow.ActionResubmit)}, map[string]any{"status": ev.Status}); err != nil {
		slog.Warn("audit evaluation resubmit failed", "err", err)
	}
	api.Success(w, h.withActions(r, user, ev), middleware.GetRequestID(r.Context()))
}
