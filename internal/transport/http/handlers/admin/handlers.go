package adminhandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrflow/internal/domain/audit"
	"hrflow/internal/domain/auth"
	"hrflow/internal/platform/jobs"
	"hrflow/internal/platform/metrics"
	"hrflow/internal/transport/http/api"
	"hrflow/internal/transport/http/middleware"
	"hrflow/internal/transport/http/shared"
)

type Handler struct {
	Perms   middleware.PermissionStore
	Metrics *metrics.Collector
	Jobs    *jobs.Service
	Audit   *audit.Service
}

func NewHandler(perms middleware.PermissionStore, collector *metrics.Collector, jobsSvc *jobs.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Perms: perms, Metrics: collector, Jobs: jobsSvc, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/metrics", h.handleMetrics)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Post("/jobs/probation-sweep/run", h.handleRunProbationSweep)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Post("/jobs/retention/run", h.handleRunRetention)
	})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.Metrics == nil {
		api.Fail(w, http.StatusServiceUnavailable, "metrics_unavailable", "metrics collection is disabled", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunProbationSweep(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, jobs.JobProbationSweep, func(runCtx context.Context, tenantID string) (any, error) {
		return h.Jobs.SweepProbations(runCtx, tenantID, time.Now().UTC())
	})
}

func (h *Handler) handleRunRetention(w http.ResponseWriter, r *http.Request) {
	h.runJob(w, r, jobs.JobRetention, func(runCtx context.Context, tenantID string) (any, error) {
		return h.Jobs.ApplyRetention(runCtx, tenantID, h.Jobs.RetentionCutoff(time.Now().UTC()))
	})
}

func (h *Handler) runJob(w http.ResponseWriter, r *http.Request, jobType string, run func(context.Context, string) (any, error)) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	if h.Jobs == nil {
		api.Fail(w, http.StatusServiceUnavailable, "jobs_unavailable", "background jobs are disabled", middleware.GetRequestID(r.Context()))
		return
	}

	result, err := h.Jobs.RunNow(r.Context(), jobType, user.TenantID, func(runCtx context.Context) (any, error) {
		return run(runCtx, user.TenantID)
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_failed", "job run failed", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.UserID, "job.run", "job", jobType, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit job run failed", "job", jobType, "err", err)
	}
	api.Success(w, map[string]any{"job": jobType, "result": result}, middleware.GetRequestID(r.Context()))
}
