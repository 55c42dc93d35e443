package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hrflow/internal/domain/evaluation"
	"hrflow/internal/domain/notifications"
	"hrflow/internal/platform/config"
)

const (
	JobProbationSweep = "probation_sweep"
	JobRetention      = "record_retention"
)

// retentionDays bounds how long read notifications and finished job runs
// are kept before the retention sweep prunes them.
const retentionDays = 180

type Service struct {
	DB            *pgxpool.Pool
	Cfg           config.Config
	Evaluations   *evaluation.Service
	Notifications *notifications.Service
	queue         chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, evaluations *evaluation.Service, notifier *notifications.Service) *Service {
	return &Service{
		DB:            db,
		Cfg:           cfg,
		Evaluations:   evaluations,
		Notifications: notifier,
		queue:         make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.ProbationSweepInterval > 0 {
		go s.scheduleProbationSweep(ctx, s.Cfg.ProbationSweepInterval)
	}
	if s.Cfg.RetentionInterval > 0 {
		go s.scheduleRetention(ctx, s.Cfg.RetentionInterval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, j.TenantID, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleProbationSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tenants, err := s.listTenants(ctx)
			if err != nil {
				slog.Warn("probation sweep tenant lookup failed", "err", err)
				continue
			}
			for _, tenantID := range tenants {
				tenant := tenantID
				s.Enqueue(JobProbationSweep, tenant, func(ctx context.Context) (any, error) {
					return s.SweepProbations(ctx, tenant, time.Now())
				})
			}
		}
	}
}

// SweepProbations notifies the owner of every evaluation whose probation
// ended without the pipeline reaching a terminal status.
func (s *Service) SweepProbations(ctx context.Context, tenantID string, asOf time.Time) (any, error) {
	overdue, err := s.Evaluations.OverdueProbations(ctx, tenantID, asOf)
	if err != nil {
		return nil, err
	}
	notified := 0
	for _, ev := range overdue {
		userID, err := s.userForEmployee(ctx, tenantID, ev.EmployeeID)
		if err != nil || userID == "" {
			continue
		}
		if err := s.Notifications.NotifyWorkflow(ctx, tenantID, userID, notifications.TypeEvaluationDue, ev.ReferenceNumber); err != nil {
			slog.Warn("probation sweep notify failed", "evaluationId", ev.ID, "err", err)
			continue
		}
		notified++
	}
	return map[string]any{"overdue": len(overdue), "notified": notified}, nil
}

func (s *Service) scheduleRetention(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tenants, err := s.listTenants(ctx)
			if err != nil {
				slog.Warn("retention scheduler tenant lookup failed", "err", err)
				continue
			}
			for _, tenantID := range tenants {
				tenant := tenantID
				s.Enqueue(JobRetention, tenant, func(ctx context.Context) (any, error) {
					return s.ApplyRetention(ctx, tenant, s.RetentionCutoff(time.Now().UTC()))
				})
			}
		}
	}
}

// RetentionCutoff is the oldest timestamp the retention sweep keeps,
// relative to now.
func (s *Service) RetentionCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -retentionDays)
}

// ApplyRetention prunes read notifications and finished job runs older than
// the cutoff.
func (s *Service) ApplyRetention(ctx context.Context, tenantID string, cutoff time.Time) (any, error) {
	notifTag, err := s.DB.Exec(ctx, `
    DELETE FROM notifications
    WHERE tenant_id = $1 AND read_at IS NOT NULL AND created_at < $2
  `, tenantID, cutoff)
	if err != nil {
		return nil, err
	}
	runsTag, err := s.DB.Exec(ctx, `
    DELETE FROM job_runs
    WHERE tenant_id = $1 AND status != 'running' AND started_at < $2
  `, tenantID, cutoff)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"cutoffDate":           cutoff,
		"notificationsDeleted": notifTag.RowsAffected(),
		"jobRunsDeleted":       runsTag.RowsAffected(),
	}, nil
}

func (s *Service) userForEmployee(ctx context.Context, tenantID, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(u.id::text, '')
    FROM employees e
    LEFT JOIN users u ON u.tenant_id = e.tenant_id AND u.email = e.email
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID).Scan(&userID)
	return userID, err
}

func (s *Service) listTenants(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
