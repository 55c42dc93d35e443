package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hrflow/internal/domain/catalog"
	"hrflow/internal/domain/workflow"
)

type Service struct {
	Store   *Store
	Catalog *catalog.Service
}

func NewService(store *Store, catalogSvc *catalog.Service) *Service {
	return &Service{Store: store, Catalog: catalogSvc}
}

const evaluationColumns = `
    id, reference_number, status, employee_id, employee_name,
    COALESCE(position_id::text, ''), position_title, department, rating_period,
    probation_start_date, probation_end_date, COALESCE(overall_remarks, ''), created_at, updated_at`

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var ev Evaluation
	err := row.Scan(
		&ev.ID, &ev.ReferenceNumber, &ev.Status, &ev.EmployeeID, &ev.EmployeeName,
		&ev.PositionID, &ev.PositionTitle, &ev.Department, &ev.RatingPeriod,
		&ev.ProbationStartDate, &ev.ProbationEndDate, &ev.OverallRemarks, &ev.CreatedAt, &ev.UpdatedAt,
	)
	return ev, err
}

func (s *Service) nextReference(ctx context.Context, tenantID string, now time.Time) (string, error) {
	var count int
	if err := s.Store.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM probationary_evaluations
    WHERE tenant_id = $1 AND date_part('year', created_at) = $2
  `, tenantID, now.Year()).Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("PE-%d-%04d", now.Year(), count+1), nil
}

// Create validates and persists a probationary evaluation. The rated
// position is resolved from the employee (column first, then the details
// fallback chain); its KPI template seeds the objective set when the
// payload carries none.
func (s *Service) Create(ctx context.Context, tenantID, createdBy string, input CreateInput, probationStart, probationEnd *time.Time) (Evaluation, error) {
	// An empty or malformed id must fail validation, not the uuid encode
	// inside the lookup.
	if _, err := uuid.Parse(input.EmployeeID); err != nil {
		return Evaluation{}, ErrEmployeeRequired
	}

	employee, err := s.Catalog.EmployeeFormFields(ctx, tenantID, input.EmployeeID)
	if err != nil {
		return Evaluation{}, err
	}

	if len(input.Objectives) == 0 && employee.PositionID != "" {
		templates, err := s.Catalog.PositionKPIs(ctx, tenantID, employee.PositionID)
		if err != nil {
			return Evaluation{}, err
		}
		input.Objectives = ObjectivesFromTemplate(templates)
	}
	if err := ValidateCreate(input); err != nil {
		return Evaluation{}, err
	}

	status, err := workflow.NextFor(workflow.FamilyEvaluation, workflow.StatusDraft, workflow.ActionSubmit)
	if err != nil {
		return Evaluation{}, err
	}

	reference, err := s.nextReference(ctx, tenantID, time.Now().UTC())
	if err != nil {
		return Evaluation{}, err
	}

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return Evaluation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO probationary_evaluations (
      tenant_id, reference_number, status, employee_id, employee_name,
      position_id, position_title, department, rating_period,
      probation_start_date, probation_end_date, created_by
    ) VALUES ($1,$2,$3,$4,$5,NULLIF($6,'')::uuid,$7,$8,$9,$10,$11,$12)
    RETURNING id
  `, tenantID, reference, status.String(), employee.EmployeeID, employee.EmployeeName,
		employee.PositionID, employee.PositionTitle, employee.Department, input.RatingPeriod,
		probationStart, probationEnd, createdBy,
	).Scan(&id); err != nil {
		return Evaluation{}, err
	}

	for _, line := range input.Objectives {
		if _, err := tx.Exec(ctx, `
      INSERT INTO eval_objectives (
        tenant_id, evaluation_id, source_kpi_id, objective_name,
        distribution_percentage, deliverable, target_percentage, actual_performance, remarks
      ) VALUES ($1,$2,NULLIF($3,'')::uuid,$4,$5,$6,$7,$8,$9)
    `, tenantID, id, line.SourceKPIID, line.ObjectiveName,
			line.DistributionPercentage, line.Deliverable, line.TargetPercentage, clampScore(line.ActualPerformance), line.Remarks,
		); err != nil {
			return Evaluation{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Evaluation{}, err
	}
	return s.Get(ctx, tenantID, id)
}

func (s *Service) Get(ctx context.Context, tenantID, evaluationID string) (Evaluation, error) {
	ev, err := scanEvaluation(s.Store.DB.QueryRow(ctx, `
    SELECT`+evaluationColumns+`
    FROM probationary_evaluations
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, evaluationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	if err != nil {
		return Evaluation{}, err
	}

	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, COALESCE(source_kpi_id::text, ''), objective_name,
           distribution_percentage, deliverable, target_percentage, actual_performance, remarks
    FROM eval_objectives
    WHERE tenant_id = $1 AND evaluation_id = $2
    ORDER BY objective_name, id
  `, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	defer rows.Close()

	ev.Objectives = make([]Objective, 0, 8)
	for rows.Next() {
		var o Objective
		if err := rows.Scan(&o.ID, &o.SourceKPIID, &o.ObjectiveName,
			&o.DistributionPercentage, &o.Deliverable, &o.TargetPercentage, &o.ActualPerformance, &o.Remarks); err != nil {
			return Evaluation{}, err
		}
		ev.Objectives = append(ev.Objectives, o)
	}
	return ev, rows.Err()
}

func (s *Service) List(ctx context.Context, tenantID, userID, employeeID string, filter ListFilter, limit, offset int) (ListResult, error) {
	where := " WHERE tenant_id = $1"
	args := []any{tenantID}

	if status, ok := workflow.Normalize(filter.Status); ok && filter.Status != "" {
		args = append(args, status.String())
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (reference_number ILIKE $%d OR employee_name ILIKE $%d)", n, n)
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, filter.EndDate.AddDate(0, 0, 1))
		where += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if filter.ViewMode == "mine" {
		args = append(args, userID, employeeID)
		where += fmt.Sprintf(" AND (created_by = $%d OR employee_id = NULLIF($%d,'')::uuid)", len(args)-1, len(args))
	}

	var total int
	if err := s.Store.DB.QueryRow(ctx, "SELECT COUNT(1) FROM probationary_evaluations"+where, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	query := "SELECT" + evaluationColumns + " FROM probationary_evaluations" + where + " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	var evaluations []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return ListResult{}, err
		}
		evaluations = append(evaluations, ev)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}
	return ListResult{Evaluations: evaluations, Total: total}, nil
}

// Update applies the multipart PATCH payload: remarks, rating period, and
// per-line score updates, all inside one transaction. Only statuses that
// still accept edits are allowed through.
func (s *Service) Update(ctx context.Context, tenantID, evaluationID string, input UpdateInput) (Evaluation, error) {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	status, ok := workflow.Normalize(ev.Status)
	if !ok {
		return Evaluation{}, ErrUnknownStatus
	}
	if !workflow.CanUpdate(status) {
		return Evaluation{}, fmt.Errorf("%w: %q does not accept edits", workflow.ErrInvalidTransition, status)
	}

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return Evaluation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    UPDATE probationary_evaluations
    SET overall_remarks = COALESCE(NULLIF($1, ''), overall_remarks),
        rating_period = COALESCE(NULLIF($2, ''), rating_period),
        updated_at = now()
    WHERE tenant_id = $3 AND id = $4
  `, input.OverallRemarks, input.RatingPeriod, tenantID, evaluationID); err != nil {
		return Evaluation{}, err
	}

	for _, line := range input.Objectives {
		tag, err := tx.Exec(ctx, `
      UPDATE eval_objectives
      SET actual_performance = $1, remarks = $2
      WHERE tenant_id = $3 AND evaluation_id = $4 AND id = $5
    `, clampScore(line.ActualPerformance), line.Remarks, tenantID, evaluationID, line.ID)
		if err != nil {
			return Evaluation{}, err
		}
		if tag.RowsAffected() == 0 {
			return Evaluation{}, fmt.Errorf("objective %s does not belong to evaluation %s", line.ID, evaluationID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Evaluation{}, err
	}
	return s.Get(ctx, tenantID, evaluationID)
}

// Transition applies a workflow action using the evaluation family's
// transition table.
func (s *Service) Transition(ctx context.Context, tenantID, actorID, evaluationID string, action workflow.Action) (Evaluation, error) {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	status, ok := workflow.Normalize(ev.Status)
	if !ok {
		return Evaluation{}, ErrUnknownStatus
	}
	next, err := workflow.NextFor(workflow.FamilyEvaluation, status, action)
	if err != nil {
		return Evaluation{}, err
	}

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return Evaluation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    UPDATE probationary_evaluations SET status = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3
  `, next.String(), tenantID, evaluationID); err != nil {
		return Evaluation{}, err
	}
	if _, err := tx.Exec(ctx, `
    INSERT INTO eval_events (tenant_id, evaluation_id, status_from, status_to, action, actor_id)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, tenantID, evaluationID, status.String(), next.String(), string(action), actorID); err != nil {
		return Evaluation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Evaluation{}, err
	}

	ev.Status = next.String()
	return ev, nil
}

// Resubmit is the explicit resubmission path, gated on the evaluation
// family's exact eligible status.
func (s *Service) Resubmit(ctx context.Context, tenantID, actorID, evaluationID string, input UpdateInput) (Evaluation, error) {
	ev, err := s.Get(ctx, tenantID, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	status, ok := workflow.Normalize(ev.Status)
	if !ok {
		return Evaluation{}, ErrUnknownStatus
	}
	if !workflow.CanResubmit(workflow.FamilyEvaluation, status) {
		return Evaluation{}, fmt.Errorf("%w: %q does not accept a resubmission", workflow.ErrInvalidTransition, status)
	}
	if len(input.Objectives) > 0 || input.OverallRemarks != "" || input.RatingPeriod != "" {
		if _, err := s.Update(ctx, tenantID, evaluationID, input); err != nil {
			return Evaluation{}, err
		}
	}
	return s.Transition(ctx, tenantID, actorID, evaluationID, workflow.ActionResubmit)
}

// OverdueProbations lists evaluations still open past their probation end
// date, for the background sweep.
func (s *Service) OverdueProbations(ctx context.Context, tenantID string, asOf time.Time) ([]Evaluation, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT`+evaluationColumns+`
    FROM probationary_evaluations
    WHERE tenant_id = $1 AND probation_end_date < $2
      AND status NOT IN ($3,$4,$5)
    ORDER BY probation_end_date
  `, tenantID, asOf, workflow.StatusCompleted.String(), workflow.StatusCancelled.String(), workflow.StatusRejected.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overdue []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		overdue = append(overdue, ev)
	}
	return overdue, rows.Err()
}
