package dasub

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

const submissionColumns = `
    id, reference_number, status, employee_id, employee_name,
    COALESCE(from_position_id::text, ''), from_position_title, from_department, from_sub_unit, from_job_rate, from_allowance,
    COALESCE(to_position_id::text, ''), to_position_title, to_department, to_sub_unit,
    start_date, end_date, COALESCE(final_recommendation, ''), extension_end_date, created_at, updated_at`

func scanSubmission(row pgx.Row) (Submission, error) {
	var sub Submission
	err := row.Scan(
		&sub.ID, &sub.ReferenceNumber, &sub.Status, &sub.EmployeeID, &sub.EmployeeName,
		&sub.FromPositionID, &sub.FromPositionTitle, &sub.FromDepartment, &sub.FromSubUnit, &sub.FromJobRate, &sub.FromAllowance,
		&sub.ToPositionID, &sub.ToPositionTitle, &sub.ToDepartment, &sub.ToSubUnit,
		&sub.StartDate, &sub.EndDate, &sub.FinalRecommendation, &sub.ExtensionEndDate, &sub.CreatedAt, &sub.UpdatedAt,
	)
	return sub, err
}

// NextReference allocates the next DA-YYYY-NNNN reference for the tenant's
// current year.
func (s *Service) NextReference(ctx context.Context, tenantID string, now time.Time) (string, error) {
	var count int
	if err := s.Store.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM da_submissions
    WHERE tenant_id = $1 AND date_part('year', created_at) = $2
  `, tenantID, now.Year()).Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", ReferencePrefix, now.Year(), count+1), nil
}

// Create validates and persists a fresh submission, snapshotting the
// derived position fields and copying the target position's KPI template
// when the payload carries no KPI lines. The submission enters the pipeline
// at FOR RECOMMENDATION.
func (s *Service) Create(ctx context.Context, tenantID, createdBy string, input CreateInput, startDate, endDate *time.Time) (Submission, error) {
	if len(input.KPIs) == 0 && input.ToPositionID != "" {
		templates, err := s.Catalog.PositionKPIs(ctx, tenantID, input.ToPositionID)
		if err != nil {
			return Submission{}, err
		}
		input.KPIs = ObjectivesFromTemplate(templates)
	}
	if err := ValidateCreate(input); err != nil {
		return Submission{}, err
	}
	if _, err := uuid.Parse(input.EmployeeID); err != nil {
		return Submission{}, ErrEmployeeRequired
	}

	employee, err := s.Catalog.EmployeeFormFields(ctx, tenantID, input.EmployeeID)
	if err != nil {
		return Submission{}, err
	}

	fromPositionID := input.FromPositionID
	if fromPositionID == "" {
		fromPositionID = employee.PositionID
	}
	var fromFields catalog.PositionFields
	if fromPositionID != "" {
		fromPosition, err := s.Catalog.GetPosition(ctx, tenantID, fromPositionID)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return Submission{}, err
		}
		fromFields = catalog.FieldsForPosition(fromPosition)
	}

	toPosition, err := s.Catalog.GetPosition(ctx, tenantID, input.ToPositionID)
	if err != nil {
		return Submission{}, err
	}
	toFields := catalog.FieldsForPosition(toPosition)

	status, err := workflow.Next(workflow.StatusDraft, workflow.ActionSubmit)
	if err != nil {
		return Submission{}, err
	}

	reference, err := s.NextReference(ctx, tenantID, time.Now().UTC())
	if err != nil {
		return Submission{}, err
	}

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return Submission{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO da_submissions (
      tenant_id, reference_number, form_id, status, employee_id, employee_name,
      from_position_id, from_position_title, from_department, from_sub_unit, from_job_rate, from_allowance,
      to_position_id, to_position_title, to_department, to_sub_unit,
      start_date, end_date, created_by
    ) VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,'')::uuid,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
    RETURNING id
  `, tenantID, reference, input.FormID, status.String(), employee.EmployeeID, employee.EmployeeName,
		fromFields.PositionID, fromFields.Title, fromFields.Department, fromFields.SubUnit, fromFields.JobRate, fromFields.Allowance,
		toFields.PositionID, toFields.Title, toFields.Department, toFields.SubUnit,
		startDate, endDate, createdBy,
	).Scan(&id); err != nil {
		return Submission{}, err
	}

	if err := replaceObjectivesTx(ctx, tx, tenantID, id, input.KPIs); err != nil {
		return Submission{}, err
	}

	if err := recordEventTx(ctx, tx, tenantID, id, "", status.String(), string(workflow.ActionSubmit), createdBy, ""); err != nil {
		return Submission{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Submission{}, err
	}
	return s.Get(ctx, tenantID, id)
}

func replaceObjectivesTx(ctx context.Context, tx pgx.Tx, tenantID, submissionID string, lines []ObjectiveLine) error {
	if _, err := tx.Exec(ctx, `
    DELETE FROM da_objectives WHERE tenant_id = $1 AND submission_id = $2
  `, tenantID, submissionID); err != nil {
		return err
	}
	for _, line := range lines {
		score := ClampScore(line.ActualPerformance)
		target := line.TargetPercentage
		if target < 0 {
			target = 0
		}
		if target > 100 {
			target = 100
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO da_objectives (
        tenant_id, submission_id, source_kpi_id, objective_id, objective_name,
        distribution_percentage, deliverable, target_percentage, actual_performance, remarks
      ) VALUES ($1,$2,NULLIF($3,'')::uuid,$4,$5,$6,$7,$8,$9,$10)
    `, tenantID, submissionID, line.SourceKPIID, line.ObjectiveID, line.ObjectiveName,
			line.DistributionPercentage, line.Deliverable, target, score, line.Remarks,
		); err != nil {
			return err
		}
	}
	return nil
}

func recordEventTx(ctx context.Context, tx pgx.Tx, tenantID, submissionID, fromStatus, toStatus, action, actorID, remarks string) error {
	_, err := tx.Exec(ctx, `
    INSERT INTO da_submission_events (tenant_id, submission_id, status_from, status_to, action, actor_id, remarks)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, tenantID, submissionID, fromStatus, toStatus, action, actorID, remarks)
	return err
}

func (s *Service) Get(ctx context.Context, tenantID, submissionID string) (Submission, error) {
	sub, err := scanSubmission(s.Store.DB.QueryRow(ctx, `
    SELECT`+submissionColumns+`
    FROM da_submissions
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, submissionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, err
	}

	objectives, err := s.listObjectives(ctx, tenantID, submissionID)
	if err != nil {
		return Submission{}, err
	}
	sub.Objectives = objectives
	return sub, nil
}

func (s *Service) listObjectives(ctx context.Context, tenantID, submissionID string) ([]Objective, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, COALESCE(source_kpi_id::text, ''), objective_id, objective_name,
           distribution_percentage, deliverable, target_percentage, actual_performance, remarks
    FROM da_objectives
    WHERE tenant_id = $1 AND submission_id = $2
    ORDER BY objective_name, id
  `, tenantID, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	objectives := make([]Objective, 0, 8)
	for rows.Next() {
		var o Objective
		if err := rows.Scan(&o.ID, &o.SourceKPIID, &o.ObjectiveID, &o.ObjectiveName,
			&o.DistributionPercentage, &o.Deliverable, &o.TargetPercentage, &o.ActualPerformance, &o.Remarks); err != nil {
			return nil, err
		}
		objectives = append(objectives, o)
	}
	return objectives, rows.Err()
}

// List returns submissions matching the filter, scoped to the caller:
// view_mode "mine" restricts to submissions the user created or is the
// subject of, anything else sees the whole tenant (handler enforces the
// permission for that).
func (s *Service) List(ctx context.Context, tenantID, userID, employeeID string, filter ListFilter, limit, offset int) (ListResult, error) {
	where := " WHERE tenant_id = $1"
	args := []any{tenantID}

	addArg := func(clause string, value any) {
		args = append(args, value)
		where += fmt.Sprintf(clause, len(args))
	}

	if status, ok := workflow.Normalize(filter.Status); ok && filter.Status != "" {
		addArg(" AND status = $%d", status.String())
	}
	if status, ok := workflow.Normalize(filter.ApprovalStatus); ok && filter.ApprovalStatus != "" {
		addArg(" AND status = $%d", status.String())
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (reference_number ILIKE $%d OR employee_name ILIKE $%d OR to_position_title ILIKE $%d)", n, n, n)
	}
	if filter.StartDate != nil {
		addArg(" AND created_at >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		addArg(" AND created_at < $%d", filter.EndDate.AddDate(0, 0, 1))
	}
	if filter.Stage != "" {
		addArg(" AND form_id = $%d", filter.Stage)
	}
	if filter.ViewMode == "mine" {
		args = append(args, userID, employeeID)
		where += fmt.Sprintf(" AND (created_by = $%d OR employee_id = NULLIF($%d,'')::uuid)", len(args)-1, len(args))
	}

	var total int
	if err := s.Store.DB.QueryRow(ctx, "SELECT COUNT(1) FROM da_submissions"+where, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	query := "SELECT" + submissionColumns + " FROM da_submissions" + where + " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return ListResult{}, err
		}
		submissions = append(submissions, sub)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}
	return ListResult{Submissions: submissions, Total: total}, nil
}

// SaveResult reports what a recommendation save did and who to notify.
type SaveResult struct {
	Submission Submission
	Advanced   bool
}

// SaveRecommendation records the final recommendation and per-objective
// scores. When the submission sits at FOR RECOMMENDATION the save is also
// the submit: the pipeline advances to PENDING RECOMMENDATION APPROVAL.
// At any other recommendation-stage status the save amends in place.
func (s *Service) SaveRecommendation(ctx context.Context, tenantID, actorID, submissionID string, input RecommendationInput, extensionEnd *time.Time) (SaveResult, error) {
	sub, err := s.Get(ctx, tenantID, submissionID)
	if err != nil {
		return SaveResult{}, err
	}
	status, ok := workflow.Normalize(sub.Status)
	if !ok {
		return SaveResult{}, ErrUnknownStatus
	}
	if !InRecommendationStage(status) {
		return SaveResult{}, fmt.Errorf("%w: %q does not accept a recommendation", workflow.ErrInvalidTransition, status)
	}
	if err := ValidateRecommendation(input); err != nil {
		return SaveResult{}, err
	}
	input.FinalRecommendation = NormalizeRecommendation(input.FinalRecommendation)

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    UPDATE da_submissions
    SET final_recommendation = $1, extension_end_date = $2, updated_at = now()
    WHERE tenant_id = $3 AND id = $4
  `, input.FinalRecommendation, extensionEnd, tenantID, submissionID); err != nil {
		return SaveResult{}, err
	}

	for _, line := range input.Objectives {
		tag, err := tx.Exec(ctx, `
      UPDATE da_objectives
      SET actual_performance = $1, remarks = $2
      WHERE tenant_id = $3 AND submission_id = $4 AND id = $5
    `, ClampScore(line.ActualPerformance), line.Remarks, tenantID, submissionID, line.ID)
		if err != nil {
			return SaveResult{}, err
		}
		if tag.RowsAffected() == 0 {
			return SaveResult{}, fmt.Errorf("objective %s does not belong to submission %s", line.ID, submissionID)
		}
	}

	advanced := false
	if status == workflow.StatusForRecommendation {
		next, err := workflow.Next(status, workflow.ActionRecommend)
		if err != nil {
			return SaveResult{}, err
		}
		if err := updateStatusTx(ctx, tx, tenantID, submissionID, next); err != nil {
			return SaveResult{}, err
		}
		if err := recordEventTx(ctx, tx, tenantID, submissionID, status.String(), next.String(), string(workflow.ActionRecommend), actorID, ""); err != nil {
			return SaveResult{}, err
		}
		advanced = true
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveResult{}, err
	}

	saved, err := s.Get(ctx, tenantID, submissionID)
	if err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Submission: saved, Advanced: advanced}, nil
}

func updateStatusTx(ctx context.Context, tx pgx.Tx, tenantID, submissionID string, status workflow.Status) error {
	_, err := tx.Exec(ctx, `
    UPDATE da_submissions SET status = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3
  `, status.String(), tenantID, submissionID)
	return err
}

// Transition applies a workflow action to a submission inside one
// transaction, recording the event. Returns the submission as it stands
// afterwards.
func (s *Service) Transition(ctx context.Context, tenantID, actorID, submissionID string, action workflow.Action, remarks string) (Submission, error) {
	sub, err := s.Get(ctx, tenantID, submissionID)
	if err != nil {
		return Submission{}, err
	}
	status, ok := workflow.Normalize(sub.Status)
	if !ok {
		return Submission{}, ErrUnknownStatus
	}
	next, err := workflow.Next(status, action)
	if err != nil {
		return Submission{}, err
	}

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return Submission{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateStatusTx(ctx, tx, tenantID, submissionID, next); err != nil {
		return Submission{}, err
	}
	if err := recordEventTx(ctx, tx, tenantID, submissionID, status.String(), next.String(), string(action), actorID, remarks); err != nil {
		return Submission{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Submission{}, err
	}

	sub.Status = next.String()
	return sub, nil
}

// Resubmit re-validates the corrected recommendation and moves the
// submission out of AWAITING RECOMMENDATION RESUBMISSION.
func (s *Service) Resubmit(ctx context.Context, tenantID, actorID, submissionID string, input RecommendationInput, extensionEnd *time.Time) (Submission, error) {
	sub, err := s.Get(ctx, tenantID, submissionID)
	if err != nil {
		return Submission{}, err
	}
	status, ok := workflow.Normalize(sub.Status)
	if !ok {
		return Submission{}, ErrUnknownStatus
	}
	if !workflow.CanResubmit(workflow.FamilyDARecommendation, status) {
		return Submission{}, fmt.Errorf("%w: %q does not accept a resubmission", workflow.ErrInvalidTransition, status)
	}
	if _, err := s.SaveRecommendation(ctx, tenantID, actorID, submissionID, input, extensionEnd); err != nil {
		return Submission{}, err
	}
	return s.Transition(ctx, tenantID, actorID, submissionID, workflow.ActionResubmit, "")
}

// ApplyTemplate replaces the submission's objective set with the position's
// current KPI template in one transaction. Existing lines, including manual
// edits, are discarded; an empty template clears the set.
func (s *Service) ApplyTemplate(ctx context.Context, tenantID, actorID, submissionID, positionID string) (Submission, error) {
	sub, err := s.Get(ctx, tenantID, submissionID)
	if err != nil {
		return Submission{}, err
	}
	status, ok := workflow.Normalize(sub.Status)
	if !ok {
		return Submission{}, ErrUnknownStatus
	}
	if !workflow.CanUpdate(status) {
		return Submission{}, fmt.Errorf("%w: %q does not accept edits", workflow.ErrInvalidTransition, status)
	}

	templates, err := s.Catalog.PositionKPIs(ctx, tenantID, positionID)
	if err != nil {
		return Submission{}, err
	}
	lines := ObjectivesFromTemplate(templates)

	tx, err := s.Store.DB.Begin(ctx)
	if err != nil {
		return Submission{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := replaceObjectivesTx(ctx, tx, tenantID, submissionID, lines); err != nil {
		return Submission{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Submission{}, err
	}
	return s.Get(ctx, tenantID, submissionID)
}

// EmployeeUserID resolves the user account behind the submission's subject
// employee, for notifications.
func (s *Service) EmployeeUserID(ctx context.Context, tenantID, employeeID string) (string, error) {
	var userID string
	err := s.Store.DB.QueryRow(ctx, `
    SELECT COALESCE(user_id::text, '') FROM employees WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

// Events lists the submission's status history, newest first.
func (s *Service) Events(ctx context.Context, tenantID, submissionID string) ([]Event, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, status_from, status_to, action, COALESCE(actor_id::text, ''), remarks, created_at
    FROM da_submission_events
    WHERE tenant_id = $1 AND submission_id = $2
    ORDER BY created_at DESC
  `, tenantID, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.StatusFrom, &e.StatusTo, &e.Action, &e.ActorID, &e.Remarks, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type Event struct {
	ID         string    `json:"id"`
	StatusFrom string    `json:"status_from,omitempty"`
	StatusTo   string    `json:"status_to"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
