package mda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrflow/internal/domain/dasub"
	"hrflow/internal/domain/workflow"
	"hrflow/internal/platform/querier"
)

var ErrNotFound = errors.New("advice not found")
var ErrUnknownStatus = errors.New("unknown advice status")

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type Service struct {
	Store       *Store
	Submissions *dasub.Service
}

func NewService(store *Store, submissions *dasub.Service) *Service {
	return &Service{Store: store, Submissions: submissions}
}

const adviceColumns = `
    id, reference_number, status, COALESCE(da_submission_id::text, ''), employee_id, employee_name,
    from_position_title, from_department, from_sub_unit, from_job_rate, from_allowance,
    to_position_title, to_department, to_sub_unit, nature_of_action, effective_date, created_at, updated_at`

func scanAdvice(row pgx.Row) (Advice, error) {
	var a Advice
	err := row.Scan(
		&a.ID, &a.ReferenceNumber, &a.Status, &a.DASubmissionID, &a.EmployeeID, &a.EmployeeName,
		&a.FromPositionTitle, &a.FromDepartment, &a.FromSubUnit, &a.FromJobRate, &a.FromAllowance,
		&a.ToPositionTitle, &a.ToDepartment, &a.ToSubUnit, &a.NatureOfAction, &a.EffectiveDate, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// PrefillFromDA builds an advice seed from an approved DA submission.
func (s *Service) PrefillFromDA(ctx context.Context, tenantID, submissionID string) (Prefill, error) {
	sub, err := s.Submissions.Get(ctx, tenantID, submissionID)
	if err != nil {
		return Prefill{}, err
	}
	return PrefillFromSubmission(sub)
}

// Create persists an advice. It enters the pipeline at FOR PROCESSING.
func (s *Service) Create(ctx context.Context, tenantID, createdBy string, input CreateInput, effectiveDate *time.Time) (Advice, error) {
	if input.EmployeeID == "" {
		return Advice{}, errors.New("employee is required")
	}
	if input.ToPositionTitle == "" {
		return Advice{}, errors.New("target position title is required")
	}
	if input.NatureOfAction == "" {
		return Advice{}, errors.New("nature of action is required")
	}

	var employeeName string
	if err := s.Store.DB.QueryRow(ctx, `
    SELECT first_name || ' ' || last_name FROM employees WHERE tenant_id = $1 AND id = $2
  `, tenantID, input.EmployeeID).Scan(&employeeName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Advice{}, errors.New("employee not found")
		}
		return Advice{}, err
	}

	status, err := workflow.NextFor(workflow.FamilyMDA, workflow.StatusDraft, workflow.ActionSubmit)
	if err != nil {
		return Advice{}, err
	}

	now := time.Now().UTC()
	var count int
	if err := s.Store.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM mda_advices WHERE tenant_id = $1 AND date_part('year', created_at) = $2
  `, tenantID, now.Year()).Scan(&count); err != nil {
		return Advice{}, err
	}
	reference := fmt.Sprintf("MDA-%d-%04d", now.Year(), count+1)

	var id string
	if err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO mda_advices (
      tenant_id, reference_number, status, da_submission_id, employee_id, employee_name,
      from_position_title, from_department, from_sub_unit, from_job_rate, from_allowance,
      to_position_title, to_department, to_sub_unit, nature_of_action, effective_date, created_by
    ) VALUES ($1,$2,$3,NULLIF($4,'')::uuid,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
    RETURNING id
  `, tenantID, reference, status.String(), input.DASubmissionID, input.EmployeeID, employeeName,
		input.FromPositionTitle, input.FromDepartment, input.FromSubUnit, input.FromJobRate, input.FromAllowance,
		input.ToPositionTitle, input.ToDepartment, input.ToSubUnit, input.NatureOfAction, effectiveDate, createdBy,
	).Scan(&id); err != nil {
		return Advice{}, err
	}
	return s.Get(ctx, tenantID, id)
}

func (s *Service) Get(ctx context.Context, tenantID, adviceID string) (Advice, error) {
	advice, err := scanAdvice(s.Store.DB.QueryRow(ctx, `
    SELECT`+adviceColumns+`
    FROM mda_advices
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, adviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Advice{}, ErrNotFound
	}
	return advice, err
}

func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter, limit, offset int) (ListResult, error) {
	where := " WHERE tenant_id = $1"
	args := []any{tenantID}

	if status, ok := workflow.Normalize(filter.Status); ok && filter.Status != "" {
		args = append(args, status.String())
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (reference_number ILIKE $%d OR employee_name ILIKE $%d OR to_position_title ILIKE $%d)", n, n, n)
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, filter.EndDate.AddDate(0, 0, 1))
		where += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	var total int
	if err := s.Store.DB.QueryRow(ctx, "SELECT COUNT(1) FROM mda_advices"+where, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	query := "SELECT" + adviceColumns + " FROM mda_advices" + where + " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	var advices []Advice
	for rows.Next() {
		advice, err := scanAdvice(rows)
		if err != nil {
			return ListResult{}, err
		}
		advices = append(advices, advice)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}
	return ListResult{Advices: advices, Total: total}, nil
}

// Update amends the mutable advice fields while the status still allows it.
func (s *Service) Update(ctx context.Context, tenantID, adviceID string, input UpdateInput, effectiveDate *time.Time) (Advice, error) {
	advice, err := s.Get(ctx, tenantID, adviceID)
	if err != nil {
		return Advice{}, err
	}
	status, ok := workflow.Normalize(advice.Status)
	if !ok {
		return Advice{}, ErrUnknownStatus
	}
	if !workflow.CanUpdate(status) {
		return Advice{}, fmt.Errorf("%w: %q does not accept edits", workflow.ErrInvalidTransition, status)
	}

	if _, err := s.Store.DB.Exec(ctx, `
    UPDATE mda_advices
    SET nature_of_action = COALESCE(NULLIF($1, ''), nature_of_action),
        effective_date = COALESCE($2, effective_date),
        updated_at = now()
    WHERE tenant_id = $3 AND id = $4
  `, input.NatureOfAction, effectiveDate, tenantID, adviceID); err != nil {
		return Advice{}, err
	}
	return s.Get(ctx, tenantID, adviceID)
}

// Transition moves an advice along the processing pipeline. Completing an
// advice that was cut from a DA submission also completes the submission.
func (s *Service) Transition(ctx context.Context, tenantID, actorID, adviceID string, action workflow.Action) (Advice, error) {
	advice, err := s.Get(ctx, tenantID, adviceID)
	if err != nil {
		return Advice{}, err
	}
	status, ok := workflow.Normalize(advice.Status)
	if !ok {
		return Advice{}, ErrUnknownStatus
	}
	next, err := workflow.NextFor(workflow.FamilyMDA, status, action)
	if err != nil {
		return Advice{}, err
	}

	if _, err := s.Store.DB.Exec(ctx, `
    UPDATE mda_advices SET status = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3
  `, next.String(), tenantID, adviceID); err != nil {
		return Advice{}, err
	}

	if action == workflow.ActionProcess && advice.DASubmissionID != "" {
		if _, err := s.Submissions.Transition(ctx, tenantID, actorID, advice.DASubmissionID, workflow.ActionProcess, "advice "+advice.ReferenceNumber); err != nil && !errors.Is(err, workflow.ErrInvalidTransition) {
			return Advice{}, err
		}
	}
	if action == workflow.ActionComplete && advice.DASubmissionID != "" {
		if _, err := s.Submissions.Transition(ctx, tenantID, actorID, advice.DASubmissionID, workflow.ActionComplete, "advice "+advice.ReferenceNumber); err != nil && !errors.Is(err, workflow.ErrInvalidTransition) {
			return Advice{}, err
		}
	}

	advice.Status = next.String()
	return advice, nil
}
