package pdp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hrflow/internal/platform/querier"
)

var ErrNotFound = errors.New("task not found")
var ErrTitleRequired = errors.New("task title is required")
var ErrSubmissionRequired = errors.New("da submission is required")

var validStatus = map[string]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

// ValidStatus reports whether raw is one of the task lifecycle statuses.
func ValidStatus(raw string) bool {
	return validStatus[raw]
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

const taskColumns = `
    id, da_submission_id, title, COALESCE(description, ''), due_date, status, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.DASubmissionID, &t.Title, &t.Description, &t.DueDate, &t.Status, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Service) Create(ctx context.Context, tenantID, createdBy string, input CreateInput, dueDate *time.Time) (Task, error) {
	if input.DASubmissionID == "" {
		return Task{}, ErrSubmissionRequired
	}
	if input.Title == "" {
		return Task{}, ErrTitleRequired
	}

	var exists bool
	if err := s.Store.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM da_submissions WHERE tenant_id = $1 AND id = $2)
  `, tenantID, input.DASubmissionID).Scan(&exists); err != nil {
		return Task{}, err
	}
	if !exists {
		return Task{}, ErrSubmissionRequired
	}

	var id string
	if err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO pdp_tasks (tenant_id, da_submission_id, title, description, due_date, status, created_by)
    VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
    RETURNING id
  `, tenantID, input.DASubmissionID, input.Title, input.Description, dueDate, StatusPending, createdBy).Scan(&id); err != nil {
		return Task{}, err
	}
	return s.Get(ctx, tenantID, id)
}

func (s *Service) Get(ctx context.Context, tenantID, taskID string) (Task, error) {
	task, err := scanTask(s.Store.DB.QueryRow(ctx, `
    SELECT`+taskColumns+`
    FROM pdp_tasks
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return task, err
}

// ListBySubmission returns every task tracked against one DA submission,
// oldest first.
func (s *Service) ListBySubmission(ctx context.Context, tenantID, submissionID string) ([]Task, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT`+taskColumns+`
    FROM pdp_tasks
    WHERE tenant_id = $1 AND da_submission_id = $2
    ORDER BY created_at ASC
  `, tenantID, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Service) Update(ctx context.Context, tenantID, taskID string, input UpdateInput, dueDate *time.Time) (Task, error) {
	if input.Status != "" && !ValidStatus(input.Status) {
		return Task{}, fmt.Errorf("unknown task status %q", input.Status)
	}

	tag, err := s.Store.DB.Exec(ctx, `
    UPDATE pdp_tasks
    SET title = COALESCE(NULLIF($1, ''), title),
        description = COALESCE(NULLIF($2, ''), description),
        due_date = COALESCE($3, due_date),
        status = COALESCE(NULLIF($4, ''), status),
        completed_at = CASE WHEN $4 = 'completed' THEN now() WHEN $4 IN ('pending', 'in_progress') THEN NULL ELSE completed_at END,
        updated_at = now()
    WHERE tenant_id = $5 AND id = $6
  `, input.Title, input.Description, dueDate, input.Status, tenantID, taskID)
	if err != nil {
		return Task{}, err
	}
	if tag.RowsAffected() == 0 {
		return Task{}, ErrNotFound
	}
	return s.Get(ctx, tenantID, taskID)
}

// Complete marks a task completed and stamps completed_at.
func (s *Service) Complete(ctx context.Context, tenantID, taskID string) (Task, error) {
	return s.Update(ctx, tenantID, taskID, UpdateInput{Status: StatusCompleted}, nil)
}
