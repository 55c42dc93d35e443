package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("catalog entity not found")

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

func (s *Service) ListPositions(ctx context.Context, tenantID, search string) ([]Position, error) {
	query := `
    SELECT id, title, department, sub_unit, job_rate, allowance, COALESCE(job_level_id::text, '')
    FROM positions
    WHERE tenant_id = $1
  `
	args := []any{tenantID}
	if search != "" {
		query += " AND (title ILIKE $2 OR department ILIKE $2 OR sub_unit ILIKE $2)"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY title"

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.Title, &p.Department, &p.SubUnit, &p.JobRate, &p.Allowance, &p.JobLevelID); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *Service) GetPosition(ctx context.Context, tenantID, positionID string) (Position, error) {
	var p Position
	err := s.Store.DB.QueryRow(ctx, `
    SELECT id, title, department, sub_unit, job_rate, allowance, COALESCE(job_level_id::text, '')
    FROM positions
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, positionID).Scan(&p.ID, &p.Title, &p.Department, &p.SubUnit, &p.JobRate, &p.Allowance, &p.JobLevelID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrNotFound
	}
	return p, err
}

func (s *Service) ListJobLevels(ctx context.Context, tenantID string) ([]JobLevel, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, name, salary_grade, monthly_rate
    FROM job_levels
    WHERE tenant_id = $1
    ORDER BY salary_grade
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []JobLevel
	for rows.Next() {
		var l JobLevel
		if err := rows.Scan(&l.ID, &l.Name, &l.SalaryGrade, &l.MonthlyRate); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	var e Employee
	err := s.Store.DB.QueryRow(ctx, `
    SELECT id, first_name, last_name, email, COALESCE(position_id::text, ''), employment_status,
           probation_start_date, probation_end_date, details
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(
		&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.PositionID, &e.EmploymentStatus,
		&e.ProbationStartDate, &e.ProbationEndDate, &e.Details,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return e, err
}

// EmployeeIDByUserID resolves the employee record behind a user account.
// Users without an employee record (service accounts) resolve to "".
func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var employeeID string
	err := s.Store.DB.QueryRow(ctx, `
    SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return employeeID, err
}

func (s *Service) ListProbationaryEmployees(ctx context.Context, tenantID, search string) ([]Employee, error) {
	query := `
    SELECT id, first_name, last_name, email, COALESCE(position_id::text, ''), employment_status,
           probation_start_date, probation_end_date, details
    FROM employees
    WHERE tenant_id = $1 AND employment_status = 'probationary'
  `
	args := []any{tenantID}
	if search != "" {
		query += " AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(
			&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.PositionID, &e.EmploymentStatus,
			&e.ProbationStartDate, &e.ProbationEndDate, &e.Details,
		); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (s *Service) PositionKPIs(ctx context.Context, tenantID, positionID string) ([]KPITemplate, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, position_id, objective_id, objective_name, distribution_percentage, deliverable, target_percentage
    FROM position_kpis
    WHERE tenant_id = $1 AND position_id = $2
    ORDER BY objective_name
  `, tenantID, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []KPITemplate
	for rows.Next() {
		var k KPITemplate
		if err := rows.Scan(&k.ID, &k.PositionID, &k.ObjectiveID, &k.ObjectiveName, &k.DistributionPercentage, &k.Deliverable, &k.TargetPercentage); err != nil {
			return nil, err
		}
		templates = append(templates, k)
	}
	return templates, rows.Err()
}

// ResolveEmployeePosition finds the position an employee currently holds:
// the employees.position_id column when set, otherwise the fallback paths
// inside the details document.
func (s *Service) ResolveEmployeePosition(ctx context.Context, tenantID, employeeID string) (Position, error) {
	employee, err := s.GetEmployee(ctx, tenantID, employeeID)
	if err != nil {
		return Position{}, err
	}
	positionID := employee.PositionID
	if positionID == "" {
		positionID = ExtractPositionID(employee.Details)
	}
	if positionID == "" {
		return Position{}, ErrNotFound
	}
	return s.GetPosition(ctx, tenantID, positionID)
}

// EmployeeFormFields derives the employee-selection dependent fields,
// tolerating employees whose position cannot be resolved.
func (s *Service) EmployeeFormFields(ctx context.Context, tenantID, employeeID string) (EmployeeFields, error) {
	employee, err := s.GetEmployee(ctx, tenantID, employeeID)
	if err != nil {
		return EmployeeFields{}, err
	}
	position, err := s.ResolveEmployeePosition(ctx, tenantID, employeeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return EmployeeFields{}, err
	}
	return FieldsForEmployee(employee, position), nil
}
