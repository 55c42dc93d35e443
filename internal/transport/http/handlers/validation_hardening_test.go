package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"hrflow/internal/domain/auth"
)

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	_, ts, _ := startApp(t)
	client := ts.Client()

	for _, path := range []string{
		"/api/v1/form-submissions",
		"/api/v1/probationary-evaluations",
		"/api/v1/mda",
		"/api/v1/admin/metrics",
	} {
		env := doJSON(t, client, "GET", ts.URL+path, "", nil, http.StatusUnauthorized)
		if env.Error == nil || env.Error.Code != "unauthorized" {
			t.Fatalf("%s: expected unauthorized error, got %+v", path, env.Error)
		}
	}
}

func TestSubmissionCreateValidation(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Assessor Aide", "Assessor", 16500)
	employeeID := seedEmployee(t, app, tenantID, positionID, "regular")

	// Missing employee and target position.
	env := doJSON(t, client, "POST", ts.URL+"/api/v1/form-submissions", token, map[string]any{}, http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}

	// Unparseable start date.
	env = doJSON(t, client, "POST", ts.URL+"/api/v1/form-submissions", token, map[string]any{
		"employee_id":    employeeID,
		"to_position_id": positionID,
		"start_date":     "31-12-2026",
	}, http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error for bad date, got %+v", env.Error)
	}

	// End date before start date.
	env = doJSON(t, client, "POST", ts.URL+"/api/v1/form-submissions", token, map[string]any{
		"employee_id":    employeeID,
		"to_position_id": positionID,
		"start_date":     "2026-12-01",
		"end_date":       "2026-11-01",
	}, http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error for inverted range, got %+v", env.Error)
	}
}

func TestEvaluationRequiresProbationStart(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Midwife I", "Health Office", 21000)
	seedPositionKPI(t, app, tenantID, positionID, "Maternal visits", 100)
	employeeID := seedEmployee(t, app, tenantID, positionID, "probationary")

	env := doJSON(t, client, "POST", ts.URL+"/api/v1/probationary-evaluations", token, map[string]any{
		"employee_id":   employeeID,
		"rating_period": "1st to 3rd month",
	}, http.StatusBadRequest)
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %+v", env.Error)
	}
	details, _ := env.Error.Details.(map[string]any)
	fields, _ := details["fields"].([]any)
	found := false
	for _, item := range fields {
		detail, _ := item.(map[string]any)
		if detail["reason"] == "probation start date is required" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected probation start date reason, got %v", env.Error.Details)
	}
}

func TestEvaluationMalformedEmployeeIDIsValidationError(t *testing.T) {
	_, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	for _, employeeID := range []string{"", "not-a-uuid"} {
		env := doJSON(t, client, "POST", ts.URL+"/api/v1/probationary-evaluations", token, map[string]any{
			"employee_id":          employeeID,
			"rating_period":        "1st to 3rd month",
			"probation_start_date": "2026-06-01",
		}, http.StatusBadRequest)
		if env.Error == nil || env.Error.Code != "validation_error" {
			t.Fatalf("expected validation_error for employee_id %q, got %+v", employeeID, env.Error)
		}
	}
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	_, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	paths := []string{
		"/api/v1/form-submissions?status=NO SUCH STATUS",
		"/api/v1/form-submissions?approval_status=NO SUCH STATUS",
		"/api/v1/probationary-evaluations?status=NO SUCH STATUS",
	}
	for _, path := range paths {
		env := doJSON(t, client, "GET", ts.URL+strings.ReplaceAll(path, " ", "%20"), token, nil, http.StatusBadRequest)
		if env.Error == nil || env.Error.Code != "validation_error" {
			t.Fatalf("expected validation_error for %s, got %+v", path, env.Error)
		}
	}
}

func TestIllegalTransitionIsConflict(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Licensing Officer", "Permits", 25000)
	seedPositionKPI(t, app, tenantID, positionID, "Permit turnaround", 100)
	employeeID := seedEmployee(t, app, tenantID, positionID, "regular")

	resp := doJSON(t, client, "POST", ts.URL+"/api/v1/form-submissions", token, map[string]any{
		"employee_id":    employeeID,
		"to_position_id": positionID,
	}, 201)
	submissionID := objectField(t, resp, "id")

	// Fresh submissions sit at FOR RECOMMENDATION; approval is two steps away.
	env := doJSON(t, client, "POST", ts.URL+"/api/v1/form-submissions/"+submissionID+"/approve", token, map[string]any{}, http.StatusConflict)
	if env.Error == nil || env.Error.Code != "invalid_state" {
		t.Fatalf("expected invalid_state, got %+v", env.Error)
	}
}

func TestEmployeeRoleCannotApprove(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	ctx := context.Background()
	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Clerk II", "Records", 17000)
	seedPositionKPI(t, app, tenantID, positionID, "Filing accuracy", 100)
	employeeID := seedEmployee(t, app, tenantID, positionID, "regular")

	var employeeRoleID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, auth.RoleEmployee).Scan(&employeeRoleID); err != nil {
		t.Fatalf("failed to load employee role: %v", err)
	}
	email := fmt.Sprintf("rank-and-file-%d@example.com", time.Now().UnixNano())
	password := "Employee123!"
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if _, err := app.DB.Exec(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id)
    VALUES ($1,$2,$3,$4)
  `, tenantID, email, hash, employeeRoleID); err != nil {
		t.Fatalf("failed to create employee user: %v", err)
	}

	resp := doJSON(t, client, "POST", ts.URL+"/api/v1/form-submissions", adminToken, map[string]any{
		"employee_id":    employeeID,
		"to_position_id": positionID,
	}, 201)
	submissionID := objectField(t, resp, "id")

	employeeToken := login(t, client, ts.URL, email, password)
	env := doJSON(t, client, "POST", ts.URL+"/api/v1/form-submissions/"+submissionID+"/approve", employeeToken, map[string]any{}, http.StatusForbidden)
	if env.Error == nil {
		t.Fatal("expected a forbidden error envelope")
	}

	// Reading is still allowed; the record must advertise no privileged
	// actions to this caller.
	detail := decodeObject(t, getJSON(t, client, ts.URL+"/api/v1/form-submissions/"+submissionID, employeeToken))
	actions, _ := detail["actions"].(map[string]any)
	if actions == nil {
		t.Fatal("expected actions on the submission")
	}
	if actions["can_cancel"] == true {
		t.Fatal("employee role must not be offered cancel")
	}
}

func TestEvaluationFormUpdateRequiresMethodOverride(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Social Welfare Aide", "DSWD", 16000)
	seedPositionKPI(t, app, tenantID, positionID, "Case visits", 100)
	employeeID := seedEmployee(t, app, tenantID, positionID, "probationary")

	resp := doJSON(t, client, "POST", ts.URL+"/api/v1/probationary-evaluations", token, map[string]any{
		"employee_id":          employeeID,
		"rating_period":        "1st to 3rd month",
		"probation_start_date": "2026-02-01",
	}, 201)
	evaluationID := objectField(t, resp, "id")

	body := strings.NewReader("overall_remarks=no+override")
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/probationary-evaluations/"+evaluationID, body)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	httpResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer httpResp.Body.Close()
	raw, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d: %s", httpResp.StatusCode, string(raw))
	}
	if !bytes.Contains(raw, []byte("method_not_allowed")) {
		t.Fatalf("expected method_not_allowed code, got %s", string(raw))
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	_, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	padding := strings.Repeat("x", int(cfg.MaxBodyBytes)+1)
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/form-submissions", strings.NewReader(`{"employee_id":"`+padding+`"}`))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge && resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected oversized body rejection, got %d", resp.StatusCode)
	}
}
