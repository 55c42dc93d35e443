package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
)

func TestProbationaryEvaluationLifecycle(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Revenue Clerk", "Treasury", 17000)
	seedPositionKPI(t, app, tenantID, positionID, "Collection accuracy", 70)
	seedPositionKPI(t, app, tenantID, positionID, "Posting timeliness", 30)
	employeeID := seedEmployee(t, app, tenantID, positionID, "probationary")

	resp := doJSON(t, client, "POST", ts.URL+"/api/v1/probationary-evaluations", token, map[string]any{
		"employee_id":          employeeID,
		"rating_period":        "1st to 3rd month",
		"probation_start_date": "2026-06-01",
		"probation_end_date":   "2026-12-01",
	}, 201)
	evaluation := decodeObject(t, resp)
	evaluationID, _ := evaluation["id"].(string)
	if evaluationID == "" {
		t.Fatal("expected evaluation id")
	}
	if got := evaluation["status"]; got != "FOR RECOMMENDATION" {
		t.Fatalf("expected status FOR RECOMMENDATION, got %v", got)
	}
	objectives, ok := evaluation["objectives"].([]any)
	if !ok || len(objectives) != 2 {
		t.Fatalf("expected 2 templated objectives, got %v", evaluation["objectives"])
	}

	scores := make([]map[string]any, 0, len(objectives))
	for _, raw := range objectives {
		line := raw.(map[string]any)
		scores = append(scores, map[string]any{
			"id":                 line["id"],
			"actual_performance": 90,
			"remarks":            "consistent",
		})
	}
	resp = patchJSON(t, client, ts.URL+"/api/v1/probationary-evaluations/"+evaluationID, token, map[string]any{
		"overall_remarks": "Recommended for regularization",
		"objectives":      scores,
	})
	updated := decodeObject(t, resp)
	if updated["overall_remarks"] != "Recommended for regularization" {
		t.Fatalf("expected overall remarks to persist, got %v", updated["overall_remarks"])
	}

	for _, step := range []struct {
		action string
		want   string
	}{
		{"recommend", "PENDING RECOMMENDATION APPROVAL"},
		{"approve", "APPROVED"},
		{"complete", "COMPLETED"},
	} {
		resp = postJSON(t, client, ts.URL+"/api/v1/probationary-evaluations/"+evaluationID+"/"+step.action, token, map[string]any{})
		if got := decodeObject(t, resp)["status"]; got != step.want {
			t.Fatalf("after %s: expected status %q, got %v", step.action, step.want, got)
		}
	}
}

func TestEvaluationReturnThenResubmit(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Utility Worker", "General Services", 15000)
	seedPositionKPI(t, app, tenantID, positionID, "Facility upkeep", 100)
	employeeID := seedEmployee(t, app, tenantID, positionID, "probationary")

	resp := doJSON(t, client, "POST", ts.URL+"/api/v1/probationary-evaluations", token, map[string]any{
		"employee_id":          employeeID,
		"rating_period":        "4th to 6th month",
		"probation_start_date": "2026-03-01",
	}, 201)
	evaluationID := objectField(t, resp, "id")

	postJSON(t, client, ts.URL+"/api/v1/probationary-evaluations/"+evaluationID+"/recommend", token, map[string]any{})

	resp = postJSON(t, client, ts.URL+"/api/v1/probationary-evaluations/"+evaluationID+"/return", token, map[string]any{})
	if got := decodeObject(t, resp)["status"]; got != "AWAITING RESUBMISSION" {
		t.Fatalf("expected status AWAITING RESUBMISSION, got %v", got)
	}

	resp = postJSON(t, client, ts.URL+"/api/v1/probationary-evaluations/"+evaluationID+"/resubmit", token, map[string]any{
		"overall_remarks": "scores revisited",
	})
	if got := decodeObject(t, resp)["status"]; got != "PENDING RECOMMENDATION APPROVAL" {
		t.Fatalf("expected status PENDING RECOMMENDATION APPROVAL, got %v", got)
	}
}

// The browser form posts multipart with a _method=PATCH override and
// bracket-indexed objective rows; the handler must decode that shape.
func TestEvaluationMultipartFormUpdate(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Nurse I", "Health Office", 26000)
	seedPositionKPI(t, app, tenantID, positionID, "Patient triage", 100)
	employeeID := seedEmployee(t, app, tenantID, positionID, "probationary")

	resp := doJSON(t, client, "POST", ts.URL+"/api/v1/probationary-evaluations", token, map[string]any{
		"employee_id":          employeeID,
		"rating_period":        "1st to 3rd month",
		"probation_start_date": "2026-05-01",
	}, 201)
	evaluationID := objectField(t, resp, "id")
	evaluation := decodeObject(t, resp)
	line := evaluation["objectives"].([]any)[0].(map[string]any)
	lineID, _ := line["id"].(string)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("_method", "PATCH")
	_ = form.WriteField("overall_remarks", "updated through the form")
	_ = form.WriteField("objectives[0][id]", lineID)
	_ = form.WriteField("objectives[0][actual_performance]", "77.5")
	_ = form.WriteField("objectives[0][remarks]", "good progress")
	if err := form.Close(); err != nil {
		t.Fatalf("failed to close form: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/probationary-evaluations/"+evaluationID, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	httpResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer httpResp.Body.Close()
	raw, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", httpResp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	updated := decodeObject(t, env)
	if updated["overall_remarks"] != "updated through the form" {
		t.Fatalf("expected remarks from form, got %v", updated["overall_remarks"])
	}
	score := updated["objectives"].([]any)[0].(map[string]any)["actual_performance"]
	if score != 77.5 {
		t.Fatalf("expected actual_performance 77.5, got %v", score)
	}
}

func TestMyEvaluationsScopedToCaller(t *testing.T) {
	app, ts, cfg := startApp(t)
	client := ts.Client()
	token := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	tenantID := seedTenantID(t, app, cfg.SeedTenantName)
	positionID := seedPosition(t, app, tenantID, "Engineer I", "Engineering", 32000)
	seedPositionKPI(t, app, tenantID, positionID, "Project inspection", 100)
	employeeID := seedEmployee(t, app, tenantID, positionID, "probationary")

	doJSON(t, client, "POST", ts.URL+"/api/v1/probationary-evaluations", token, map[string]any{
		"employee_id":          employeeID,
		"rating_period":        "1st to 3rd month",
		"probation_start_date": "2026-04-01",
	}, 201)

	// The admin created it, so the "mine" view must include it.
	resp := getJSON(t, client, ts.URL+"/api/v1/me/probationary-evaluations", token)
	listing := decodeObject(t, resp)
	items, ok := listing["items"].([]any)
	if !ok || len(items) == 0 {
		t.Fatalf("expected at least one evaluation in the mine view, got %v", listing["items"])
	}
}
