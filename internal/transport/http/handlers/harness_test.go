package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hrflow/internal/app/server"
	"hrflow/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		FrontendDir:        "frontend/dist",
		Environment:        "test",
		SeedTenantName:     "Test Tenant",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
	}
}

// startApp boots the full application against TEST_DATABASE_URL, skipping
// the test when the database is not available.
func startApp(t *testing.T) (*server.App, *httptest.Server, config.Config) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return app, ts, cfg
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func seedTenantID(t *testing.T, app *server.App, name string) string {
	t.Helper()
	var tenantID string
	if err := app.DB.QueryRow(context.Background(), "SELECT id FROM tenants WHERE name = $1", name).Scan(&tenantID); err != nil {
		t.Fatalf("failed to load tenant: %v", err)
	}
	return tenantID
}

func seedPosition(t *testing.T, app *server.App, tenantID, title, department string, jobRate float64) string {
	t.Helper()
	var id string
	if err := app.DB.QueryRow(context.Background(), `
    INSERT INTO positions (tenant_id, title, department, sub_unit, job_rate, allowance)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, tenantID, title, department, "Operations", jobRate, 500.0).Scan(&id); err != nil {
		t.Fatalf("failed to create position: %v", err)
	}
	return id
}

func seedPositionKPI(t *testing.T, app *server.App, tenantID, positionID, name string, distribution float64) string {
	t.Helper()
	var id string
	if err := app.DB.QueryRow(context.Background(), `
    INSERT INTO position_kpis (tenant_id, position_id, objective_name, distribution_percentage, deliverable, target_percentage)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, tenantID, positionID, name, distribution, "monthly report", 100.0).Scan(&id); err != nil {
		t.Fatalf("failed to create position kpi: %v", err)
	}
	return id
}

func seedEmployee(t *testing.T, app *server.App, tenantID, positionID, employmentStatus string) string {
	t.Helper()
	email := fmt.Sprintf("employee-%d@example.com", time.Now().UnixNano())
	var id string
	if err := app.DB.QueryRow(context.Background(), `
    INSERT INTO employees (tenant_id, first_name, last_name, email, position_id, employment_status, probation_start_date, probation_end_date)
    VALUES ($1,$2,$3,$4,NULLIF($5,'')::uuid,$6,$7,$8)
    RETURNING id
  `, tenantID, "Jordan", "Rivera", email, positionID, employmentStatus,
		time.Now().AddDate(0, -3, 0), time.Now().AddDate(0, 3, 0)).Scan(&id); err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}
	return id
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, wantStatus int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if wantStatus != 0 && resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, url, wantStatus, resp.StatusCode, string(raw))
	}
	if wantStatus == 0 && resp.StatusCode >= 400 {
		t.Fatalf("%s %s: unexpected status %d: %s", method, url, resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body, 0)
}

func putJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPut, url, token, body, 0)
}

func patchJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPatch, url, token, body, 0)
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil, 0)
}

func decodeObject(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("failed to decode object: %v", err)
	}
	return payload
}

func objectField(t *testing.T, env envelope, field string) string {
	t.Helper()
	payload := decodeObject(t, env)
	value, _ := payload[field].(string)
	if value == "" {
		t.Fatalf("expected field %q in response", field)
	}
	return value
}
