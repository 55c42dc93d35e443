package catalog

import (
	"encoding/json"
	"testing"
)

func TestExtractPositionIDFallbackOrder(t *testing.T) {
	cases := []struct {
		name    string
		details string
		want    string
	}{
		{
			"nested position details wins over everything",
			`{"position_details":{"position":{"id":"p-nested"}},"position_id":"p-flat","position":{"id":"p-obj"}}`,
			"p-nested",
		},
		{
			"position_details.position_id beats top level keys",
			`{"position_details":{"position_id":"p-details"},"position":{"id":"p-obj"},"position_id":"p-flat"}`,
			"p-details",
		},
		{
			"position.id beats flat position_id",
			`{"position":{"id":"p-obj"},"position_id":"p-flat"}`,
			"p-obj",
		},
		{
			"flat position_id as last resort",
			`{"position_id":"p-flat"}`,
			"p-flat",
		},
		{
			"no candidates",
			`{"department":"Finance"}`,
			"",
		},
		{
			"non-string candidates are skipped",
			`{"position_details":{"position":{"id":42}},"position_id":"p-flat"}`,
			"p-flat",
		},
	}

	for _, tc := range cases {
		got := ExtractPositionID(json.RawMessage(tc.details))
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestExtractPositionIDEmptyAndInvalid(t *testing.T) {
	if got := ExtractPositionID(nil); got != "" {
		t.Fatalf("nil details: got %q", got)
	}
	if got := ExtractPositionID(json.RawMessage(`not json`)); got != "" {
		t.Fatalf("invalid details: got %q", got)
	}
}

func TestFieldsForPosition(t *testing.T) {
	fields := FieldsForPosition(Position{
		ID:         "p1",
		Title:      "Senior Analyst",
		Department: "Finance",
		SubUnit:    "Treasury",
		JobRate:    42000,
		Allowance:  2500,
	})
	if fields.PositionID != "p1" || fields.Title != "Senior Analyst" || fields.Department != "Finance" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if fields.SubUnit != "Treasury" || fields.JobRate != 42000 || fields.Allowance != 2500 {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestFieldsForEmployeeWithoutPosition(t *testing.T) {
	fields := FieldsForEmployee(Employee{ID: "e1", FirstName: "Ana", LastName: "Reyes"}, Position{})
	if fields.EmployeeID != "e1" || fields.EmployeeName != "Ana Reyes" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if fields.PositionID != "" || fields.PositionTitle != "" || fields.Department != "" {
		t.Fatalf("expected empty position fields, got %+v", fields)
	}
}
