package catalog

import "encoding/json"

// positionIDPaths is the ordered list of locations a position id may occupy
// inside an employee's details document. Imported records disagree on where
// they put it, so the order below IS the contract: the first path holding a
// non-empty value wins, and reordering changes which position is picked when
// several are present.
//
//  1. position_details.position.id
//  2. position_details.position_id
//  3. position.id
//  4. position_id
var positionIDPaths = [][]string{
	{"position_details", "position", "id"},
	{"position_details", "position_id"},
	{"position", "id"},
	{"position_id"},
}

// ExtractPositionID resolves a position id from an employee details
// document. The employee row's own position_id column takes precedence and
// is checked by the caller; this handles the fallback chain for records
// where the column is empty.
func ExtractPositionID(details json.RawMessage) string {
	if len(details) == 0 {
		return ""
	}
	var doc map[string]any
	if err := json.Unmarshal(details, &doc); err != nil {
		return ""
	}
	for _, path := range positionIDPaths {
		if id := lookupString(doc, path); id != "" {
			return id
		}
	}
	return ""
}

func lookupString(doc map[string]any, path []string) string {
	current := any(doc)
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = node[key]
		if !ok {
			return ""
		}
	}
	value, _ := current.(string)
	return value
}

// FieldsForPosition maps a position row to the dependent fields a form
// derives from selecting it.
func FieldsForPosition(p Position) PositionFields {
	return PositionFields{
		PositionID: p.ID,
		Title:      p.Title,
		Department: p.Department,
		SubUnit:    p.SubUnit,
		JobRate:    p.JobRate,
		Allowance:  p.Allowance,
	}
}

// FieldsForEmployee maps an employee row, plus its resolved position, to the
// dependent fields a form derives from selecting it. The position may be
// zero when the employee has none resolvable.
func FieldsForEmployee(e Employee, p Position) EmployeeFields {
	fields := EmployeeFields{
		EmployeeID:   e.ID,
		EmployeeName: e.FirstName + " " + e.LastName,
	}
	if p.ID != "" {
		fields.PositionID = p.ID
		fields.PositionTitle = p.Title
		fields.Department = p.Department
	}
	return fields
}
