package shared

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// BracketForm holds a flattened multipart form whose repeated rows use
// bracket-indexed keys, e.g. objectives[0][id], objectives[0][remarks].
type BracketForm struct {
	scalars map[string]string
	rows    map[string]map[int]map[string]string
}

// MethodOverride returns the _method form field, uppercased, so POST
// bodies can tunnel PATCH updates.
func MethodOverride(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(r.FormValue("_method")))
}

// ParseBracketForm decodes url-encoded or multipart form values. Keys
// without brackets become scalars; name[i][field] keys become indexed rows.
// Malformed bracket keys are kept as scalars under their literal name.
func ParseBracketForm(values map[string][]string) *BracketForm {
	form := &BracketForm{
		scalars: map[string]string{},
		rows:    map[string]map[int]map[string]string{},
	}

	for key, list := range values {
		if len(list) == 0 {
			continue
		}
		value := list[0]

		name, index, field, ok := splitBracketKey(key)
		if !ok {
			form.scalars[key] = value
			continue
		}
		if form.rows[name] == nil {
			form.rows[name] = map[int]map[string]string{}
		}
		if form.rows[name][index] == nil {
			form.rows[name][index] = map[string]string{}
		}
		form.rows[name][index][field] = value
	}

	return form
}

func (f *BracketForm) Value(key string) string {
	return f.scalars[key]
}

func (f *BracketForm) Has(key string) bool {
	_, ok := f.scalars[key]
	return ok
}

// Rows returns the indexed rows under name in ascending index order.
// Gaps in the indexes are allowed; order is what matters.
func (f *BracketForm) Rows(name string) []map[string]string {
	indexed, ok := f.rows[name]
	if !ok {
		return nil
	}
	indexes := make([]int, 0, len(indexed))
	for index := range indexed {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	out := make([]map[string]string, 0, len(indexes))
	for _, index := range indexes {
		out = append(out, indexed[index])
	}
	return out
}

// splitBracketKey parses name[index][field] into its parts.
func splitBracketKey(key string) (name string, index int, field string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return "", 0, "", false
	}
	name = key[:open]
	rest := key[open:]

	firstClose := strings.IndexByte(rest, ']')
	if firstClose < 2 || !strings.HasPrefix(rest, "[") {
		return "", 0, "", false
	}
	index, err := strconv.Atoi(rest[1:firstClose])
	if err != nil || index < 0 {
		return "", 0, "", false
	}

	rest = rest[firstClose+1:]
	if !strings.HasPrefix(rest, "[") || !strings.HasSuffix(rest, "]") || len(rest) < 3 {
		return "", 0, "", false
	}
	field = rest[1 : len(rest)-1]
	if field == "" || strings.ContainsAny(field, "[]") {
		return "", 0, "", false
	}
	return name, index, field, true
}
