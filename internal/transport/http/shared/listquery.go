package shared

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ListQuery carries the query parameters shared by the workflow list
// endpoints. Pagination defaults to on; `pagination=false` requests the
// whole result set.
type ListQuery struct {
	Paginated      bool
	Page           int
	PerPage        int
	Status         string
	ApprovalStatus string
	Search         string
	StartDate      *time.Time
	EndDate        *time.Time
	ViewMode       string
	Type           string
	DAStage        string
}

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

func ParseListQuery(r *http.Request) ListQuery {
	q := r.URL.Query()

	out := ListQuery{
		Paginated:      true,
		Page:           1,
		PerPage:        defaultPerPage,
		Status:         strings.TrimSpace(q.Get("status")),
		ApprovalStatus: strings.TrimSpace(q.Get("approval_status")),
		Search:         strings.TrimSpace(q.Get("search")),
		ViewMode:       strings.TrimSpace(q.Get("view_mode")),
		Type:           strings.TrimSpace(q.Get("type")),
		DAStage:        strings.TrimSpace(q.Get("da_stage")),
	}

	if raw := q.Get("pagination"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			out.Paginated = parsed
		}
	}
	if raw := q.Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			out.Page = v
		}
	}
	if raw := q.Get("per_page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			out.PerPage = v
		}
	}
	if out.PerPage > maxPerPage {
		out.PerPage = maxPerPage
	}

	if parsed, err := ParseDate(q.Get("start_date")); err == nil && !parsed.IsZero() {
		out.StartDate = &parsed
	}
	if parsed, err := ParseDate(q.Get("end_date")); err == nil && !parsed.IsZero() {
		out.EndDate = &parsed
	}

	return out
}

// Limit returns the SQL limit for the query; 0 means unpaged.
func (q ListQuery) Limit() int {
	if !q.Paginated {
		return 0
	}
	return q.PerPage
}

func (q ListQuery) Offset() int {
	if !q.Paginated {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// Meta is the pagination block attached to paginated list responses.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func (q ListQuery) Meta(total int) *Meta {
	if !q.Paginated {
		return nil
	}
	pages := total / q.PerPage
	if total%q.PerPage != 0 {
		pages++
	}
	return &Meta{Page: q.Page, PerPage: q.PerPage, Total: total, TotalPages: pages}
}
