package core

import (
	"time"
)

// AlertFilters defines the filtering options for alert list queries
type AlertFilters struct {
	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Basic filters
	Search     string        `json:"search"` // text search across title and message
	Severities []Severity    `json:"severities"`
	Statuses   []AlertStatus `json:"statuses"`
	Sources    []string      `json:"sources"`
	Categories []Category    `json:"categories"`
	Tags       []string      `json:"tags"`

	// Date range filters on created_at
	CreatedAfter  *time.Time `json:"created_after"`
	CreatedBefore *time.Time `json:"created_before"`

	// Sorting
	SortBy    string `json:"sort_by"`    // created_at, severity, status
	SortOrder string `json:"sort_order"` // asc, desc
}

// NewAlertFilters creates a new AlertFilters with default values
func NewAlertFilters() *AlertFilters {
	return &AlertFilters{
		Page:      1,
		Limit:     100,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}
