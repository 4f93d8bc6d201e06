package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"argus/core"
)

// MockAlertStore is an in-memory alert store for tests. It mirrors the
// SQLite store's semantics including the optimistic version check, and can
// be configured to fail saves to exercise rollback paths.
type MockAlertStore struct {
	mu     sync.Mutex
	alerts map[string]*core.Alert // keyed by surrogate ID

	// FailSaves makes every Save return the given error when non-nil.
	FailSaves error
	// SaveCount tracks successful saves.
	SaveCount int
}

// NewMockAlertStore creates an empty in-memory store.
func NewMockAlertStore() *MockAlertStore {
	return &MockAlertStore{alerts: make(map[string]*core.Alert)}
}

func copyAlert(a *core.Alert) *core.Alert {
	clone := *a
	clone.Tags = append([]string(nil), a.Tags...)
	clone.Annotations.Transitions = append([]core.LifecycleTransition(nil), a.Annotations.Transitions...)
	return &clone
}

// FindByAlertIDAndSource implements the alert lookup by qualified ID.
func (m *MockAlertStore) FindByAlertIDAndSource(_ context.Context, alertID, source string) (*core.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.alerts {
		if a.AlertID == alertID && a.Source == source {
			return copyAlert(a), nil
		}
	}
	return nil, ErrAlertNotFound
}

// GetByID implements lookup by surrogate ID.
func (m *MockAlertStore) GetByID(_ context.Context, id string) (*core.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.alerts[id]; ok {
		return copyAlert(a), nil
	}
	return nil, ErrAlertNotFound
}

// Save implements insert-or-update with the optimistic version check.
func (m *MockAlertStore) Save(_ context.Context, alert *core.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves != nil {
		return m.FailSaves
	}

	if existing, ok := m.alerts[alert.ID]; ok {
		if existing.UpdatedSeq != alert.UpdatedSeq {
			return ErrStaleAlert
		}
		alert.UpdatedSeq++
	} else {
		for _, a := range m.alerts {
			if a.AlertID == alert.AlertID && a.Source == alert.Source {
				return ErrDuplicateAlert
			}
		}
		alert.UpdatedSeq = 0
	}

	m.alerts[alert.ID] = copyAlert(alert)
	m.SaveCount++
	return nil
}

// QueryActiveOrAcknowledged returns alerts eligible for the escalation sweep.
func (m *MockAlertStore) QueryActiveOrAcknowledged(_ context.Context) ([]*core.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.Alert
	for _, a := range m.alerts {
		if a.Status == core.AlertStatusActive || a.Status == core.AlertStatusAcknowledged {
			out = append(out, copyAlert(a))
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// QueryByWindow returns alerts created within [start, end).
func (m *MockAlertStore) QueryByWindow(_ context.Context, start, end time.Time) ([]*core.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.Alert
	for _, a := range m.alerts {
		if !a.CreatedAt.Before(start) && a.CreatedAt.Before(end) {
			out = append(out, copyAlert(a))
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// QueryStaleAcknowledged returns ACKNOWLEDGED alerts acknowledged before cutoff.
func (m *MockAlertStore) QueryStaleAcknowledged(_ context.Context, cutoff time.Time) ([]*core.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.Alert
	for _, a := range m.alerts {
		if a.Status == core.AlertStatusAcknowledged && a.AcknowledgedAt != nil && a.AcknowledgedAt.Before(cutoff) {
			out = append(out, copyAlert(a))
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// CountBySourceSince counts alerts from one source created at or after since.
func (m *MockAlertStore) CountBySourceSince(_ context.Context, source string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.alerts {
		if a.Source == source && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// List returns all alerts sorted by creation time; filters are ignored
// beyond status, which is all the tests need.
func (m *MockAlertStore) List(_ context.Context, filters *core.AlertFilters) ([]*core.Alert, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.Alert
	for _, a := range m.alerts {
		if filters != nil && len(filters.Statuses) > 0 {
			matched := false
			for _, st := range filters.Statuses {
				if a.Status == st {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, copyAlert(a))
	}
	sortByCreatedAt(out)
	return out, int64(len(out)), nil
}

// Len returns the number of stored alerts.
func (m *MockAlertStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func sortByCreatedAt(alerts []*core.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})
}
