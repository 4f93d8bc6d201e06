package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"argus/core"
)

const alertColumns = `id, alert_id, source, title, message, severity, category, tags,
	status, lifecycle_stage, created_at, triggered_at, acknowledged_at, resolved_at,
	acknowledged_by, resolved_by, resolution_comment, context_data, labels, annotations, updated_seq`

// FindByAlertIDAndSource returns the alert for a (alert_id, source) pair, or
// ErrAlertNotFound.
func (s *SQLite) FindByAlertIDAndSource(ctx context.Context, alertID, source string) (*core.Alert, error) {
	row := s.ReadDB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM alerts WHERE alert_id = ? AND source = ?", alertColumns),
		alertID, source)
	return scanAlert(row)
}

// GetByID returns the alert with the given surrogate ID, or ErrAlertNotFound.
func (s *SQLite) GetByID(ctx context.Context, id string) (*core.Alert, error) {
	row := s.ReadDB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM alerts WHERE id = ?", alertColumns), id)
	return scanAlert(row)
}

// Save persists the alert, inserting or updating by surrogate ID. Updates are
// version-checked: if the row's updated_seq no longer matches the alert's,
// the save fails with ErrStaleAlert and nothing is written. On success the
// alert's UpdatedSeq is advanced to match the stored row.
func (s *SQLite) Save(ctx context.Context, alert *core.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}

	tags, err := json.Marshal(alert.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	contextData, err := json.Marshal(alert.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}
	labels, err := json.Marshal(alert.Labels)
	if err != nil {
		return fmt.Errorf("failed to marshal labels: %w", err)
	}
	annotations, err := json.Marshal(alert.Annotations)
	if err != nil {
		return fmt.Errorf("failed to marshal annotations: %w", err)
	}

	tx, err := s.WriteDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM alerts WHERE id = ?)", alert.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check alert existence: %w", err)
	}

	if exists {
		res, err := tx.ExecContext(ctx, `
			UPDATE alerts SET
				alert_id = ?, source = ?, title = ?, message = ?, severity = ?, category = ?,
				tags = ?, status = ?, lifecycle_stage = ?, created_at = ?, triggered_at = ?,
				acknowledged_at = ?, resolved_at = ?, acknowledged_by = ?, resolved_by = ?,
				resolution_comment = ?, context_data = ?, labels = ?, annotations = ?,
				updated_seq = updated_seq + 1
			WHERE id = ? AND updated_seq = ?`,
			alert.AlertID, alert.Source, alert.Title, alert.Message,
			alert.Severity.String(), alert.Category.String(), string(tags),
			alert.Status.String(), alert.Stage.String(),
			alert.CreatedAt.UTC(), alert.TriggeredAt.UTC(),
			nullableTime(alert.AcknowledgedAt), nullableTime(alert.ResolvedAt),
			alert.AcknowledgedBy, alert.ResolvedBy, alert.ResolutionComment,
			string(contextData), string(labels), string(annotations),
			alert.ID, alert.UpdatedSeq)
		if err != nil {
			return fmt.Errorf("failed to update alert %s: %w", alert.AlertID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if affected == 0 {
			return ErrStaleAlert
		}
		alert.UpdatedSeq++
	} else {
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO alerts (%s)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`, alertColumns),
			alert.ID, alert.AlertID, alert.Source, alert.Title, alert.Message,
			alert.Severity.String(), alert.Category.String(), string(tags),
			alert.Status.String(), alert.Stage.String(),
			alert.CreatedAt.UTC(), alert.TriggeredAt.UTC(),
			nullableTime(alert.AcknowledgedAt), nullableTime(alert.ResolvedAt),
			alert.AcknowledgedBy, alert.ResolvedBy, alert.ResolutionComment,
			string(contextData), string(labels), string(annotations))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return ErrDuplicateAlert
			}
			return fmt.Errorf("failed to insert alert %s: %w", alert.AlertID, err)
		}
		alert.UpdatedSeq = 0
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert save: %w", err)
	}
	return nil
}

// QueryActiveOrAcknowledged returns all alerts the escalation sweep considers.
func (s *SQLite) QueryActiveOrAcknowledged(ctx context.Context) ([]*core.Alert, error) {
	rows, err := s.ReadDB.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM alerts WHERE status IN (?, ?) ORDER BY created_at", alertColumns),
		core.AlertStatusActive.String(), core.AlertStatusAcknowledged.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer closeRows(s, rows)
	return scanAlerts(rows)
}

// QueryByWindow returns alerts created within [start, end).
func (s *SQLite) QueryByWindow(ctx context.Context, start, end time.Time) ([]*core.Alert, error) {
	rows, err := s.ReadDB.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM alerts WHERE created_at >= ? AND created_at < ? ORDER BY created_at", alertColumns),
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts by window: %w", err)
	}
	defer closeRows(s, rows)
	return scanAlerts(rows)
}

// QueryStaleAcknowledged returns ACKNOWLEDGED alerts acknowledged before the
// cutoff, for the auto-resolve sweep.
func (s *SQLite) QueryStaleAcknowledged(ctx context.Context, cutoff time.Time) ([]*core.Alert, error) {
	rows, err := s.ReadDB.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM alerts
			WHERE status = ? AND acknowledged_at IS NOT NULL AND acknowledged_at < ?
			ORDER BY acknowledged_at`, alertColumns),
		core.AlertStatusAcknowledged.String(), cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query stale alerts: %w", err)
	}
	defer closeRows(s, rows)
	return scanAlerts(rows)
}

// CountBySourceSince counts alerts from one source created at or after the
// given instant. Used by the repeated-occurrence escalation trigger.
func (s *SQLite) CountBySourceSince(ctx context.Context, source string, since time.Time) (int, error) {
	var count int
	err := s.ReadDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE source = ? AND created_at >= ?",
		source, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts for source %s: %w", source, err)
	}
	return count, nil
}

// List returns alerts matching the filters plus the total match count.
func (s *SQLite) List(ctx context.Context, filters *core.AlertFilters) ([]*core.Alert, int64, error) {
	if filters == nil {
		filters = core.NewAlertFilters()
	}

	where, args := buildAlertWhere(filters)

	var total int64
	countQuery := "SELECT COUNT(*) FROM alerts" + where
	if err := s.ReadDB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	sortBy := "created_at"
	switch filters.SortBy {
	case "severity", "status", "created_at":
		sortBy = filters.SortBy
	}
	order := "DESC"
	if strings.EqualFold(filters.SortOrder, "asc") {
		order = "ASC"
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit < 1 {
		limit = 100
	}

	query := fmt.Sprintf("SELECT %s FROM alerts%s ORDER BY %s %s LIMIT ? OFFSET ?",
		alertColumns, where, sortBy, order)
	args = append(args, limit, (page-1)*limit)

	rows, err := s.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer closeRows(s, rows)

	alerts, err := scanAlerts(rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func buildAlertWhere(filters *core.AlertFilters) (string, []any) {
	var clauses []string
	var args []any

	if len(filters.Severities) > 0 {
		clauses = append(clauses, inClause("severity", len(filters.Severities)))
		for _, v := range filters.Severities {
			args = append(args, v.String())
		}
	}
	if len(filters.Statuses) > 0 {
		clauses = append(clauses, inClause("status", len(filters.Statuses)))
		for _, v := range filters.Statuses {
			args = append(args, v.String())
		}
	}
	if len(filters.Sources) > 0 {
		clauses = append(clauses, inClause("source", len(filters.Sources)))
		for _, v := range filters.Sources {
			args = append(args, v)
		}
	}
	if len(filters.Categories) > 0 {
		clauses = append(clauses, inClause("category", len(filters.Categories)))
		for _, v := range filters.Categories {
			args = append(args, v.String())
		}
	}
	if filters.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR message LIKE ?)")
		pattern := "%" + filters.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filters.CreatedAfter != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filters.CreatedAfter.UTC())
	}
	if filters.CreatedBefore != nil {
		clauses = append(clauses, "created_at < ?")
		args = append(args, filters.CreatedBefore.UTC())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func inClause(column string, n int) string {
	return fmt.Sprintf("%s IN (%s?)", column, strings.Repeat("?, ", n-1))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*core.Alert, error) {
	var a core.Alert
	var severity, category, status, stage string
	var tags, contextData, labels, annotations string
	var ackAt, resAt sql.NullTime

	err := row.Scan(&a.ID, &a.AlertID, &a.Source, &a.Title, &a.Message,
		&severity, &category, &tags, &status, &stage,
		&a.CreatedAt, &a.TriggeredAt, &ackAt, &resAt,
		&a.AcknowledgedBy, &a.ResolvedBy, &a.ResolutionComment,
		&contextData, &labels, &annotations, &a.UpdatedSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	a.Severity = core.Severity(severity)
	a.Category = core.Category(category)
	a.Status = core.AlertStatus(status)
	a.Stage = core.LifecycleStage(stage)
	if ackAt.Valid {
		t := ackAt.Time
		a.AcknowledgedAt = &t
	}
	if resAt.Valid {
		t := resAt.Time
		a.ResolvedAt = &t
	}

	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", a.AlertID, err)
	}
	if err := json.Unmarshal([]byte(contextData), &a.Context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context for %s: %w", a.AlertID, err)
	}
	if err := json.Unmarshal([]byte(labels), &a.Labels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal labels for %s: %w", a.AlertID, err)
	}
	if err := json.Unmarshal([]byte(annotations), &a.Annotations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal annotations for %s: %w", a.AlertID, err)
	}

	return &a, nil
}

func scanAlerts(rows *sql.Rows) ([]*core.Alert, error) {
	var alerts []*core.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

func closeRows(s *SQLite, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		s.Logger.Debugf("Failed to close rows: %v", err)
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
