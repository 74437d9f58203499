// ABOUTME: Metric definitions and metric entry persistence for the SQLite store
// ABOUTME: Daily entries upsert on (metric, date); timestamped entries always append

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateMetric inserts a metric definition.
// Returns ErrDuplicate if the owner already has a metric with that name.
func (s *SQLiteStore) CreateMetric(ctx context.Context, metric *Metric) error {
	if metric.ID == "" {
		metric.ID = uuid.New().String()
	}
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (id, owner_id, name, unit, resolution, type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, metric.ID, metric.OwnerID, metric.Name, nullString(metric.Unit),
		string(metric.Resolution), string(metric.Type), formatTime(metric.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting metric: %w", err)
	}

	s.logger.Debug("created metric", "id", metric.ID, "name", metric.Name, "type", metric.Type)
	return nil
}

// GetMetric retrieves a metric by owner and name.
func (s *SQLiteStore) GetMetric(ctx context.Context, ownerID, name string) (*Metric, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, unit, resolution, type, created_at
		FROM metrics WHERE owner_id = ? AND name = ?
	`, ownerID, name)

	metric, err := scanMetric(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying metric: %w", err)
	}
	return metric, nil
}

// ListMetrics returns the owner's metrics ordered by name.
func (s *SQLiteStore) ListMetrics(ctx context.Context, ownerID string) ([]*Metric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, unit, resolution, type, created_at
		FROM metrics WHERE owner_id = ?
		ORDER BY name ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var metrics []*Metric
	for rows.Next() {
		metric, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		metrics = append(metrics, metric)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metric rows: %w", err)
	}
	return metrics, nil
}

// DeleteMetric removes a metric and every entry recorded against it.
func (s *SQLiteStore) DeleteMetric(ctx context.Context, ownerID, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM metrics WHERE owner_id = ? AND name = ?`, ownerID, name).Scan(&id)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying metric: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM metric_entries WHERE metric_id = ?`, id); err != nil {
			return fmt.Errorf("deleting metric entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM metrics WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting metric: %w", err)
		}

		s.logger.Debug("deleted metric", "id", id, "name", name)
		return nil
	})
}

// UpsertDailyMetricEntry records the value for entry.Date, replacing any
// value already recorded for that metric and day.
func (s *SQLiteStore) UpsertDailyMetricEntry(ctx context.Context, entry *MetricEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metric_entries (id, metric_id, date, timestamp, value, daily)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (metric_id, date) WHERE daily = 1
		DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp
	`, entry.ID, entry.MetricID, entry.Date, formatTime(entry.Timestamp), nullFloat(entry.Value))
	if err != nil {
		return fmt.Errorf("upserting daily metric entry: %w", err)
	}

	// the row may predate this call; report the id actually stored
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM metric_entries WHERE metric_id = ? AND date = ? AND daily = 1`,
		entry.MetricID, entry.Date).Scan(&entry.ID); err != nil {
		return fmt.Errorf("reading upserted metric entry: %w", err)
	}

	s.logger.Debug("upserted daily metric entry", "metric_id", entry.MetricID, "date", entry.Date)
	return nil
}

// AppendMetricEntry adds a new entry without touching existing ones.
func (s *SQLiteStore) AppendMetricEntry(ctx context.Context, entry *MetricEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metric_entries (id, metric_id, date, timestamp, value, daily)
		VALUES (?, ?, ?, ?, ?, 0)
	`, entry.ID, entry.MetricID, entry.Date, formatTime(entry.Timestamp), nullFloat(entry.Value))
	if err != nil {
		return fmt.Errorf("inserting metric entry: %w", err)
	}

	s.logger.Debug("appended metric entry", "metric_id", entry.MetricID, "timestamp", entry.Timestamp)
	return nil
}

// ListMetricEntries returns a metric's entries whose timestamp falls in
// [from, to), oldest first.
func (s *SQLiteStore) ListMetricEntries(ctx context.Context, metricID string, from, to time.Time) ([]*MetricEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, metric_id, date, timestamp, value
		FROM metric_entries
		WHERE metric_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, date ASC
	`, metricID, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("querying metric entries: %w", err)
	}
	defer rows.Close()

	var entries []*MetricEntry
	for rows.Next() {
		var entry MetricEntry
		var ts string
		var value sql.NullFloat64
		if err := rows.Scan(&entry.ID, &entry.MetricID, &entry.Date, &ts, &value); err != nil {
			return nil, fmt.Errorf("scanning metric entry row: %w", err)
		}
		entry.Value = floatPtr(value)
		if entry.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metric entry rows: %w", err)
	}
	return entries, nil
}

func scanMetric(row rowScanner) (*Metric, error) {
	var metric Metric
	var unit sql.NullString
	var resolution, typ, createdAt string

	if err := row.Scan(&metric.ID, &metric.OwnerID, &metric.Name, &unit, &resolution, &typ, &createdAt); err != nil {
		return nil, err
	}
	metric.Unit = unit.String
	metric.Resolution = MetricResolution(resolution)
	metric.Type = MetricType(typ)

	var err error
	if metric.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &metric, nil
}
