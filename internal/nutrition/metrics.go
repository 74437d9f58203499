// ABOUTME: Metric definitions and metric logging
// ABOUTME: Daily metrics upsert one entry per day; timestamped metrics append one entry per call

package nutrition

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/nutrition-gateway/internal/store"
)

// CreateMetric defines a new metric for the owner.
func (s *Service) CreateMetric(ctx context.Context, owner, name, unit string, resolution store.MetricResolution, typ store.MetricType) (*store.Metric, error) {
	metric := &store.Metric{
		OwnerID:    owner,
		Name:       name,
		Unit:       unit,
		Resolution: resolution,
		Type:       typ,
	}
	if err := s.store.CreateMetric(ctx, metric); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ConflictError{Entity: EntityMetric, Name: name}
		}
		return nil, fmt.Errorf("creating metric: %w", err)
	}
	s.logger.Info("metric created", "owner", owner, "name", name, "type", typ, "resolution", resolution)
	return metric, nil
}

// ListMetrics returns the owner's metrics ordered by name.
func (s *Service) ListMetrics(ctx context.Context, owner string) ([]*store.Metric, error) {
	metrics, err := s.store.ListMetrics(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	return metrics, nil
}

// GetMetric returns the named metric.
func (s *Service) GetMetric(ctx context.Context, owner, name string) (*store.Metric, error) {
	metric, err := s.store.GetMetric(ctx, owner, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Entity: EntityMetric, Name: name}
		}
		return nil, fmt.Errorf("getting metric: %w", err)
	}
	return metric, nil
}

// DeleteMetric removes the named metric and all of its entries.
func (s *Service) DeleteMetric(ctx context.Context, owner, name string) error {
	if err := s.store.DeleteMetric(ctx, owner, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Entity: EntityMetric, Name: name}
		}
		return fmt.Errorf("deleting metric: %w", err)
	}
	s.logger.Info("metric deleted", "owner", owner, "name", name)
	return nil
}

// LoggedMetric is the outcome of LogMetric.
type LoggedMetric struct {
	Metric *store.Metric
	Entry  *store.MetricEntry
}

// LogMetric records a value (numeric) or a presence (checkin). For daily
// metrics date selects the day (default today) and replaces any earlier
// value for it. For timestamped metrics date is ignored and the entry is
// stamped with the current time.
func (s *Service) LogMetric(ctx context.Context, owner, name string, value *float64, date string) (*LoggedMetric, error) {
	metric, err := s.GetMetric(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	switch metric.Type {
	case store.MetricTypeNumeric:
		if value == nil {
			return nil, invalidf(`Metric "%s" is numeric — a value is required.`, name)
		}
	case store.MetricTypeCheckin:
		if value != nil {
			return nil, invalidf(`Metric "%s" is checkin — value should not be provided.`, name)
		}
	}

	entry := &store.MetricEntry{
		MetricID: metric.ID,
		Value:    value,
	}

	if metric.Resolution == store.ResolutionDaily {
		if date == "" {
			date = FormatDay(s.today())
		}
		d, err := ParseDay(date)
		if err != nil {
			return nil, err
		}
		entry.Date = date
		entry.Timestamp = d
		if err := s.store.UpsertDailyMetricEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("recording metric entry: %w", err)
		}
	} else {
		now := s.now().UTC()
		entry.Date = now.Format(isoLayout)
		entry.Timestamp = now
		if err := s.store.AppendMetricEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("recording metric entry: %w", err)
		}
	}

	s.logger.Debug("metric logged", "owner", owner, "metric", name, "date", entry.Date)
	return &LoggedMetric{Metric: metric, Entry: entry}, nil
}

// MetricEntries is the result of a metric range query.
type MetricEntries struct {
	Metric  *store.Metric
	From    string
	To      string
	Entries []*store.MetricEntry
}

// GetMetricEntries returns the metric's entries on the days from..to
// inclusive. from defaults to seven days ago and to defaults to today.
func (s *Service) GetMetricEntries(ctx context.Context, owner, name, from, to string) (*MetricEntries, error) {
	metric, err := s.GetMetric(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	today := s.today()
	r, from, to, err := daysBetween(from, to, FormatDay(today.Add(-7*day)), FormatDay(today))
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListMetricEntries(ctx, metric.ID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("listing metric entries: %w", err)
	}
	return &MetricEntries{
		Metric:  metric,
		From:    from,
		To:      to,
		Entries: entries,
	}, nil
}
