// ABOUTME: Read models for the dashboard JSON API
// ABOUTME: Recent metric entries across all metrics and the daily nutrition history series

package nutrition

import (
	"context"
	"fmt"
	"slices"

	"github.com/2389/nutrition-gateway/internal/store"
)

const (
	defaultWindowDays = 7

	// MaxHistoryDays caps the nutrition history window.
	MaxHistoryDays = 90
)

// windowDays normalizes a requested day count: non-positive means the
// default, and the result never exceeds limit when limit is positive.
func windowDays(days, limit int) int {
	if days <= 0 {
		days = defaultWindowDays
	}
	if limit > 0 && days > limit {
		days = limit
	}
	return days
}

// MetricHistory is one metric with its recent entries, newest first.
type MetricHistory struct {
	Metric  *store.Metric
	Entries []*store.MetricEntry
}

// RecentMetrics returns every metric of the owner with the entries recorded
// since days ago, newest first.
func (s *Service) RecentMetrics(ctx context.Context, owner string, days int) (int, []MetricHistory, error) {
	days = windowDays(days, 0)
	today := s.today()
	from := today.AddDate(0, 0, -days)
	to := today.Add(day)

	metrics, err := s.store.ListMetrics(ctx, owner)
	if err != nil {
		return 0, nil, fmt.Errorf("listing metrics: %w", err)
	}

	out := make([]MetricHistory, 0, len(metrics))
	for _, m := range metrics {
		entries, err := s.store.ListMetricEntries(ctx, m.ID, from, to)
		if err != nil {
			return 0, nil, fmt.Errorf("listing entries for metric %s: %w", m.Name, err)
		}
		slices.Reverse(entries)
		out = append(out, MetricHistory{Metric: m, Entries: entries})
	}
	return days, out, nil
}

// NutritionHistory returns per-day totals for the last days days including
// today, oldest first. days is capped at MaxHistoryDays.
func (s *Service) NutritionHistory(ctx context.Context, owner string, days int) (int, []DayTotals, error) {
	days = windowDays(days, MaxHistoryDays)
	today := s.today()
	first := today.AddDate(0, 0, -(days - 1))

	entries, err := s.store.ListMealLogEntries(ctx, store.MealLogFilter{
		OwnerID: owner,
		From:    first,
		To:      today.Add(day),
	})
	if err != nil {
		return 0, nil, fmt.Errorf("listing meal log: %w", err)
	}
	return days, DailySeries(entries, today, days), nil
}
