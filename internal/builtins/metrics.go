// ABOUTME: Metrics pack tracks user-defined metrics such as weight, steps or workouts.
// ABOUTME: Daily metrics keep one entry per day; timestamped metrics append.

package builtins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/packs"
	"github.com/2389/nutrition-gateway/internal/store"
)

// MetricsPack creates the metrics pack.
func MetricsPack(svc *nutrition.Service) *packs.BuiltinPack {
	h := &metricHandlers{svc: svc}

	return &packs.BuiltinPack{
		ID: "builtin:metrics",
		Tools: []*packs.BuiltinTool{
			packs.Tool("create_metric",
				"Define a new metric to track (e.g. Weight, Steps, Workouts)",
				packs.Object(
					packs.Field{Name: "name", Type: packs.TypeString, Required: true, Description: `Metric name (e.g. "Weight", "Steps")`},
					packs.Field{Name: "unit", Type: packs.TypeString, Description: `Unit of measurement (e.g. "lbs", "steps")`},
					packs.Field{
						Name:        "resolution",
						Type:        packs.TypeString,
						Required:    true,
						Enum:        []string{string(store.ResolutionDaily), string(store.ResolutionTimestamped)},
						Description: "daily = one entry per day, timestamped = multiple entries per day",
					},
					packs.Field{
						Name:        "type",
						Type:        packs.TypeString,
						Required:    true,
						Enum:        []string{string(store.MetricTypeNumeric), string(store.MetricTypeCheckin)},
						Description: "numeric = has a value, checkin = presence-only",
					},
				),
				packs.Typed(h.Create)),
			packs.Tool("list_metrics",
				"List all metrics you are tracking",
				packs.Object(),
				packs.Typed(h.List)),
			packs.Tool("log_metric",
				"Log an entry for a metric",
				packs.Object(
					packs.Field{Name: "name", Type: packs.TypeString, Required: true, Description: "Metric name"},
					packs.Field{Name: "value", Type: packs.TypeNumber, Description: "Value to log (required for numeric metrics, omit for checkin)"},
					packs.Field{Name: "date", Type: packs.TypeString, Description: "Date in YYYY-MM-DD format (defaults to today). Ignored for timestamped metrics."},
				),
				packs.Typed(h.Log)),
			packs.Tool("get_metric_entries",
				"Query entries for a metric over a date range",
				packs.Object(
					packs.Field{Name: "name", Type: packs.TypeString, Required: true, Description: "Metric name"},
					packs.Field{Name: "from", Type: packs.TypeString, Description: "Start date (YYYY-MM-DD), defaults to 7 days ago"},
					packs.Field{Name: "to", Type: packs.TypeString, Description: "End date (YYYY-MM-DD), defaults to today"},
				),
				packs.Typed(h.Entries)),
			packs.Tool("delete_metric",
				"Delete a metric and all its entries",
				packs.Object(
					packs.Field{Name: "name", Type: packs.TypeString, Required: true, Description: "Metric name to delete"},
				),
				packs.Typed(h.Delete)),
		},
	}
}

type metricHandlers struct {
	svc *nutrition.Service
}

type createMetricInput struct {
	Name       string                 `json:"name"`
	Unit       string                 `json:"unit"`
	Resolution store.MetricResolution `json:"resolution"`
	Type       store.MetricType       `json:"type"`
}

func (h *metricHandlers) Create(ctx context.Context, subject string, in createMetricInput) (string, error) {
	metric, err := h.svc.CreateMetric(ctx, subject, in.Name, in.Unit, in.Resolution, in.Type)
	if err != nil {
		return "", toolError(err)
	}
	text := fmt.Sprintf(`Created metric "%s" (%s, %s)`, metric.Name, metric.Type, metric.Resolution)
	if metric.Unit != "" {
		text += " in " + metric.Unit
	}
	return text, nil
}

func (h *metricHandlers) List(ctx context.Context, subject string, _ struct{}) (string, error) {
	metrics, err := h.svc.ListMetrics(ctx, subject)
	if err != nil {
		return "", err
	}
	if len(metrics) == 0 {
		return "No metrics defined yet. Use create_metric to get started.", nil
	}

	lines := make([]string, 0, len(metrics))
	for _, m := range metrics {
		line := fmt.Sprintf("- %s (%s, %s)", m.Name, m.Type, m.Resolution)
		if m.Unit != "" {
			line += " [" + m.Unit + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

type logMetricInput struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
	Date  string   `json:"date"`
}

func (h *metricHandlers) Log(ctx context.Context, subject string, in logMetricInput) (string, error) {
	logged, err := h.svc.LogMetric(ctx, subject, in.Name, in.Value, in.Date)
	if err != nil {
		var notFound *nutrition.NotFoundError
		if errors.As(err, &notFound) {
			return "", packs.NotFound(`No metric named "%s" found. Use create_metric first.`, in.Name)
		}
		return "", toolError(err)
	}

	metric, entry := logged.Metric, logged.Entry
	display := "checked in"
	if metric.Type == store.MetricTypeNumeric {
		display = "logged " + withUnit(*entry.Value, metric.Unit)
	}
	return fmt.Sprintf("%s: %s on %s", metric.Name, display, dayPart(entry.Date)), nil
}

type metricEntriesInput struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *metricHandlers) Entries(ctx context.Context, subject string, in metricEntriesInput) (string, error) {
	res, err := h.svc.GetMetricEntries(ctx, subject, in.Name, in.From, in.To)
	if err != nil {
		return "", toolError(err)
	}
	if len(res.Entries) == 0 {
		return fmt.Sprintf(`No entries for "%s" between %s and %s.`, in.Name, res.From, res.To), nil
	}

	lines := []string{fmt.Sprintf("%s (%s to %s):", res.Metric.Name, res.From, res.To)}
	for _, e := range res.Entries {
		if res.Metric.Type == store.MetricTypeCheckin || e.Value == nil {
			lines = append(lines, fmt.Sprintf("- %s: ✓", dayPart(e.Date)))
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", dayPart(e.Date), withUnit(*e.Value, res.Metric.Unit)))
	}
	return strings.Join(lines, "\n"), nil
}

type metricNameInput struct {
	Name string `json:"name"`
}

func (h *metricHandlers) Delete(ctx context.Context, subject string, in metricNameInput) (string, error) {
	if err := h.svc.DeleteMetric(ctx, subject, in.Name); err != nil {
		return "", toolError(err)
	}
	return fmt.Sprintf(`Deleted metric "%s" and all its entries.`, in.Name), nil
}

func withUnit(v float64, unit string) string {
	if unit == "" {
		return num(v)
	}
	return num(v) + " " + unit
}

// dayPart trims a timestamped entry's ISO date to its calendar day.
func dayPart(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}
