// ABOUTME: Dashboard JSON API handlers for meals, metrics and nutrition history
// ABOUTME: Read-only views over the caller's data, served behind the bearer middleware

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2389/nutrition-gateway/internal/auth"
	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/store"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

// ServiceInfoResponse is the JSON response for GET /api.
type ServiceInfoResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// MealItemResponse is one item of a logged meal.
type MealItemResponse struct {
	Name     string   `json:"name"`
	Quantity *float64 `json:"quantity"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Fat      *float64 `json:"fat"`
	Carbs    *float64 `json:"carbs"`
}

// MealResponse is one meal log entry.
type MealResponse struct {
	ID         string             `json:"id"`
	LoggedAt   string             `json:"loggedAt"`
	TimeOfDay  *string            `json:"timeOfDay"`
	SchemaName *string            `json:"schemaName"`
	Notes      *string            `json:"notes"`
	Items      []MealItemResponse `json:"items"`
}

// DayTotalsResponse holds rounded totals; absent values are reported as 0.
type DayTotalsResponse struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
}

// MealsResponse is the JSON response for GET /api/dashboard/meals.
type MealsResponse struct {
	Date   string            `json:"date"`
	Meals  []MealResponse    `json:"meals"`
	Totals DayTotalsResponse `json:"totals"`
}

// MetricEntryResponse is one recorded value.
type MetricEntryResponse struct {
	Date      string   `json:"date"`
	Value     *float64 `json:"value"`
	Timestamp string   `json:"timestamp"`
}

// MetricResponse is one metric with its recent entries, newest first.
type MetricResponse struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Unit       *string               `json:"unit"`
	Resolution string                `json:"resolution"`
	Type       string                `json:"type"`
	Entries    []MetricEntryResponse `json:"entries"`
}

// MetricsResponse is the JSON response for GET /api/dashboard/metrics.
type MetricsResponse struct {
	Days    int              `json:"days"`
	Metrics []MetricResponse `json:"metrics"`
}

// SeriesPointResponse is one day of the nutrition history.
type SeriesPointResponse struct {
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// NutritionHistoryResponse is the JSON response for GET /api/dashboard/nutrition-history.
type NutritionHistoryResponse struct {
	Days   int                   `json:"days"`
	Series []SeriesPointResponse `json:"series"`
}

// registerDashboardRoutes mounts the dashboard API behind authMiddleware.
func (g *Gateway) registerDashboardRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	requireIdentity := auth.RequireIdentityHTTP(g.config.Discovery.ResourceMetadataURL)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(requireIdentity(h))
	}
	mux.Handle("/api/dashboard/meals", protect(g.handleDashboardMeals))
	mux.Handle("/api/dashboard/metrics", protect(g.handleDashboardMetrics))
	mux.Handle("/api/dashboard/nutrition-history", protect(g.handleNutritionHistory))
}

// handleServiceInfo handles GET /api requests.
func (g *Gateway) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	g.writeJSON(w, ServiceInfoResponse{Service: ServiceName, Version: ServiceVersion})
}

// handleDashboardMeals handles GET /api/dashboard/meals?date=YYYY-MM-DD.
// The date defaults to today (UTC).
func (g *Gateway) handleDashboardMeals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner := auth.SubjectFromContext(r.Context())
	date := r.URL.Query().Get("date")

	log, err := g.nutrition.GetMealLog(r.Context(), owner, date, date, nil)
	var invalid *nutrition.ValidationError
	if errors.As(err, &invalid) {
		g.sendJSONError(w, http.StatusBadRequest, invalid.Message)
		return
	}
	if err != nil {
		g.logger.Error("failed to load meal log", "owner", owner, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := MealsResponse{
		Date:   log.From,
		Meals:  make([]MealResponse, 0, len(log.Entries)),
		Totals: roundedTotals(log.Totals),
	}
	for _, e := range log.Entries {
		response.Meals = append(response.Meals, mealResponse(e))
	}
	g.writeJSON(w, response)
}

func mealResponse(e *store.MealLogEntry) MealResponse {
	m := MealResponse{
		ID:         e.ID,
		LoggedAt:   e.LoggedAt.UTC().Format(isoLayout),
		SchemaName: optionalString(e.MealSchemaName),
		Notes:      optionalString(e.Notes),
		Items:      make([]MealItemResponse, 0, len(e.Items)),
	}
	if e.TimeOfDay != nil {
		m.TimeOfDay = optionalString(string(*e.TimeOfDay))
	}
	for _, it := range e.Items {
		m.Items = append(m.Items, MealItemResponse{
			Name:     it.Name,
			Quantity: it.Quantity,
			Calories: it.Macros.Calories,
			Protein:  it.Macros.Protein,
			Fat:      it.Macros.Fat,
			Carbs:    it.Macros.Carbs,
		})
	}
	return m
}

func roundedTotals(t nutrition.Totals) DayTotalsResponse {
	r := t.Rounded()
	return DayTotalsResponse{
		Calories: orZero(r.Calories),
		Protein:  orZero(r.Protein),
		Fat:      orZero(r.Fat),
		Carbs:    orZero(r.Carbs),
		Fiber:    orZero(r.Fiber),
		Sugar:    orZero(r.Sugar),
		Sodium:   orZero(r.Sodium),
	}
}

// handleDashboardMetrics handles GET /api/dashboard/metrics?days=N.
func (g *Gateway) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner := auth.SubjectFromContext(r.Context())

	days, history, err := g.nutrition.RecentMetrics(r.Context(), owner, queryDays(r))
	if err != nil {
		g.logger.Error("failed to load metrics", "owner", owner, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := MetricsResponse{
		Days:    days,
		Metrics: make([]MetricResponse, 0, len(history)),
	}
	for _, h := range history {
		m := MetricResponse{
			ID:         h.Metric.ID,
			Name:       h.Metric.Name,
			Unit:       optionalString(h.Metric.Unit),
			Resolution: string(h.Metric.Resolution),
			Type:       string(h.Metric.Type),
			Entries:    make([]MetricEntryResponse, 0, len(h.Entries)),
		}
		for _, e := range h.Entries {
			m.Entries = append(m.Entries, MetricEntryResponse{
				Date:      dayOf(e.Date),
				Value:     e.Value,
				Timestamp: e.Timestamp.UTC().Format(isoLayout),
			})
		}
		response.Metrics = append(response.Metrics, m)
	}
	g.writeJSON(w, response)
}

// handleNutritionHistory handles GET /api/dashboard/nutrition-history?days=N.
// N is capped at nutrition.MaxHistoryDays.
func (g *Gateway) handleNutritionHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner := auth.SubjectFromContext(r.Context())

	days, series, err := g.nutrition.NutritionHistory(r.Context(), owner, queryDays(r))
	if err != nil {
		g.logger.Error("failed to load nutrition history", "owner", owner, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := NutritionHistoryResponse{
		Days:   days,
		Series: make([]SeriesPointResponse, 0, len(series)),
	}
	for _, d := range series {
		t := roundedTotals(d.Totals)
		response.Series = append(response.Series, SeriesPointResponse{
			Date:     d.Date,
			Calories: t.Calories,
			Protein:  t.Protein,
			Fat:      t.Fat,
			Carbs:    t.Carbs,
		})
	}
	g.writeJSON(w, response)
}

// queryDays reads ?days=N. Anything that is not a positive integer selects
// the default window.
func queryDays(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

func dayOf(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (g *Gateway) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
