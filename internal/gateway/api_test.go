// ABOUTME: Tests for the dashboard JSON API handlers
// ABOUTME: Seeds data through the nutrition service and checks the exact response shapes

package gateway

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/store"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
}

func f64(v float64) *float64 { return &v }
func str(s string) *string    { return &s }

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func seedMeals(t *testing.T, svc *nutrition.Service, owner string) {
	t.Helper()
	ctx := t.Context()
	_, err := svc.CreateFood(ctx, owner, nutrition.FoodInput{
		Name:     "Banana",
		BaseUnit: "1 medium",
		Macros:   store.Macros{Calories: f64(105), Protein: f64(1.3), Sodium: f64(1)},
	})
	require.NoError(t, err)

	breakfast := store.TimeOfDayBreakfast
	inputs := []nutrition.LogMealInput{
		{
			Items:     []nutrition.LogItem{nutrition.FoodPortion{FoodName: "Banana", Quantity: 2}},
			TimeOfDay: &breakfast,
			LoggedAt:  "2026-03-10T08:00:00Z",
			Notes:     "post-run",
		},
		{
			Items:    []nutrition.LogItem{nutrition.InlineItem{Name: "Coffee", Macros: store.Macros{Calories: f64(5.4)}}},
			LoggedAt: "2026-03-10T09:00:00Z",
		},
		{
			Items:    []nutrition.LogItem{nutrition.InlineItem{Name: "Pizza", Macros: store.Macros{Calories: f64(800), Fat: f64(30.04)}}},
			LoggedAt: "2026-03-08T19:00:00Z",
		},
	}
	for _, in := range inputs {
		_, err := svc.LogMeal(ctx, owner, in)
		require.NoError(t, err)
	}
}

func TestDashboardMeals(t *testing.T) {
	gw, srv := newTestGateway(t, testConfig(t, ""), WithClock(fixedNow))
	seedMeals(t, gw.nutrition, "alice")

	for _, url := range []string{"/api/dashboard/meals?date=2026-03-10", "/api/dashboard/meals"} {
		resp := get(t, srv.URL+url, bearer(t, "alice"))
		require.Equal(t, http.StatusOK, resp.StatusCode, url)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		got := decode[MealsResponse](t, resp)
		for i := range got.Meals {
			assert.NotEmpty(t, got.Meals[i].ID)
			got.Meals[i].ID = ""
		}

		want := MealsResponse{
			Date: "2026-03-10",
			Meals: []MealResponse{
				{
					LoggedAt:  "2026-03-10T08:00:00.000Z",
					TimeOfDay: str("breakfast"),
					Notes:     str("post-run"),
					Items: []MealItemResponse{
						{Name: "Banana", Quantity: f64(2), Calories: f64(210), Protein: f64(2.6)},
					},
				},
				{
					LoggedAt: "2026-03-10T09:00:00.000Z",
					Items:    []MealItemResponse{{Name: "Coffee", Calories: f64(5.4)}},
				},
			},
			Totals: DayTotalsResponse{Calories: 215, Protein: 2.6, Sodium: 2},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", url, diff)
		}
	}
}

func TestDashboardMeals_SchemaNameSurvivesTemplateDeletion(t *testing.T) {
	gw, srv := newTestGateway(t, testConfig(t, ""), WithClock(fixedNow))
	seedMeals(t, gw.nutrition, "alice")
	ctx := t.Context()

	_, err := gw.nutrition.CreateMealSchema(ctx, "alice", "Smoothie", "", []nutrition.IngredientInput{
		{FoodName: "Banana", DefaultQuantity: f64(1)},
	})
	require.NoError(t, err)
	_, err = gw.nutrition.LogMeal(ctx, "alice", nutrition.LogMealInput{
		MealSchemaName: "Smoothie",
		LoggedAt:       "2026-03-09T07:00:00Z",
	})
	require.NoError(t, err)

	schemaName := func() *string {
		t.Helper()
		resp := get(t, srv.URL+"/api/dashboard/meals?date=2026-03-09", bearer(t, "alice"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		got := decode[MealsResponse](t, resp)
		require.Len(t, got.Meals, 1)
		return got.Meals[0].SchemaName
	}

	assert.Equal(t, str("Smoothie"), schemaName())
	require.NoError(t, gw.nutrition.DeleteMealSchema(ctx, "alice", "Smoothie"))
	assert.Equal(t, str("Smoothie"), schemaName())
}

func TestDashboardMeals_NullFieldsOnTheWire(t *testing.T) {
	gw, srv := newTestGateway(t, testConfig(t, ""), WithClock(fixedNow))
	seedMeals(t, gw.nutrition, "alice")

	resp := get(t, srv.URL+"/api/dashboard/meals?date=2026-03-08", bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw struct {
		Meals  []map[string]any `json:"meals"`
		Totals map[string]any   `json:"totals"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Len(t, raw.Meals, 1)
	meal := raw.Meals[0]
	for _, key := range []string{"timeOfDay", "schemaName", "notes"} {
		v, ok := meal[key]
		assert.True(t, ok, "%s present", key)
		assert.Nil(t, v, "%s is null", key)
	}
	assert.Equal(t, map[string]any{
		"calories": 800.0, "protein": 0.0, "fat": 30.0, "carbs": 0.0,
		"fiber": 0.0, "sugar": 0.0, "sodium": 0.0,
	}, raw.Totals)
}

func TestDashboardMeals_Errors(t *testing.T) {
	_, srv := newTestGateway(t, testConfig(t, ""), WithClock(fixedNow))

	resp := get(t, srv.URL+"/api/dashboard/meals", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, srv.URL+"/api/dashboard/meals?date=March", bearer(t, "alice"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.NotEmpty(t, body["error"])

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+"/api/dashboard/meals", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(t, "alice"))
	post, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestDashboardMetrics(t *testing.T) {
	gw, srv := newTestGateway(t, testConfig(t, ""), WithClock(fixedNow))
	ctx := t.Context()
	svc := gw.nutrition

	_, err := svc.CreateMetric(ctx, "alice", "Weight", "kg", store.ResolutionDaily, store.MetricTypeNumeric)
	require.NoError(t, err)
	_, err = svc.CreateMetric(ctx, "alice", "Stretching", "", store.ResolutionTimestamped, store.MetricTypeCheckin)
	require.NoError(t, err)
	for _, e := range []struct {
		date  string
		value float64
	}{{"2026-02-01", 81}, {"2026-03-09", 80}, {"2026-03-10", 79.5}} {
		_, err := svc.LogMetric(ctx, "alice", "Weight", f64(e.value), e.date)
		require.NoError(t, err)
	}
	_, err = svc.LogMetric(ctx, "alice", "Stretching", nil, "")
	require.NoError(t, err)

	resp := get(t, srv.URL+"/api/dashboard/metrics", bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[MetricsResponse](t, resp)

	assert.Equal(t, 7, got.Days)
	require.Len(t, got.Metrics, 2)
	for i := range got.Metrics {
		assert.NotEmpty(t, got.Metrics[i].ID)
		got.Metrics[i].ID = ""
	}
	want := []MetricResponse{
		{
			Name:       "Stretching",
			Resolution: "timestamped",
			Type:       "checkin",
			Entries: []MetricEntryResponse{
				{Date: "2026-03-10", Timestamp: "2026-03-10T15:30:00.000Z"},
			},
		},
		{
			Name:       "Weight",
			Unit:       str("kg"),
			Resolution: "daily",
			Type:       "numeric",
			Entries: []MetricEntryResponse{
				{Date: "2026-03-10", Value: f64(79.5), Timestamp: "2026-03-10T00:00:00.000Z"},
				{Date: "2026-03-09", Value: f64(80), Timestamp: "2026-03-09T00:00:00.000Z"},
			},
		},
	}
	if diff := cmp.Diff(want, got.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}

	resp = get(t, srv.URL+"/api/dashboard/metrics?days=60", bearer(t, "alice"))
	got = decode[MetricsResponse](t, resp)
	assert.Equal(t, 60, got.Days)
	assert.Len(t, got.Metrics[1].Entries, 3)

	resp = get(t, srv.URL+"/api/dashboard/metrics?days=lots", bearer(t, "alice"))
	got = decode[MetricsResponse](t, resp)
	assert.Equal(t, 7, got.Days)

	resp = get(t, srv.URL+"/api/dashboard/metrics", bearer(t, "bob"))
	got = decode[MetricsResponse](t, resp)
	assert.NotNil(t, got.Metrics)
	assert.Empty(t, got.Metrics)
}

func TestDashboardNutritionHistory(t *testing.T) {
	gw, srv := newTestGateway(t, testConfig(t, ""), WithClock(fixedNow))
	seedMeals(t, gw.nutrition, "alice")

	resp := get(t, srv.URL+"/api/dashboard/nutrition-history?days=3", bearer(t, "alice"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[NutritionHistoryResponse](t, resp)

	want := NutritionHistoryResponse{
		Days: 3,
		Series: []SeriesPointResponse{
			{Date: "2026-03-08", Calories: 800, Fat: 30},
			{Date: "2026-03-09"},
			{Date: "2026-03-10", Calories: 215, Protein: 2.6},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	resp = get(t, srv.URL+"/api/dashboard/nutrition-history?days=365", bearer(t, "alice"))
	got = decode[NutritionHistoryResponse](t, resp)
	assert.Equal(t, nutrition.MaxHistoryDays, got.Days)
	assert.Len(t, got.Series, nutrition.MaxHistoryDays)
	assert.Equal(t, "2026-03-10", got.Series[len(got.Series)-1].Date)

	resp = get(t, srv.URL+"/api/dashboard/nutrition-history", bearer(t, "alice"))
	got = decode[NutritionHistoryResponse](t, resp)
	assert.Equal(t, 7, got.Days)
	assert.Len(t, got.Series, 7)
}
