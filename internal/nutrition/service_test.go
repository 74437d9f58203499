// ABOUTME: Tests for the nutrition service against real SQLite and the in-memory store
// ABOUTME: Covers scaling, template resolution, atomic logging, metric semantics and queries

package nutrition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/nutrition-gateway/internal/store"
)

var fixedNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func newTestService(t *testing.T) (*Service, store.NutritionStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, WithClock(func() time.Time { return fixedNow })), st
}

func createBanana(t *testing.T, svc *Service, owner string) *store.Food {
	t.Helper()
	food, err := svc.CreateFood(context.Background(), owner, FoodInput{
		Name:     "Banana",
		BaseUnit: "1 medium",
		Macros:   store.Macros{Calories: f64(105), Protein: f64(1.3)},
	})
	require.NoError(t, err)
	return food
}

func TestCreateFood_DuplicateIsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	_, err := svc.CreateFood(ctx, "alice", FoodInput{Name: "Oats", BaseUnit: "g"})
	require.NoError(t, err)

	_, err = svc.CreateFood(ctx, "alice", FoodInput{Name: "Oats", BaseUnit: "g"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, EntityFood, conflict.Entity)
	assert.Equal(t, "Oats", conflict.Name)

	foods, err := svc.ListFoods(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, foods, 1)
}

func TestUpdateFood_PatchSemantics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")

	newName := "Ripe Banana"
	servings := []string{"1 small", "1 large"}
	updated, err := svc.UpdateFood(ctx, "alice", "Banana", FoodUpdate{
		NewName:         &newName,
		DefaultServings: &servings,
		Macros: MacroPatch{
			Protein: Patch[float64]{Set: true},
			Fiber:   Patch[float64]{Set: true, Value: f64(3.1)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ripe Banana", updated.Name)

	got, err := svc.GetFood(ctx, "alice", "Ripe Banana")
	require.NoError(t, err)
	assert.Equal(t, 105.0, *got.Macros.Calories, "untouched field keeps its value")
	assert.Nil(t, got.Macros.Protein)
	assert.Equal(t, 3.1, *got.Macros.Fiber)
	assert.Equal(t, servings, got.DefaultServings)
	assert.Equal(t, "1 medium", got.BaseUnit)
}

func TestUpdateFood_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")
	_, err := svc.CreateFood(ctx, "alice", FoodInput{Name: "Apple", BaseUnit: "1 medium"})
	require.NoError(t, err)

	_, err = svc.UpdateFood(ctx, "alice", "Kiwi", FoodUpdate{})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Kiwi", nf.Name)

	apple := "Apple"
	_, err = svc.UpdateFood(ctx, "alice", "Banana", FoodUpdate{NewName: &apple})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Apple", conflict.Name)
}

func TestLogMeal_BananaEndToEnd(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")

	entry, err := svc.LogMeal(ctx, "alice", LogMealInput{
		Items:    []LogItem{FoodPortion{FoodName: "Banana", Quantity: 2}},
		LoggedAt: "2026-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), entry.LoggedAt)

	summary, err := svc.GetDailySummary(ctx, "alice", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EntryCount)
	rounded := summary.Totals.Rounded()
	assert.Equal(t, 210.0, *rounded.Calories)
	assert.Equal(t, 2.6, *rounded.Protein)
	assert.Nil(t, rounded.Fat)
}

func TestLogMeal_RequiresSchemaOrItems(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.LogMeal(t.Context(), "alice", LogMealInput{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "At least one of mealSchemaName or items is required.", ve.Message)
}

func TestLogMeal_UnknownFoodsPersistNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")

	_, err := svc.LogMeal(ctx, "alice", LogMealInput{
		Items: []LogItem{
			FoodPortion{FoodName: "Banana", Quantity: 1},
			FoodPortion{FoodName: "Kiwi", Quantity: 1},
			InlineItem{Name: "Coffee", Macros: store.Macros{Calories: f64(5)}},
			FoodPortion{FoodName: "Mango", Quantity: 1},
		},
	})
	var missing *MissingFoodsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"Kiwi", "Mango"}, missing.Names)

	log, err := svc.GetMealLog(ctx, "alice", "", "", nil)
	require.NoError(t, err)
	assert.Empty(t, log.Entries)
}

func TestLogMeal_UnknownSchema(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.LogMeal(t.Context(), "alice", LogMealInput{MealSchemaName: "Brunch"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, EntityMealSchema, nf.Entity)
}

func TestLogMeal_InvalidLoggedAt(t *testing.T) {
	svc, _ := newTestService(t)
	createBanana(t, svc, "alice")
	_, err := svc.LogMeal(t.Context(), "alice", LogMealInput{
		Items:    []LogItem{FoodPortion{FoodName: "Banana", Quantity: 1}},
		LoggedAt: "yesterday-ish",
	})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestLogMeal_LoggedAtFormats(t *testing.T) {
	svc, _ := newTestService(t)
	createBanana(t, svc, "alice")

	tests := map[string]time.Time{
		"2026-01-05T08:00:00.000Z":  time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		"2026-01-05T09:30:00+01:00": time.Date(2026, 1, 5, 8, 30, 0, 0, time.UTC),
		"2026-01-05T08:00:00":       time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		"2026-01-05T08:00:00.250":   time.Date(2026, 1, 5, 8, 0, 0, 250_000_000, time.UTC),
		"2026-01-05T08:00":          time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		" 2026-01-05 ":              time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
	}
	for in, want := range tests {
		entry, err := svc.LogMeal(t.Context(), "alice", LogMealInput{
			Items:    []LogItem{FoodPortion{FoodName: "Banana", Quantity: 1}},
			LoggedAt: in,
		})
		require.NoError(t, err, in)
		assert.Equal(t, want, entry.LoggedAt, in)
	}

	_, err := svc.LogMeal(t.Context(), "alice", LogMealInput{
		Items:    []LogItem{FoodPortion{FoodName: "Banana", Quantity: 1}},
		LoggedAt: "2026-01-05T8am",
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, `Invalid loggedAt "2026-01-05T8am": expected an ISO datetime or YYYY-MM-DD.`, ve.Error())
}

func TestLogMeal_TemplateResolution(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")
	_, err := svc.CreateFood(ctx, "alice", FoodInput{
		Name:     "Oats",
		BaseUnit: "g",
		Macros:   store.Macros{Calories: f64(3.8), Protein: f64(0.13)},
	})
	require.NoError(t, err)

	_, err = svc.CreateMealSchema(ctx, "alice", "Porridge", "", []IngredientInput{
		{FoodName: "Oats", DefaultQuantity: f64(40)},
		{FoodName: "Banana"},
	})
	require.NoError(t, err)

	breakfast := store.TimeOfDayBreakfast
	entry, err := svc.LogMeal(ctx, "alice", LogMealInput{
		MealSchemaName: "Porridge",
		Items:          []LogItem{InlineItem{Name: "Honey", Macros: store.Macros{Calories: f64(64)}}},
		TimeOfDay:      &breakfast,
		Notes:          "with cinnamon",
	})
	require.NoError(t, err)
	require.Len(t, entry.Items, 3)

	oats := entry.Items[0]
	assert.Equal(t, "Oats", oats.Name)
	assert.Equal(t, 40.0, *oats.Quantity)
	assert.InDelta(t, 152.0, *oats.Macros.Calories, 1e-9)

	// no default quantity: quantity empty, per-unit macros copied unscaled
	banana := entry.Items[1]
	assert.Nil(t, banana.Quantity)
	assert.Equal(t, 105.0, *banana.Macros.Calories)
	require.NotNil(t, banana.FoodID)

	honey := entry.Items[2]
	assert.Nil(t, honey.FoodID)
	assert.Nil(t, honey.Quantity)
	assert.Equal(t, 64.0, *honey.Macros.Calories)

	log, err := svc.GetMealLog(ctx, "alice", "", "", nil)
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)
	assert.Equal(t, "Porridge", log.Entries[0].MealSchemaName)
}

func TestDeleteFood_KeepsLoggedSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")

	_, err := svc.LogMeal(ctx, "alice", LogMealInput{Items: []LogItem{FoodPortion{FoodName: "Banana", Quantity: 2}}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFood(ctx, "alice", "Banana"))

	_, err = svc.GetFood(ctx, "alice", "Banana")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	log, err := svc.GetMealLog(ctx, "alice", "", "", nil)
	require.NoError(t, err)
	require.Len(t, log.Entries, 1)
	assert.Equal(t, 210.0, *log.Entries[0].Items[0].Macros.Calories)
	assert.Equal(t, 2.6, RoundTenth(*log.Entries[0].Items[0].Macros.Protein))
}

func TestCreateMealSchema_MissingFoods(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")

	_, err := svc.CreateMealSchema(ctx, "alice", "Smoothie", "", []IngredientInput{
		{FoodName: "Banana"}, {FoodName: "Kale"}, {FoodName: "Whey"},
	})
	var missing *MissingFoodsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"Kale", "Whey"}, missing.Names)

	schemas, err := svc.ListMealSchemas(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, schemas)
}

func TestGetMealSchema_EstimatedTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")
	_, err := svc.CreateFood(ctx, "alice", FoodInput{Name: "Milk", BaseUnit: "ml", Macros: store.Macros{Calories: f64(0.5), Fat: f64(0.01)}})
	require.NoError(t, err)

	_, err = svc.CreateMealSchema(ctx, "alice", "Shake", "post workout", []IngredientInput{
		{FoodName: "Banana", DefaultQuantity: f64(1)},
		{FoodName: "Milk"},
	})
	require.NoError(t, err)

	_, err = svc.CreateMealSchema(ctx, "alice", "Shake", "", []IngredientInput{{FoodName: "Banana"}})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	detail, err := svc.GetMealSchema(ctx, "alice", "Shake")
	require.NoError(t, err)
	assert.Equal(t, "post workout", detail.Schema.Description)
	assert.Equal(t, 105.0, *detail.Totals.Calories)
	assert.Nil(t, detail.Totals.Fat, "ingredients without quantity do not contribute")
}

func TestLogMetric_DailyUpserts(t *testing.T) {
	svc, st := newTestService(t)
	ctx := t.Context()
	m, err := svc.CreateMetric(ctx, "alice", "Weight", "kg", store.ResolutionDaily, store.MetricTypeNumeric)
	require.NoError(t, err)

	_, err = svc.LogMetric(ctx, "alice", "Weight", f64(80), "2026-03-09")
	require.NoError(t, err)
	logged, err := svc.LogMetric(ctx, "alice", "Weight", f64(79.4), "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", logged.Entry.Date)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), logged.Entry.Timestamp)

	entries, err := st.ListMetricEntries(ctx, m.ID, time.Time{}, fixedNow.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 79.4, *entries[0].Value)
}

func TestLogMetric_TimestampedAppends(t *testing.T) {
	svc, st := newTestService(t)
	ctx := t.Context()
	m, err := svc.CreateMetric(ctx, "alice", "Gym", "", store.ResolutionTimestamped, store.MetricTypeCheckin)
	require.NoError(t, err)

	first, err := svc.LogMetric(ctx, "alice", "Gym", nil, "2020-01-01")
	require.NoError(t, err)
	_, err = svc.LogMetric(ctx, "alice", "Gym", nil, "")
	require.NoError(t, err)

	assert.Equal(t, "2026-03-10T15:30:00.000Z", first.Entry.Date, "date argument is ignored")

	entries, err := st.ListMetricEntries(ctx, m.ID, time.Time{}, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLogMetric_ValueKindMismatch(t *testing.T) {
	svc, st := newTestService(t)
	ctx := t.Context()
	weight, err := svc.CreateMetric(ctx, "alice", "Weight", "kg", store.ResolutionDaily, store.MetricTypeNumeric)
	require.NoError(t, err)
	gym, err := svc.CreateMetric(ctx, "alice", "Gym", "", store.ResolutionDaily, store.MetricTypeCheckin)
	require.NoError(t, err)

	_, err = svc.LogMetric(ctx, "alice", "Weight", nil, "")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, `Metric "Weight" is numeric — a value is required.`, ve.Message)

	_, err = svc.LogMetric(ctx, "alice", "Gym", f64(1), "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, `Metric "Gym" is checkin — value should not be provided.`, ve.Message)

	for _, id := range []string{weight.ID, gym.ID} {
		entries, err := st.ListMetricEntries(ctx, id, time.Time{}, fixedNow.Add(48*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, entries)
	}
}

func TestLogMetric_UnknownMetric(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.LogMetric(t.Context(), "alice", "Steps", f64(1000), "")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, EntityMetric, nf.Entity)
}

func TestGetMetricEntries_RangeIncludesWholeEndDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	_, err := svc.CreateMetric(ctx, "alice", "Water", "ml", store.ResolutionTimestamped, store.MetricTypeNumeric)
	require.NoError(t, err)

	// logged at fixedNow, late on the "to" day
	_, err = svc.LogMetric(ctx, "alice", "Water", f64(250), "")
	require.NoError(t, err)

	got, err := svc.GetMetricEntries(ctx, "alice", "Water", "2026-03-10", "2026-03-10")
	require.NoError(t, err)
	assert.Len(t, got.Entries, 1)

	got, err = svc.GetMetricEntries(ctx, "alice", "Water", "", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", got.From)
	assert.Equal(t, "2026-03-10", got.To)
	assert.Len(t, got.Entries, 1)

	got, err = svc.GetMetricEntries(ctx, "alice", "Water", "2026-03-01", "2026-03-09")
	require.NoError(t, err)
	assert.Empty(t, got.Entries)

	_, err = svc.GetMetricEntries(ctx, "alice", "Water", "March", "")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDeleteMetric(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	_, err := svc.CreateMetric(ctx, "alice", "Steps", "steps", store.ResolutionDaily, store.MetricTypeNumeric)
	require.NoError(t, err)
	_, err = svc.CreateMetric(ctx, "alice", "Steps", "steps", store.ResolutionDaily, store.MetricTypeNumeric)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	require.NoError(t, svc.DeleteMetric(ctx, "alice", "Steps"))
	err = svc.DeleteMetric(ctx, "alice", "Steps")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestOwnersAreIsolated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()
	createBanana(t, svc, "alice")

	_, err := svc.GetFood(ctx, "bob", "Banana")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = svc.LogMeal(ctx, "bob", LogMealInput{Items: []LogItem{FoodPortion{FoodName: "Banana", Quantity: 1}}})
	var missing *MissingFoodsError
	assert.ErrorAs(t, err, &missing)
}

func TestService_StoreFailuresAreInternal(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Close())
	svc := NewService(st)

	_, err = svc.ListFoods(t.Context(), "alice", "")
	require.Error(t, err)

	var nf *NotFoundError
	var ve *ValidationError
	var ce *ConflictError
	assert.False(t, errors.As(err, &nf))
	assert.False(t, errors.As(err, &ve))
	assert.False(t, errors.As(err, &ce))
}

func TestService_WorksWithMockStore(t *testing.T) {
	svc := NewService(store.NewMockStore(), WithClock(func() time.Time { return fixedNow }))
	ctx := t.Context()
	createBanana(t, svc, "alice")

	_, err := svc.LogMeal(ctx, "alice", LogMealInput{Items: []LogItem{FoodPortion{FoodName: "Banana", Quantity: 3}}})
	require.NoError(t, err)

	summary, err := svc.GetDailySummary(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", summary.Date)
	assert.Equal(t, 315.0, *summary.Totals.Rounded().Calories)
}
