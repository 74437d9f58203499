// ABOUTME: Aggregation of logged meals into totals, per-category breakdowns and daily series
// ABOUTME: Sums skip unset fields; rounding is applied only for display

package nutrition

import (
	"math"
	"time"

	"github.com/2389/nutrition-gateway/internal/store"
)

// Unspecified is the breakdown bucket for entries logged without a category.
const Unspecified = "unspecified"

// CategoryOrder is the fixed display order of the per-category breakdown.
var CategoryOrder = []string{
	string(store.TimeOfDayBreakfast),
	string(store.TimeOfDayLunch),
	string(store.TimeOfDayDinner),
	string(store.TimeOfDaySnack),
	Unspecified,
}

// Totals accumulates macro sums. A nil field has had no contributions, which
// is different from a contribution of zero.
type Totals struct {
	store.Macros
}

// Add folds the defined fields of m into t.
func (t *Totals) Add(m store.Macros) {
	add := func(dst **float64, v *float64) {
		if v == nil {
			return
		}
		sum := *v
		if *dst != nil {
			sum += **dst
		}
		// fresh pointer so copies of a Totals never share sums
		*dst = &sum
	}
	add(&t.Calories, m.Calories)
	add(&t.Protein, m.Protein)
	add(&t.Fat, m.Fat)
	add(&t.Carbs, m.Carbs)
	add(&t.Fiber, m.Fiber)
	add(&t.Sugar, m.Sugar)
	add(&t.Sodium, m.Sodium)
}

// AddEntry folds every item of e into t.
func (t *Totals) AddEntry(e *store.MealLogEntry) {
	for _, item := range e.Items {
		t.Add(item.Macros)
	}
}

// Rounded returns a display copy: calories and sodium to whole numbers, the
// rest to one decimal. Unset fields stay unset.
func (t Totals) Rounded() store.Macros {
	r := func(v *float64, fn func(float64) float64) *float64 {
		if v == nil {
			return nil
		}
		out := fn(*v)
		return &out
	}
	return store.Macros{
		Calories: r(t.Calories, RoundWhole),
		Protein:  r(t.Protein, RoundTenth),
		Fat:      r(t.Fat, RoundTenth),
		Carbs:    r(t.Carbs, RoundTenth),
		Fiber:    r(t.Fiber, RoundTenth),
		Sugar:    r(t.Sugar, RoundTenth),
		Sodium:   r(t.Sodium, RoundWhole),
	}
}

// RoundWhole rounds half up to an integer.
func RoundWhole(v float64) float64 {
	return math.Floor(v + 0.5)
}

// RoundTenth rounds half up to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// SumEntries totals every item across entries.
func SumEntries(entries []*store.MealLogEntry) Totals {
	var t Totals
	for _, e := range entries {
		t.AddEntry(e)
	}
	return t
}

// CategoryTotals is one row of a per-category breakdown.
type CategoryTotals struct {
	Category string
	Totals   Totals
}

// Breakdown partitions entries by category in CategoryOrder. A category
// appears once any entry carries it, even if its items have no macros.
func Breakdown(entries []*store.MealLogEntry) []CategoryTotals {
	byCategory := make(map[string]*Totals)
	for _, e := range entries {
		cat := Unspecified
		if e.TimeOfDay != nil {
			cat = string(*e.TimeOfDay)
		}
		t, ok := byCategory[cat]
		if !ok {
			t = &Totals{}
			byCategory[cat] = t
		}
		t.AddEntry(e)
	}

	var out []CategoryTotals
	for _, cat := range CategoryOrder {
		if t, ok := byCategory[cat]; ok {
			out = append(out, CategoryTotals{Category: cat, Totals: *t})
		}
	}
	return out
}

// DayTotals is one point of a daily nutrition series.
type DayTotals struct {
	Date   string
	Totals Totals
}

// DailySeries buckets entries by the UTC day of LoggedAt over days
// consecutive days ending on last. Days without entries get empty totals.
func DailySeries(entries []*store.MealLogEntry, last time.Time, days int) []DayTotals {
	series := make([]DayTotals, days)
	index := make(map[string]int, days)
	first := startOfDay(last).Add(-time.Duration(days-1) * day)
	for i := range series {
		d := FormatDay(first.Add(time.Duration(i) * day))
		series[i].Date = d
		index[d] = i
	}
	for _, e := range entries {
		i, ok := index[FormatDay(e.LoggedAt)]
		if !ok {
			continue
		}
		series[i].Totals.AddEntry(e)
	}
	return series
}
