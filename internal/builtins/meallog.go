// ABOUTME: Meal log pack records meals and answers range and daily summary queries.
// ABOUTME: Log items are either library food portions or anonymous items with inline macros.

package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/packs"
	"github.com/2389/nutrition-gateway/internal/store"
)

const minuteLayout = "2006-01-02T15:04"

// MealLogPack creates the meal logging and query pack.
func MealLogPack(svc *nutrition.Service) *packs.BuiltinPack {
	h := &mealLogHandlers{svc: svc}

	portion := packs.Field{Type: packs.TypeObject, Properties: []packs.Field{
		{Name: "foodName", Type: packs.TypeString, Required: true, Description: "Name of a food from your library"},
		{Name: "quantity", Type: packs.TypeNumber, Required: true, Description: "Quantity in base units"},
	}}
	anonymous := packs.Field{Type: packs.TypeObject, Properties: append([]packs.Field{
		{Name: "name", Type: packs.TypeString, Required: true, Description: "Description of the anonymous item"},
	}, macroFields(false, "")...)}

	return &packs.BuiltinPack{
		ID: "builtin:meallog",
		Tools: []*packs.BuiltinTool{
			packs.Tool("log_meal",
				"Log a meal. Use a meal template, ad-hoc food items, anonymous items with inline macros, or any combination.",
				packs.Object(
					packs.Field{Name: "mealSchemaName", Type: packs.TypeString, Description: "Name of a meal template to log from"},
					packs.Field{
						Name:        "items",
						Type:        packs.TypeArray,
						Items:       &packs.Field{OneOf: []packs.Field{portion, anonymous}},
						Description: "Additional or ad-hoc items",
					},
					timeOfDayField("Meal type"),
					packs.Field{Name: "loggedAt", Type: packs.TypeString, Description: "ISO datetime or YYYY-MM-DD (defaults to now)"},
					packs.Field{Name: "notes", Type: packs.TypeString, Description: "Optional notes"},
				),
				packs.Typed(h.LogMeal)),
			packs.Tool("get_meal_log",
				"Query meal log entries by date range",
				packs.Object(
					packs.Field{Name: "from", Type: packs.TypeString, Description: "Start date (YYYY-MM-DD), defaults to today"},
					packs.Field{Name: "to", Type: packs.TypeString, Description: "End date (YYYY-MM-DD), defaults to today"},
					timeOfDayField("Filter by meal type"),
				),
				packs.Typed(h.GetMealLog)),
			packs.Tool("get_daily_summary",
				"Get a daily nutrition summary with total macros and per-meal-type breakdown",
				packs.Object(
					packs.Field{Name: "date", Type: packs.TypeString, Description: "Date in YYYY-MM-DD format (defaults to today)"},
				),
				packs.Typed(h.GetDailySummary)),
		},
	}
}

type mealLogHandlers struct {
	svc *nutrition.Service
}

// logItemArg decodes one element of log_meal's items: a food portion when
// foodName is present, an anonymous item otherwise.
type logItemArg struct {
	item nutrition.LogItem
}

func (a *logItemArg) UnmarshalJSON(b []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	if _, ok := probe["foodName"]; ok {
		var p struct {
			FoodName string  `json:"foodName"`
			Quantity float64 `json:"quantity"`
		}
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		a.item = nutrition.FoodPortion{FoodName: p.FoodName, Quantity: p.Quantity}
		return nil
	}

	var anon struct {
		Name string `json:"name"`
		macroInput
	}
	if err := json.Unmarshal(b, &anon); err != nil {
		return err
	}
	a.item = nutrition.InlineItem{Name: anon.Name, Macros: anon.macros()}
	return nil
}

type logMealInput struct {
	MealSchemaName string           `json:"mealSchemaName"`
	Items          []logItemArg     `json:"items"`
	TimeOfDay      *store.TimeOfDay `json:"timeOfDay"`
	LoggedAt       string           `json:"loggedAt"`
	Notes          string           `json:"notes"`
}

func (h *mealLogHandlers) LogMeal(ctx context.Context, subject string, in logMealInput) (string, error) {
	items := make([]nutrition.LogItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, it.item)
	}

	entry, err := h.svc.LogMeal(ctx, subject, nutrition.LogMealInput{
		MealSchemaName: in.MealSchemaName,
		Items:          items,
		TimeOfDay:      in.TimeOfDay,
		LoggedAt:       in.LoggedAt,
		Notes:          in.Notes,
	})
	if err != nil {
		return "", toolError(err)
	}

	var calories float64
	for _, item := range entry.Items {
		if item.Macros.Calories != nil {
			calories += *item.Macros.Calories
		}
	}

	parts := []string{fmt.Sprintf("Logged %d item(s)", len(entry.Items))}
	if entry.TimeOfDay != nil {
		parts = append(parts, "for "+string(*entry.TimeOfDay))
	}
	parts = append(parts,
		fmt.Sprintf("(%s cal total)", num(nutrition.RoundWhole(calories))),
		"at "+entry.LoggedAt.UTC().Format(minuteLayout),
	)
	return strings.Join(parts, " "), nil
}

type mealLogQueryInput struct {
	From      string           `json:"from"`
	To        string           `json:"to"`
	TimeOfDay *store.TimeOfDay `json:"timeOfDay"`
}

func (h *mealLogHandlers) GetMealLog(ctx context.Context, subject string, in mealLogQueryInput) (string, error) {
	log, err := h.svc.GetMealLog(ctx, subject, in.From, in.To, in.TimeOfDay)
	if err != nil {
		return "", toolError(err)
	}
	if len(log.Entries) == 0 {
		return fmt.Sprintf("No meals logged between %s and %s.", log.From, log.To), nil
	}

	var lines []string
	for _, entry := range log.Entries {
		lines = append(lines, entryHeader(entry))
		for _, item := range entry.Items {
			lines = append(lines, itemLine(item))
		}
		if entry.Notes != "" {
			lines = append(lines, "  Note: "+entry.Notes)
		}
		lines = append(lines, "")
	}

	if totals := macroSummary(log.Totals.Rounded(), false); totals != "" {
		lines = append(lines, "Totals: "+totals)
	}
	return strings.Join(lines, "\n"), nil
}

func entryHeader(entry *store.MealLogEntry) string {
	parts := []string{entry.LoggedAt.UTC().Format(minuteLayout)}
	if entry.TimeOfDay != nil {
		parts = append(parts, string(*entry.TimeOfDay))
	}
	if entry.MealSchemaName != "" {
		parts = append(parts, "("+entry.MealSchemaName+")")
	}
	return strings.Join(parts, " ")
}

func itemLine(item *store.MealLogItem) string {
	name := item.Name
	if name == "" {
		name = "unnamed"
	}
	line := "  - " + name
	if item.Quantity != nil {
		line += " × " + num(*item.Quantity)
	}

	var cal, protein *float64
	if item.Macros.Calories != nil {
		v := nutrition.RoundWhole(*item.Macros.Calories)
		cal = &v
	}
	if item.Macros.Protein != nil {
		v := nutrition.RoundTenth(*item.Macros.Protein)
		protein = &v
	}
	if macros := joinSet(", ", opt(cal, "%s cal"), opt(protein, "%sg P")); macros != "" {
		line += " — " + macros
	}
	return line
}

type dailySummaryInput struct {
	Date string `json:"date"`
}

func (h *mealLogHandlers) GetDailySummary(ctx context.Context, subject string, in dailySummaryInput) (string, error) {
	summary, err := h.svc.GetDailySummary(ctx, subject, in.Date)
	if err != nil {
		return "", toolError(err)
	}
	if summary.EntryCount == 0 {
		return fmt.Sprintf("No meals logged on %s.", summary.Date), nil
	}

	lines := []string{
		"Daily summary for " + summary.Date,
		fmt.Sprintf("%d meal(s) logged", summary.EntryCount),
		"",
		"Totals: " + macroSummary(summary.Totals.Rounded(), true),
	}
	for _, cat := range summary.ByCategory {
		lines = append(lines, fmt.Sprintf("  %s: %s", cat.Category, macroSummary(cat.Totals.Rounded(), true)))
	}
	return strings.Join(lines, "\n"), nil
}

