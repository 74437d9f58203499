// ABOUTME: Registers the nutrition tool packs and shared text formatting helpers.
// ABOUTME: Maps nutrition domain errors onto tool error kinds with caller-facing messages.

package builtins

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/packs"
	"github.com/2389/nutrition-gateway/internal/store"
)

// RegisterAll registers every nutrition pack with the registry.
func RegisterAll(registry *packs.Registry, svc *nutrition.Service, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, pack := range []*packs.BuiltinPack{
		FoodsPack(svc),
		TemplatesPack(svc),
		MealLogPack(svc),
		MetricsPack(svc),
	} {
		if err := registry.RegisterBuiltinPack(pack); err != nil {
			return fmt.Errorf("registering %s: %w", pack.ID, err)
		}
	}
	logger.Debug("nutrition packs registered", "tools", len(registry.ListTools()))
	return nil
}

// toolError converts a nutrition error into a ToolError. Errors of other
// kinds are returned unchanged and abort the call.
func toolError(err error) error {
	var (
		notFound *nutrition.NotFoundError
		conflict *nutrition.ConflictError
		missing  *nutrition.MissingFoodsError
		invalid  *nutrition.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		return packs.NotFound(`No %s named "%s" found.`, notFound.Entity, notFound.Name)
	case errors.As(err, &conflict):
		return packs.Conflict(`A %s named "%s" already exists.`, conflict.Entity, conflict.Name)
	case errors.As(err, &missing):
		return packs.NotFound("Foods not found: %s. Create them first with create_food.", strings.Join(missing.Names, ", "))
	case errors.As(err, &invalid):
		return packs.Invalid("%s", invalid.Message)
	}
	return err
}

// num renders a number the way a JSON client would print it: shortest form,
// no trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// opt formats v with format (a single %s for the number) or returns "" when unset.
func opt(v *float64, format string) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf(format, num(*v))
}

// joinSet joins the non-empty parts.
func joinSet(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// macroSummary renders already-rounded totals. full adds fiber, sugar and sodium.
func macroSummary(m store.Macros, full bool) string {
	parts := []string{
		opt(m.Calories, "%s cal"),
		opt(m.Protein, "%sg protein"),
		opt(m.Fat, "%sg fat"),
		opt(m.Carbs, "%sg carbs"),
	}
	if full {
		parts = append(parts,
			opt(m.Fiber, "%sg fiber"),
			opt(m.Sugar, "%sg sugar"),
			opt(m.Sodium, "%smg sodium"),
		)
	}
	return joinSet(", ", parts...)
}

// macroFields describes the optional macro arguments shared by
// create_food, update_food and anonymous log items.
func macroFields(nullable bool, what string) []packs.Field {
	describe := func(s string) string {
		if what != "" {
			s += " " + what
		}
		if nullable {
			s += " (null to clear)"
		}
		return s
	}
	return []packs.Field{
		{Name: "calories", Type: packs.TypeNumber, Nullable: nullable, Description: describe("Calories")},
		{Name: "protein", Type: packs.TypeNumber, Nullable: nullable, Description: describe("Protein in grams")},
		{Name: "fat", Type: packs.TypeNumber, Nullable: nullable, Description: describe("Fat in grams")},
		{Name: "carbs", Type: packs.TypeNumber, Nullable: nullable, Description: describe("Carbs in grams")},
		{Name: "fiber", Type: packs.TypeNumber, Nullable: nullable, Description: describe("Fiber in grams")},
		{Name: "sugar", Type: packs.TypeNumber, Nullable: nullable, Description: describe("Sugar in grams")},
		{Name: "sodium", Type: packs.TypeNumber, Nullable: nullable, Description: describe("Sodium in milligrams")},
	}
}

// macroInput decodes the optional macro arguments.
type macroInput struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Fat      *float64 `json:"fat"`
	Carbs    *float64 `json:"carbs"`
	Fiber    *float64 `json:"fiber"`
	Sugar    *float64 `json:"sugar"`
	Sodium   *float64 `json:"sodium"`
}

func (m macroInput) macros() store.Macros {
	return store.Macros{
		Calories: m.Calories,
		Protein:  m.Protein,
		Fat:      m.Fat,
		Carbs:    m.Carbs,
		Fiber:    m.Fiber,
		Sugar:    m.Sugar,
		Sodium:   m.Sodium,
	}
}

func timeOfDayField(description string) packs.Field {
	return packs.Field{
		Name:        "timeOfDay",
		Type:        packs.TypeString,
		Enum:        []string{"breakfast", "lunch", "dinner", "snack"},
		Description: description,
	}
}
