// ABOUTME: Foods pack manages the caller's food library.
// ABOUTME: Tools create, update, list, show and delete foods with per-unit macros.

package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/packs"
	"github.com/2389/nutrition-gateway/internal/store"
)

var sourceEnum = []string{
	string(store.FoodSourceVerified),
	string(store.FoodSourceEstimated),
	string(store.FoodSourceUnknown),
}

// FoodsPack creates the food library pack.
func FoodsPack(svc *nutrition.Service) *packs.BuiltinPack {
	f := &foodHandlers{svc: svc}

	createFields := append([]packs.Field{
		{Name: "name", Type: packs.TypeString, Required: true, Description: `Food name (e.g. "Chicken Breast")`},
		{Name: "baseUnit", Type: packs.TypeString, Required: true, Description: `What one unit means (e.g. "1 oz", "1 medium apple")`},
		{Name: "defaultServings", Type: packs.TypeArray, Items: &packs.Field{Type: packs.TypeString}, Description: `Common serving sizes (e.g. ["16 oz (1 lb)"])`},
	}, macroFields(false, "per base unit")...)
	createFields = append(createFields, packs.Field{Name: "source", Type: packs.TypeString, Enum: sourceEnum, Description: "Data quality source"})

	updateFields := append([]packs.Field{
		{Name: "name", Type: packs.TypeString, Required: true, Description: "Food name to update"},
		{Name: "newName", Type: packs.TypeString, Description: "Rename the food"},
		{Name: "baseUnit", Type: packs.TypeString, Description: "New base unit"},
		{Name: "defaultServings", Type: packs.TypeArray, Items: &packs.Field{Type: packs.TypeString}, Description: "New default servings list"},
	}, macroFields(true, "")...)
	updateFields = append(updateFields, packs.Field{Name: "source", Type: packs.TypeString, Enum: sourceEnum, Description: "Data quality source"})

	return &packs.BuiltinPack{
		ID: "builtin:foods",
		Tools: []*packs.BuiltinTool{
			packs.Tool("create_food",
				"Add a food item to your library with nutritional data per base unit",
				packs.Object(createFields...),
				packs.Typed(f.Create)),
			packs.Tool("update_food",
				"Update an existing food item in your library",
				packs.Object(updateFields...),
				packs.Typed(f.Update)),
			packs.Tool("list_foods",
				"List food items in your library, optionally filtered by name",
				packs.Object(packs.Field{Name: "search", Type: packs.TypeString, Description: "Case-insensitive name filter"}),
				packs.Typed(f.List)),
			packs.Tool("get_food",
				"Get full details for a food item",
				packs.Object(packs.Field{Name: "name", Type: packs.TypeString, Required: true, Description: "Food name"}),
				packs.Typed(f.Get)),
			packs.Tool("delete_food",
				"Delete a food item from your library. Meal schema ingredients using it are removed; logged meal items keep their snapshotted macros.",
				packs.Object(packs.Field{Name: "name", Type: packs.TypeString, Required: true, Description: "Food name to delete"}),
				packs.Typed(f.Delete)),
		},
	}
}

type foodHandlers struct {
	svc *nutrition.Service
}

type createFoodInput struct {
	Name            string   `json:"name"`
	BaseUnit        string   `json:"baseUnit"`
	DefaultServings []string `json:"defaultServings"`
	macroInput
	Source string `json:"source"`
}

func (f *foodHandlers) Create(ctx context.Context, subject string, in createFoodInput) (string, error) {
	food, err := f.svc.CreateFood(ctx, subject, nutrition.FoodInput{
		Name:            in.Name,
		BaseUnit:        in.BaseUnit,
		DefaultServings: in.DefaultServings,
		Macros:          in.macros(),
		Source:          store.FoodSource(in.Source),
	})
	if err != nil {
		return "", toolError(err)
	}

	text := fmt.Sprintf(`Created food "%s" (per %s)`, food.Name, food.BaseUnit)
	if macros := macroSummary(food.Macros, false); macros != "" {
		text += ": " + macros
	}
	return text, nil
}

type updateFoodInput struct {
	Name            string                  `json:"name"`
	NewName         *string                 `json:"newName"`
	BaseUnit        *string                 `json:"baseUnit"`
	DefaultServings *[]string               `json:"defaultServings"`
	Calories        packs.Nullable[float64] `json:"calories"`
	Protein         packs.Nullable[float64] `json:"protein"`
	Fat             packs.Nullable[float64] `json:"fat"`
	Carbs           packs.Nullable[float64] `json:"carbs"`
	Fiber           packs.Nullable[float64] `json:"fiber"`
	Sugar           packs.Nullable[float64] `json:"sugar"`
	Sodium          packs.Nullable[float64] `json:"sodium"`
	Source          *store.FoodSource       `json:"source"`
}

func patch(n packs.Nullable[float64]) nutrition.Patch[float64] {
	return nutrition.Patch[float64]{Set: n.Set, Value: n.Ptr()}
}

func (f *foodHandlers) Update(ctx context.Context, subject string, in updateFoodInput) (string, error) {
	food, err := f.svc.UpdateFood(ctx, subject, in.Name, nutrition.FoodUpdate{
		NewName:         in.NewName,
		BaseUnit:        in.BaseUnit,
		DefaultServings: in.DefaultServings,
		Source:          in.Source,
		Macros: nutrition.MacroPatch{
			Calories: patch(in.Calories),
			Protein:  patch(in.Protein),
			Fat:      patch(in.Fat),
			Carbs:    patch(in.Carbs),
			Fiber:    patch(in.Fiber),
			Sugar:    patch(in.Sugar),
			Sodium:   patch(in.Sodium),
		},
	})
	if err != nil {
		return "", toolError(err)
	}
	return fmt.Sprintf(`Updated food "%s".`, food.Name), nil
}

type listFoodsInput struct {
	Search string `json:"search"`
}

func (f *foodHandlers) List(ctx context.Context, subject string, in listFoodsInput) (string, error) {
	foods, err := f.svc.ListFoods(ctx, subject, in.Search)
	if err != nil {
		return "", err
	}
	if len(foods) == 0 {
		if in.Search != "" {
			return fmt.Sprintf(`No foods matching "%s".`, in.Search), nil
		}
		return "No foods in your library yet. Use create_food to get started.", nil
	}

	lines := make([]string, 0, len(foods))
	for _, food := range foods {
		line := fmt.Sprintf("- %s (per %s)", food.Name, food.BaseUnit)
		macros := joinSet(", ",
			opt(food.Macros.Calories, "%s cal"),
			opt(food.Macros.Protein, "%sg P"),
			opt(food.Macros.Fat, "%sg F"),
			opt(food.Macros.Carbs, "%sg C"),
		)
		if macros != "" {
			line += " — " + macros
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

type foodNameInput struct {
	Name string `json:"name"`
}

func (f *foodHandlers) Get(ctx context.Context, subject string, in foodNameInput) (string, error) {
	food, err := f.svc.GetFood(ctx, subject, in.Name)
	if err != nil {
		return "", toolError(err)
	}

	orDash := func(v *float64, format string) string {
		if s := opt(v, format); s != "" {
			return s
		}
		return "—"
	}

	lines := []string{
		"Name: " + food.Name,
		"Base unit: " + food.BaseUnit,
	}
	if len(food.DefaultServings) > 0 {
		lines = append(lines, "Default servings: "+strings.Join(food.DefaultServings, ", "))
	}
	lines = append(lines,
		"Source: "+string(food.Source),
		"",
		"Macros per base unit:",
		"  Calories: "+orDash(food.Macros.Calories, "%s"),
		"  Protein: "+orDash(food.Macros.Protein, "%sg"),
		"  Fat: "+orDash(food.Macros.Fat, "%sg"),
		"  Carbs: "+orDash(food.Macros.Carbs, "%sg"),
		"  Fiber: "+orDash(food.Macros.Fiber, "%sg"),
		"  Sugar: "+orDash(food.Macros.Sugar, "%sg"),
		"  Sodium: "+orDash(food.Macros.Sodium, "%smg"),
	)
	return strings.Join(lines, "\n"), nil
}

func (f *foodHandlers) Delete(ctx context.Context, subject string, in foodNameInput) (string, error) {
	if err := f.svc.DeleteFood(ctx, subject, in.Name); err != nil {
		return "", toolError(err)
	}
	return fmt.Sprintf(`Deleted food "%s".`, in.Name), nil
}
