// ABOUTME: Templates pack manages reusable meal templates built from the food library.
// ABOUTME: Shows estimated totals for ingredients that carry a default quantity.

package builtins

import (
	"context"
	"fmt"
	"strings"

	"github.com/2389/nutrition-gateway/internal/nutrition"
	"github.com/2389/nutrition-gateway/internal/packs"
)

// TemplatesPack creates the meal template pack.
func TemplatesPack(svc *nutrition.Service) *packs.BuiltinPack {
	h := &templateHandlers{svc: svc}
	nameField := func(desc string) packs.Field {
		return packs.Field{Name: "name", Type: packs.TypeString, Required: true, Description: desc}
	}

	return &packs.BuiltinPack{
		ID: "builtin:templates",
		Tools: []*packs.BuiltinTool{
			packs.Tool("create_meal_schema",
				"Create a reusable meal template with ingredients from your food library",
				packs.Object(
					nameField(`Meal template name (e.g. "Morning Oatmeal")`),
					packs.Field{Name: "description", Type: packs.TypeString, Description: "Optional description"},
					packs.Field{
						Name:        "ingredients",
						Type:        packs.TypeArray,
						Required:    true,
						Description: "List of ingredients",
						Items: &packs.Field{Type: packs.TypeObject, Properties: []packs.Field{
							{Name: "foodName", Type: packs.TypeString, Required: true, Description: "Name of a food from your library"},
							{Name: "defaultQuantity", Type: packs.TypeNumber, Description: "Default quantity in base units (omit to prompt at log time)"},
						}},
					},
				),
				packs.Typed(h.Create)),
			packs.Tool("list_meal_schemas",
				"List your meal templates",
				packs.Object(),
				packs.Typed(h.List)),
			packs.Tool("get_meal_schema",
				"Get full details for a meal template including ingredients and computed macro totals",
				packs.Object(nameField("Meal template name")),
				packs.Typed(h.Get)),
			packs.Tool("delete_meal_schema",
				"Delete a meal template. Logged meals that used it keep their data.",
				packs.Object(nameField("Meal template name to delete")),
				packs.Typed(h.Delete)),
		},
	}
}

type templateHandlers struct {
	svc *nutrition.Service
}

type ingredientArg struct {
	FoodName        string   `json:"foodName"`
	DefaultQuantity *float64 `json:"defaultQuantity"`
}

type createTemplateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Ingredients []ingredientArg `json:"ingredients"`
}

func (h *templateHandlers) Create(ctx context.Context, subject string, in createTemplateInput) (string, error) {
	ingredients := make([]nutrition.IngredientInput, 0, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		ingredients = append(ingredients, nutrition.IngredientInput{
			FoodName:        ing.FoodName,
			DefaultQuantity: ing.DefaultQuantity,
		})
	}

	schema, err := h.svc.CreateMealSchema(ctx, subject, in.Name, in.Description, ingredients)
	if err != nil {
		return "", toolError(err)
	}
	return fmt.Sprintf(`Created meal template "%s" with %d ingredient(s).`, schema.Name, len(ingredients)), nil
}

func (h *templateHandlers) List(ctx context.Context, subject string, _ struct{}) (string, error) {
	schemas, err := h.svc.ListMealSchemas(ctx, subject)
	if err != nil {
		return "", err
	}
	if len(schemas) == 0 {
		return "No meal templates yet. Use create_meal_schema to get started.", nil
	}

	lines := make([]string, 0, len(schemas))
	for _, s := range schemas {
		noun := "ingredients"
		if s.IngredientCount == 1 {
			noun = "ingredient"
		}
		lines = append(lines, fmt.Sprintf("- %s (%d %s)", withDescription(s.Name, s.Description), s.IngredientCount, noun))
	}
	return strings.Join(lines, "\n"), nil
}

func withDescription(name, description string) string {
	if description == "" {
		return name
	}
	return name + " — " + description
}

type templateNameInput struct {
	Name string `json:"name"`
}

func (h *templateHandlers) Get(ctx context.Context, subject string, in templateNameInput) (string, error) {
	detail, err := h.svc.GetMealSchema(ctx, subject, in.Name)
	if err != nil {
		return "", toolError(err)
	}
	schema := detail.Schema

	lines := []string{withDescription(schema.Name, schema.Description), "", "Ingredients:"}
	for _, ing := range schema.Ingredients {
		if ing.DefaultQuantity != nil {
			lines = append(lines, fmt.Sprintf("- %s × %s %s", ing.Food.Name, num(*ing.DefaultQuantity), ing.Food.BaseUnit))
		} else {
			lines = append(lines, fmt.Sprintf("- %s (quantity set at log time, per %s)", ing.Food.Name, ing.Food.BaseUnit))
		}
	}

	if totals := macroSummary(detail.Totals.Rounded(), false); totals != "" {
		lines = append(lines, "", "Estimated totals (default quantities): "+totals)
	}
	return strings.Join(lines, "\n"), nil
}

func (h *templateHandlers) Delete(ctx context.Context, subject string, in templateNameInput) (string, error) {
	if err := h.svc.DeleteMealSchema(ctx, subject, in.Name); err != nil {
		return "", toolError(err)
	}
	return fmt.Sprintf(`Deleted meal template "%s".`, in.Name), nil
}
