// ABOUTME: Log item variants and macro scaling
// ABOUTME: Turns food portions, inline items and template ingredients into frozen log item snapshots

package nutrition

import "github.com/2389/nutrition-gateway/internal/store"

// LogItem is one requested item in a log_meal call. It is either a
// FoodPortion or an InlineItem.
type LogItem interface {
	isLogItem()
}

// FoodPortion references a library food by name with a quantity in its base unit.
type FoodPortion struct {
	FoodName string
	Quantity float64
}

// InlineItem is an anonymous item whose macros are already totals.
type InlineItem struct {
	Name   string
	Macros store.Macros
}

func (FoodPortion) isLogItem() {}
func (InlineItem) isLogItem()  {}

// ScaleMacros multiplies every defined per-unit field by qty. Unset fields stay unset.
func ScaleMacros(perUnit store.Macros, qty float64) store.Macros {
	scale := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		out := *v * qty
		return &out
	}
	return store.Macros{
		Calories: scale(perUnit.Calories),
		Protein:  scale(perUnit.Protein),
		Fat:      scale(perUnit.Fat),
		Carbs:    scale(perUnit.Carbs),
		Fiber:    scale(perUnit.Fiber),
		Sugar:    scale(perUnit.Sugar),
		Sodium:   scale(perUnit.Sodium),
	}
}

func copyMacros(m store.Macros) store.Macros {
	return ScaleMacros(m, 1)
}

// portionItem freezes a library food at the given quantity.
func portionItem(food *store.Food, qty float64) *store.MealLogItem {
	id := food.ID
	q := qty
	return &store.MealLogItem{
		FoodID:   &id,
		Name:     food.Name,
		Quantity: &q,
		Macros:   ScaleMacros(food.Macros, qty),
	}
}

// ingredientItem freezes one template ingredient. Without a default quantity
// the quantity stays empty and the per-unit macros are copied unscaled.
func ingredientItem(ing *store.MealSchemaIngredient) *store.MealLogItem {
	if ing.DefaultQuantity != nil {
		return portionItem(ing.Food, *ing.DefaultQuantity)
	}
	id := ing.Food.ID
	return &store.MealLogItem{
		FoodID: &id,
		Name:   ing.Food.Name,
		Macros: copyMacros(ing.Food.Macros),
	}
}

// inlineItem stores the supplied macros as totals.
func inlineItem(item InlineItem) *store.MealLogItem {
	return &store.MealLogItem{
		Name:   item.Name,
		Macros: copyMacros(item.Macros),
	}
}
