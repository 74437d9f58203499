// ABOUTME: Meal templates, meal logging and meal log queries
// ABOUTME: Resolves templates and ad-hoc foods before writing anything so failed logs persist nothing

package nutrition

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/nutrition-gateway/internal/store"
)

// IngredientInput is one template ingredient by food name.
type IngredientInput struct {
	FoodName        string
	DefaultQuantity *float64
}

// CreateMealSchema creates a template. Every food must already exist.
func (s *Service) CreateMealSchema(ctx context.Context, owner, name, description string, ingredients []IngredientInput) (*store.MealSchema, error) {
	names := make([]string, len(ingredients))
	for i, ing := range ingredients {
		names[i] = ing.FoodName
	}
	foods, err := s.foodsByName(ctx, owner, names)
	if err != nil {
		return nil, err
	}

	schema := &store.MealSchema{
		OwnerID:     owner,
		Name:        name,
		Description: description,
	}
	for _, ing := range ingredients {
		food := foods[ing.FoodName]
		schema.Ingredients = append(schema.Ingredients, &store.MealSchemaIngredient{
			FoodID:          food.ID,
			DefaultQuantity: ing.DefaultQuantity,
			Food:            food,
		})
	}

	if err := s.store.CreateMealSchema(ctx, schema); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ConflictError{Entity: EntityMealSchema, Name: name}
		}
		return nil, fmt.Errorf("creating meal schema: %w", err)
	}
	s.logger.Info("meal schema created", "owner", owner, "name", name, "ingredients", len(ingredients))
	return schema, nil
}

// ListMealSchemas returns the owner's templates with ingredient counts.
func (s *Service) ListMealSchemas(ctx context.Context, owner string) ([]*store.MealSchema, error) {
	schemas, err := s.store.ListMealSchemas(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing meal schemas: %w", err)
	}
	return schemas, nil
}

// MealSchemaDetail is a template plus the totals of its ingredients that
// carry a default quantity.
type MealSchemaDetail struct {
	Schema *store.MealSchema
	Totals Totals
}

// GetMealSchema returns the named template with estimated totals.
func (s *Service) GetMealSchema(ctx context.Context, owner, name string) (*MealSchemaDetail, error) {
	schema, err := s.store.GetMealSchema(ctx, owner, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Entity: EntityMealSchema, Name: name}
		}
		return nil, fmt.Errorf("getting meal schema: %w", err)
	}

	detail := &MealSchemaDetail{Schema: schema}
	for _, ing := range schema.Ingredients {
		if ing.DefaultQuantity != nil {
			detail.Totals.Add(ScaleMacros(ing.Food.Macros, *ing.DefaultQuantity))
		}
	}
	return detail, nil
}

// DeleteMealSchema removes the named template. Entries logged from it keep
// the template name.
func (s *Service) DeleteMealSchema(ctx context.Context, owner, name string) error {
	if err := s.store.DeleteMealSchema(ctx, owner, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Entity: EntityMealSchema, Name: name}
		}
		return fmt.Errorf("deleting meal schema: %w", err)
	}
	s.logger.Info("meal schema deleted", "owner", owner, "name", name)
	return nil
}

// LogMealInput is a log_meal request. At least one of MealSchemaName and
// Items must be given.
type LogMealInput struct {
	MealSchemaName string
	Items          []LogItem
	TimeOfDay      *store.TimeOfDay
	LoggedAt       string
	Notes          string
}

// LogMeal writes one entry with template items first, then the requested
// items in order. Unknown templates or foods write nothing.
func (s *Service) LogMeal(ctx context.Context, owner string, in LogMealInput) (*store.MealLogEntry, error) {
	if in.MealSchemaName == "" && len(in.Items) == 0 {
		return nil, &ValidationError{Message: "At least one of mealSchemaName or items is required."}
	}

	loggedAt := s.now().UTC()
	if in.LoggedAt != "" {
		t, err := parseLoggedAt(in.LoggedAt)
		if err != nil {
			return nil, err
		}
		loggedAt = t
	}

	entry := &store.MealLogEntry{
		OwnerID:   owner,
		LoggedAt:  loggedAt,
		TimeOfDay: in.TimeOfDay,
		Notes:     in.Notes,
	}

	if in.MealSchemaName != "" {
		schema, err := s.store.GetMealSchema(ctx, owner, in.MealSchemaName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &NotFoundError{Entity: EntityMealSchema, Name: in.MealSchemaName}
			}
			return nil, fmt.Errorf("getting meal schema: %w", err)
		}
		id := schema.ID
		entry.MealSchemaID = &id
		entry.MealSchemaName = schema.Name
		for _, ing := range schema.Ingredients {
			entry.Items = append(entry.Items, ingredientItem(ing))
		}
	}

	var foodNames []string
	for _, item := range in.Items {
		if p, ok := item.(FoodPortion); ok {
			foodNames = append(foodNames, p.FoodName)
		}
	}
	var foods map[string]*store.Food
	if len(foodNames) > 0 {
		var err error
		if foods, err = s.foodsByName(ctx, owner, foodNames); err != nil {
			return nil, err
		}
	}

	for _, item := range in.Items {
		switch it := item.(type) {
		case FoodPortion:
			entry.Items = append(entry.Items, portionItem(foods[it.FoodName], it.Quantity))
		case InlineItem:
			entry.Items = append(entry.Items, inlineItem(it))
		default:
			return nil, fmt.Errorf("unsupported log item %T", item)
		}
	}

	if err := s.store.CreateMealLogEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("logging meal: %w", err)
	}
	s.logger.Info("meal logged", "owner", owner, "entry_id", entry.ID, "items", len(entry.Items))
	return entry, nil
}

// MealLog is the result of a meal log range query.
type MealLog struct {
	From    string
	To      string
	Entries []*store.MealLogEntry
	Totals  Totals
}

// GetMealLog returns entries logged on the days from..to inclusive, oldest
// first. Both bounds default to today.
func (s *Service) GetMealLog(ctx context.Context, owner, from, to string, timeOfDay *store.TimeOfDay) (*MealLog, error) {
	today := FormatDay(s.today())
	r, from, to, err := daysBetween(from, to, today, today)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListMealLogEntries(ctx, store.MealLogFilter{
		OwnerID:   owner,
		From:      r.From,
		To:        r.To,
		TimeOfDay: timeOfDay,
	})
	if err != nil {
		return nil, fmt.Errorf("listing meal log: %w", err)
	}

	return &MealLog{
		From:    from,
		To:      to,
		Entries: entries,
		Totals:  SumEntries(entries),
	}, nil
}

// DailySummary is the rollup of one day of meals.
type DailySummary struct {
	Date       string
	EntryCount int
	Totals     Totals
	ByCategory []CategoryTotals
}

// GetDailySummary totals the given day (default today) with a per-category breakdown.
func (s *Service) GetDailySummary(ctx context.Context, owner, date string) (*DailySummary, error) {
	log, err := s.GetMealLog(ctx, owner, date, date, nil)
	if err != nil {
		return nil, err
	}
	return &DailySummary{
		Date:       log.From,
		EntryCount: len(log.Entries),
		Totals:     log.Totals,
		ByCategory: Breakdown(log.Entries),
	}, nil
}
