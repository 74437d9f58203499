// ABOUTME: Meal schema (template) and meal log persistence for the SQLite store
// ABOUTME: Multi-row writes run in a single transaction so partial templates or entries never persist

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateMealSchema inserts a schema and its ingredients atomically.
// Returns ErrDuplicate if the owner already has a schema with that name.
func (s *SQLiteStore) CreateMealSchema(ctx context.Context, schema *MealSchema) error {
	if schema.ID == "" {
		schema.ID = uuid.New().String()
	}
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now().UTC()
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meal_schemas (id, owner_id, name, description, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, schema.ID, schema.OwnerID, schema.Name, nullString(schema.Description), formatTime(schema.CreatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("inserting meal schema: %w", err)
		}

		for i, ing := range schema.Ingredients {
			if ing.ID == "" {
				ing.ID = uuid.New().String()
			}
			ing.MealSchemaID = schema.ID
			ing.Position = i
			_, err := tx.ExecContext(ctx, `
				INSERT INTO meal_schema_ingredients (id, meal_schema_id, food_id, default_quantity, position)
				VALUES (?, ?, ?, ?, ?)
			`, ing.ID, ing.MealSchemaID, ing.FoodID, nullFloat(ing.DefaultQuantity), ing.Position)
			if err != nil {
				return fmt.Errorf("inserting ingredient: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	schema.IngredientCount = len(schema.Ingredients)
	s.logger.Debug("created meal schema", "id", schema.ID, "name", schema.Name, "ingredients", len(schema.Ingredients))
	return nil
}

// GetMealSchema retrieves a schema with its ingredients, each carrying its
// food, in template order. Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetMealSchema(ctx context.Context, ownerID, name string) (*MealSchema, error) {
	var schema MealSchema
	var description sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, created_at
		FROM meal_schemas WHERE owner_id = ? AND name = ?
	`, ownerID, name).Scan(&schema.ID, &schema.OwnerID, &schema.Name, &description, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying meal schema: %w", err)
	}
	schema.Description = description.String
	if schema.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.meal_schema_id, i.food_id, i.default_quantity, i.position,
		       f.id, f.owner_id, f.name, f.base_unit, f.default_servings,
		       f.calories, f.protein, f.fat, f.carbs, f.fiber, f.sugar, f.sodium,
		       f.source, f.created_at, f.updated_at
		FROM meal_schema_ingredients i
		JOIN foods f ON f.id = i.food_id
		WHERE i.meal_schema_id = ?
		ORDER BY i.position ASC
	`, schema.ID)
	if err != nil {
		return nil, fmt.Errorf("querying ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ingredient row: %w", err)
		}
		schema.Ingredients = append(schema.Ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ingredient rows: %w", err)
	}

	schema.IngredientCount = len(schema.Ingredients)
	return &schema, nil
}

// ListMealSchemas returns the owner's schemas ordered by name with
// IngredientCount set. Ingredients are not loaded.
func (s *SQLiteStore) ListMealSchemas(ctx context.Context, ownerID string) ([]*MealSchema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.owner_id, s.name, s.description, s.created_at, COUNT(i.id)
		FROM meal_schemas s
		LEFT JOIN meal_schema_ingredients i ON i.meal_schema_id = s.id
		WHERE s.owner_id = ?
		GROUP BY s.id
		ORDER BY s.name ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying meal schemas: %w", err)
	}
	defer rows.Close()

	var schemas []*MealSchema
	for rows.Next() {
		var schema MealSchema
		var description sql.NullString
		var createdAt string
		if err := rows.Scan(&schema.ID, &schema.OwnerID, &schema.Name, &description, &createdAt, &schema.IngredientCount); err != nil {
			return nil, fmt.Errorf("scanning meal schema row: %w", err)
		}
		schema.Description = description.String
		if schema.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		schemas = append(schemas, &schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating meal schema rows: %w", err)
	}
	return schemas, nil
}

// DeleteMealSchema removes a schema and its ingredients. Log entries that
// were created from it keep their stored schema name and lose the reference.
func (s *SQLiteStore) DeleteMealSchema(ctx context.Context, ownerID, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM meal_schemas WHERE owner_id = ? AND name = ?`, ownerID, name).Scan(&id)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying meal schema: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE meal_log_entries SET meal_schema_id = NULL WHERE meal_schema_id = ?`, id); err != nil {
			return fmt.Errorf("detaching log entries: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_schema_ingredients WHERE meal_schema_id = ?`, id); err != nil {
			return fmt.Errorf("deleting ingredients: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_schemas WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting meal schema: %w", err)
		}

		s.logger.Debug("deleted meal schema", "id", id, "name", name)
		return nil
	})
}

// CreateMealLogEntry inserts an entry and all of its items atomically.
func (s *SQLiteStore) CreateMealLogEntry(ctx context.Context, entry *MealLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var timeOfDay any
	if entry.TimeOfDay != nil {
		timeOfDay = string(*entry.TimeOfDay)
	}
	var schemaID any
	if entry.MealSchemaID != nil {
		schemaID = *entry.MealSchemaID
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meal_log_entries (id, owner_id, logged_at, time_of_day, notes, meal_schema_id, meal_schema_name, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, entry.OwnerID, formatTime(entry.LoggedAt), timeOfDay, nullString(entry.Notes),
			schemaID, nullString(entry.MealSchemaName), formatTime(entry.CreatedAt))
		if err != nil {
			return fmt.Errorf("inserting meal log entry: %w", err)
		}

		for i, item := range entry.Items {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			item.EntryID = entry.ID
			item.Position = i

			var foodID any
			if item.FoodID != nil {
				foodID = *item.FoodID
			}
			args := []any{item.ID, item.EntryID, foodID, item.Name, nullFloat(item.Quantity)}
			args = append(args, macroArgs(item.Macros)...)
			args = append(args, item.Position)

			_, err := tx.ExecContext(ctx, `
				INSERT INTO meal_log_items (id, entry_id, food_id, name, quantity, `+macroColumns+`, position)
				VALUES (`+placeholders(len(args))+`)
			`, args...)
			if err != nil {
				return fmt.Errorf("inserting meal log item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("created meal log entry", "id", entry.ID, "owner_id", entry.OwnerID, "items", len(entry.Items))
	return nil
}

// ListMealLogEntries returns entries matching the filter ordered by logged
// time ascending, each with its items in logged order.
func (s *SQLiteStore) ListMealLogEntries(ctx context.Context, filter MealLogFilter) ([]*MealLogEntry, error) {
	where := `owner_id = ? AND logged_at >= ? AND logged_at < ?`
	args := []any{filter.OwnerID, formatTime(filter.From), formatTime(filter.To)}
	if filter.TimeOfDay != nil {
		where += ` AND time_of_day = ?`
		args = append(args, string(*filter.TimeOfDay))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, logged_at, time_of_day, notes, meal_schema_id, meal_schema_name, created_at
		FROM meal_log_entries
		WHERE `+where+`
		ORDER BY logged_at ASC, created_at ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying meal log entries: %w", err)
	}

	var entries []*MealLogEntry
	byID := make(map[string]*MealLogEntry)
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning meal log entry row: %w", err)
		}
		entries = append(entries, entry)
		byID[entry.ID] = entry
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating meal log entry rows: %w", err)
	}
	rows.Close()

	if len(entries) == 0 {
		return entries, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, food_id, name, quantity, `+macroColumns+`, position
		FROM meal_log_items
		WHERE entry_id IN (SELECT id FROM meal_log_entries WHERE `+where+`)
		ORDER BY entry_id, position ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying meal log items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item MealLogItem
		var foodID sql.NullString
		var quantity sql.NullFloat64
		var macros macroScan

		dest := []any{&item.ID, &item.EntryID, &foodID, &item.Name, &quantity}
		dest = append(dest, macros.dest()...)
		dest = append(dest, &item.Position)
		if err := itemRows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning meal log item row: %w", err)
		}
		item.FoodID = stringPtr(foodID)
		item.Quantity = floatPtr(quantity)
		item.Macros = macros.macros()

		if entry, ok := byID[item.EntryID]; ok {
			entry.Items = append(entry.Items, &item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating meal log item rows: %w", err)
	}
	return entries, nil
}

func scanIngredient(row rowScanner) (*MealSchemaIngredient, error) {
	var ing MealSchemaIngredient
	var qty sql.NullFloat64
	var food Food
	var servings, source, createdAt, updatedAt string
	var macros macroScan

	dest := []any{&ing.ID, &ing.MealSchemaID, &ing.FoodID, &qty, &ing.Position,
		&food.ID, &food.OwnerID, &food.Name, &food.BaseUnit, &servings}
	dest = append(dest, macros.dest()...)
	dest = append(dest, &source, &createdAt, &updatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	ing.DefaultQuantity = floatPtr(qty)
	food.Macros = macros.macros()
	food.Source = FoodSource(source)
	if err := decodeServings(servings, &food.DefaultServings); err != nil {
		return nil, err
	}
	var err error
	if food.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing food created_at: %w", err)
	}
	if food.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing food updated_at: %w", err)
	}
	ing.Food = &food
	return &ing, nil
}

func scanLogEntry(row rowScanner) (*MealLogEntry, error) {
	var entry MealLogEntry
	var loggedAt, createdAt string
	var timeOfDay, notes, schemaID, schemaName sql.NullString

	if err := row.Scan(&entry.ID, &entry.OwnerID, &loggedAt, &timeOfDay, &notes, &schemaID, &schemaName, &createdAt); err != nil {
		return nil, err
	}

	if timeOfDay.Valid {
		tod := TimeOfDay(timeOfDay.String)
		entry.TimeOfDay = &tod
	}
	entry.Notes = notes.String
	entry.MealSchemaID = stringPtr(schemaID)
	entry.MealSchemaName = schemaName.String

	var err error
	if entry.LoggedAt, err = parseTime(loggedAt); err != nil {
		return nil, fmt.Errorf("parsing logged_at: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &entry, nil
}
