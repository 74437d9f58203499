// ABOUTME: Food library persistence for the SQLite store
// ABOUTME: Create/read/update/delete of foods with per-owner unique names

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const foodColumns = `id, owner_id, name, base_unit, default_servings, ` + macroColumns + `, source, created_at, updated_at`

// CreateFood inserts a new food. Returns ErrDuplicate if the owner already
// has a food with the same name.
func (s *SQLiteStore) CreateFood(ctx context.Context, food *Food) error {
	if food.ID == "" {
		food.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if food.CreatedAt.IsZero() {
		food.CreatedAt = now
	}
	food.UpdatedAt = food.CreatedAt
	if food.Source == "" {
		food.Source = FoodSourceUnknown
	}

	servings, err := encodeServings(food.DefaultServings)
	if err != nil {
		return err
	}

	args := []any{food.ID, food.OwnerID, food.Name, food.BaseUnit, servings}
	args = append(args, macroArgs(food.Macros)...)
	args = append(args, string(food.Source), formatTime(food.CreatedAt), formatTime(food.UpdatedAt))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO foods (`+foodColumns+`) VALUES (`+placeholders(len(args))+`)`,
		args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting food: %w", err)
	}

	s.logger.Debug("created food", "id", food.ID, "owner_id", food.OwnerID, "name", food.Name)
	return nil
}

// GetFood retrieves a food by owner and name.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetFood(ctx context.Context, ownerID, name string) (*Food, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+foodColumns+` FROM foods WHERE owner_id = ? AND name = ?`,
		ownerID, name)

	food, err := scanFood(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying food: %w", err)
	}
	return food, nil
}

// GetFoodsByName returns the owner's foods whose names are in names, keyed
// by name. Names with no matching food are simply absent from the map.
func (s *SQLiteStore) GetFoodsByName(ctx context.Context, ownerID string, names []string) (map[string]*Food, error) {
	foods := make(map[string]*Food, len(names))
	if len(names) == 0 {
		return foods, nil
	}

	args := make([]any, 0, len(names)+1)
	args = append(args, ownerID)
	for _, n := range names {
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+foodColumns+` FROM foods WHERE owner_id = ? AND name IN (`+placeholders(len(names))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying foods by name: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning food row: %w", err)
		}
		foods[food.Name] = food
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating food rows: %w", err)
	}
	return foods, nil
}

// ListFoods returns the owner's foods ordered by name. A non-empty search
// keeps only names containing it, case-insensitively.
func (s *SQLiteStore) ListFoods(ctx context.Context, ownerID, search string) ([]*Food, error) {
	query := `SELECT ` + foodColumns + ` FROM foods WHERE owner_id = ?`
	args := []any{ownerID}
	if search != "" {
		query += ` AND instr(lower(name), lower(?)) > 0`
		args = append(args, search)
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying foods: %w", err)
	}
	defer rows.Close()

	var foods []*Food
	for rows.Next() {
		food, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning food row: %w", err)
		}
		foods = append(foods, food)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating food rows: %w", err)
	}
	return foods, nil
}

// UpdateFood replaces every mutable column of an existing food, matched by
// ID and owner. Returns ErrNotFound if no row matched and ErrDuplicate if a
// rename collides with another food.
func (s *SQLiteStore) UpdateFood(ctx context.Context, food *Food) error {
	food.UpdatedAt = time.Now().UTC()
	if food.Source == "" {
		food.Source = FoodSourceUnknown
	}

	servings, err := encodeServings(food.DefaultServings)
	if err != nil {
		return err
	}

	args := []any{food.Name, food.BaseUnit, servings}
	args = append(args, macroArgs(food.Macros)...)
	args = append(args, string(food.Source), formatTime(food.UpdatedAt), food.ID, food.OwnerID)

	result, err := s.db.ExecContext(ctx, `
		UPDATE foods
		SET name = ?, base_unit = ?, default_servings = ?,
		    calories = ?, protein = ?, fat = ?, carbs = ?, fiber = ?, sugar = ?, sodium = ?,
		    source = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("updating food: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated food", "id", food.ID, "name", food.Name)
	return nil
}

// DeleteFood removes a food. Meal schema ingredients that reference it are
// removed with it; logged items keep their snapshot and lose the reference.
// Returns ErrNotFound if the owner has no food with that name.
func (s *SQLiteStore) DeleteFood(ctx context.Context, ownerID, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM foods WHERE owner_id = ? AND name = ?`, ownerID, name).Scan(&id)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying food: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_schema_ingredients WHERE food_id = ?`, id); err != nil {
			return fmt.Errorf("deleting ingredients: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE meal_log_items SET food_id = NULL WHERE food_id = ?`, id); err != nil {
			return fmt.Errorf("detaching log items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM foods WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting food: %w", err)
		}

		s.logger.Debug("deleted food", "id", id, "owner_id", ownerID, "name", name)
		return nil
	})
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFood(row rowScanner) (*Food, error) {
	var food Food
	var servings, source, createdAt, updatedAt string
	var macros macroScan

	dest := []any{&food.ID, &food.OwnerID, &food.Name, &food.BaseUnit, &servings}
	dest = append(dest, macros.dest()...)
	dest = append(dest, &source, &createdAt, &updatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	food.Macros = macros.macros()
	food.Source = FoodSource(source)
	if err := decodeServings(servings, &food.DefaultServings); err != nil {
		return nil, err
	}

	var err error
	if food.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if food.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &food, nil
}

func encodeServings(servings []string) (string, error) {
	if servings == nil {
		servings = []string{}
	}
	b, err := json.Marshal(servings)
	if err != nil {
		return "", fmt.Errorf("encoding default_servings: %w", err)
	}
	return string(b), nil
}

func decodeServings(raw string, dst *[]string) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decoding default_servings: %w", err)
	}
	return nil
}
