// ABOUTME: SQLite implementation of the NutritionStore interface using modernc.org/sqlite
// ABOUTME: Opens the database, creates the schema, and holds shared scan/tx helpers

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLiteStore implements NutritionStore using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	inMemory := path == ":memory:"
	dsn := path
	if !inMemory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if inMemory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS foods (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL,
			name             TEXT NOT NULL,
			base_unit        TEXT NOT NULL,
			default_servings TEXT NOT NULL DEFAULT '[]',
			calories         REAL,
			protein          REAL,
			fat              REAL,
			carbs            REAL,
			fiber            REAL,
			sugar            REAL,
			sodium           REAL,
			source           TEXT NOT NULL DEFAULT 'unknown',
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL,

			UNIQUE(owner_id, name),
			CHECK (source IN ('verified', 'estimated', 'unknown'))
		);

		CREATE TABLE IF NOT EXISTS meal_schemas (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT,
			created_at  TEXT NOT NULL,

			UNIQUE(owner_id, name)
		);

		CREATE TABLE IF NOT EXISTS meal_schema_ingredients (
			id               TEXT PRIMARY KEY,
			meal_schema_id   TEXT NOT NULL REFERENCES meal_schemas(id) ON DELETE CASCADE,
			food_id          TEXT NOT NULL REFERENCES foods(id) ON DELETE CASCADE,
			default_quantity REAL,
			position         INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ingredients_schema ON meal_schema_ingredients(meal_schema_id, position);
		CREATE INDEX IF NOT EXISTS idx_ingredients_food ON meal_schema_ingredients(food_id);

		CREATE TABLE IF NOT EXISTS meal_log_entries (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL,
			logged_at        TEXT NOT NULL,
			time_of_day      TEXT,
			notes            TEXT,
			meal_schema_id   TEXT REFERENCES meal_schemas(id) ON DELETE SET NULL,
			meal_schema_name TEXT,
			created_at       TEXT NOT NULL,

			CHECK (time_of_day IS NULL OR time_of_day IN ('breakfast', 'lunch', 'dinner', 'snack'))
		);

		CREATE INDEX IF NOT EXISTS idx_meal_log_owner_logged ON meal_log_entries(owner_id, logged_at);

		CREATE TABLE IF NOT EXISTS meal_log_items (
			id       TEXT PRIMARY KEY,
			entry_id TEXT NOT NULL REFERENCES meal_log_entries(id) ON DELETE CASCADE,
			food_id  TEXT REFERENCES foods(id) ON DELETE SET NULL,
			name     TEXT NOT NULL,
			quantity REAL,
			calories REAL,
			protein  REAL,
			fat      REAL,
			carbs    REAL,
			fiber    REAL,
			sugar    REAL,
			sodium   REAL,
			position INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_meal_log_items_entry ON meal_log_items(entry_id, position);
		CREATE INDEX IF NOT EXISTS idx_meal_log_items_food ON meal_log_items(food_id);

		CREATE TABLE IF NOT EXISTS metrics (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			unit       TEXT,
			resolution TEXT NOT NULL,
			type       TEXT NOT NULL,
			created_at TEXT NOT NULL,

			UNIQUE(owner_id, name),
			CHECK (resolution IN ('daily', 'timestamped')),
			CHECK (type IN ('numeric', 'checkin'))
		);

		CREATE TABLE IF NOT EXISTS metric_entries (
			id        TEXT PRIMARY KEY,
			metric_id TEXT NOT NULL REFERENCES metrics(id) ON DELETE CASCADE,
			date      TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			value     REAL,
			daily     INTEGER NOT NULL DEFAULT 0
		);

		-- one entry per (metric, day) for daily metrics only
		CREATE UNIQUE INDEX IF NOT EXISTS idx_metric_entries_daily
			ON metric_entries(metric_id, date) WHERE daily = 1;
		CREATE INDEX IF NOT EXISTS idx_metric_entries_metric_ts ON metric_entries(metric_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation checks if the error is a SQLite UNIQUE constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by other tools may carry plain RFC 3339
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// nullString returns nil for empty strings, otherwise the string
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullFloat returns nil for unset values so they are stored as SQL NULL
func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

// macroColumns lists the macro columns in the order macroArgs and
// macroScan use them.
const macroColumns = "calories, protein, fat, carbs, fiber, sugar, sodium"

func macroArgs(m Macros) []any {
	return []any{
		nullFloat(m.Calories),
		nullFloat(m.Protein),
		nullFloat(m.Fat),
		nullFloat(m.Carbs),
		nullFloat(m.Fiber),
		nullFloat(m.Sugar),
		nullFloat(m.Sodium),
	}
}

// macroScan collects nullable macro columns during a row scan
type macroScan [7]sql.NullFloat64

func (m *macroScan) dest() []any {
	return []any{&m[0], &m[1], &m[2], &m[3], &m[4], &m[5], &m[6]}
}

func (m *macroScan) macros() Macros {
	return Macros{
		Calories: floatPtr(m[0]),
		Protein:  floatPtr(m[1]),
		Fat:      floatPtr(m[2]),
		Carbs:    floatPtr(m[3]),
		Fiber:    floatPtr(m[4]),
		Sugar:    floatPtr(m[5]),
		Sodium:   floatPtr(m[6]),
	}
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Ensure SQLiteStore implements NutritionStore interface
var _ NutritionStore = (*SQLiteStore)(nil)
