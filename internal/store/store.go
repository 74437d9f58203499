// ABOUTME: Store interface and data types for nutrition-gateway persistence
// ABOUTME: Defines foods, meal schemas, meal log entries, metrics and the NutritionStore interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write collides with a per-owner unique name
var ErrDuplicate = errors.New("already exists")

// FoodSource describes how trustworthy a food's macro data is
type FoodSource string

const (
	FoodSourceVerified  FoodSource = "verified"
	FoodSourceEstimated FoodSource = "estimated"
	FoodSourceUnknown   FoodSource = "unknown"
)

// TimeOfDay is the meal category tag on a log entry
type TimeOfDay string

const (
	TimeOfDayBreakfast TimeOfDay = "breakfast"
	TimeOfDayLunch     TimeOfDay = "lunch"
	TimeOfDayDinner    TimeOfDay = "dinner"
	TimeOfDaySnack     TimeOfDay = "snack"
)

// MetricResolution controls how many entries a metric may hold per day
type MetricResolution string

const (
	ResolutionDaily       MetricResolution = "daily"
	ResolutionTimestamped MetricResolution = "timestamped"
)

// MetricType controls whether a metric entry carries a value
type MetricType string

const (
	MetricTypeNumeric MetricType = "numeric"
	MetricTypeCheckin MetricType = "checkin"
)

// Macros holds the seven tracked macro fields. A nil field means "not set",
// which is distinct from zero.
type Macros struct {
	Calories *float64 // kcal
	Protein  *float64 // grams
	Fat      *float64 // grams
	Carbs    *float64 // grams
	Fiber    *float64 // grams
	Sugar    *float64 // grams
	Sodium   *float64 // milligrams
}

// Food is a library item whose macros are defined per base unit
type Food struct {
	ID              string
	OwnerID         string
	Name            string
	BaseUnit        string
	DefaultServings []string
	Macros          Macros
	Source          FoodSource
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MealSchemaIngredient references a food with an optional default quantity
type MealSchemaIngredient struct {
	ID              string
	MealSchemaID    string
	FoodID          string
	DefaultQuantity *float64
	Position        int

	// Food is populated on reads
	Food *Food
}

// MealSchema is a reusable meal template
type MealSchema struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Ingredients []*MealSchemaIngredient

	// IngredientCount is populated by ListMealSchemas, which does not load ingredients
	IngredientCount int
	CreatedAt       time.Time
}

// MealLogItem is a frozen snapshot of one thing eaten.
// FoodID is nil for anonymous items and for items whose food was later deleted.
type MealLogItem struct {
	ID       string
	EntryID  string
	FoodID   *string
	Name     string
	Quantity *float64
	Macros   Macros
	Position int
}

// MealLogEntry is one logged meal. MealSchemaID is a weak reference; the
// schema name is kept so the entry still reads well after the schema is deleted.
type MealLogEntry struct {
	ID             string
	OwnerID        string
	LoggedAt       time.Time
	TimeOfDay      *TimeOfDay
	Notes          string
	MealSchemaID   *string
	MealSchemaName string
	Items          []*MealLogItem
	CreatedAt      time.Time
}

// MealLogFilter selects log entries for an owner in the half-open range [From, To)
type MealLogFilter struct {
	OwnerID   string
	From      time.Time
	To        time.Time
	TimeOfDay *TimeOfDay
}

// Metric is a user-defined tracked quantity
type Metric struct {
	ID         string
	OwnerID    string
	Name       string
	Unit       string
	Resolution MetricResolution
	Type       MetricType
	CreatedAt  time.Time
}

// MetricEntry is a single recorded value. For daily metrics Date is the
// calendar day (YYYY-MM-DD); for timestamped metrics it is the full timestamp.
type MetricEntry struct {
	ID        string
	MetricID  string
	Date      string
	Timestamp time.Time
	Value     *float64
}

// NutritionStore defines persistence for the nutrition domain.
// Every lookup is scoped by owner; names are unique per owner.
type NutritionStore interface {
	// Foods
	CreateFood(ctx context.Context, food *Food) error
	GetFood(ctx context.Context, ownerID, name string) (*Food, error)
	GetFoodsByName(ctx context.Context, ownerID string, names []string) (map[string]*Food, error)
	ListFoods(ctx context.Context, ownerID, search string) ([]*Food, error)
	UpdateFood(ctx context.Context, food *Food) error
	DeleteFood(ctx context.Context, ownerID, name string) error

	// Meal schemas
	CreateMealSchema(ctx context.Context, schema *MealSchema) error
	GetMealSchema(ctx context.Context, ownerID, name string) (*MealSchema, error)
	ListMealSchemas(ctx context.Context, ownerID string) ([]*MealSchema, error)
	DeleteMealSchema(ctx context.Context, ownerID, name string) error

	// Meal log
	CreateMealLogEntry(ctx context.Context, entry *MealLogEntry) error
	ListMealLogEntries(ctx context.Context, filter MealLogFilter) ([]*MealLogEntry, error)

	// Metrics
	CreateMetric(ctx context.Context, metric *Metric) error
	GetMetric(ctx context.Context, ownerID, name string) (*Metric, error)
	ListMetrics(ctx context.Context, ownerID string) ([]*Metric, error)
	DeleteMetric(ctx context.Context, ownerID, name string) error
	UpsertDailyMetricEntry(ctx context.Context, entry *MetricEntry) error
	AppendMetricEntry(ctx context.Context, entry *MetricEntry) error
	ListMetricEntries(ctx context.Context, metricID string, from, to time.Time) ([]*MetricEntry, error)

	// Close releases any resources held by the store
	Close() error
}
