// ABOUTME: Mock NutritionStore implementation for testing
// ABOUTME: Allows tests to run without SQLite while keeping uniqueness and cascade rules

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory NutritionStore implementation for testing.
type MockStore struct {
	mu            sync.RWMutex
	foods         map[string]*Food         // keyed by food ID
	schemas       map[string]*MealSchema   // keyed by schema ID
	entries       map[string]*MealLogEntry // keyed by entry ID
	metrics       map[string]*Metric       // keyed by metric ID
	metricEntries map[string][]*MetricEntry
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		foods:         make(map[string]*Food),
		schemas:       make(map[string]*MealSchema),
		entries:       make(map[string]*MealLogEntry),
		metrics:       make(map[string]*Metric),
		metricEntries: make(map[string][]*MetricEntry),
	}
}

func (m *MockStore) findFood(ownerID, name string) *Food {
	for _, f := range m.foods {
		if f.OwnerID == ownerID && f.Name == name {
			return f
		}
	}
	return nil
}

func copyFood(f *Food) *Food {
	c := *f
	c.DefaultServings = append([]string(nil), f.DefaultServings...)
	return &c
}

// CreateFood stores a new food.
func (m *MockStore) CreateFood(ctx context.Context, food *Food) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findFood(food.OwnerID, food.Name) != nil {
		return ErrDuplicate
	}
	if food.ID == "" {
		food.ID = uuid.New().String()
	}
	if food.CreatedAt.IsZero() {
		food.CreatedAt = time.Now().UTC()
	}
	food.UpdatedAt = food.CreatedAt
	if food.Source == "" {
		food.Source = FoodSourceUnknown
	}
	m.foods[food.ID] = copyFood(food)
	return nil
}

// GetFood retrieves a food by owner and name.
func (m *MockStore) GetFood(ctx context.Context, ownerID, name string) (*Food, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f := m.findFood(ownerID, name)
	if f == nil {
		return nil, ErrNotFound
	}
	return copyFood(f), nil
}

// GetFoodsByName returns the owner's foods with the given names.
func (m *MockStore) GetFoodsByName(ctx context.Context, ownerID string, names []string) (map[string]*Food, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*Food, len(names))
	for _, n := range names {
		if f := m.findFood(ownerID, n); f != nil {
			result[n] = copyFood(f)
		}
	}
	return result, nil
}

// ListFoods returns the owner's foods ordered by name.
func (m *MockStore) ListFoods(ctx context.Context, ownerID, search string) ([]*Food, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(search)
	var result []*Food
	for _, f := range m.foods {
		if f.OwnerID != ownerID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(f.Name), needle) {
			continue
		}
		result = append(result, copyFood(f))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// UpdateFood replaces a stored food.
func (m *MockStore) UpdateFood(ctx context.Context, food *Food) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.foods[food.ID]
	if !ok || existing.OwnerID != food.OwnerID {
		return ErrNotFound
	}
	if other := m.findFood(food.OwnerID, food.Name); other != nil && other.ID != food.ID {
		return ErrDuplicate
	}
	food.UpdatedAt = time.Now().UTC()
	m.foods[food.ID] = copyFood(food)
	return nil
}

// DeleteFood removes a food, its ingredient rows, and detaches logged items.
func (m *MockStore) DeleteFood(ctx context.Context, ownerID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.findFood(ownerID, name)
	if f == nil {
		return ErrNotFound
	}
	for _, s := range m.schemas {
		kept := s.Ingredients[:0]
		for _, ing := range s.Ingredients {
			if ing.FoodID != f.ID {
				kept = append(kept, ing)
			}
		}
		s.Ingredients = kept
	}
	for _, e := range m.entries {
		for _, item := range e.Items {
			if item.FoodID != nil && *item.FoodID == f.ID {
				item.FoodID = nil
			}
		}
	}
	delete(m.foods, f.ID)
	return nil
}

func (m *MockStore) findSchema(ownerID, name string) *MealSchema {
	for _, s := range m.schemas {
		if s.OwnerID == ownerID && s.Name == name {
			return s
		}
	}
	return nil
}

// CreateMealSchema stores a schema with its ingredients.
func (m *MockStore) CreateMealSchema(ctx context.Context, schema *MealSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findSchema(schema.OwnerID, schema.Name) != nil {
		return ErrDuplicate
	}
	if schema.ID == "" {
		schema.ID = uuid.New().String()
	}
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now().UTC()
	}

	c := *schema
	c.Ingredients = nil
	for i, ing := range schema.Ingredients {
		if ing.ID == "" {
			ing.ID = uuid.New().String()
		}
		ing.MealSchemaID = schema.ID
		ing.Position = i
		ic := *ing
		ic.Food = nil
		c.Ingredients = append(c.Ingredients, &ic)
	}
	schema.IngredientCount = len(schema.Ingredients)
	m.schemas[c.ID] = &c
	return nil
}

// GetMealSchema retrieves a schema with ingredients and their foods.
func (m *MockStore) GetMealSchema(ctx context.Context, ownerID, name string) (*MealSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.findSchema(ownerID, name)
	if s == nil {
		return nil, ErrNotFound
	}
	c := *s
	c.Ingredients = nil
	for _, ing := range s.Ingredients {
		ic := *ing
		if f, ok := m.foods[ing.FoodID]; ok {
			ic.Food = copyFood(f)
		}
		c.Ingredients = append(c.Ingredients, &ic)
	}
	c.IngredientCount = len(c.Ingredients)
	return &c, nil
}

// ListMealSchemas returns the owner's schemas ordered by name without ingredients.
func (m *MockStore) ListMealSchemas(ctx context.Context, ownerID string) ([]*MealSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*MealSchema
	for _, s := range m.schemas {
		if s.OwnerID != ownerID {
			continue
		}
		c := *s
		c.IngredientCount = len(s.Ingredients)
		c.Ingredients = nil
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// DeleteMealSchema removes a schema and detaches log entries created from it.
func (m *MockStore) DeleteMealSchema(ctx context.Context, ownerID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.findSchema(ownerID, name)
	if s == nil {
		return ErrNotFound
	}
	for _, e := range m.entries {
		if e.MealSchemaID != nil && *e.MealSchemaID == s.ID {
			e.MealSchemaID = nil
		}
	}
	delete(m.schemas, s.ID)
	return nil
}

func copyEntry(e *MealLogEntry) *MealLogEntry {
	c := *e
	c.Items = make([]*MealLogItem, 0, len(e.Items))
	for _, item := range e.Items {
		ic := *item
		c.Items = append(c.Items, &ic)
	}
	return &c
}

// CreateMealLogEntry stores an entry with its items.
func (m *MockStore) CreateMealLogEntry(ctx context.Context, entry *MealLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	for i, item := range entry.Items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.EntryID = entry.ID
		item.Position = i
	}
	m.entries[entry.ID] = copyEntry(entry)
	return nil
}

// ListMealLogEntries returns matching entries ordered by logged time.
func (m *MockStore) ListMealLogEntries(ctx context.Context, filter MealLogFilter) ([]*MealLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*MealLogEntry
	for _, e := range m.entries {
		if e.OwnerID != filter.OwnerID {
			continue
		}
		if e.LoggedAt.Before(filter.From) || !e.LoggedAt.Before(filter.To) {
			continue
		}
		if filter.TimeOfDay != nil && (e.TimeOfDay == nil || *e.TimeOfDay != *filter.TimeOfDay) {
			continue
		}
		result = append(result, copyEntry(e))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LoggedAt.Equal(result[j].LoggedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].LoggedAt.Before(result[j].LoggedAt)
	})
	return result, nil
}

func (m *MockStore) findMetric(ownerID, name string) *Metric {
	for _, mt := range m.metrics {
		if mt.OwnerID == ownerID && mt.Name == name {
			return mt
		}
	}
	return nil
}

// CreateMetric stores a metric definition.
func (m *MockStore) CreateMetric(ctx context.Context, metric *Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findMetric(metric.OwnerID, metric.Name) != nil {
		return ErrDuplicate
	}
	if metric.ID == "" {
		metric.ID = uuid.New().String()
	}
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = time.Now().UTC()
	}
	c := *metric
	m.metrics[c.ID] = &c
	return nil
}

// GetMetric retrieves a metric by owner and name.
func (m *MockStore) GetMetric(ctx context.Context, ownerID, name string) (*Metric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mt := m.findMetric(ownerID, name)
	if mt == nil {
		return nil, ErrNotFound
	}
	c := *mt
	return &c, nil
}

// ListMetrics returns the owner's metrics ordered by name.
func (m *MockStore) ListMetrics(ctx context.Context, ownerID string) ([]*Metric, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Metric
	for _, mt := range m.metrics {
		if mt.OwnerID == ownerID {
			c := *mt
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// DeleteMetric removes a metric and all of its entries.
func (m *MockStore) DeleteMetric(ctx context.Context, ownerID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mt := m.findMetric(ownerID, name)
	if mt == nil {
		return ErrNotFound
	}
	delete(m.metricEntries, mt.ID)
	delete(m.metrics, mt.ID)
	return nil
}

// UpsertDailyMetricEntry replaces the entry for the same metric and date, if any.
func (m *MockStore) UpsertDailyMetricEntry(ctx context.Context, entry *MetricEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.metricEntries[entry.MetricID] {
		if e.Date == entry.Date {
			e.Value = entry.Value
			e.Timestamp = entry.Timestamp
			entry.ID = e.ID
			return nil
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	c := *entry
	m.metricEntries[entry.MetricID] = append(m.metricEntries[entry.MetricID], &c)
	return nil
}

// AppendMetricEntry adds a new entry.
func (m *MockStore) AppendMetricEntry(ctx context.Context, entry *MetricEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	c := *entry
	m.metricEntries[entry.MetricID] = append(m.metricEntries[entry.MetricID], &c)
	return nil
}

// ListMetricEntries returns entries in [from, to) oldest first.
func (m *MockStore) ListMetricEntries(ctx context.Context, metricID string, from, to time.Time) ([]*MetricEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*MetricEntry
	for _, e := range m.metricEntries[metricID] {
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		c := *e
		result = append(result, &c)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// Ensure MockStore implements NutritionStore interface
var _ NutritionStore = (*MockStore)(nil)
