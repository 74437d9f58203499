// ABOUTME: Nutrition service: the domain engine behind the tools and dashboard
// ABOUTME: Owns food library rules and translates store errors into domain error kinds

package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/nutrition-gateway/internal/store"
)

// Service implements the nutrition domain on top of a NutritionStore.
// Every method is scoped to the owner (authenticated subject) it is given.
type Service struct {
	store  store.NutritionStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for defaults such as "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a service backed by st.
func NewService(st store.NutritionStore, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: slog.Default().With("component", "nutrition"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return startOfDay(s.now())
}

// Patch is an optional field update. An unset Patch leaves the field alone;
// a set Patch with a nil Value clears it.
type Patch[T any] struct {
	Set   bool
	Value *T
}

// Apply writes the patch into dst if it is set.
func (p Patch[T]) Apply(dst **T) {
	if !p.Set {
		return
	}
	if p.Value == nil {
		*dst = nil
		return
	}
	v := *p.Value
	*dst = &v
}

// MacroPatch carries a Patch for every macro field.
type MacroPatch struct {
	Calories, Protein, Fat, Carbs, Fiber, Sugar, Sodium Patch[float64]
}

func (p MacroPatch) apply(m *store.Macros) {
	p.Calories.Apply(&m.Calories)
	p.Protein.Apply(&m.Protein)
	p.Fat.Apply(&m.Fat)
	p.Carbs.Apply(&m.Carbs)
	p.Fiber.Apply(&m.Fiber)
	p.Sugar.Apply(&m.Sugar)
	p.Sodium.Apply(&m.Sodium)
}

// FoodInput describes a new food.
type FoodInput struct {
	Name            string
	BaseUnit        string
	DefaultServings []string
	Macros          store.Macros
	Source          store.FoodSource
}

// FoodUpdate describes a partial food update. Nil pointers leave fields unchanged.
type FoodUpdate struct {
	NewName         *string
	BaseUnit        *string
	DefaultServings *[]string
	Macros          MacroPatch
	Source          *store.FoodSource
}

// CreateFood adds a food to the owner's library.
func (s *Service) CreateFood(ctx context.Context, owner string, in FoodInput) (*store.Food, error) {
	food := &store.Food{
		OwnerID:         owner,
		Name:            in.Name,
		BaseUnit:        in.BaseUnit,
		DefaultServings: in.DefaultServings,
		Macros:          copyMacros(in.Macros),
		Source:          in.Source,
	}
	if err := s.store.CreateFood(ctx, food); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ConflictError{Entity: EntityFood, Name: in.Name}
		}
		return nil, fmt.Errorf("creating food: %w", err)
	}
	s.logger.Info("food created", "owner", owner, "name", food.Name)
	return food, nil
}

// UpdateFood applies a partial update to the named food.
func (s *Service) UpdateFood(ctx context.Context, owner, name string, upd FoodUpdate) (*store.Food, error) {
	food, err := s.GetFood(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	if upd.NewName != nil {
		food.Name = *upd.NewName
	}
	if upd.BaseUnit != nil {
		food.BaseUnit = *upd.BaseUnit
	}
	if upd.DefaultServings != nil {
		food.DefaultServings = append([]string(nil), (*upd.DefaultServings)...)
	}
	upd.Macros.apply(&food.Macros)
	if upd.Source != nil {
		food.Source = *upd.Source
	}

	if err := s.store.UpdateFood(ctx, food); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, &ConflictError{Entity: EntityFood, Name: food.Name}
		case errors.Is(err, store.ErrNotFound):
			return nil, &NotFoundError{Entity: EntityFood, Name: name}
		}
		return nil, fmt.Errorf("updating food: %w", err)
	}
	return food, nil
}

// ListFoods returns the owner's foods ordered by name, optionally filtered
// by a case-insensitive substring.
func (s *Service) ListFoods(ctx context.Context, owner, search string) ([]*store.Food, error) {
	foods, err := s.store.ListFoods(ctx, owner, search)
	if err != nil {
		return nil, fmt.Errorf("listing foods: %w", err)
	}
	return foods, nil
}

// GetFood returns the named food.
func (s *Service) GetFood(ctx context.Context, owner, name string) (*store.Food, error) {
	food, err := s.store.GetFood(ctx, owner, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Entity: EntityFood, Name: name}
		}
		return nil, fmt.Errorf("getting food: %w", err)
	}
	return food, nil
}

// DeleteFood removes the named food. Templates lose the ingredient; logged
// items keep their snapshot.
func (s *Service) DeleteFood(ctx context.Context, owner, name string) error {
	if err := s.store.DeleteFood(ctx, owner, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Entity: EntityFood, Name: name}
		}
		return fmt.Errorf("deleting food: %w", err)
	}
	s.logger.Info("food deleted", "owner", owner, "name", name)
	return nil
}

// foodsByName resolves names to foods, reporting every missing name in
// request order.
func (s *Service) foodsByName(ctx context.Context, owner string, names []string) (map[string]*store.Food, error) {
	foods, err := s.store.GetFoodsByName(ctx, owner, names)
	if err != nil {
		return nil, fmt.Errorf("resolving foods: %w", err)
	}
	var missing []string
	for _, n := range names {
		if _, ok := foods[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFoodsError{Names: missing}
	}
	return foods, nil
}
