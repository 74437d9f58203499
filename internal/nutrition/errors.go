// ABOUTME: Domain error kinds returned by the nutrition service
// ABOUTME: Callers classify them with errors.As to decide between soft tool errors and fatal failures

package nutrition

import (
	"fmt"
	"strings"
)

// Entity names the kind of record a lookup or write was about.
type Entity string

const (
	EntityFood       Entity = "food"
	EntityMealSchema Entity = "meal template"
	EntityMetric     Entity = "metric"
)

// NotFoundError reports that a named record does not exist for the caller.
type NotFoundError struct {
	Entity Entity
	Name   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s named %q", e.Entity, e.Name)
}

// ConflictError reports a create or rename that collides with an existing name.
type ConflictError struct {
	Entity Entity
	Name   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a %s named %q already exists", e.Entity, e.Name)
}

// MissingFoodsError lists food names that were referenced but not found.
// Nothing is written when it is returned.
type MissingFoodsError struct {
	Names []string
}

func (e *MissingFoodsError) Error() string {
	return "foods not found: " + strings.Join(e.Names, ", ")
}

// ValidationError is a malformed or contradictory request. Message is
// suitable for showing to the caller as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
