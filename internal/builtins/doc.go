// Package builtins provides the nutrition tool packs served over MCP.
//
// # Tool Packs
//
// The package provides 4 packs with 17 tools:
//
// Foods Pack (builtin:foods):
//
//   - create_food: Add a food with per-unit macros
//   - update_food: Rename or change a food; null clears a macro
//   - list_foods: List foods, optionally filtered by name
//   - get_food: Show a food's details
//   - delete_food: Remove a food; logged items keep their snapshot
//
// Templates Pack (builtin:templates):
//
//   - create_meal_schema: Create a meal template from library foods
//   - list_meal_schemas: List templates with ingredient counts
//   - get_meal_schema: Show ingredients and estimated totals
//   - delete_meal_schema: Remove a template; logged meals keep its name
//
// Meal Log Pack (builtin:meallog):
//
//   - log_meal: Log a template, food portions and anonymous items
//   - get_meal_log: List entries in a date range
//   - get_daily_summary: Totals for a day with a per-meal-type breakdown
//
// Metrics Pack (builtin:metrics):
//
//   - create_metric: Define a daily or timestamped metric
//   - list_metrics: List metrics
//   - log_metric: Record a value or a check-in
//   - get_metric_entries: List entries in a date range
//   - delete_metric: Remove a metric and its entries
//
// # Registration
//
//	builtins.RegisterAll(registry, svc, logger)
//
// # Tool Implementation
//
// Handlers take a decoded argument struct through packs.Typed and return
// plain text. Every call is scoped to the subject of the caller's token.
// Domain errors are translated by toolError into packs.ToolError values,
// which the router turns into isError results.
package builtins
