// Package store provides persistent storage for the nutrition gateway using SQLite.
//
// # Architecture
//
// NutritionStore is the single persistence interface. Every lookup is scoped
// by owner (the authenticated subject) and names are unique per owner for
// foods, meal schemas and metrics.
//
// SQLiteStore implements it on modernc.org/sqlite; MockStore is an in-memory
// implementation with the same uniqueness and cascade rules.
//
// # Data Models
//
//   - Food: library item with nullable macros per base unit
//   - MealSchema / MealSchemaIngredient: reusable meal templates
//   - MealLogEntry / MealLogItem: logged meals with frozen macro snapshots
//   - Metric / MetricEntry: user-defined tracked quantities
//
// # Deletes
//
// Deleting a food removes the template ingredients that reference it and
// detaches logged items, which keep their name and macros. Deleting a meal
// schema detaches log entries, which keep the schema name. Deleting a metric
// removes its entries. Each delete runs in one transaction.
//
// # SQLite Configuration
//
// File databases are opened with:
//
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//	PRAGMA journal_mode=WAL;
//
// Timestamps are stored as fixed-width UTC text so range predicates compare
// lexically.
//
// # Errors
//
//   - ErrNotFound: requested entity does not exist for that owner
//   - ErrDuplicate: a create or rename collides with an existing name
//
// # Testing
//
// Use NewMockStore() for unit tests and NewSQLiteStore(":memory:") for
// integration tests with real SQLite.
package store
