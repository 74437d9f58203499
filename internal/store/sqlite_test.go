// ABOUTME: Tests for SQLite store construction and SQLite-specific behavior
// ABOUTME: Covers file creation, in-memory databases, and persistence across reopen

package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	mustCreateFood(t, store, "alice", "Banana", 105)
	got, err := store.GetFood(t.Context(), "alice", "Banana")
	require.NoError(t, err)
	assert.Equal(t, "piece", got.BaseUnit)
}

func TestSQLiteStore_Ping(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.Ping(t.Context()))
	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(t.Context()))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nutrition.db")

	first, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	mustCreateFood(t, first, "alice", "Banana", 105)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetFood(t.Context(), "alice", "Banana")
	require.NoError(t, err)
	assert.Equal(t, 105.0, *got.Macros.Calories)
}

func TestSQLiteStore_TimestampsRoundTripUTC(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()

	loc := time.FixedZone("UTC+5", 5*60*60)
	loggedAt := time.Date(2026, 3, 1, 13, 45, 12, 345_000_000, loc)
	require.NoError(t, store.CreateMealLogEntry(ctx, &MealLogEntry{OwnerID: "alice", LoggedAt: loggedAt}))

	got, err := store.ListMealLogEntries(ctx, MealLogFilter{
		OwnerID: "alice",
		From:    loggedAt.Add(-time.Second),
		To:      loggedAt.Add(time.Second),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].LoggedAt.Equal(loggedAt))
	assert.Equal(t, time.UTC, got[0].LoggedAt.Location())
}

func TestSQLiteStore_FailedSchemaInsertRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := t.Context()

	schema := &MealSchema{
		OwnerID: "alice",
		Name:    "Broken",
		Ingredients: []*MealSchemaIngredient{
			{FoodID: "no-such-food", DefaultQuantity: f64(1)},
		},
	}
	require.Error(t, store.CreateMealSchema(ctx, schema))

	_, err := store.GetMealSchema(ctx, "alice", "Broken")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(os.ErrNotExist))
	assert.True(t, isUniqueViolation(&testErr{"constraint failed: UNIQUE constraint failed: foods.owner_id, foods.name (2067)"}))
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
