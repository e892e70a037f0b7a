package settings

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

var testDefaults = []Setting{
	{Category: "notifications", Key: "enabled", Value: "true", ValueType: "bool"},
	{Category: "notifications", Key: "cooldown_minutes", Value: "60", ValueType: "int"},
	{Category: "notifications", Key: "recipients", Value: "ops@example.com", ValueType: "string"},
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Init(db, testDefaults); err != nil {
		t.Fatalf("init: %v", err)
	}
	return db
}

func TestInitSeedsDefaults(t *testing.T) {
	db := setupTestDB(t)

	if !GetBool(db, "notifications", "enabled", false) {
		t.Error("default enabled not seeded")
	}
	if got := GetInt(db, "notifications", "cooldown_minutes", 0); got != 60 {
		t.Errorf("cooldown_minutes = %d, want 60", got)
	}
}

func TestInitDoesNotOverwriteExisting(t *testing.T) {
	db := setupTestDB(t)

	if err := Set(db, "notifications", "cooldown_minutes", "5"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Init(db, testDefaults); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if got := GetInt(db, "notifications", "cooldown_minutes", 0); got != 5 {
		t.Errorf("re-Init overwrote stored value, got %d", got)
	}
}

func TestSetValidatesType(t *testing.T) {
	db := setupTestDB(t)

	if err := Set(db, "notifications", "cooldown_minutes", "soon"); err == nil {
		t.Error("Set accepted non-integer for int setting")
	}
	if err := Set(db, "notifications", "enabled", "yes"); err == nil {
		t.Error("Set accepted non-bool for bool setting")
	}
	if err := Set(db, "notifications", "missing_key", "x"); err == nil {
		t.Error("Set accepted unknown setting")
	}
}

func TestGetFallbacks(t *testing.T) {
	db := setupTestDB(t)

	if got := GetInt(db, "notifications", "absent", 42); got != 42 {
		t.Errorf("GetInt fallback = %d, want 42", got)
	}
	if got := GetString(db, "other", "absent", "def"); got != "def" {
		t.Errorf("GetString fallback = %q, want def", got)
	}
}

func TestGetCategory(t *testing.T) {
	db := setupTestDB(t)

	got, err := GetCategory(db, "notifications")
	if err != nil {
		t.Fatalf("GetCategory failed: %v", err)
	}
	if len(got) != len(testDefaults) {
		t.Errorf("GetCategory returned %d settings, want %d", len(got), len(testDefaults))
	}
}
