// Package testing provides test helpers shared across packages: migrated
// sqlite databases, an in-memory store and position fixtures.
package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aristath/holdings/internal/database"
)

// NewTestDB creates a migrated sqlite database in a temporary directory and
// closes it when the test ends.
//
// Supported schema names:
//   - "holdings" - users, assets and asset_history
//   - "cache" - last_quotes
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("test_%s.db", name))
	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}
