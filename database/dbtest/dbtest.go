// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Int64

// New returns a migrated in-memory SQLite store that is closed when t ends.
// SQLite ignores row locks, so the pool is pinned to one connection and
// transactions serialize on it.
func New(t testing.TB) *database.GORMStore {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared&_busy_timeout=5000", seq.Add(1))

	store, err := database.OpenGORM(sqlite.Open(dsn), true)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := store.GetDB().DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := store.Init(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedUniversities inserts the sample catalog and returns the stored rows ordered by id
func SeedUniversities(t testing.TB, db *gorm.DB) []model.University {
	t.Helper()

	if err := database.RunSeeds(db); err != nil {
		t.Fatalf("failed to seed universities: %v", err)
	}

	var universities []model.University
	if err := db.Order("id ASC").Find(&universities).Error; err != nil {
		t.Fatalf("failed to load universities: %v", err)
	}
	return universities
}
