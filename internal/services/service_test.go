package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chatcrm/go-crm-backend/internal/domain"
	"github.com/chatcrm/go-crm-backend/internal/repo"
)

// newTestDB opens a throwaway file-backed SQLite database with the full
// schema migrated, closed automatically when the test ends.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "services_test.db")
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedTenant(t *testing.T, db *gorm.DB, name string) *domain.Tenant {
	t.Helper()
	tenant, err := repo.CreateTenant(context.Background(), db, name)
	if err != nil {
		t.Fatalf("CreateTenant(%q): %v", name, err)
	}
	return tenant
}

// fakeBackend is a scripted reply Generator for tests.
type fakeBackend struct {
	text  string
	err   error
	delay time.Duration
}

func (f *fakeBackend) Generate(ctx context.Context, messageText, contactName string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}
