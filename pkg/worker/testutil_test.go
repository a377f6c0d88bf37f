package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/simple-uow/pkg/storage"
)

// openSweepDB opens a migrated in-memory SQLite store.
func openSweepDB(t *testing.T) *storage.GormStorage {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")

	s, err := storage.NewGormStorageWithPool(db, storage.MaxOpenConns(1))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}
