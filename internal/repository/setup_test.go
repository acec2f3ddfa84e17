package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/home-timeline/internal/model"
)

func openTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(tb, err)
	sqlDB, err := db.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(tb, db.AutoMigrate(model.All()...))
	return db
}

func seedPost(tb testing.TB, db *gorm.DB, p model.Post) *model.Post {
	tb.Helper()
	if p.Visibility == "" {
		p.Visibility = model.VisibilityPublic
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	require.NoError(tb, db.Create(&p).Error)
	return &p
}

func ptr[T any](v T) *T { return &v }
