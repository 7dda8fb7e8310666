package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"taskflow/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// OpenMemory opens a migrated in-memory sqlite database. Distinct names give isolated databases.
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One connection keeps the shared-cache database alive and avoids table locks between writers.
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func notFound(kind string, id int64) error {
	return model.NotFoundError{Kind: kind, ID: strconv.FormatInt(id, 10)}
}

// first loads one row by primary key and maps gorm's not-found to model.NotFoundError.
func first[T any](ctx context.Context, db *gorm.DB, kind string, id int64) (*T, error) {
	var v T
	if err := db.WithContext(ctx).First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(kind, id)
		}
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	return &v, nil
}

func nowFrom(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now()
	}
	return clock()
}
