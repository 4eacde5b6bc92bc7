// Package repo implements the persistence layer for questionnaires,
// versions, responses, and idempotency records, backed by GORM over the pure
// Go SQLite driver.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/formbeat/go-survey-backend/internal/domain"
)

// OpenSQLite opens (or creates) the SQLite database, applies PRAGMAs, and
// sizes the connection pool.
func OpenSQLite(path string) (*gorm.DB, error) {
	// A missing parent directory surfaces as an opaque sqlite "out of
	// memory (14)" later; check it up front.
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// WAL lets analytics reads proceed while submissions write; the busy
	// timeout covers publish transactions holding the writer briefly.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		db.Exec(pragma)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the survey tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Questionnaire{},
		&domain.QuestionnaireVersion{},
		&domain.Response{},
		&domain.Idempotency{},
	)
}
