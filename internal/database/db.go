package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL dialect
	_ "github.com/mattn/go-sqlite3"              // SQLite driver

	"creamery/internal/models"
)

// Open connects to the database for the given driver ("sqlite3" or
// "postgres"). File-backed SQLite databases get their directory created.
func Open(driver, dsn string) (*gorm.DB, error) {
	if driver == "sqlite3" && !isMemoryDSN(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := gorm.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	if driver == "sqlite3" {
		// a single connection keeps :memory: databases shared and serialises writers
		db.DB().SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	if err := db.DB().Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the service needs
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Machine{},
		&models.Employee{},
		&models.Shift{},
		&models.MachineCertification{},
		&models.Recipe{},
		&models.RecipeMachineYield{},
		&models.ProductionPlan{},
		&models.PlanRecipe{},
		&models.ProductionBlock{},
		&models.BlockRevision{},
	).Error
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:")
}
