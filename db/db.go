package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database variables
var (
	Db   *gorm.DB                                                 // GORM database instance
	Path = filepath.Join(os.Getenv("HOME"), ".hrdesk", "hrdesk.db") // Default database path
)

// InitDB opens the database at Path, creating its directory and tables if needed.
func InitDB() error {
	conn, err := Open(Path)
	if err != nil {
		return err
	}
	Db = conn
	log.Debug().Str("path", Path).Msg("Database initialized successfully")
	return nil
}

// Open opens (or creates) a SQLite database at path and migrates the tables.
// It does not touch the package-level Db, so tests can hold several databases.
func Open(path string) (*gorm.DB, error) {
	if err := createDBDirectory(path); err != nil {
		return nil, err
	}

	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger()})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to open database")
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.AutoMigrate(&Token{}); err != nil {
		log.Error().Err(err).Msg("Failed to auto-migrate database")
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return conn, nil
}

// GetDB returns the database opened by InitDB.
func GetDB() *gorm.DB { return Db }

// createDBDirectory creates the parent directory of the database file if it does not exist.
func createDBDirectory(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Failed to create database directory")
			return err
		}
	}
	return nil
}

// gormLogger mirrors the global zerolog level: silent unless debug logging is on.
func gormLogger() logger.Interface {
	if zerolog.GlobalLevel() == zerolog.Disabled || zerolog.GlobalLevel() > zerolog.DebugLevel {
		return logger.Default.LogMode(logger.Silent)
	}
	return logger.Default.LogMode(logger.Info)
}

// CloseDB closes the database opened by InitDB. It is a no-op when nothing is open.
func CloseDB() error {
	if Db == nil {
		return nil
	}
	sqlDB, err := Db.DB()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get raw database connection")
		return err
	}
	Db = nil
	return sqlDB.Close()
}
