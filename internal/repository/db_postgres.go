// Package repository contains the repository layer for the Misbar API
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/nsvirk/misbarapi/internal/config"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/repository/migrations"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectPostgres connects to a Postgres database, creates the configured schema
// and applies the embedded migrations
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Postgres")
	zaplogger.Info(config.SingleLine)

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.PostgresLogLevel)),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(withSearchPath(cfg.PostgresDsn, cfg.PostgresSchema)), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}
	zaplogger.Info("  * connected")

	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(cfg.PostgresSchema)).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	zaplogger.Info("  * migrating schema: \"" + cfg.PostgresSchema + "\"")
	if err := RunMigrations(context.Background(), sqlDB); err != nil {
		return nil, fmt.Errorf("failed to migrate: %v", err)
	}

	return db, nil
}

// gooseUpContext is replaced in tests
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Info
	}
}

// withSearchPath appends the schema search path to both URL and key=value DSNs
func withSearchPath(dsn, schema string) string {
	searchPath := schema + ",public"
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + searchPath
	}
	return dsn + " search_path=" + searchPath
}

// translateError maps gorm errors onto the store sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.ErrDuplicateKey
	}
	return err
}
