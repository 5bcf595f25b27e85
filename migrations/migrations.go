// Package migrations предоставляет обертку над goose для управления
// миграциями схемы хранилища событий и read-моделей.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// EmbeddedDir директория встроенных миграций внутри embed.FS
const EmbeddedDir = "sql"

// MigrationStatus представляет статус миграции
type MigrationStatus struct {
	Version   int64
	Name      string
	AppliedAt *time.Time
	Status    string // "pending", "applied"
}

// SetDialect устанавливает диалект БД.
// Если dialect пустой, устанавливается значение по умолчанию "postgres".
func SetDialect(dialect string) error {
	if dialect == "" {
		dialect = "postgres"
	}
	return goose.SetDialect(dialect)
}

// UseEmbedded переключает goose на встроенные миграции пакета
func UseEmbedded() {
	goose.SetBaseFS(embeddedMigrations)
}

// UseFilesystem переключает goose на миграции из файловой системы
func UseFilesystem() {
	goose.SetBaseFS(nil)
}

// RunMigrations применяет все pending миграции из указанной директории
func RunMigrations(db *sql.DB, dir string) error {
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RunMigrationsLimited применяет не более steps pending миграций
func RunMigrationsLimited(db *sql.DB, dir string, steps int64) error {
	if steps <= 0 {
		return RunMigrations(db, dir)
	}

	currentVersion, err := goose.GetDBVersion(db)
	if err != nil {
		currentVersion = 0
	}

	available, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("failed to collect migrations: %w", err)
	}

	var pending []*goose.Migration
	for _, migration := range available {
		if migration.Version > currentVersion {
			pending = append(pending, migration)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	target := pending[len(pending)-1].Version
	if int64(len(pending)) >= steps {
		target = pending[steps-1].Version
	}

	if err := goose.UpTo(db, dir, target); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// RollbackMigration откатывает последнюю миграцию
func RollbackMigration(db *sql.DB, dir string) error {
	if err := goose.Down(db, dir); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

// RollbackMigrations откатывает N миграций
func RollbackMigrations(db *sql.DB, dir string, steps int64) error {
	currentVersion, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	target := currentVersion - steps
	if target < 0 {
		target = 0
	}

	if err := goose.DownTo(db, dir, target); err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

// GetMigrationStatus возвращает статус всех миграций
func GetMigrationStatus(db *sql.DB, dir string) ([]MigrationStatus, error) {
	available, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to collect migrations: %w", err)
	}

	currentVersion, err := goose.GetDBVersion(db)
	if err != nil {
		currentVersion = 0
	}

	var statuses []MigrationStatus
	for _, migration := range available {
		status := MigrationStatus{
			Version: migration.Version,
			Name:    filepath.Base(migration.Source),
			Status:  "pending",
		}

		if migration.Version <= currentVersion {
			var appliedAt time.Time
			err := db.QueryRow(
				"SELECT tstamp FROM goose_db_version WHERE version_id = $1 AND is_applied = true ORDER BY tstamp DESC LIMIT 1",
				migration.Version,
			).Scan(&appliedAt)
			if err == nil {
				status.AppliedAt = &appliedAt
				status.Status = "applied"
			}
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

// GetCurrentVersion возвращает текущую версию БД
func GetCurrentVersion(db *sql.DB) (int64, error) {
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// CreateMigration создает новый файл миграции в формате goose
func CreateMigration(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s.sql", timestamp, name)
	path := filepath.Join(dir, filename)

	content := fmt.Sprintf(`-- +goose Up
-- Migration: %s

-- Add your migration SQL here


-- +goose Down
-- Rollback migration: %s

-- Add your rollback SQL here

`, name, name)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return path, nil
}
