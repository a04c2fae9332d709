package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"equipment_monitor/config"
	"equipment_monitor/logger"
	"equipment_monitor/models"

	"gorm.io/gorm"
)

// versionLayout is the timestamp prefix of every migration file name
const versionLayout = "20060102_150405"

// Migration is one applied SQL migration file
type Migration struct {
	ID          uint   `gorm:"primaryKey"`
	Version     string `gorm:"unique;not null"`
	Name        string `gorm:"not null"`
	Applied     bool   `gorm:"default:false"`
	AppliedAt   *time.Time
	Description string
}

// MigrationFile is a SQL file found in the migration directory
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	FilePath    string
	Applied     bool
}

// MigrationRunner creates the schema and applies SQL migrations in version order
type MigrationRunner struct {
	db             *gorm.DB
	migrationTable string
	migrationDir   string
	autoMigrate    bool
}

// NewMigrationRunner creates a new migration runner
func NewMigrationRunner(db *gorm.DB, cfg *config.Config) *MigrationRunner {
	return &MigrationRunner{
		db:             db,
		migrationTable: cfg.Migration.MigrationTable,
		migrationDir:   cfg.Migration.MigrationDir,
		autoMigrate:    cfg.Migration.AutoMigrate,
	}
}

// history scopes queries to the configured migration table
func (mr *MigrationRunner) history() *gorm.DB {
	return mr.db.Table(mr.migrationTable)
}

// InitializeMigrationTable creates the migration table if it doesn't exist
func (mr *MigrationRunner) InitializeMigrationTable() error {
	return mr.history().AutoMigrate(&Migration{})
}

// MigrateSchema creates the measurement tables from the models and seeds the
// sensor catalogue. Skipped when auto_migrate is off.
func (mr *MigrationRunner) MigrateSchema() error {
	if !mr.autoMigrate {
		logger.Debugf("auto_migrate disabled, skipping model migration\n")
		return nil
	}
	if err := mr.db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}
	return SeedSensors(mr.db)
}

// parseMigrationFile splits YYYYMMDD_HHMMSS_description.sql into its parts
func parseMigrationFile(dir, filename string) (MigrationFile, error) {
	parts := strings.SplitN(filename, "_", 3)
	if len(parts) < 3 {
		return MigrationFile{}, fmt.Errorf("invalid migration filename format: %s (expected: YYYYMMDD_HHMMSS_description.sql)", filename)
	}
	version := parts[0] + "_" + parts[1]
	if _, err := time.Parse(versionLayout, version); err != nil {
		return MigrationFile{}, fmt.Errorf("invalid migration filename format: %s (bad version %q)", filename, version)
	}

	description := strings.TrimSuffix(parts[2], ".sql")
	return MigrationFile{
		Version:     version,
		Name:        strings.ReplaceAll(description, "_", " "),
		Description: description,
		FilePath:    filepath.Join(dir, filename),
	}, nil
}

// GetMigrationFiles lists the .sql files of the migration directory in version order.
// A missing directory means no migrations.
func (mr *MigrationRunner) GetMigrationFiles() ([]MigrationFile, error) {
	entries, err := os.ReadDir(mr.migrationDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []MigrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		file, err := parseMigrationFile(mr.migrationDir, entry.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

// GetAppliedMigrations returns all applied migrations from the database
func (mr *MigrationRunner) GetAppliedMigrations() ([]Migration, error) {
	if err := mr.InitializeMigrationTable(); err != nil {
		return nil, fmt.Errorf("failed to initialize migration table: %w", err)
	}

	var migrations []Migration
	if err := mr.history().Where("applied = ?", true).Order("version ASC").Find(&migrations).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return migrations, nil
}

// GetMigrationStatus returns every migration file with its Applied flag set
func (mr *MigrationRunner) GetMigrationStatus() ([]MigrationFile, error) {
	files, err := mr.GetMigrationFiles()
	if err != nil {
		return nil, err
	}

	applied, err := mr.GetAppliedMigrations()
	if err != nil {
		return nil, err
	}
	versions := make(map[string]bool, len(applied))
	for _, m := range applied {
		versions[m.Version] = true
	}

	for i := range files {
		files[i].Applied = versions[files[i].Version]
	}
	return files, nil
}

// GetPendingMigrations returns migrations that haven't been applied yet
func (mr *MigrationRunner) GetPendingMigrations() ([]MigrationFile, error) {
	files, err := mr.GetMigrationStatus()
	if err != nil {
		return nil, err
	}

	var pending []MigrationFile
	for _, f := range files {
		if !f.Applied {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

// RunMigrations migrates the model schema, then executes all pending SQL migrations
func (mr *MigrationRunner) RunMigrations() error {
	if err := mr.MigrateSchema(); err != nil {
		return err
	}

	pending, err := mr.GetPendingMigrations()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if len(pending) == 0 {
		logger.Println("No pending migrations to run")
		return nil
	}

	logger.Printf("Running %d pending migration(s)...\n", len(pending))
	for i, file := range pending {
		logger.LogProgress(i+1, len(pending), file.Version+" "+file.Name)
		if err := mr.apply(file); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", file.Version, err)
		}
	}

	logger.Println("All migrations completed successfully")
	return nil
}

// apply executes one migration file and records it in the same transaction
func (mr *MigrationRunner) apply(file MigrationFile) error {
	content, err := os.ReadFile(file.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	return mr.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(string(content)).Error; err != nil {
			return fmt.Errorf("failed to execute migration SQL: %w", err)
		}

		now := time.Now()
		record := Migration{
			Version:     file.Version,
			Name:        file.Name,
			Applied:     true,
			AppliedAt:   &now,
			Description: file.Description,
		}
		if err := tx.Table(mr.migrationTable).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	})
}

// CreateMigration writes an empty migration file named after the current time
func (mr *MigrationRunner) CreateMigration(name string) (string, error) {
	if err := os.MkdirAll(mr.migrationDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	now := time.Now()
	cleanName := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	filePath := filepath.Join(mr.migrationDir, fmt.Sprintf("%s_%s.sql", now.Format(versionLayout), cleanName))

	template := fmt.Sprintf(`-- Migration: %s
-- Created: %s
-- Description: %s

-- Add your migration SQL here
-- Example:
-- CREATE INDEX idx_measurements_sensor_timestamp ON measurements (sensor_id, timestamp_ms);
`, name, now.Format("2006-01-02 15:04:05"), name)

	if err := os.WriteFile(filePath, []byte(template), 0644); err != nil {
		return "", fmt.Errorf("failed to create migration file: %w", err)
	}
	return filePath, nil
}
