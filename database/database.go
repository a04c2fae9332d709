package database

import (
	"fmt"
	"time"

	"equipment_monitor/config"
	"equipment_monitor/models"
	"equipment_monitor/sensor"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Dialector selects the gorm dialector for the configured driver
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}

	dsn := cfg.GetDSN()
	switch cfg.Database.Driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// Connect establishes a database connection based on the provided configuration
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	// SQL statements are only echoed at debug level
	level := logger.Warn
	if cfg.Logging.LogLevel == "debug" {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	pool := cfg.Database.ConnectionPool
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Second)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	DB = db
	return db, nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	DB = nil
	return sqlDB.Close()
}

// GetDB returns the global database instance
func GetDB() *gorm.DB {
	return DB
}

// IsConnected checks if database is connected
func IsConnected() bool {
	if DB == nil {
		return false
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

// SeedSensors makes sure the sensor catalogue has one row per stream sensor id.
// Existing rows are left untouched.
func SeedSensors(db *gorm.DB) error {
	rows := make([]models.Sensor, 0, len(sensor.Kinds))
	for _, k := range sensor.Kinds {
		rows = append(rows, models.Sensor{ID: k.ID(), Name: k.String(), Unit: k.Unit()})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed sensors: %w", err)
	}
	return nil
}

// GetDatabaseInfo returns information about the connected database
func GetDatabaseInfo(cfg *config.Config) map[string]interface{} {
	info := make(map[string]interface{})
	info["driver"] = cfg.Database.Driver
	info["connected"] = IsConnected()

	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			stats := sqlDB.Stats()
			info["max_open_connections"] = stats.MaxOpenConnections
			info["open_connections"] = stats.OpenConnections
			info["in_use"] = stats.InUse
			info["idle"] = stats.Idle
		}
	}

	switch cfg.Database.Driver {
	case "mysql":
		info["host"] = cfg.Database.MySQL.Host
		info["port"] = cfg.Database.MySQL.Port
		info["database"] = cfg.Database.MySQL.DBName
	case "postgres":
		info["host"] = cfg.Database.PostgreSQL.Host
		info["port"] = cfg.Database.PostgreSQL.Port
		info["database"] = cfg.Database.PostgreSQL.DBName
	case "sqlite":
		info["path"] = cfg.Database.SQLite.Path
	}

	return info
}

// Summary aggregates the imported measurements
type Summary struct {
	Records int64
	Sources int64
	Batches int64
	Maxima  map[int]float64 // max value per sensor id
}

// Summarize reads counts and per-sensor maxima from the measurements table
func Summarize(db *gorm.DB) (Summary, error) {
	s := Summary{Maxima: map[int]float64{}}

	if err := db.Model(&models.Measurement{}).Count(&s.Records).Error; err != nil {
		return s, fmt.Errorf("count measurements: %w", err)
	}
	if err := db.Model(&models.Measurement{}).Distinct("source").Count(&s.Sources).Error; err != nil {
		return s, fmt.Errorf("count sources: %w", err)
	}
	if err := db.Model(&models.Import{}).Count(&s.Batches).Error; err != nil {
		return s, fmt.Errorf("count imports: %w", err)
	}

	var maxima []struct {
		SensorID int
		MaxValue float64
	}
	err := db.Model(&models.Measurement{}).
		Select("sensor_id, MAX(value) AS max_value").
		Group("sensor_id").
		Scan(&maxima).Error
	if err != nil {
		return s, fmt.Errorf("sensor maxima: %w", err)
	}
	for _, m := range maxima {
		s.Maxima[m.SensorID] = m.MaxValue
	}
	return s, nil
}
