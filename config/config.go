package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoDatabase is returned by ValidateDatabase when no driver is configured
var ErrNoDatabase = errors.New("no database driver configured")

// DatabaseConfig holds all database configuration
type DatabaseConfig struct {
	Driver         string         `yaml:"driver"`
	MySQL          MySQLConfig    `yaml:"mysql"`
	PostgreSQL     PostgresConfig `yaml:"postgres"`
	SQLite         SQLiteConfig   `yaml:"sqlite"`
	ConnectionPool PoolConfig     `yaml:"connection_pool"`
}

// MySQLConfig holds MySQL specific configuration
type MySQLConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	DBName    string `yaml:"dbname"`
	Charset   string `yaml:"charset"`
	ParseTime bool   `yaml:"parse_time"`
	Loc       string `yaml:"loc"`
}

// PostgresConfig holds PostgreSQL specific configuration
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	TimeZone string `yaml:"timezone"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxIdleConns    int `yaml:"max_idle_conns"`
	MaxOpenConns    int `yaml:"max_open_conns"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime"`
}

// MigrationConfig holds migration specific configuration
type MigrationConfig struct {
	AutoMigrate    bool   `yaml:"auto_migrate"`
	MigrationTable string `yaml:"migration_table"`
	MigrationDir   string `yaml:"migration_dir"`
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	LogFile      string `yaml:"log_file"`
	LogToConsole bool   `yaml:"log_to_console"`
	LogLevel     string `yaml:"log_level"`
	// Console is "stdout" or "stderr". The run command forces stderr so the
	// measurement stream keeps stdout to itself.
	Console string `yaml:"console"`
}

// MonitorConfig holds the control loop configuration
type MonitorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Source      string        `yaml:"source"`
	Seed        int64         `yaml:"seed"`
	ReplayFile  string        `yaml:"replay_file"`
	OutputFile  string        `yaml:"output_file"`
	EchoTimeout time.Duration `yaml:"echo_timeout"`
}

// MetricsConfig holds the Prometheus endpoint configuration. An empty address
// disables the endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// ScanConfig holds stream import configuration
type ScanConfig struct {
	Workers    int      `yaml:"workers"`
	Schedule   string   `yaml:"schedule"`
	Extensions []string `yaml:"extensions"`
	BatchSize  int      `yaml:"batch_size"`
}

// Config holds the complete application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Migration MigrationConfig `yaml:"migration"`
	Logging   LoggingConfig   `yaml:"logging"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Scan      ScanConfig      `yaml:"scan"`
}

const (
	SourceSimulated = "simulated"
	SourceReplay    = "replay"
)

// DefaultPath is used when no configuration path is given
const DefaultPath = "config.yaml"

// Load loads configuration from the specified YAML file. A missing file at the
// default path yields the defaults, so the monitor can run without any setup.
func Load(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultPath
	}

	var config Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// ApplyDefaults fills every unset option
func (c *Config) ApplyDefaults() {
	if c.Logging.LogFile == "" {
		c.Logging.LogFile = "monitor.log"
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = "info"
	}
	if c.Logging.Console == "" {
		c.Logging.Console = "stdout"
	}
	if c.Migration.MigrationTable == "" {
		c.Migration.MigrationTable = "migrations"
	}
	if c.Migration.MigrationDir == "" {
		c.Migration.MigrationDir = "migrations"
	}
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = time.Second
	}
	if c.Monitor.Source == "" {
		c.Monitor.Source = SourceSimulated
	}
	if c.Monitor.Seed == 0 {
		c.Monitor.Seed = 1
	}
	if c.Monitor.EchoTimeout == 0 {
		c.Monitor.EchoTimeout = 30 * time.Millisecond
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 4
	}
	if len(c.Scan.Extensions) == 0 {
		c.Scan.Extensions = []string{".csv", ".txt", ".log"}
	}
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = 1000
	}
}

// Validate validates the configuration. The database section is only checked when a
// driver is set; commands that need it call ValidateDatabase.
func (c *Config) Validate() error {
	if c.Monitor.Interval < 0 {
		return fmt.Errorf("monitor interval must be positive")
	}
	if c.Monitor.EchoTimeout < 0 {
		return fmt.Errorf("monitor echo_timeout must be positive")
	}
	switch c.Monitor.Source {
	case SourceSimulated:
	case SourceReplay:
		if c.Monitor.ReplayFile == "" {
			return fmt.Errorf("monitor replay_file is required for the replay source")
		}
	default:
		return fmt.Errorf("unsupported monitor source: %s", c.Monitor.Source)
	}

	switch c.Logging.Console {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("logging console must be stdout or stderr, got %s", c.Logging.Console)
	}

	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan workers must be positive")
	}

	if c.Database.Driver == "" {
		return nil
	}
	return c.ValidateDatabase()
}

// ValidateDatabase validates the database section
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case "mysql":
		if c.Database.MySQL.Host == "" {
			return fmt.Errorf("mysql host is required")
		}
		if c.Database.MySQL.User == "" {
			return fmt.Errorf("mysql user is required")
		}
		if c.Database.MySQL.DBName == "" {
			return fmt.Errorf("mysql database name is required")
		}
	case "postgres":
		if c.Database.PostgreSQL.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Database.PostgreSQL.User == "" {
			return fmt.Errorf("postgres user is required")
		}
		if c.Database.PostgreSQL.DBName == "" {
			return fmt.Errorf("postgres database name is required")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "":
		return ErrNoDatabase
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}

// GetDSN returns the database connection string based on the configured driver
func (c *Config) GetDSN() string {
	switch c.Database.Driver {
	case "mysql":
		mysql := c.Database.MySQL
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
			mysql.User, mysql.Password, mysql.Host, mysql.Port, mysql.DBName,
			mysql.Charset, mysql.ParseTime, mysql.Loc)
	case "postgres":
		pg := c.Database.PostgreSQL
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
			pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode, pg.TimeZone)
	case "sqlite":
		return c.Database.SQLite.Path
	default:
		return ""
	}
}
