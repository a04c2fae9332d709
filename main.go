package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"equipment_monitor/config"
	"equipment_monitor/database"
	"equipment_monitor/logger"
	"equipment_monitor/scanner"
	"equipment_monitor/sensor"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	var cfg *config.Config
	if needsConfig(command) {
		cfg = loadConfig(configPathFrom(args))
	}

	// Initialize logging only for commands that need it
	if needsLogging(command) {
		if streamsToStdout(command) {
			cfg.Logging.Console = "stderr"
		}
		if err := logger.Init(cfg); err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer func() {
			err := logger.Close()
			if err != nil {
				log.Fatalf("Failed to close logging: %v", err)
			}
		}()
		logger.LogCommand(os.Args[0], os.Args)
	}

	switch command {
	case "run":
		runCommand(cfg, args)
	case "simulate":
		simulateCommand(cfg, args)
	case "report":
		reportCommand(args)
	case "connect":
		connectCommand(cfg)
	case "migrate":
		migrateCommand(cfg)
	case "migrate:create":
		if len(args) < 1 {
			fmt.Println("Error: migration name required")
			fmt.Println("Usage: equipment_monitor migrate:create <migration_name>")
			return
		}
		createMigrationCommand(cfg, args[0])
	case "migrate:status":
		migrationStatusCommand(cfg)
	case "db:info":
		dbInfoCommand(cfg)
	case "scan":
		scanCommand(cfg, args)
	case "help", "-h", "--help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showHelp()
	}
}

// needsConfig determines which commands read config.yaml
func needsConfig(command string) bool {
	switch command {
	case "report", "help", "-h", "--help":
		return false
	}
	return true
}

// needsLogging determines which commands need logging
func needsLogging(command string) bool {
	loggingCommands := map[string]bool{
		"run":            true,
		"simulate":       true,
		"migrate":        true,
		"migrate:create": true,
		"migrate:status": true,
		"scan":           true,
		"connect":        true,
	}
	return loggingCommands[command]
}

// streamsToStdout reports whether the command writes the measurement stream to stdout,
// in which case log lines must stay off it.
func streamsToStdout(command string) bool {
	return command == "run"
}

func showHelp() {
	fmt.Println("Equipment Monitor - machine health monitoring and measurement import")
	fmt.Println("")
	fmt.Println("Usage: equipment_monitor <command> [arguments] [--config config.yaml]")
	fmt.Println("")
	fmt.Println("Monitoring:")
	fmt.Println("  run                   Run the control loop, streaming measurements to stdout")
	fmt.Println("      --source          simulated or replay (default from config)")
	fmt.Println("      --replay <file>   Recorded stream to feed back through the loop")
	fmt.Println("      --seed <n>        Seed of the simulated sensors")
	fmt.Println("      --interval <d>    Sampling period (e.g. 1s, 500ms)")
	fmt.Println("      --output <file>   Also append the stream to a file")
	fmt.Println("      --metrics-addr    Serve Prometheus metrics on this address")
	fmt.Println("  simulate <file>       Generate a recording offline with the simulated sensors")
	fmt.Println("      --iterations <n>  Number of iterations (default 200)")
	fmt.Println("      --seed <n>        Seed of the simulated sensors")
	fmt.Println("  report <file>         Summarize a recording (tiers, critical share, temperature)")
	fmt.Println("")
	fmt.Println("Database:")
	fmt.Println("  connect               Test database connection")
	fmt.Println("  migrate               Create the schema, seed sensors, run pending migrations")
	fmt.Println("  migrate:create <name> Create a new migration file")
	fmt.Println("  migrate:status        Show migration status")
	fmt.Println("  db:info               Show database information")
	fmt.Println("  scan <directory>      Import recorded streams from a directory (non-recursive)")
	fmt.Println("      --workers <n>     Parallel workers")
	fmt.Println("      --schedule <cron> Keep running and re-scan on this schedule")
	fmt.Println("  help                  Show this help message")
	fmt.Println("")
	fmt.Println("Stream Format:")
	fmt.Printf("  %s\n", "id_local;data_hora_ms;id_sensor;valor")
	for _, k := range sensor.Kinds {
		fmt.Printf("  sensor %d = %s (%s)\n", k.ID(), k, k.Unit())
	}
	fmt.Println("  Lines without four ';'-separated fields are diagnostics and are skipped on import")
}

// newFlagSet creates the flag set of one command. Every set accepts --config so it can be
// given after the command name.
func newFlagSet(command string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(command, pflag.ExitOnError)
	fs.StringP("config", "c", config.DefaultPath, "path to the configuration file")
	return fs
}

// configPathFrom picks --config out of the command arguments before the command's own
// flags are parsed. An empty result selects the default path.
func configPathFrom(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist = pflag.ParseErrorsWhitelist{UnknownFlags: true}
	fs.Usage = func() {}
	path := fs.StringP("config", "c", "", "")
	if err := fs.Parse(args); err != nil {
		return ""
	}
	return *path
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func connectDatabase(cfg *config.Config) error {
	if _, err := database.Connect(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func connectCommand(cfg *config.Config) {
	logger.Println("Testing database connection...")

	if err := connectDatabase(cfg); err != nil {
		logger.Fatalf("Connection failed: %v\n", err)
	}
	defer database.Close()

	logger.Printf("✓ Successfully connected to %s database\n", cfg.Database.Driver)

	info := database.GetDatabaseInfo(cfg)
	infoJSON, _ := json.MarshalIndent(info, "", "  ")
	logger.Printf("Connection info: %s\n", infoJSON)
}

func migrateCommand(cfg *config.Config) {
	logger.Println("Running database migrations...")

	if err := connectDatabase(cfg); err != nil {
		logger.Fatalf("Failed to connect to database: %v\n", err)
	}
	defer database.Close()

	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	if err := runner.RunMigrations(); err != nil {
		logger.Fatalf("Migration failed: %v\n", err)
	}
	logger.LogResult("migrate", true, cfg.Database.Driver)
}

func createMigrationCommand(cfg *config.Config, name string) {
	logger.Printf("Creating migration: %s\n", name)

	runner := database.NewMigrationRunner(nil, cfg) // Don't need DB connection to create files

	filePath, err := runner.CreateMigration(name)
	if err != nil {
		logger.Fatalf("Failed to create migration: %v\n", err)
	}

	logger.Printf("✓ Migration created: %s\n", filePath)
}

func migrationStatusCommand(cfg *config.Config) {
	logger.Println("Checking migration status...")

	if err := connectDatabase(cfg); err != nil {
		logger.Fatalf("Failed to connect to database: %v\n", err)
	}
	defer database.Close()

	runner := database.NewMigrationRunner(database.GetDB(), cfg)

	migrations, err := runner.GetMigrationStatus()
	if err != nil {
		logger.Fatalf("Failed to get migration status: %v\n", err)
	}

	if len(migrations) == 0 {
		logger.Println("No migrations found")
		return
	}

	logger.Printf("%-20s %-40s %s\n", "Version", "Name", "Status")
	logger.Println("-------------------------------------------------------------------")

	for _, migration := range migrations {
		status := "Pending"
		if migration.Applied {
			status = "Applied"
		}
		logger.Printf("%-20s %-40s %s\n", migration.Version, migration.Name, status)
	}
}

func dbInfoCommand(cfg *config.Config) {
	fmt.Println("Database Information:")
	fmt.Println(strings.Repeat("=", 50))

	if err := connectDatabase(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	info := database.GetDatabaseInfo(cfg)

	fmt.Printf("Database Type:     %v\n", info["driver"])
	fmt.Printf("Connection Status: %v\n", getConnectionStatusText(info["connected"]))

	switch cfg.Database.Driver {
	case "mysql", "postgres":
		fmt.Printf("Host:              %v\n", info["host"])
		fmt.Printf("Port:              %v\n", info["port"])
		fmt.Printf("Database:          %v\n", info["database"])
	case "sqlite":
		fmt.Printf("File Path:         %v\n", info["path"])
	}

	if info["connected"] != true {
		fmt.Println("\nConnection failed - unable to retrieve detailed information")
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	fmt.Println("\nConnection Pool:")
	fmt.Printf("  Max Connections: %v\n", info["max_open_connections"])
	fmt.Printf("  Open Connections:%v\n", info["open_connections"])
	fmt.Printf("  In Use:          %v\n", info["in_use"])
	fmt.Printf("  Idle:            %v\n", info["idle"])

	summary, err := database.Summarize(database.GetDB())
	if err != nil {
		fmt.Printf("\nUnable to read measurements: %v\n", err)
		fmt.Println("Run 'migrate' to create the schema")
	} else {
		fmt.Println("\nData Information:")
		fmt.Printf("  Total Records:   %d\n", summary.Records)
		fmt.Printf("  Sources:         %d\n", summary.Sources)
		fmt.Printf("  Imports:         %d\n", summary.Batches)
		for _, k := range sensor.Kinds {
			if v, ok := summary.Maxima[k.ID()]; ok {
				fmt.Printf("  Max %-12s %.2f%s\n", k.String()+":", v, k.Unit())
			}
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

func getConnectionStatusText(connected interface{}) string {
	if conn, ok := connected.(bool); ok && conn {
		return "✓ Connected"
	}
	return "✗ Disconnected"
}

func scanCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("scan")
	workers := fs.IntP("workers", "w", cfg.Scan.Workers, "number of parallel workers")
	schedule := fs.String("schedule", cfg.Scan.Schedule, "cron schedule for repeated scans (empty scans once)")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Error: directory path required")
		fmt.Println("Usage: equipment_monitor scan <directory_path> [--workers n] [--schedule \"*/5 * * * *\"]")
		return
	}
	directoryPath := fs.Arg(0)

	if err := connectDatabase(cfg); err != nil {
		logger.Fatalf("Failed to connect to database: %v\n", err)
	}
	defer database.Close()

	streamScanner := scanner.NewStreamScanner(database.GetDB(), cfg.Scan)
	streamScanner.SetWorkerCount(*workers)

	if *schedule != "" {
		ctx, stop := signalContext()
		defer stop()
		if err := streamScanner.Watch(ctx, directoryPath, *schedule); err != nil {
			logger.Fatalf("Scan failed: %v\n", err)
		}
		return
	}

	if _, err := streamScanner.ScanDirectory(directoryPath); err != nil {
		logger.Fatalf("Scan failed: %v\n", err)
	}

	logger.Println("✓ Directory scan completed successfully")
}
