package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"equipment_monitor/config"
)

// LogLevel constants
const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
)

var levels = map[string]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stderr
	errOut   io.Writer = os.Stderr
	logFile  *os.File
	logLevel = INFO
)

// Init initializes the logging system using configuration
func Init(cfg *config.Config) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}

	logPath := cfg.Logging.LogFile
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(cwd, logPath)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	var console io.Writer = os.Stdout
	if cfg.Logging.Console == "stderr" {
		console = os.Stderr
	}

	mu.Lock()
	logFile = file
	logLevel = cfg.Logging.LogLevel
	if cfg.Logging.LogToConsole {
		out = io.MultiWriter(console, file)
		errOut = io.MultiWriter(os.Stderr, file)
	} else {
		out = file
		errOut = file
	}
	mu.Unlock()

	Printf("=== Session started at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
	Printf("Log file: %s\n", logPath)
	Printf("Log level: %s\n", cfg.Logging.LogLevel)
	Printf("Log to console: %t (%s)\n", cfg.Logging.LogToConsole, cfg.Logging.Console)
	LogDivider()

	return nil
}

// SetOutput sends every level to w with the given level. Used by tests and by
// commands that run before the configuration is loaded.
func SetOutput(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	errOut = w
	logLevel = level
}

// Close closes the log file
func Close() error {
	mu.Lock()
	file := logFile
	mu.Unlock()
	if file == nil {
		return nil
	}

	LogDivider()
	Printf("=== Session ended at %s ===\n\n", time.Now().Format("2006-01-02 15:04:05"))

	mu.Lock()
	logFile = nil
	out = os.Stderr
	errOut = os.Stderr
	mu.Unlock()
	return file.Close()
}

// shouldLog determines if a message should be logged based on log level
func shouldLog(messageLevel string) bool {
	currentLevel, exists := levels[logLevel]
	if !exists {
		currentLevel = levels[INFO]
	}
	messageLogLevel, exists := levels[messageLevel]
	if !exists {
		return true
	}
	return messageLogLevel >= currentLevel
}

func write(level, prefix, msg string) {
	mu.Lock()
	defer mu.Unlock()
	if !shouldLog(level) {
		return
	}
	w := out
	if level == ERROR {
		w = errOut
	}
	fmt.Fprint(w, prefix+msg)
}

// Printf prints formatted text to log (respects log level)
func Printf(format string, v ...interface{}) {
	write(INFO, "", fmt.Sprintf(format, v...))
}

// Println prints a line to log (respects log level)
func Println(v ...interface{}) {
	write(INFO, "", fmt.Sprintln(v...))
}

// Debugf prints formatted debug text
func Debugf(format string, v ...interface{}) {
	write(DEBUG, "DEBUG: ", fmt.Sprintf(format, v...))
}

// Warnf prints formatted warning text
func Warnf(format string, v ...interface{}) {
	write(WARN, "WARN: ", fmt.Sprintf(format, v...))
}

// Errorf prints formatted error text (always logged regardless of level)
func Errorf(format string, v ...interface{}) {
	write(ERROR, "ERROR: ", fmt.Sprintf(format, v...))
}

// Fatalf prints formatted fatal error and exits (always logged)
func Fatalf(format string, v ...interface{}) {
	write(ERROR, "FATAL: ", fmt.Sprintf(format, v...))
	Close()
	os.Exit(1)
}

// LogCommand logs the command being executed
func LogCommand(command string, args []string) {
	if len(args) > 1 {
		Printf("Command executed: %s %v\n", command, args[1:])
		return
	}
	Printf("Command executed: %s\n", command)
}

// LogDivider prints a divider line for better log organization
func LogDivider() {
	Println("------------------------------------------------------------")
}

// LogResult logs a result with status
func LogResult(operation string, success bool, details string) {
	status := "SUCCESS"
	mark := "✅"
	if !success {
		status = "FAILED"
		mark = "❌"
	}
	if details != "" {
		Printf("%s %s: %s - %s\n", mark, operation, status, details)
		return
	}
	Printf("%s %s: %s\n", mark, operation, status)
}

// LogProgress logs progress information
func LogProgress(current, total int, item string) {
	Printf("Progress: [%d/%d] %s\n", current, total, item)
}
