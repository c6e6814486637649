// Package logger is the fuzzer's run-wide log sink: gatekeeper verdicts,
// harvested seed counts, each recipe's pass/fail and trial/batch tallies,
// and the subprocess errors a trial swallows on its way to "not interesting".
// One colorized console writer, plus an optional timestamped file sink for
// --log-dir runs that want a durable transcript alongside the terminal
// output.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is how loud a run is: DEBUG sees every mutate/optimize/validate
// call, INFO sees phase transitions (gatekeeper verdict, seed count, each
// recipe's outcome), WARN sees tolerated per-trial subprocess failures, and
// ERROR/FATAL are reserved for setup failures that abort the run.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

type levelInfo struct {
	name  string
	color string
}

var levels = map[Level]levelInfo{
	DEBUG: {"DEBUG", "\033[36m"}, // Cyan
	INFO:  {"INFO", "\033[32m"},  // Green
	WARN:  {"WARN", "\033[33m"},  // Yellow
	ERROR: {"ERROR", "\033[31m"}, // Red
	FATAL: {"FATAL", "\033[35m"}, // Magenta
}

const colorReset = "\033[0m"

// Logger is the run-wide sink every package-level function writes through.
type Logger struct {
	mu          sync.Mutex
	level       Level
	console     io.Writer
	file        io.Writer
	fileHandle  *os.File
	colorEnable bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger at levelStr, console output only.
// Called once at the top of every cobra RunE before any orchestration
// begins, so the gatekeeper's first verdict line is never lost.
func Init(levelStr string) {
	once.Do(func() {
		defaultLogger = &Logger{
			level:       parseLevel(levelStr),
			console:     os.Stdout,
			colorEnable: true,
		}
	})
}

// InitWithFile initializes the logger with both console and file output,
// for a run started with a non-empty --log-dir. The log file is named
// YYYY-MM-DD_HH-MM-SS_TZ.log so repeated runs against the same directory
// never clobber each other's transcript.
func InitWithFile(levelStr string, logDir string) error {
	level := parseLevel(levelStr)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	now := time.Now()
	zone, _ := now.Zone()
	filename := fmt.Sprintf("%s_%s.log", now.Format("2006-01-02_15-04-05"), zone)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	once.Do(func() {
		defaultLogger = &Logger{
			level:       level,
			console:     os.Stdout,
			file:        file,
			fileHandle:  file,
			colorEnable: true,
		}
	})

	if defaultLogger.file == nil {
		defaultLogger.mu.Lock()
		defaultLogger.file = file
		defaultLogger.fileHandle = file
		defaultLogger.level = level
		defaultLogger.mu.Unlock()
	}

	Info("log file: %s", logPath)
	return nil
}

// Close closes the log file if one is open, flushing the run's transcript.
func Close() {
	if defaultLogger != nil && defaultLogger.fileHandle != nil {
		defaultLogger.mu.Lock()
		defaultLogger.fileHandle.Close()
		defaultLogger.fileHandle = nil
		defaultLogger.file = nil
		defaultLogger.mu.Unlock()
	}
}

// GetLogFilePath returns the current log file path, or "" if file logging
// was never enabled for this run.
func GetLogFilePath() string {
	if defaultLogger != nil && defaultLogger.fileHandle != nil {
		return defaultLogger.fileHandle.Name()
	}
	return ""
}

func parseLevel(levelStr string) Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)
	info := levels[level]

	if l.console != nil {
		var line string
		if l.colorEnable {
			line = fmt.Sprintf("%s[%s]%s %s", info.color, info.name, colorReset, message)
		} else {
			line = fmt.Sprintf("[%s] %s", info.name, message)
		}
		log.New(l.console, "", log.LstdFlags).Println(line)
	}

	if l.file != nil {
		log.New(l.file, "", log.LstdFlags).Println(fmt.Sprintf("[%s] %s", info.name, message))
	}

	if level == FATAL {
		os.Exit(1)
	}
}

// Debug logs an individual mutate/optimize/validate subprocess call.
func Debug(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(DEBUG, format, args...)
}

// Info logs a phase transition: gatekeeper verdict, seed count, a recipe's
// pass/fail outcome.
func Info(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(INFO, format, args...)
}

// Warn logs a tolerated failure: a batch with some per-trial subprocess
// errors, a recipe whose engine run reported an aggregate error but still
// produced a verdict.
func Warn(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(WARN, format, args...)
}

// Error logs a failure serious enough to note but not to abort the run on.
func Error(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(ERROR, format, args...)
}

// Fatal logs a setup failure (missing tool binary, malformed patch file)
// and exits the process — there is no partial run to continue.
func Fatal(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(FATAL, format, args...)
}
