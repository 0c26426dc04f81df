package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the name of the rotating log file inside the log directory.
const LogFileName = "flowcast.log"

// Init installs the global logger with two sinks: os.Stderr and a rotating file.
// stdout stays free for command output and MCP frames.
func Init(verbose bool) error {
	// Init runs before config.Load, so LOGS_FOLDER may only be in the binary's .env.
	exePath, err := os.Executable()
	if err == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		if err == nil {
			logDir = filepath.Join(filepath.Dir(exePath), "logs")
		} else {
			logDir = "logs"
		}
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	logger, err := New(level, os.Stderr, !isTerminal, logDir)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = logger
	return nil
}

// New builds a logger writing to console and to a rotating file in logDir.
func New(level zerolog.Level, console io.Writer, noColor bool, logDir string) (zerolog.Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return zerolog.Logger{}, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	// MkdirAll succeeds on existing read-only directories.
	testFile := filepath.Join(logDir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return zerolog.Logger{}, fmt.Errorf("log directory %q is not writable: %w", logDir, err)
	}
	_ = os.Remove(testFile)

	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, LogFileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(consoleWriter, fileWriter)

	return zerolog.New(multi).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
