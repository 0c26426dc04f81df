package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"flowcast/internal/simulation"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Trials              int
	Workers             int
	ThroughputDays      int
	Seed                *uint64
	DataPath            string
	LogDir              string
	CacheDir            string
	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Executable's directory first (MCP clients start us from anywhere)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Then the working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	dataPath := getEnv("DATA_PATH", "")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	cfg := FromEnv(dataPath)

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cfg.LogDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cfg.CacheDir).Msg("Failed to create cache directory")
	}

	return cfg, nil
}

// FromEnv builds the configuration from the process environment without touching the disk.
func FromEnv(dataPath string) *AppConfig {
	cfg := &AppConfig{
		Trials:              getEnvInt("FLOWCAST_TRIALS", simulation.DefaultTrials),
		Workers:             getEnvInt("FLOWCAST_WORKERS", runtime.NumCPU()),
		ThroughputDays:      getEnvInt("FLOWCAST_THROUGHPUT_DAYS", 30),
		DataPath:            dataPath,
		LogDir:              filepath.Join(dataPath, "logs"),
		CacheDir:            filepath.Join(dataPath, "cache"),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	if raw, ok := os.LookupEnv("FLOWCAST_SEED"); ok && raw != "" {
		if seed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.Seed = &seed
		} else {
			log.Warn().Str("value", raw).Msg("Ignoring invalid FLOWCAST_SEED")
		}
	}

	if cfg.Trials < 1 {
		log.Warn().Int("trials", cfg.Trials).Msg("FLOWCAST_TRIALS must be positive, using default")
		cfg.Trials = simulation.DefaultTrials
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric setting")
	}
	return fallback
}
