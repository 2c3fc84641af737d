package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/engine"
	"smartbiz-ml/internal/retry"
)

// EngineConfig holds the engine's call policy.
type EngineConfig struct {
	Seed             int64
	CallTimeout      time.Duration
	Retry            retry.Config
	TrainConcurrency int
}

// Options converts the configuration into engine options.
func (c EngineConfig) Options() []engine.Option {
	return []engine.Option{
		engine.WithSeed(c.Seed),
		engine.WithCallTimeout(c.CallTimeout),
		engine.WithRetry(c.Retry),
		engine.WithTrainConcurrency(c.TrainConcurrency),
	}
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath            string
	LogDir              string
	CacheDir            string
	Snapshot            string
	DSN                 string
	MetricsAddr         string
	EnableMermaidCharts bool
	Engine              EngineConfig
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// The binary's directory wins for MCP servers, which are started from anywhere.
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	cacheDir := filepath.Join(dataPath, "cache")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cacheDir).Msg("Failed to create cache directory")
	}

	return &AppConfig{
		DataPath:            dataPath,
		LogDir:              logDir,
		CacheDir:            cacheDir,
		Snapshot:            getEnv("SMARTBIZ_SNAPSHOT", "business"),
		DSN:                 getEnv("SMARTBIZ_DSN", ""),
		MetricsAddr:         getEnv("SMARTBIZ_METRICS_ADDR", ""),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
		Engine:              engineFromEnv(),
	}, nil
}

func engineFromEnv() EngineConfig {
	r := retry.DefaultConfig()
	r.MaxAttempts = getEnvInt("SMARTBIZ_CALL_ATTEMPTS", r.MaxAttempts)
	r.InitialDelay = time.Duration(getEnvInt("SMARTBIZ_RETRY_DELAY_MS", int(r.InitialDelay/time.Millisecond))) * time.Millisecond

	return EngineConfig{
		Seed:             int64(getEnvInt("SMARTBIZ_SEED", 0)),
		CallTimeout:      time.Duration(getEnvInt("SMARTBIZ_CALL_TIMEOUT_SECONDS", int(engine.DefaultCallTimeout/time.Second))) * time.Second,
		Retry:            r,
		TrainConcurrency: getEnvInt("SMARTBIZ_TRAIN_CONCURRENCY", engine.DefaultTrainConcurrency),
	}
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
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric setting")
		return fallback
	}
	return n
}
