package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"densiview/internal/domain"
)

// LoadDotEnv loads a .env file from the working directory when present.
// Missing files are not an error; variables already set in the environment
// win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// ApplyEnv overlays environment variables onto settings. Backend address and
// token are the operational knobs most useful to override without touching
// the saved settings file.
func ApplyEnv(cfg domain.Settings) domain.Settings {
	cfg.BackendURL = envString("DENSIVIEW_BACKEND_URL", cfg.BackendURL)
	cfg.APIToken = envString("DENSIVIEW_API_TOKEN", cfg.APIToken)
	cfg.ModelEndpoint = envString("DENSIVIEW_MODEL_ENDPOINT", cfg.ModelEndpoint)
	cfg.ReportsDir = envString("DENSIVIEW_REPORTS_DIR", cfg.ReportsDir)
	cfg.RetentionDays = envInt("DENSIVIEW_RETENTION_DAYS", cfg.RetentionDays)
	cfg.MockSeed = envUint64("DENSIVIEW_MOCK_SEED", cfg.MockSeed)
	return cfg
}

func envString(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func envUint64(key string, defaultValue uint64) uint64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
