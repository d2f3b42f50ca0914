package config

import (
	"os"
	"path/filepath"

	"densiview/internal/domain"
)

// DefaultBackendURL points at the hosted demo inference backend.
const DefaultBackendURL = "https://api.densiview.example.com"

// DefaultModelEndpoint selects the density model under /predict/.
const DefaultModelEndpoint = "breast_density"

// DefaultRetentionDays bounds how long completed requests are kept.
const DefaultRetentionDays = 30

// DataDir returns the application data directory under the user's home.
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".densiview")
}

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		BackendURL:    DefaultBackendURL,
		ModelEndpoint: DefaultModelEndpoint,
		ReportsDir:    filepath.Join(DataDir(), "reports"),
		RetentionDays: DefaultRetentionDays,
	}
}
