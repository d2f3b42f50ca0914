package config

import (
	"os"
	"path/filepath"
	"testing"

	"densiview/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.BackendURL == "" {
		t.Fatal("expected non-empty backend url")
	}
	if cfg.ModelEndpoint != DefaultModelEndpoint {
		t.Fatalf("model endpoint = %q, want %q", cfg.ModelEndpoint, DefaultModelEndpoint)
	}
	if cfg.RetentionDays != DefaultRetentionDays {
		t.Fatalf("retention days = %d, want %d", cfg.RetentionDays, DefaultRetentionDays)
	}
	if cfg.ReportsDir == "" {
		t.Fatal("expected non-empty reports dir")
	}
}

// TestJSONStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestJSONStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.json")
	store := NewJSONStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.BackendURL != DefaultBackendURL {
		t.Fatalf("backend url = %q, want default", got.BackendURL)
	}
}

// TestJSONStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestJSONStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	store := NewJSONStore(path)
	want := domain.Settings{
		BackendURL:    "https://backend.local:8443",
		APIToken:      "token-1",
		ModelEndpoint: "breast_density",
		ReportsDir:    "/data/reports",
		RetentionDays: 14,
		MockSeed:      42,
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadInvalidJSON checks parse error handling.
func TestJSONStoreLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path)
	if _, err := store.Load(); err == nil {
		t.Fatal("expected json parse error")
	}
}

// TestApplyEnvOverrides checks environment variables win over stored values.
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DENSIVIEW_BACKEND_URL", "https://override.local")
	t.Setenv("DENSIVIEW_RETENTION_DAYS", "7")

	got := ApplyEnv(domain.Settings{
		BackendURL:    "https://stored.local",
		RetentionDays: 30,
	})
	if got.BackendURL != "https://override.local" {
		t.Fatalf("backend url = %q", got.BackendURL)
	}
	if got.RetentionDays != 7 {
		t.Fatalf("retention days = %d, want 7", got.RetentionDays)
	}
}
