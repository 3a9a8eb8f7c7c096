package config

import (
	"os"
	"path/filepath"
	"testing"

	"nylour/internal/models"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
salons:
  - id: 1
    name: "Salon One"
    avg_service_minutes: 25
    is_active: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}

	if len(cfg.Salons) != 1 || cfg.Salons[0].ID != 1 {
		t.Errorf("expected 1 salon with ID 1")
	}

	if cfg.Estimator.RefreshSeconds != models.DefaultQueueRefreshSeconds {
		t.Errorf("expected estimator refresh default %d, got %d", models.DefaultQueueRefreshSeconds, cfg.Estimator.RefreshSeconds)
	}
	if cfg.OpenStatus.RefreshSeconds != models.DefaultOpenStatusRefreshSeconds {
		t.Errorf("expected open-status refresh default %d, got %d", models.DefaultOpenStatusRefreshSeconds, cfg.OpenStatus.RefreshSeconds)
	}
	if !cfg.OpenStatus.FailOpenEnabled() {
		t.Errorf("expected fail_open to default to true")
	}
	if cfg.Geocoder.ResultLimit != 5 {
		t.Errorf("expected geocoder result limit default 5, got %d", cfg.Geocoder.ResultLimit)
	}
}

func TestLoadConfigFailClosed(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
openstatus:
  fail_open: false
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.OpenStatus.FailOpenEnabled() {
		t.Errorf("expected fail_open=false to be preserved")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{Database: DatabaseConfig{Path: "path"}},
			wantErr: false,
		},
		{
			name:    "missing database path",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name: "telegram enabled without token",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Telegram: TelegramConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "google enabled without spreadsheet",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Google:   GoogleConfig{Enabled: true, GoogleCredentialsFile: "creds.json"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSalons(t *testing.T) {
	err := ValidateSalons([]models.Salon{
		{ID: 1, Name: "A"},
		{ID: 1, Name: "B"},
	})
	if err == nil {
		t.Errorf("expected duplicate salon ID error")
	}

	err = ValidateSalons([]models.Salon{{ID: 0, Name: "zero"}})
	if err == nil {
		t.Errorf("expected invalid ID error")
	}

	err = ValidateSalons([]models.Salon{{ID: 1, Name: "ok", AvgServiceMinutes: 20}})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
