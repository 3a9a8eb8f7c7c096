package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"nylour/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	API        APIConfig        `yaml:"api"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	OpenStatus OpenStatusConfig `yaml:"openstatus"`
	Geocoder   GeocoderConfig   `yaml:"geocoder"`
	Queue      QueueConfig      `yaml:"queue"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Salons     []models.Salon   `yaml:"salons"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	TLS       APITLSConfig       `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// EstimatorConfig drives the queue-estimate refresh supervisor.
type EstimatorConfig struct {
	RefreshSeconds    int `yaml:"refresh_seconds"`
	DebounceMillis    int `yaml:"debounce_millis"`
	IdleTimeoutMins   int `yaml:"idle_timeout_mins"`
	AvgServiceMinutes int `yaml:"avg_service_minutes"`
}

// OpenStatusConfig drives open-status evaluation.
type OpenStatusConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
	// FailOpen keeps salons bookable when schedule data cannot be
	// fetched. Trades correctness for availability; set false to fail
	// closed instead.
	FailOpen *bool `yaml:"fail_open"`
}

type GeocoderConfig struct {
	BaseURL        string `yaml:"base_url"`
	CountryCode    string `yaml:"country_code"`
	ResultLimit    int    `yaml:"result_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheTTLHours  int    `yaml:"cache_ttl_hours"`
	UserAgent      string `yaml:"user_agent"`
}

type QueueConfig struct {
	CancellationFeePercent  float64 `yaml:"cancellation_fee_percent"`
	CancellationCutoffHours int     `yaml:"cancellation_cutoff_hours"`
	CheckInRateLimit        int     `yaml:"check_in_rate_limit"`
	CheckInRateWindow       int     `yaml:"check_in_rate_window"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type GoogleConfig struct {
	Enabled               bool   `yaml:"enabled"`
	GoogleCredentialsFile string `yaml:"credentials_file"`
	QueueSpreadSheetID    string `yaml:"queue_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env переопределяет окружение, если файл существует
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when telegram is enabled")
	}

	if c.Google.Enabled {
		if c.Google.GoogleCredentialsFile == "" {
			return errors.New("google credentials file is required when sheets sync is enabled")
		}
		if c.Google.QueueSpreadSheetID == "" {
			return errors.New("google queue spreadsheet id is required when sheets sync is enabled")
		}
	}

	return ValidateSalons(c.Salons)
}

func ValidateSalons(salons []models.Salon) error {
	// Check for duplicate salon IDs
	salonIDs := make(map[int64]bool)
	for _, salon := range salons {
		if salon.ID == 0 {
			return fmt.Errorf("salon '%s' has invalid ID 0", salon.Name)
		}
		if salonIDs[salon.ID] {
			return fmt.Errorf("duplicate salon ID found: %d", salon.ID)
		}
		salonIDs[salon.ID] = true
		if salon.AvgServiceMinutes < 0 {
			return fmt.Errorf("salon '%s' has negative avg_service_minutes", salon.Name)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if c.API.Enabled && !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Estimator.RefreshSeconds == 0 {
		c.Estimator.RefreshSeconds = models.DefaultQueueRefreshSeconds
	}
	if c.Estimator.DebounceMillis == 0 {
		c.Estimator.DebounceMillis = models.DefaultRefreshDebounceMillis
	}
	if c.Estimator.IdleTimeoutMins == 0 {
		c.Estimator.IdleTimeoutMins = 10
	}
	if c.Estimator.AvgServiceMinutes == 0 {
		c.Estimator.AvgServiceMinutes = models.DefaultAvgServiceMinutes
	}

	if c.OpenStatus.RefreshSeconds == 0 {
		c.OpenStatus.RefreshSeconds = models.DefaultOpenStatusRefreshSeconds
	}
	if c.OpenStatus.FailOpen == nil {
		failOpen := true
		c.OpenStatus.FailOpen = &failOpen
	}

	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoder.ResultLimit == 0 {
		c.Geocoder.ResultLimit = 5
	}
	if c.Geocoder.TimeoutSeconds == 0 {
		c.Geocoder.TimeoutSeconds = 10
	}
	if c.Geocoder.CacheTTLHours == 0 {
		c.Geocoder.CacheTTLHours = 24
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = "nylour/1.0"
	}

	if c.Queue.CancellationFeePercent == 0 {
		c.Queue.CancellationFeePercent = models.DefaultCancellationFeePercent
	}
	if c.Queue.CancellationCutoffHours == 0 {
		c.Queue.CancellationCutoffHours = models.DefaultCancellationCutoffHours
	}
	if c.Queue.CheckInRateLimit == 0 {
		c.Queue.CheckInRateLimit = models.RateLimitCheckIns
	}
	if c.Queue.CheckInRateWindow == 0 {
		c.Queue.CheckInRateWindow = models.RateLimitWindow
	}
}

// FailOpenEnabled reports the open-status error policy with its default applied.
func (c *OpenStatusConfig) FailOpenEnabled() bool {
	if c.FailOpen == nil {
		return true
	}
	return *c.FailOpen
}

// EstimatorRefresh returns the queue refresh interval as a duration.
func (c *Config) EstimatorRefresh() time.Duration {
	return time.Duration(c.Estimator.RefreshSeconds) * time.Second
}

// OpenStatusRefresh returns the open-status refresh interval as a duration.
func (c *Config) OpenStatusRefresh() time.Duration {
	return time.Duration(c.OpenStatus.RefreshSeconds) * time.Second
}

// RefreshDebounce returns the trigger coalescing window.
func (c *Config) RefreshDebounce() time.Duration {
	return time.Duration(c.Estimator.DebounceMillis) * time.Millisecond
}
