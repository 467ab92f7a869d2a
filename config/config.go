package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	DeviceAuth DeviceAuthConfig `yaml:"device_auth"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Billing    BillingConfig    `yaml:"billing"`
	Hardware   HardwareConfig   `yaml:"hardware"`
	TableTest  TableTestConfig  `yaml:"table_test"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	Environment     string  `yaml:"environment"`
	JWTSecret       string  `yaml:"jwt_secret"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// DeviceAuthConfig holds the gateway-device authentication parameters.
type DeviceAuthConfig struct {
	SharedSecret           string        `yaml:"shared_secret"`
	FreshnessWindowSeconds int           `yaml:"freshness_window_seconds"`
	NoncePurgeSeconds      int           `yaml:"nonce_purge_seconds"`
	GatewayDeviceID        int64         `yaml:"gateway_device_id"`
	FreshnessWindow        time.Duration `yaml:"-"`
	NoncePurgeInterval     time.Duration `yaml:"-"`
}

// SchedulerConfig holds the expiry sweep parameters.
type SchedulerConfig struct {
	SweepIntervalSeconds int           `yaml:"sweep_interval_seconds"`
	WarningMinutes       int           `yaml:"warning_minutes"`
	SweepInterval        time.Duration `yaml:"-"`
	WarningWindow        time.Duration `yaml:"-"`
}

// BillingConfig holds session duration policy and owner re-auth parameters.
type BillingConfig struct {
	MinSessionMinutes     int           `yaml:"min_session_minutes"`
	SessionStepMinutes    int           `yaml:"session_step_minutes"`
	MinExtensionMinutes   int           `yaml:"min_extension_minutes"`
	ExtensionStepMinutes  int           `yaml:"extension_step_minutes"`
	OwnerPinHash          string        `yaml:"owner_pin_hash"`
	OwnerReauthTTLSeconds int           `yaml:"owner_reauth_ttl_seconds"`
	OwnerReauthTTL        time.Duration `yaml:"-"`
}

// HardwareConfig holds the validity ranges for relay/GPIO bindings.
type HardwareConfig struct {
	RelayChannelMin int `yaml:"relay_channel_min"`
	RelayChannelMax int `yaml:"relay_channel_max"`
	GpioPinMin      int `yaml:"gpio_pin_min"`
	GpioPinMax      int `yaml:"gpio_pin_max"`
}

// TableTestConfig holds the light-test auto-revert parameters.
type TableTestConfig struct {
	DurationSeconds int           `yaml:"duration_seconds"`
	Duration        time.Duration `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills zero values with the documented defaults and derives
// the duration fields from their second/minute counterparts.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}

	if cfg.DeviceAuth.FreshnessWindowSeconds <= 0 {
		cfg.DeviceAuth.FreshnessWindowSeconds = 300
	}
	if cfg.DeviceAuth.NoncePurgeSeconds <= 0 {
		cfg.DeviceAuth.NoncePurgeSeconds = 60
	}
	cfg.DeviceAuth.FreshnessWindow = time.Duration(cfg.DeviceAuth.FreshnessWindowSeconds) * time.Second
	cfg.DeviceAuth.NoncePurgeInterval = time.Duration(cfg.DeviceAuth.NoncePurgeSeconds) * time.Second

	if cfg.Scheduler.SweepIntervalSeconds <= 0 {
		cfg.Scheduler.SweepIntervalSeconds = 30
	}
	if cfg.Scheduler.WarningMinutes <= 0 {
		cfg.Scheduler.WarningMinutes = 5
	}
	cfg.Scheduler.SweepInterval = time.Duration(cfg.Scheduler.SweepIntervalSeconds) * time.Second
	cfg.Scheduler.WarningWindow = time.Duration(cfg.Scheduler.WarningMinutes) * time.Minute

	if cfg.Billing.MinSessionMinutes <= 0 {
		cfg.Billing.MinSessionMinutes = 60
	}
	if cfg.Billing.SessionStepMinutes <= 0 {
		cfg.Billing.SessionStepMinutes = 60
	}
	if cfg.Billing.MinExtensionMinutes <= 0 {
		cfg.Billing.MinExtensionMinutes = 15
	}
	if cfg.Billing.ExtensionStepMinutes <= 0 {
		cfg.Billing.ExtensionStepMinutes = 15
	}
	if cfg.Billing.OwnerReauthTTLSeconds <= 0 {
		cfg.Billing.OwnerReauthTTLSeconds = 120
	}
	cfg.Billing.OwnerReauthTTL = time.Duration(cfg.Billing.OwnerReauthTTLSeconds) * time.Second

	if cfg.Hardware.RelayChannelMax <= 0 {
		cfg.Hardware.RelayChannelMax = 15
	}
	if cfg.Hardware.GpioPinMax <= 0 {
		cfg.Hardware.GpioPinMax = 39
	}

	if cfg.TableTest.DurationSeconds <= 0 {
		cfg.TableTest.DurationSeconds = 30
	}
	cfg.TableTest.Duration = time.Duration(cfg.TableTest.DurationSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
}
