package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// Config represents the complete dynoscaler configuration
type Config struct {
	Scaler    ScalerConfig    `mapstructure:"scaler" yaml:"scaler"`
	Queue     QueueConfig     `mapstructure:"queue" yaml:"queue"`
	Fleet     FleetConfig     `mapstructure:"fleet" yaml:"fleet"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// ScalerConfig holds the decision engine parameters
type ScalerConfig struct {
	// MinInstances is the lower clamp bound for the target size (default: 1)
	MinInstances int `mapstructure:"min_instances" yaml:"min_instances"`
	// MaxInstances is the upper clamp bound for the target size (default: 5)
	MaxInstances int `mapstructure:"max_instances" yaml:"max_instances"`
	// UpCycles is the number of consecutive over-threshold cycles required to scale up (default: 3)
	UpCycles int `mapstructure:"up_cycles" yaml:"up_cycles"`
	// DownCycles is the number of consecutive under-threshold cycles required to scale down (default: 5)
	DownCycles int `mapstructure:"down_cycles" yaml:"down_cycles"`
	// BacklogThreshold is the target number of queued messages per instance (default: 100)
	BacklogThreshold float64 `mapstructure:"backlog_threshold" yaml:"backlog_threshold"`
	// HardCeiling caps the target size regardless of MaxInstances (default: 5)
	HardCeiling int `mapstructure:"hard_ceiling" yaml:"hard_ceiling"`
	// Interval is the time between cycles (default: 30s)
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// StrictValidation checks every scaler invariant independently instead of
	// the compatible compound checks (default: false)
	StrictValidation bool `mapstructure:"strict_validation" yaml:"strict_validation"`
}

// QueueConfig selects and configures the queue depth source
type QueueConfig struct {
	// Provider is "cloudwatch" or "sqs" (default: "cloudwatch")
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Name is the SQS queue name
	Name string `mapstructure:"name" yaml:"name"`
	// Region is the AWS region the queue lives in
	Region string `mapstructure:"region" yaml:"region"`
	// AccessKeyID and SecretAccessKey are optional static credentials.
	// When empty the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	// Window is the trailing window averaged by the cloudwatch provider (default: 60s)
	Window time.Duration `mapstructure:"window" yaml:"window"`
	// Timeout bounds each metric request (default: 10s)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// FleetConfig selects and configures the fleet controller
type FleetConfig struct {
	// Provider is "heroku" or "kubernetes" (default: "heroku")
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Timeout bounds each fleet API request (default: 10s)
	Timeout    time.Duration    `mapstructure:"timeout" yaml:"timeout"`
	Heroku     HerokuConfig     `mapstructure:"heroku" yaml:"heroku"`
	Kubernetes KubernetesConfig `mapstructure:"kubernetes" yaml:"kubernetes"`
}

// HerokuConfig controls the Heroku formation API client
type HerokuConfig struct {
	// App is the Heroku application name
	App string `mapstructure:"app" yaml:"app"`
	// Process is the formation type to scale, e.g. "worker"
	Process string `mapstructure:"process" yaml:"process"`
	// Token is the OAuth authorization token sent as a bearer credential
	Token string `mapstructure:"token" yaml:"token"`
	// APIURL overrides the platform API base URL (default: "https://api.heroku.com")
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
}

// KubernetesConfig controls the deployment scale client
type KubernetesConfig struct {
	// Namespace of the deployment (default: "default")
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
	// Deployment is the name of the deployment to scale
	Deployment string `mapstructure:"deployment" yaml:"deployment"`
	// Kubeconfig is a path to a kubeconfig file. Empty means in-cluster config.
	Kubeconfig string `mapstructure:"kubeconfig" yaml:"kubeconfig"`
}

// TelemetryConfig controls where cycle records are sent
type TelemetryConfig struct {
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch" yaml:"elasticsearch"`
}

// ElasticsearchConfig controls indexing of cycle records.
// Indexing is disabled when Addresses is empty.
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses" yaml:"addresses"`
	Username  string   `mapstructure:"username" yaml:"username"`
	Password  string   `mapstructure:"password" yaml:"password"`
	// Index is the target index name (default: "dynoscaler")
	Index string `mapstructure:"index" yaml:"index"`
	// Timeout bounds each index request (default: 10s)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Enabled reports whether Elasticsearch indexing is configured.
func (c ElasticsearchConfig) Enabled() bool {
	return len(c.Addresses) > 0
}

// LoggingConfig controls process logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the log file path; empty logs to stderr
	File string `mapstructure:"file" yaml:"file"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated log files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig controls the HTTP endpoint exposing /metrics, /healthz and /status
type ServerConfig struct {
	// Enabled starts the HTTP server alongside the control loop (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Address is the listen address (default: ":9090")
	Address string `mapstructure:"address" yaml:"address"`
}

// Provider names
const (
	QueueProviderCloudWatch = "cloudwatch"
	QueueProviderSQS        = "sqs"

	FleetProviderHeroku     = "heroku"
	FleetProviderKubernetes = "kubernetes"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "DYNOSCALER"

// EnvKeyReplacer maps config keys to environment variable suffixes, e.g.
// scaler.up_cycles to SCALER_UP_CYCLES once upper-cased.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// DefaultHardCeiling is the absolute cap applied when none is configured.
const DefaultHardCeiling = 5

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Scaler: ScalerConfig{
			MinInstances:     1,
			MaxInstances:     5,
			UpCycles:         3,
			DownCycles:       5,
			BacklogThreshold: 100,
			HardCeiling:      DefaultHardCeiling,
			Interval:         30 * time.Second,
			StrictValidation: false,
		},
		Queue: QueueConfig{
			Provider: QueueProviderCloudWatch,
			Window:   60 * time.Second,
			Timeout:  10 * time.Second,
		},
		Fleet: FleetConfig{
			Provider: FleetProviderHeroku,
			Timeout:  10 * time.Second,
			Heroku: HerokuConfig{
				Process: "worker",
				APIURL:  "https://api.heroku.com",
			},
			Kubernetes: KubernetesConfig{
				Namespace: "default",
			},
		},
		Telemetry: TelemetryConfig{
			Elasticsearch: ElasticsearchConfig{
				Addresses: []string{},
				Index:     "dynoscaler",
				Timeout:   10 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Server: ServerConfig{
			Enabled: true,
			Address: ":9090",
		},
	}
}

// legacyEnv maps the legacy environment variable names
// onto config keys, so existing Heroku config vars keep working.
var legacyEnv = map[string][]string{
	"scaler.min_instances":              {"DYNOSCALER_MIN_DYNOS"},
	"scaler.max_instances":              {"DYNOSCALER_MAX_DYNOS"},
	"scaler.up_cycles":                  {"DYNOSCALER_UP_CYCLES"},
	"scaler.down_cycles":                {"DYNOSCALER_DOWN_CYCLES"},
	"scaler.backlog_threshold":          {"DYNOSCALER_BACKLOG_THRESHOLD"},
	"fleet.heroku.app":                  {"MY_HEROKU_AS_APP"},
	"fleet.heroku.process":              {"MY_HEROKU_AS_PROCESS"},
	"fleet.heroku.token":                {"MY_HEROKU_AUTH_TOKEN"},
	"queue.name":                        {"AWS_SQS_NAME"},
	"queue.region":                      {"AWS_SQS_REGION"},
	"queue.access_key_id":               {"AWS_KEY"},
	"queue.secret_access_key":           {"AWS_SECRET"},
	"telemetry.elasticsearch.addresses": {"ELK_ELASTIC_URL"},
	"telemetry.elasticsearch.username":  {"ELK_ELASTIC_USER"},
	"telemetry.elasticsearch.password":  {"ELK_ELASTIC_PASS"},
	"telemetry.elasticsearch.index":     {"ELK_INDEX_AS"},
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Scaler defaults
	viper.SetDefault("scaler.min_instances", defaults.Scaler.MinInstances)
	viper.SetDefault("scaler.max_instances", defaults.Scaler.MaxInstances)
	viper.SetDefault("scaler.up_cycles", defaults.Scaler.UpCycles)
	viper.SetDefault("scaler.down_cycles", defaults.Scaler.DownCycles)
	viper.SetDefault("scaler.backlog_threshold", defaults.Scaler.BacklogThreshold)
	viper.SetDefault("scaler.hard_ceiling", defaults.Scaler.HardCeiling)
	viper.SetDefault("scaler.interval", defaults.Scaler.Interval)
	viper.SetDefault("scaler.strict_validation", defaults.Scaler.StrictValidation)

	// Queue defaults
	viper.SetDefault("queue.provider", defaults.Queue.Provider)
	viper.SetDefault("queue.name", defaults.Queue.Name)
	viper.SetDefault("queue.region", defaults.Queue.Region)
	viper.SetDefault("queue.access_key_id", defaults.Queue.AccessKeyID)
	viper.SetDefault("queue.secret_access_key", defaults.Queue.SecretAccessKey)
	viper.SetDefault("queue.window", defaults.Queue.Window)
	viper.SetDefault("queue.timeout", defaults.Queue.Timeout)

	// Fleet defaults
	viper.SetDefault("fleet.provider", defaults.Fleet.Provider)
	viper.SetDefault("fleet.timeout", defaults.Fleet.Timeout)
	viper.SetDefault("fleet.heroku.app", defaults.Fleet.Heroku.App)
	viper.SetDefault("fleet.heroku.process", defaults.Fleet.Heroku.Process)
	viper.SetDefault("fleet.heroku.token", defaults.Fleet.Heroku.Token)
	viper.SetDefault("fleet.heroku.api_url", defaults.Fleet.Heroku.APIURL)
	viper.SetDefault("fleet.kubernetes.namespace", defaults.Fleet.Kubernetes.Namespace)
	viper.SetDefault("fleet.kubernetes.deployment", defaults.Fleet.Kubernetes.Deployment)
	viper.SetDefault("fleet.kubernetes.kubeconfig", defaults.Fleet.Kubernetes.Kubeconfig)

	// Telemetry defaults
	viper.SetDefault("telemetry.elasticsearch.addresses", defaults.Telemetry.Elasticsearch.Addresses)
	viper.SetDefault("telemetry.elasticsearch.username", defaults.Telemetry.Elasticsearch.Username)
	viper.SetDefault("telemetry.elasticsearch.password", defaults.Telemetry.Elasticsearch.Password)
	viper.SetDefault("telemetry.elasticsearch.index", defaults.Telemetry.Elasticsearch.Index)
	viper.SetDefault("telemetry.elasticsearch.timeout", defaults.Telemetry.Elasticsearch.Timeout)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Server defaults
	viper.SetDefault("server.enabled", defaults.Server.Enabled)
	viper.SetDefault("server.address", defaults.Server.Address)
}

// BindLegacyEnv binds the legacy environment variable names.
// The DYNOSCALER_<SECTION>_<KEY> names from AutomaticEnv still take
// precedence because BindEnv lists them first.
func BindLegacyEnv() {
	for key, names := range legacyEnv {
		args := append([]string{key, envName(key)}, names...)
		_ = viper.BindEnv(args...)
	}
}

// envName returns the prefixed variable name AutomaticEnv would use for key.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(EnvKeyReplacer.Replace(key))
}

// Load reads the configuration from viper into a Config struct and validates it.
// Any failure is returned as a *errors.ConfigError.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.NewConfigError("unable to decode configuration", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.NewConfigError("invalid configuration", ValidationErrors(errs))
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dynoscaler")
	}
	// Fall back to ~/.config/dynoscaler
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dynoscaler"
	}
	return filepath.Join(home, ".config", "dynoscaler")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Redacted returns a copy of the config with credentials masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.Queue.AccessKeyID = mask(c.Queue.AccessKeyID)
	out.Queue.SecretAccessKey = mask(c.Queue.SecretAccessKey)
	out.Fleet.Heroku.Token = mask(c.Fleet.Heroku.Token)
	out.Telemetry.Elasticsearch.Password = mask(c.Telemetry.Elasticsearch.Password)
	out.Telemetry.Elasticsearch.Addresses = slices.Clone(c.Telemetry.Elasticsearch.Addresses)
	return &out
}
