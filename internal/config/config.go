// Package config defines parrot's typed configuration. Every recognised
// option is declared here with its coercion rule and validated once at load
// time; unknown keys are ignored.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	perrors "github.com/jmurray2011/parrot/internal/errors"
	"github.com/jmurray2011/parrot/pkg/timeutil"
)

// Config is the complete parrot configuration.
type Config struct {
	LogDir      string            `mapstructure:"log_dir"`
	LogName     string            `mapstructure:"log_name"`
	Aliases     map[string]string `mapstructure:"aliases"`
	Host        string            `mapstructure:"host"`
	APIPort     int               `mapstructure:"api_port"`
	WebPort     int               `mapstructure:"web_port"`
	Debug       bool              `mapstructure:"debug"`
	CORSOrigins []string          `mapstructure:"cors_origins"`

	Stream     StreamConfig     `mapstructure:"stream"`
	CloudWatch CloudWatchConfig `mapstructure:"cloudwatch"`
}

// StreamConfig tunes streaming sessions.
type StreamConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	MinInterval  time.Duration `mapstructure:"min_interval"`
	Mode         string        `mapstructure:"mode"`
	MaxSessions  int           `mapstructure:"max_sessions"`
	WakeOnChange bool          `mapstructure:"wake_on_change"`
}

// CloudWatchConfig holds AWS settings for metrics publishing and shipping.
type CloudWatchConfig struct {
	Region  string        `mapstructure:"region"`
	Profile string        `mapstructure:"profile"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the CloudWatch metrics publisher.
type MetricsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Namespace string        `mapstructure:"namespace"`
	Period    time.Duration `mapstructure:"period"`
}

// Defaults for every option that has one.
const (
	DefaultLogDir        = "."
	DefaultHost          = "127.0.0.1"
	DefaultAPIPort       = 8001
	DefaultWebPort       = 8000
	DefaultInterval      = 100 * time.Millisecond
	DefaultMinInterval   = 10 * time.Millisecond
	DefaultMode          = "tail"
	DefaultMaxSessions   = 256
	DefaultNamespace     = "Parrot"
	DefaultMetricsPeriod = 60 * time.Second
	DefaultConfigName    = "parrot"
	EnvPrefix            = "PARROT"
)

// DefaultCORSOrigins is used when cors_origins is not configured.
var DefaultCORSOrigins = []string{"http://localhost:8000"}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_dir", DefaultLogDir)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("api_port", DefaultAPIPort)
	v.SetDefault("web_port", DefaultWebPort)
	v.SetDefault("debug", false)
	v.SetDefault("cors_origins", DefaultCORSOrigins)
	v.SetDefault("stream.interval", DefaultInterval)
	v.SetDefault("stream.min_interval", DefaultMinInterval)
	v.SetDefault("stream.mode", DefaultMode)
	v.SetDefault("stream.max_sessions", DefaultMaxSessions)
	v.SetDefault("stream.wake_on_change", false)
	v.SetDefault("cloudwatch.metrics.enabled", false)
	v.SetDefault("cloudwatch.metrics.namespace", DefaultNamespace)
	v.SetDefault("cloudwatch.metrics.period", DefaultMetricsPeriod)
}

// Setup points v at the config file: path when given, otherwise parrot.yaml
// (or .json/.toml) in the working directory or ~/.parrot. Environment
// variables prefixed PARROT_ override file values.
func Setup(v *viper.Viper, path string) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".parrot"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	// Keys without defaults are only seen by Unmarshal when bound
	for _, key := range []string{"log_name", "cloudwatch.region", "cloudwatch.profile"} {
		_ = v.BindEnv(key)
	}
	SetDefaults(v)
}

// ReadFile reads the configured file. A missing file is not an error when no
// explicit path was given; the defaults and environment still apply.
func ReadFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode converts v into a Config without validating it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		durationHook(),
		boolHook(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: config: %w", perrors.ErrInvalidArgument, err)
	}
	if cfg.Aliases == nil {
		cfg.Aliases = map[string]string{}
	}
	return &cfg, nil
}

// Validate checks every option and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(key, value, reason string) {
		errs = append(errs, perrors.InvalidArgument(key, value, reason))
	}

	if c.LogDir == "" {
		invalid("log_dir", c.LogDir, "must not be empty")
	}
	if c.LogName == "" {
		invalid("log_name", c.LogName, "must be set")
	}
	for name, pattern := range c.Aliases {
		if pattern == "" {
			invalid("aliases."+name, pattern, "must not be empty")
		}
	}
	if c.APIPort < 1 || c.APIPort > 65535 {
		invalid("api_port", strconv.Itoa(c.APIPort), "must be between 1 and 65535")
	}
	if c.WebPort < 1 || c.WebPort > 65535 {
		invalid("web_port", strconv.Itoa(c.WebPort), "must be between 1 and 65535")
	}
	if c.Stream.Interval <= 0 {
		invalid("stream.interval", c.Stream.Interval.String(), "must be positive")
	}
	if c.Stream.MinInterval <= 0 {
		invalid("stream.min_interval", c.Stream.MinInterval.String(), "must be positive")
	}
	if c.Stream.Mode != "tail" && c.Stream.Mode != "follow" {
		invalid("stream.mode", c.Stream.Mode, "must be tail or follow")
	}
	if c.Stream.MaxSessions <= 0 {
		invalid("stream.max_sessions", strconv.Itoa(c.Stream.MaxSessions), "must be positive")
	}
	if c.CloudWatch.Metrics.Enabled {
		if c.CloudWatch.Metrics.Namespace == "" {
			invalid("cloudwatch.metrics.namespace", "", "must be set when metrics are enabled")
		}
		if c.CloudWatch.Metrics.Period <= 0 {
			invalid("cloudwatch.metrics.period", c.CloudWatch.Metrics.Period.String(), "must be positive")
		}
	}

	return errors.Join(errs...)
}

// StreamInterval returns the configured interval raised to the minimum.
func (c *Config) StreamInterval() time.Duration {
	return timeutil.ClampInterval(c.Stream.Interval, c.Stream.MinInterval)
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.APIPort)
}
