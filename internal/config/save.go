package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of Config. Durations are written as
// duration strings rather than nanosecond integers.
type fileConfig struct {
	LogDir      string            `yaml:"log_dir"`
	LogName     string            `yaml:"log_name"`
	Aliases     map[string]string `yaml:"aliases,omitempty"`
	Host        string            `yaml:"host"`
	APIPort     int               `yaml:"api_port"`
	WebPort     int               `yaml:"web_port"`
	Debug       bool              `yaml:"debug"`
	CORSOrigins []string          `yaml:"cors_origins,omitempty"`
	Stream      struct {
		Interval     string `yaml:"interval"`
		MinInterval  string `yaml:"min_interval"`
		Mode         string `yaml:"mode"`
		MaxSessions  int    `yaml:"max_sessions"`
		WakeOnChange bool   `yaml:"wake_on_change"`
	} `yaml:"stream"`
	CloudWatch struct {
		Region  string `yaml:"region,omitempty"`
		Profile string `yaml:"profile,omitempty"`
		Metrics struct {
			Enabled   bool   `yaml:"enabled"`
			Namespace string `yaml:"namespace"`
			Period    string `yaml:"period"`
		} `yaml:"metrics"`
	} `yaml:"cloudwatch"`
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var f fileConfig
	f.LogDir = cfg.LogDir
	f.LogName = cfg.LogName
	f.Aliases = cfg.Aliases
	f.Host = cfg.Host
	f.APIPort = cfg.APIPort
	f.WebPort = cfg.WebPort
	f.Debug = cfg.Debug
	f.CORSOrigins = cfg.CORSOrigins
	f.Stream.Interval = cfg.Stream.Interval.String()
	f.Stream.MinInterval = cfg.Stream.MinInterval.String()
	f.Stream.Mode = cfg.Stream.Mode
	f.Stream.MaxSessions = cfg.Stream.MaxSessions
	f.Stream.WakeOnChange = cfg.Stream.WakeOnChange
	f.CloudWatch.Region = cfg.CloudWatch.Region
	f.CloudWatch.Profile = cfg.CloudWatch.Profile
	f.CloudWatch.Metrics.Enabled = cfg.CloudWatch.Metrics.Enabled
	f.CloudWatch.Metrics.Namespace = cfg.CloudWatch.Metrics.Namespace
	f.CloudWatch.Metrics.Period = cfg.CloudWatch.Metrics.Period.String()

	return yaml.Marshal(&f)
}

// Save writes cfg to path, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Default returns a Config populated with every default.
func Default() *Config {
	return &Config{
		LogDir:      DefaultLogDir,
		Aliases:     map[string]string{},
		Host:        DefaultHost,
		APIPort:     DefaultAPIPort,
		WebPort:     DefaultWebPort,
		CORSOrigins: append([]string(nil), DefaultCORSOrigins...),
		Stream: StreamConfig{
			Interval:    DefaultInterval,
			MinInterval: DefaultMinInterval,
			Mode:        DefaultMode,
			MaxSessions: DefaultMaxSessions,
		},
		CloudWatch: CloudWatchConfig{
			Metrics: MetricsConfig{
				Namespace: DefaultNamespace,
				Period:    DefaultMetricsPeriod,
			},
		},
	}
}

// Template returns a commented starter parrot.yaml.
func Template(logDir, logName string) string {
	return fmt.Sprintf(`# parrot configuration

# Directory holding the log files
log_dir: %s

# The active log is the newest file whose name starts with this prefix
log_name: %s

# Short names usable wherever a log override is accepted
# aliases:
#   ysf: YSFGateway
#   dmr: DMRGateway

host: %s
api_port: %d
# Port of the web page allowed to call the API
web_port: %d
debug: false

# cors_origins:
#   - http://localhost:8000

stream:
  # Seconds (0.1) or a duration (250ms)
  interval: %s
  min_interval: %s
  # tail re-reports the last line every tick; follow sends only new lines
  mode: %s
  max_sessions: %d
  # Poll early when the log directory changes
  wake_on_change: false

cloudwatch:
  region: ""
  profile: ""
  metrics:
    enabled: false
    namespace: %s
    period: %s
`, logDir, logName, DefaultHost, DefaultAPIPort, DefaultWebPort,
		DefaultInterval, DefaultMinInterval, DefaultMode, DefaultMaxSessions,
		DefaultNamespace, DefaultMetricsPeriod)
}

// SortedAliases returns alias names in order.
func (c *Config) SortedAliases() []string {
	names := make([]string, 0, len(c.Aliases))
	for name := range c.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
