package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	perrors "github.com/jmurray2011/parrot/internal/errors"
)

func loadYAML(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parrot.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	v := viper.New()
	Setup(v, path)
	if err := ReadFile(v); err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadYAML(t, "log_name: MMDVM\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogDir != "." || cfg.Host != "127.0.0.1" || cfg.APIPort != 8001 || cfg.WebPort != 8000 {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.Debug {
		t.Error("debug should default to false")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:8000" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.Stream.Interval != 100*time.Millisecond || cfg.Stream.MinInterval != 10*time.Millisecond {
		t.Errorf("stream intervals = %v / %v", cfg.Stream.Interval, cfg.Stream.MinInterval)
	}
	if cfg.Stream.Mode != "tail" || cfg.Stream.MaxSessions != 256 || cfg.Stream.WakeOnChange {
		t.Errorf("stream = %+v", cfg.Stream)
	}
	if cfg.CloudWatch.Metrics.Namespace != "Parrot" || cfg.CloudWatch.Metrics.Period != time.Minute {
		t.Errorf("metrics = %+v", cfg.CloudWatch.Metrics)
	}
	if cfg.Aliases == nil {
		t.Error("Aliases should never be nil")
	}
}

func TestLoad_Coercions(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		interval time.Duration
		debug    bool
	}{
		{"fractional seconds", "stream:\n  interval: 0.5\n", 500 * time.Millisecond, false},
		{"integer seconds", "stream:\n  interval: 2\n", 2 * time.Second, false},
		{"numeric string", "stream:\n  interval: \"0.25\"\n", 250 * time.Millisecond, false},
		{"duration string", "stream:\n  interval: 250ms\n", 250 * time.Millisecond, false},
		{"capitalised True", "debug: \"True\"\n", 100 * time.Millisecond, true},
		{"upper TRUE", "debug: \"TRUE\"\n", 100 * time.Millisecond, true},
		{"capitalised False", "debug: \"False\"\n", 100 * time.Millisecond, false},
		{"yaml bool", "debug: true\n", 100 * time.Millisecond, true},
		{"numeric bool", "debug: 1\n", 100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadYAML(t, "log_name: app\n"+tt.yaml)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Stream.Interval != tt.interval {
				t.Errorf("interval = %v, want %v", cfg.Stream.Interval, tt.interval)
			}
			if cfg.Debug != tt.debug {
				t.Errorf("debug = %v, want %v", cfg.Debug, tt.debug)
			}
		})
	}
}

func TestLoad_Aliases(t *testing.T) {
	cfg, err := loadYAML(t, "log_name: MMDVM\naliases:\n  ysf: YSFGateway\n  dmr: DMRGateway\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Aliases["ysf"] != "YSFGateway" {
		t.Errorf("Aliases = %v", cfg.Aliases)
	}
	if got := strings.Join(cfg.SortedAliases(), ","); got != "dmr,ysf" {
		t.Errorf("SortedAliases() = %s", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		key  string
	}{
		{"missing log name", "log_dir: /var/log\n", "log_name"},
		{"bad port", "log_name: a\napi_port: 70000\n", "api_port"},
		{"bad mode", "log_name: a\nstream:\n  mode: delta\n", "stream.mode"},
		{"no sessions", "log_name: a\nstream:\n  max_sessions: 0\n", "stream.max_sessions"},
		{"empty alias", "log_name: a\naliases:\n  x: \"\"\n", "aliases.x"},
		{"metrics without namespace", "log_name: a\ncloudwatch:\n  metrics:\n    enabled: true\n    namespace: \"\"\n", "cloudwatch.metrics.namespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadYAML(t, tt.yaml)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, perrors.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestLoad_NonPositiveInterval(t *testing.T) {
	for _, value := range []string{"0", "-1", "\"-5ms\"", "soon"} {
		_, err := loadYAML(t, "log_name: a\nstream:\n  interval: "+value+"\n")
		if err == nil {
			t.Errorf("interval %s: expected error", value)
		}
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PARROT_LOG_NAME", "YSFGateway")
	t.Setenv("PARROT_STREAM_INTERVAL", "0.2")
	t.Setenv("PARROT_DEBUG", "True")
	t.Setenv("PARROT_CORS_ORIGINS", "http://a,http://b")

	v := viper.New()
	Setup(v, filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogName != "YSFGateway" || cfg.Stream.Interval != 200*time.Millisecond || !cfg.Debug {
		t.Errorf("env not applied: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestStreamInterval_Clamped(t *testing.T) {
	cfg := Default()
	cfg.Stream.Interval = time.Millisecond
	if got := cfg.StreamInterval(); got != 10*time.Millisecond {
		t.Errorf("StreamInterval() = %v, want 10ms", got)
	}
	cfg.Stream.Interval = time.Second
	if got := cfg.StreamInterval(); got != time.Second {
		t.Errorf("StreamInterval() = %v, want 1s", got)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.LogName = "MMDVM"
	cfg.LogDir = "/var/log/pi-star"
	cfg.Aliases = map[string]string{"ysf": "YSFGateway"}
	cfg.Stream.Interval = 250 * time.Millisecond

	path := filepath.Join(t.TempDir(), "nested", "parrot.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "interval: 250ms") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	v := viper.New()
	Setup(v, path)
	if err := ReadFile(v); err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	got, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.LogDir != cfg.LogDir || got.Stream.Interval != cfg.Stream.Interval || got.Aliases["ysf"] != "YSFGateway" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestTemplate_Loads(t *testing.T) {
	cfg, err := loadYAML(t, Template("/var/log/pi-star", "MMDVM"))
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if cfg.LogDir != "/var/log/pi-star" || cfg.LogName != "MMDVM" {
		t.Errorf("template values = %s / %s", cfg.LogDir, cfg.LogName)
	}
	if cfg.CloudWatch.Metrics.Period != time.Minute {
		t.Errorf("period = %v", cfg.CloudWatch.Metrics.Period)
	}
}

func TestReadFile(t *testing.T) {
	// Without an explicit path a missing parrot.yaml falls back to defaults
	t.Chdir(t.TempDir())
	v := viper.New()
	v.SetConfigName("parrot-test-absent")
	v.AddConfigPath(".")
	if err := ReadFile(v); err != nil {
		t.Errorf("ReadFile() with no config present = %v", err)
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("log_name: [unterminated\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	v = viper.New()
	Setup(v, path)
	if err := ReadFile(v); err == nil {
		t.Error("expected a parse error for malformed YAML")
	}
}
