// CLAUDE:SUMMARY Defines snapkeep config structs and parses YAML configuration files with defaults.
// Package config handles snapkeep configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "30s"/"4h" strings (or plain integer nanoseconds) in
// YAML, which yaml.v3 does not do for time.Duration itself.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if v, err := time.ParseDuration(s); err == nil {
		*d = Duration(v)
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("config: invalid duration %q", s)
}

// Config is the top-level snapkeep configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	Storage   StorageConfig   `yaml:"storage"`
	Browser   BrowserConfig   `yaml:"browser"`
	Capture   CaptureConfig   `yaml:"capture"`
	Retention RetentionConfig `yaml:"retention"`
	EventsDB  string          `yaml:"events_db"`
}

// StorageConfig controls the artifact directory.
type StorageConfig struct {
	Dir          string `yaml:"dir"`
	MaxFileBytes int64  `yaml:"max_file_bytes"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string   `yaml:"remote"`
	MemoryLimit     int64    `yaml:"memory_limit"`
	RecycleInterval Duration `yaml:"recycle_interval"`
}

// CaptureConfig controls navigation and selector-wait budgets.
type CaptureConfig struct {
	NavTimeout      Duration `yaml:"nav_timeout"`
	SelectorTimeout Duration `yaml:"selector_timeout"`
	ProbeTimeout    Duration `yaml:"probe_timeout"`
	SettleTimeout   Duration `yaml:"settle_timeout"`
	AnimationDelay  Duration `yaml:"animation_delay"`
	ViewportWidth   int      `yaml:"viewport_width"`
	ViewportHeight  int      `yaml:"viewport_height"`
	MaxConcurrent   int      `yaml:"max_concurrent"`
}

// RetentionConfig is the eviction policy and job schedules.
type RetentionConfig struct {
	MaxAge          Duration `yaml:"max_age"`
	MaxFiles        int      `yaml:"max_files"`
	MaxTotalBytes   int64    `yaml:"max_total_bytes"`
	CleanupSchedule string   `yaml:"cleanup_schedule"`
	TrimSchedule    string   `yaml:"trim_schedule"`
	MonitorSchedule string   `yaml:"monitor_schedule"`
	DisableTrim     bool     `yaml:"disable_trim"`
	DisableMonitor  bool     `yaml:"disable_monitor"`
	AutoStart       bool     `yaml:"auto_start"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Capture and retention zeros are left alone here: those packages default
// their own fields.
func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8094"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./screenshots"
	}
	if c.EventsDB == "" {
		c.EventsDB = "./snapkeep-events.db"
	}
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = Duration(4 * time.Hour)
	}
}
