package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"logship/pkg/model"
)

// Config holds the specific configuration for a logship instance.
type Config struct {
	Service  string         `yaml:"service"`
	File     FileConfig     `yaml:"file"`
	Document DocumentConfig `yaml:"document"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// FileConfig configures the local rolling file appender.
type FileConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Threshold    string        `yaml:"threshold"`
	Path         string        `yaml:"path"`
	Layout       string        `yaml:"layout"`
	Console      bool          `yaml:"console"` // also mirror to stdout
	QueueSize    int           `yaml:"queue_size"`
	CloseTimeout time.Duration `yaml:"close_timeout"`
	MaxSizeMB    int           `yaml:"max_size_mb"`
	MaxBackups   int           `yaml:"max_backups"`
	MaxAgeDays   int           `yaml:"max_age_days"`
	Compress     bool          `yaml:"compress"`
	Filters      FilterConfig  `yaml:"filters"`
}

// DocumentConfig configures the document store appender.
type DocumentConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Threshold        string        `yaml:"threshold"`
	Repository       string        `yaml:"repository"`
	ConnectionString string        `yaml:"connection_string"`
	BufferSize       int           `yaml:"buffer_size"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
	CloseTimeout     time.Duration `yaml:"close_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	Filters          FilterConfig  `yaml:"filters"`
	Alert            AlertConfig   `yaml:"alert"`
}

// AlertConfig configures slow-send alerts.
type AlertConfig struct {
	LocalAlert    time.Duration `yaml:"local_alert"`
	EmailAlert    time.Duration `yaml:"email_alert"`
	SMTPHost      string        `yaml:"smtp_host"`
	From          string        `yaml:"from"`
	To            string        `yaml:"to"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	Domain        string        `yaml:"domain"`
	Async         bool          `yaml:"async"`
	DailyCap      int           `yaml:"daily_cap"`
	SharedCounter bool          `yaml:"shared_counter"` // count the daily cap in Redis
}

// FilterConfig lists the gate processors of an appender, applied in the
// order block words, redactions, attribute rules.
type FilterConfig struct {
	BlockWords []string        `yaml:"block_words"`
	Redactions []RedactionRule `yaml:"redactions"`
	Attributes []AttributeRule `yaml:"attributes"`
}

type RedactionRule struct {
	Target string `yaml:"target"`
	Mask   string `yaml:"mask"`
}

type AttributeRule struct {
	Name      string `yaml:"name"`
	Attribute string `yaml:"attribute"`
	Path      string `yaml:"path"`
	Operator  string `yaml:"operator"`
	Value     string `yaml:"value"`
}

type IngestConfig struct {
	TCPAddr string `yaml:"tcp_addr"`
	UDPAddr string `yaml:"udp_addr"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	ConfigKey string `yaml:"config_key"`
	Channel   string `yaml:"channel"` // PubSub channel name
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service == "" {
		c.Service = "logship"
	}
	if c.File.Threshold == "" {
		c.File.Threshold = "DEBUG"
	}
	if c.File.Path == "" {
		c.File.Path = "logs/logship.log"
	}
	if c.File.Layout == "" {
		c.File.Layout = "text"
	}
	if c.File.QueueSize == 0 {
		c.File.QueueSize = 1000
	}
	if c.File.CloseTimeout == 0 {
		c.File.CloseTimeout = 5 * time.Second
	}
	if c.File.MaxSizeMB == 0 {
		c.File.MaxSizeMB = 100
	}
	if c.Document.Threshold == "" {
		c.Document.Threshold = "INFO"
	}
	if c.Document.BufferSize == 0 {
		c.Document.BufferSize = 512
	}
	if c.Document.CloseTimeout == 0 {
		c.Document.CloseTimeout = 30 * time.Second
	}
	if c.Document.RequestTimeout == 0 {
		c.Document.RequestTimeout = 30 * time.Second
	}
	if c.Document.Alert.DailyCap == 0 {
		c.Document.Alert.DailyCap = 3
	}
	if c.Redis.ConfigKey == "" {
		c.Redis.ConfigKey = "logship:config"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "logship:updates"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.File.Enabled && c.File.Path == "" {
		return fmt.Errorf("file.path is required")
	}
	if c.File.QueueSize < 0 {
		return fmt.Errorf("file.queue_size must be positive")
	}
	if c.Document.Enabled {
		if c.Document.Repository == "" {
			return fmt.Errorf("document.repository is required")
		}
		if strings.TrimSpace(c.Document.ConnectionString) == "" {
			return fmt.Errorf("document.connection_string is required")
		}
	}
	if c.Document.BufferSize < 0 {
		return fmt.Errorf("document.buffer_size must be positive")
	}
	if c.Document.Alert.SharedCounter && c.Redis.Address == "" {
		return fmt.Errorf("document.alert.shared_counter needs redis.address")
	}
	for _, r := range append(append([]AttributeRule(nil), c.File.Filters.Attributes...), c.Document.Filters.Attributes...) {
		if (r.Attribute == "") == (r.Path == "") {
			return fmt.Errorf("attribute filter %q needs exactly one of attribute or path", r.Name)
		}
	}
	return nil
}
