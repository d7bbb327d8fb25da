package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Compliance ComplianceConfig `yaml:"compliance" mapstructure:"compliance"`
	Dedup      DedupConfig      `yaml:"dedup" mapstructure:"dedup"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Source     SourceRunConfig  `yaml:"source" mapstructure:"source"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Sources    []SourceConfig   `yaml:"sources" mapstructure:"sources"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Temporal   TemporalConfig   `yaml:"temporal" mapstructure:"temporal"`
}

// StoreConfig configures the catalogue database. Driver is postgres, sqlite, or none.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ComplianceConfig configures the per-run compliance gate.
type ComplianceConfig struct {
	MaxRequestsPerMinute int      `yaml:"max_requests_per_minute" mapstructure:"max_requests_per_minute"`
	RespectRobots        bool     `yaml:"respect_robots" mapstructure:"respect_robots"`
	UserAgent            string   `yaml:"user_agent" mapstructure:"user_agent"`
	BlockedDomains       []string `yaml:"blocked_domains" mapstructure:"blocked_domains"`
	RobotsTimeoutSecs    int      `yaml:"robots_timeout_secs" mapstructure:"robots_timeout_secs"`
}

// DedupConfig configures duplicate detection.
type DedupConfig struct {
	Threshold       float64 `yaml:"threshold" mapstructure:"threshold"`
	AmbiguityMargin float64 `yaml:"ambiguity_margin" mapstructure:"ambiguity_margin"`
}

// PipelineConfig configures orchestration and pacing.
type PipelineConfig struct {
	MaxConcurrentSources int `yaml:"max_concurrent_sources" mapstructure:"max_concurrent_sources"`
	UnitDelayMs          int `yaml:"unit_delay_ms" mapstructure:"unit_delay_ms"`
	SourceDelayMs        int `yaml:"source_delay_ms" mapstructure:"source_delay_ms"`
}

// UnitDelay returns the pause between units of one source.
func (p PipelineConfig) UnitDelay() time.Duration {
	return time.Duration(p.UnitDelayMs) * time.Millisecond
}

// SourceDelay returns the stagger between source starts.
func (p PipelineConfig) SourceDelay() time.Duration {
	return time.Duration(p.SourceDelayMs) * time.Millisecond
}

// SourceRunConfig configures how units are fetched.
type SourceRunConfig struct {
	MaxWaitRetries     int `yaml:"max_wait_retries" mapstructure:"max_wait_retries"`
	RequestTimeoutSecs int `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	MaxResults         int `yaml:"max_results" mapstructure:"max_results"`
}

// RetryConfig configures transport retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures per-domain circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LocationConfig is one search location.
type LocationConfig struct {
	Name     string  `yaml:"name" mapstructure:"name"`
	State    string  `yaml:"state" mapstructure:"state"`
	Postcode string  `yaml:"postcode" mapstructure:"postcode"`
	Lat      float64 `yaml:"lat" mapstructure:"lat"`
	Lng      float64 `yaml:"lng" mapstructure:"lng"`
}

// SourceConfig configures one source adapter instance.
type SourceConfig struct {
	Name        string           `yaml:"name" mapstructure:"name"`
	Type        string           `yaml:"type" mapstructure:"type"`
	BaseURL     string           `yaml:"base_url" mapstructure:"base_url"`
	FallbackURL string           `yaml:"fallback_url" mapstructure:"fallback_url"`
	State       string           `yaml:"state" mapstructure:"state"`
	Locations   []LocationConfig `yaml:"locations" mapstructure:"locations"`
	Categories  []string         `yaml:"categories" mapstructure:"categories"`
	SearchTerms []string         `yaml:"search_terms" mapstructure:"search_terms"`
	RadiusKm    int              `yaml:"radius_km" mapstructure:"radius_km"`
	Disabled    bool             `yaml:"disabled" mapstructure:"disabled"`
}

// ExportConfig configures file export.
type ExportConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// MetricsConfig configures the prometheus textfile written after each run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// TemporalConfig configures the scheduled-refresh worker.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port" mapstructure:"host_port"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	TaskQueue string `yaml:"task_queue" mapstructure:"task_queue"`
	// Cron schedules the refresh workflow; empty leaves scheduling to the operator.
	Cron string `yaml:"cron" mapstructure:"cron"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOGUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("compliance.max_requests_per_minute", 30)
	v.SetDefault("compliance.respect_robots", true)
	v.SetDefault("compliance.user_agent", "Youth-Service-Catalogue-Bot/1.0")
	v.SetDefault("compliance.robots_timeout_secs", 10)
	v.SetDefault("dedup.threshold", 0.85)
	v.SetDefault("dedup.ambiguity_margin", 0.02)
	v.SetDefault("pipeline.max_concurrent_sources", 4)
	v.SetDefault("pipeline.unit_delay_ms", 1000)
	v.SetDefault("pipeline.source_delay_ms", 5000)
	v.SetDefault("source.max_wait_retries", 3)
	v.SetDefault("source.request_timeout_secs", 30)
	v.SetDefault("source.max_results", 50)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 300)
	v.SetDefault("export.dir", "out")
	v.SetDefault("export.formats", []string{"json", "csv"})
	v.SetDefault("temporal.host_port", "127.0.0.1:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "catalogue-refresh")
	v.SetDefault("temporal.cron", "0 17 * * 6")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	return &cfg, nil
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	if c.Dedup.Threshold <= 0 || c.Dedup.Threshold > 1 {
		return eris.Errorf("config: dedup.threshold must be in (0,1], got %v", c.Dedup.Threshold)
	}
	if c.Dedup.AmbiguityMargin < 0 || c.Dedup.AmbiguityMargin >= c.Dedup.Threshold {
		return eris.Errorf("config: dedup.ambiguity_margin out of range: %v", c.Dedup.AmbiguityMargin)
	}
	if c.Compliance.MaxRequestsPerMinute <= 0 {
		return eris.New("config: compliance.max_requests_per_minute must be positive")
	}
	if c.Compliance.UserAgent == "" {
		return eris.New("config: compliance.user_agent is required")
	}
	if c.Pipeline.MaxConcurrentSources <= 0 {
		return eris.New("config: pipeline.max_concurrent_sources must be positive")
	}
	switch c.Store.Driver {
	case "none", "":
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			return eris.Errorf("config: store.database_url is required for driver %q", c.Store.Driver)
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return eris.New("config: every source needs a name")
		}
		if seen[s.Name] {
			return eris.Errorf("config: duplicate source name %q", s.Name)
		}
		seen[s.Name] = true
		if s.BaseURL == "" {
			return eris.Errorf("config: source %q has no base_url", s.Name)
		}
	}
	return nil
}

// EnabledSources returns sources not marked disabled, in configured order.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
