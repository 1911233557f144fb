package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/de-tools/cost-notifier/pkg/services/cost"
	"github.com/de-tools/cost-notifier/pkg/services/period"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const EnvPrefix = "COST_NOTIFIER"

const (
	SinkSNS    = "sns"
	SinkStdout = "stdout"

	StoreDynamoDB = "dynamodb"
	StoreDuckDB   = "duckdb"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

type Config struct {
	Cadence    string           `mapstructure:"cadence"`
	Sink       SinkConfig       `mapstructure:"sink"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Invocation InvocationConfig `mapstructure:"invocation"`
	Source     SourceConfig     `mapstructure:"source"`
	Report     ReportConfig     `mapstructure:"report"`
	Store      StoreConfig      `mapstructure:"store"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

type SinkConfig struct {
	Type string `mapstructure:"type"`
	// Endpoint is the SNS topic ARN.
	Endpoint string `mapstructure:"endpoint"`
	// EndpointParameter names an SSM parameter holding the topic ARN. Used
	// when Endpoint is empty.
	EndpointParameter string `mapstructure:"endpoint_parameter"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

type InvocationConfig struct {
	Deadline time.Duration `mapstructure:"deadline"`
	// HostTimeout is the hosting trigger's own timeout, when known.
	HostTimeout time.Duration `mapstructure:"host_timeout"`
}

type SourceConfig struct {
	Profile  string `mapstructure:"profile"`
	Region   string `mapstructure:"region"`
	Metric   string `mapstructure:"metric"`
	Currency string `mapstructure:"currency"`
}

type ReportConfig struct {
	Title       string `mapstructure:"title"`
	TopServices int    `mapstructure:"top_services"`
	// ComparePrevious adds the preceding period's total to the report.
	ComparePrevious bool `mapstructure:"compare_previous"`
}

type StoreConfig struct {
	Type  string `mapstructure:"type"`
	Table string `mapstructure:"table"`
	Path  string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr     string `mapstructure:"addr"`
	Schedule string `mapstructure:"schedule"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	retry := cost.DefaultRetryConfig()

	v.SetDefault("cadence", "monthly")
	v.SetDefault("sink.type", SinkSNS)
	v.SetDefault("sink.endpoint", "")
	v.SetDefault("sink.endpoint_parameter", "")
	v.SetDefault("retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("retry.base_delay", retry.BaseDelay)
	v.SetDefault("retry.max_delay", retry.MaxDelay)
	v.SetDefault("retry.attempt_timeout", retry.AttemptTimeout)
	v.SetDefault("invocation.deadline", 2*time.Minute)
	v.SetDefault("invocation.host_timeout", time.Duration(0))
	v.SetDefault("source.profile", "")
	v.SetDefault("source.region", "us-east-1")
	v.SetDefault("source.metric", "UnblendedCost")
	v.SetDefault("source.currency", domain.DefaultCurrency)
	v.SetDefault("report.title", "AWS Cost Report")
	v.SetDefault("report.top_services", 5)
	v.SetDefault("report.compare_previous", false)
	v.SetDefault("store.type", StoreDynamoDB)
	v.SetDefault("store.table", "cost-notifier-invocations")
	v.SetDefault("store.path", "cost-notifier.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.schedule", "0 0 * * *")
	v.SetDefault("log.level", "info")
}

// Load reads defaults, then the optional file at path, then COST_NOTIFIER_*
// environment variables.
func Load(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, configError(fmt.Errorf("failed to read config file: %w", err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configError(fmt.Errorf("failed to parse config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, configError(err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if _, err := period.ParseCadence(c.Cadence); err != nil {
		errs = append(errs, err)
	}
	if err := c.RetryConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Sink.Type {
	case SinkSNS:
		if c.Sink.Endpoint == "" && c.Sink.EndpointParameter == "" {
			errs = append(errs, fmt.Errorf("sink.endpoint or sink.endpoint_parameter is required for the sns sink"))
		}
	case SinkStdout:
	default:
		errs = append(errs, fmt.Errorf("unknown sink type %q", c.Sink.Type))
	}

	switch c.Store.Type {
	case StoreDynamoDB:
		if c.Store.Table == "" {
			errs = append(errs, fmt.Errorf("store.table is required for the dynamodb store"))
		}
	case StoreDuckDB, StoreSQLite:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the %s store", c.Store.Type))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store type %q", c.Store.Type))
	}

	if c.Invocation.Deadline <= 0 {
		errs = append(errs, fmt.Errorf("invocation.deadline must be positive, got %s", c.Invocation.Deadline))
	}
	if c.Invocation.HostTimeout > 0 && c.Invocation.Deadline >= c.Invocation.HostTimeout {
		errs = append(errs, fmt.Errorf("invocation.deadline (%s) must be shorter than the host timeout (%s)",
			c.Invocation.Deadline, c.Invocation.HostTimeout))
	}
	if c.Report.TopServices < 0 {
		errs = append(errs, fmt.Errorf("report.top_services must not be negative"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err))
	}

	return errors.Join(errs...)
}

func (c *Config) RetryConfig() cost.RetryConfig {
	return cost.RetryConfig{
		MaxAttempts:    c.Retry.MaxAttempts,
		BaseDelay:      c.Retry.BaseDelay,
		MaxDelay:       c.Retry.MaxDelay,
		AttemptTimeout: c.Retry.AttemptTimeout,
	}
}

func configError(err error) error {
	return domain.NewError(domain.KindConfiguration, "load config", err)
}
