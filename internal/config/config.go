package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"donation-summary/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Valuation ValuationConfig `mapstructure:"valuation"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DiscoveryConfig governs how the donation log directory is located.
type DiscoveryConfig struct {
	Directory      string `mapstructure:"directory"`
	AppFolderName  string `mapstructure:"app_folder_name"`
	LogPattern     string `mapstructure:"log_pattern"`
	LedgerFileName string `mapstructure:"ledger_file_name"`
}

// IngestConfig bounds the parallel file-reading stage.
type IngestConfig struct {
	Workers           int `mapstructure:"workers"`
	ParallelThreshold int `mapstructure:"parallel_threshold"`
}

// ValuationConfig holds the solutions-to-NIGHT conversion rate.
type ValuationConfig struct {
	NightPerSolution float64 `mapstructure:"night_per_solution"`
}

// DatabaseConfig encapsulates optional PostgreSQL snapshot persistence.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	TopDestinations int `mapstructure:"top_destinations"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DONATION_SUMMARY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "donation-summary")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("discovery.app_folder_name", "MidnightFetcherBot")
	v.SetDefault("discovery.log_pattern", "*.jsonl")
	v.SetDefault("discovery.ledger_file_name", "consolidations.jsonl")

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.parallel_threshold", 10)

	v.SetDefault("valuation.night_per_solution", 2.0)

	v.SetDefault("export.top_destinations", 25)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be greater than zero")
	}
	if c.Ingest.ParallelThreshold <= 0 {
		return fmt.Errorf("ingest.parallel_threshold must be greater than zero")
	}
	if c.Valuation.NightPerSolution <= 0 {
		return fmt.Errorf("valuation.night_per_solution must be greater than zero")
	}
	if c.Export.TopDestinations <= 0 {
		return fmt.Errorf("export.top_destinations must be greater than zero")
	}
	if c.Discovery.LedgerFileName == "" {
		return fmt.Errorf("discovery.ledger_file_name must not be empty")
	}
	return nil
}

// ResolveWorkers returns either the CLI override or the config default.
func (c *Config) ResolveWorkers(override int) int {
	if override > 0 {
		return override
	}
	return c.Ingest.Workers
}
