package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"climatescope/pkg/database"
)

// Config is the full application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Dataset  DatasetConfig  `mapstructure:"dataset" yaml:"dataset"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL settings for the optional raw observation table
type DatabaseConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	User            string        `mapstructure:"user" yaml:"user"`
	Password        string        `mapstructure:"password" yaml:"-"`
	Database        string        `mapstructure:"database" yaml:"database"`
	SSLMode         string        `mapstructure:"sslmode" yaml:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// Postgres converts the settings into a connection pool config
func (d DatabaseConfig) Postgres() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DatasetConfig selects where the observation table is read from.
// Source is "file" (CSV or XLSX chosen by extension) or "postgres".
type DatasetConfig struct {
	Source string `mapstructure:"source" yaml:"source"`
	Path   string `mapstructure:"path" yaml:"path"`
	Sheet  string `mapstructure:"sheet" yaml:"sheet"`
}

// PipelineConfig tunes the filter/aggregate pipeline
type PipelineConfig struct {
	Timeout               time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheSize             int           `mapstructure:"cache_size" yaml:"cache_size"`
	TopN                  int           `mapstructure:"top_n" yaml:"top_n"`
	MaxRadarCountries     int           `mapstructure:"max_radar_countries" yaml:"max_radar_countries"`
	DefaultRadarCountries int           `mapstructure:"default_radar_countries" yaml:"default_radar_countries"`
}

// ReportConfig holds report export settings
type ReportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

const envPrefix = "CLIMATESCOPE"

// LoadConfig loads configuration from defaults and the environment, plus the
// file named by CLIMATESCOPE_CONFIG when set.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(os.Getenv(envPrefix + "_CONFIG"))
}

// LoadConfigFile loads configuration with precedence env > file > defaults.
// An empty path skips the file.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "climatescope")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "climatescope")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("logging.level", "info")

	v.SetDefault("dataset.source", "file")
	v.SetDefault("dataset.path", "data/weather_cleaned.csv")
	v.SetDefault("dataset.sheet", "")

	v.SetDefault("pipeline.timeout", 10*time.Second)
	v.SetDefault("pipeline.cache_size", 64)
	v.SetDefault("pipeline.top_n", 10)
	v.SetDefault("pipeline.max_radar_countries", 5)
	v.SetDefault("pipeline.default_radar_countries", 3)

	v.SetDefault("report.dir", ".")
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	switch c.Dataset.Source {
	case "file":
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path is required when dataset.source is file")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("database.host and database.database are required when dataset.source is postgres")
		}
	default:
		return fmt.Errorf("dataset.source must be file or postgres, got %q", c.Dataset.Source)
	}

	if c.Pipeline.Timeout <= 0 {
		return fmt.Errorf("pipeline.timeout must be positive")
	}
	if c.Pipeline.CacheSize < 0 {
		return fmt.Errorf("pipeline.cache_size must not be negative")
	}
	if c.Pipeline.TopN <= 0 {
		return fmt.Errorf("pipeline.top_n must be positive")
	}
	if c.Pipeline.MaxRadarCountries <= 0 || c.Pipeline.DefaultRadarCountries <= 0 {
		return fmt.Errorf("pipeline radar country limits must be positive")
	}

	return nil
}

// YAML renders the effective configuration. Secrets are omitted.
func (c *Config) YAML() ([]byte, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}
