package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the wallet core
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Backend     BackendConfig    `mapstructure:"backend"`
	Stream      StreamConfig     `mapstructure:"stream"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Pricing     PricingConfig    `mapstructure:"pricing"`
	Gas         GasConfig        `mapstructure:"gas"`
	Reconciler  ReconcilerConfig `mapstructure:"reconciler"`
}

// ServerConfig configures the HTTP facade
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Host           string   `mapstructure:"host"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BackendConfig configures the persistence collaborator client
type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// StreamConfig configures the realtime change-event transport
type StreamConfig struct {
	NATSURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// RedisConfig configures the optional quote snapshot cache
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// PricingConfig configures the price feed cache
type PricingConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	TTL          time.Duration `mapstructure:"ttl"`
	StaleCeiling time.Duration `mapstructure:"stale_ceiling"`
}

// GasConfig configures the gas estimator
type GasConfig struct {
	Endpoint     string            `mapstructure:"endpoint"`
	TTL          time.Duration     `mapstructure:"ttl"`
	Source       string            `mapstructure:"source"` // "http" or "rpc"
	RPCEndpoints map[string]string `mapstructure:"rpc_endpoints"`
}

// ReconcilerConfig configures the balance reconciler
type ReconcilerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	CronSpec string        `mapstructure:"cron_spec"`
}

// Load reads configuration from config.yaml and the environment
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("backend.base_url", "http://localhost:9000")
	viper.SetDefault("backend.timeout", 10*time.Second)
	viper.SetDefault("backend.max_retries", 3)

	viper.SetDefault("stream.nats_url", "nats://localhost:4222")
	viper.SetDefault("stream.subject_prefix", "wallets.changes")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("pricing.endpoint", "https://api.coingecko.com/api/v3")
	viper.SetDefault("pricing.ttl", 60*time.Second)
	viper.SetDefault("pricing.stale_ceiling", 10*time.Minute)

	viper.SetDefault("gas.ttl", 30*time.Second)
	viper.SetDefault("gas.source", "http")

	viper.SetDefault("reconciler.interval", 30*time.Second)
	viper.SetDefault("reconciler.cron_spec", "")
}

func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if config.Pricing.TTL <= 0 {
		return fmt.Errorf("pricing TTL must be positive")
	}
	if config.Gas.TTL <= 0 {
		return fmt.Errorf("gas TTL must be positive")
	}
	if config.Gas.Source != "http" && config.Gas.Source != "rpc" {
		return fmt.Errorf("gas source must be http or rpc, got %q", config.Gas.Source)
	}
	if config.Reconciler.Interval <= 0 && config.Reconciler.CronSpec == "" {
		return fmt.Errorf("reconciler needs an interval or a cron spec")
	}
	return nil
}
