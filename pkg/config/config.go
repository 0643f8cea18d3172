package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	BotToken    string       `mapstructure:"bot_token"`
	GuildID     snowflake.ID `mapstructure:"-"`
	DatabaseURL string       `mapstructure:"database_url"`
	RedisURL    string       `mapstructure:"redis_url"`
	SentryDSN   string       `mapstructure:"sentry_dsn"`
	Environment string       `mapstructure:"environment"`
	LogFile     string       `mapstructure:"log_file"`

	Stats       StatsConfig       `mapstructure:"stats"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
}

type StatsConfig struct {
	MaxConcurrentScans int     `mapstructure:"max_concurrent_scans"`
	RefreshSchedule    string  `mapstructure:"refresh_schedule"`
	RefreshAtStartup   bool    `mapstructure:"refresh_at_startup"`
	PagesPerSecond     float64 `mapstructure:"pages_per_second"`
}

type LeaderboardConfig struct {
	Size        int           `mapstructure:"size"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "prod")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot_token", "")
	v.SetDefault("guild_id", "")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("sentry_dsn", "")
	v.SetDefault("environment", "dev")
	v.SetDefault("log_file", "log.log")
	v.SetDefault("stats.max_concurrent_scans", 8)
	v.SetDefault("stats.refresh_schedule", "@every 6h")
	v.SetDefault("stats.refresh_at_startup", false)
	v.SetDefault("stats.pages_per_second", 5.0)
	v.SetDefault("leaderboard.size", 10)
	v.SetDefault("leaderboard.snapshot_ttl", 10*time.Minute)
}

// Load reads .env, then config.yaml from the working directory when present.
// Environment variables override the file, with dots in keys replaced by underscores
// (STATS_MAX_CONCURRENT_SCANS).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if raw := v.GetString("guild_id"); raw != "" {
		guildID, err := snowflake.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid guild_id: %w", err)
		}
		cfg.GuildID = guildID
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("bot_token is required"))
	}
	if c.GuildID == 0 {
		errs = append(errs, errors.New("guild_id is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.Stats.MaxConcurrentScans <= 0 {
		errs = append(errs, errors.New("stats.max_concurrent_scans must be positive"))
	}
	if c.Leaderboard.Size <= 0 {
		errs = append(errs, errors.New("leaderboard.size must be positive"))
	}
	return errors.Join(errs...)
}
