package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend. DatabaseURL wins when set;
// otherwise a DSN is assembled from the discrete PG* variables.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	PGHost      string `yaml:"pg_host" mapstructure:"pg_host"`
	PGPort      int    `yaml:"pg_port" mapstructure:"pg_port"`
	PGUser      string `yaml:"pg_user" mapstructure:"pg_user"`
	PGPassword  string `yaml:"pg_password" mapstructure:"pg_password"`
	PGDatabase  string `yaml:"pg_database" mapstructure:"pg_database"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// DSN returns the effective connection string for the postgres driver.
func (c StoreConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// PerplexityConfig holds Perplexity API settings (the data-fetch provider).
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// OpenRouterConfig holds OpenRouter API settings (the meta-prompting and
// comparison provider, Deepseek-backed).
type OpenRouterConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Model    string `yaml:"model" mapstructure:"model"`
	SiteURL  string `yaml:"site_url" mapstructure:"site_url"`
	SiteName string `yaml:"site_name" mapstructure:"site_name"`
}

// EnrichConfig configures the freshness/enrichment orchestrator.
type EnrichConfig struct {
	StalenessDays       int     `yaml:"staleness_days" mapstructure:"staleness_days"`
	MinSeasonCandidates int     `yaml:"min_season_candidates" mapstructure:"min_season_candidates"`
	RatePerSecond       float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	BackfillCron        string  `yaml:"backfill_cron" mapstructure:"backfill_cron"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The deployment environment uses these exact unprefixed names.
	_ = v.BindEnv("store.database_url", "ATLAS_STORE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("store.pg_host", "PGHOST")
	_ = v.BindEnv("store.pg_port", "PGPORT")
	_ = v.BindEnv("store.pg_user", "PGUSER")
	_ = v.BindEnv("store.pg_password", "PGPASSWORD")
	_ = v.BindEnv("store.pg_database", "PGDATABASE")
	_ = v.BindEnv("perplexity.key", "ATLAS_PERPLEXITY_KEY", "PERPLEXITY_API_KEY")
	_ = v.BindEnv("openrouter.key", "ATLAS_OPENROUTER_KEY", "OPENROUTER_API_KEY")

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.pg_host", "localhost")
	v.SetDefault("store.pg_port", 5432)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "deepseek/deepseek-chat-v3-0324:free")
	v.SetDefault("openrouter.site_url", "http://localhost")
	v.SetDefault("openrouter.site_name", "ChefAtlas")
	v.SetDefault("enrich.staleness_days", 90)
	v.SetDefault("enrich.min_season_candidates", 15)
	v.SetDefault("enrich.rate_per_second", 1)
	v.SetDefault("enrich.backfill_cron", "0 2 * * *")

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

	return &cfg, nil
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
