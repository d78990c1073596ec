package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	FactCheck FactCheckConfig `yaml:"factcheck" mapstructure:"factcheck"`
	Fallback  FallbackConfig  `yaml:"fallback" mapstructure:"fallback"`
	Verify    VerifyConfig    `yaml:"verify" mapstructure:"verify"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings for the analyzer.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SearchConfig holds Google Custom Search settings for consensus lookups.
type SearchConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	EngineID      string  `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	MaxResults    int     `yaml:"max_results" mapstructure:"max_results"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	AllowlistPath string  `yaml:"allowlist_path" mapstructure:"allowlist_path"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FactCheckConfig holds Fact Check Tools API settings.
type FactCheckConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	MaxResults  int    `yaml:"max_results" mapstructure:"max_results"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FallbackConfig configures the offline classifier used when the AI
// analyzer is unavailable.
type FallbackConfig struct {
	ModelPath string `yaml:"model_path" mapstructure:"model_path"`
}

// VerifyConfig holds the tiered aggregation policy constants and the
// per-claim verification limits. The penalty and boost magnitudes are
// hand-tuned and still need calibration against a labeled validation set;
// they are configuration precisely so that calibration does not require a
// code change.
type VerifyConfig struct {
	ClaimTimeoutSecs       int  `yaml:"claim_timeout_secs" mapstructure:"claim_timeout_secs"`
	RecencyWindowDays      int  `yaml:"recency_window_days" mapstructure:"recency_window_days"`
	FalseScoreCap          int  `yaml:"false_score_cap" mapstructure:"false_score_cap"`
	MisleadingPenalty      int  `yaml:"misleading_penalty" mapstructure:"misleading_penalty"`
	MisleadingFloor        int  `yaml:"misleading_floor" mapstructure:"misleading_floor"`
	UnsubstantiatedPenalty int  `yaml:"unsubstantiated_penalty" mapstructure:"unsubstantiated_penalty"`
	UnsubstantiatedFloor   int  `yaml:"unsubstantiated_floor" mapstructure:"unsubstantiated_floor"`
	VerifiedBoostTarget    int  `yaml:"verified_boost_target" mapstructure:"verified_boost_target"`
	StrictValidation       bool `yaml:"strict_validation" mapstructure:"strict_validation"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	TTLMinutes     int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	CleanupMinutes int `yaml:"cleanup_minutes" mapstructure:"cleanup_minutes"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("CREDCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. The API keys default to empty so AutomaticEnv can see
	// them even when no config file sets them.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("search.key", "")
	v.SetDefault("search.engine_id", "")
	v.SetDefault("factcheck.key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("search.base_url", "https://www.googleapis.com/customsearch/v1")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.rate_per_second", 5)
	v.SetDefault("search.timeout_secs", 10)
	v.SetDefault("factcheck.base_url", "https://factchecktools.googleapis.com/v1alpha1")
	v.SetDefault("factcheck.max_results", 3)
	v.SetDefault("factcheck.timeout_secs", 10)
	v.SetDefault("fallback.model_path", "models/fallback_model.json")
	v.SetDefault("verify.claim_timeout_secs", 3)
	v.SetDefault("verify.recency_window_days", 30)
	v.SetDefault("verify.false_score_cap", 25)
	v.SetDefault("verify.misleading_penalty", 15)
	v.SetDefault("verify.misleading_floor", 15)
	v.SetDefault("verify.unsubstantiated_penalty", 8)
	v.SetDefault("verify.unsubstantiated_floor", 30)
	v.SetDefault("verify.verified_boost_target", 80)
	v.SetDefault("verify.strict_validation", true)
	v.SetDefault("cache.ttl_minutes", 60)
	v.SetDefault("cache.cleanup_minutes", 10)
	v.SetDefault("store.path", "data/credcheck.db")

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
