// Package config loads application configuration from config.yaml and
// the environment, and owns global logger setup.
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
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Match      MatchConfig      `yaml:"match" mapstructure:"match"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// FetchConfig configures the registry download and filter phase.
type FetchConfig struct {
	DownloadPage   string `yaml:"download_page" mapstructure:"download_page"`
	DataDir        string `yaml:"data_dir" mapstructure:"data_dir"`
	OutputPath     string `yaml:"output_path" mapstructure:"output_path"`
	ClinicZipsPath string `yaml:"clinic_zips_path" mapstructure:"clinic_zips_path"`
	ChunkRows      int    `yaml:"chunk_rows" mapstructure:"chunk_rows"`
}

// MatchConfig configures the tiered clinic matcher.
type MatchConfig struct {
	RegistryPath     string `yaml:"registry_path" mapstructure:"registry_path"`
	NameThreshold    int    `yaml:"name_threshold" mapstructure:"name_threshold"`
	AddressThreshold int    `yaml:"address_threshold" mapstructure:"address_threshold"`
}

// CrawlConfig configures the insurance crawl and extraction phase.
type CrawlConfig struct {
	Provider       string   `yaml:"provider" mapstructure:"provider"`
	Model          string   `yaml:"model" mapstructure:"model"`
	BatchSize      int      `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrent  int      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	DelayMs        int      `yaml:"delay_ms" mapstructure:"delay_ms"`
	CandidatePaths []string `yaml:"candidate_paths" mapstructure:"candidate_paths"`
	CheckpointPath string   `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
	CacheTTLHours  int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// OpenRouterConfig holds OpenRouter API settings. OpenRouter speaks the
// OpenAI chat-completions dialect, so only credentials and routing differ.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// StoreConfig configures the local SQLite database used for the page
// cache and crawl run history.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("CLINICDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fetch.download_page", "https://download.cms.gov/nppes/NPI_Files.html")
	v.SetDefault("fetch.data_dir", "data")
	v.SetDefault("fetch.output_path", "data/filtered_registry.csv")
	v.SetDefault("fetch.clinic_zips_path", "data/clinic_zips.json")
	v.SetDefault("fetch.chunk_rows", 100_000)
	v.SetDefault("match.registry_path", "data/filtered_registry.csv")
	v.SetDefault("match.name_threshold", 70)
	v.SetDefault("match.address_threshold", 75)
	v.SetDefault("crawl.provider", "anthropic")
	v.SetDefault("crawl.batch_size", 25)
	v.SetDefault("crawl.max_concurrent", 5)
	v.SetDefault("crawl.delay_ms", 100)
	v.SetDefault("crawl.candidate_paths", []string{"/insurance", "/billing", "/patient-information", "/payment"})
	v.SetDefault("crawl.checkpoint_path", "data/insurance_checkpoint.json")
	v.SetDefault("crawl.cache_ttl_hours", 24)
	v.SetDefault("crawl.timeout_secs", 30)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "anthropic/claude-sonnet-4.5")
	v.SetDefault("store.path", "data/clinicdir.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the configuration is usable for the given
// command mode ("fetch", "match", or "crawl"). All problems are
// reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "fetch":
		if c.Fetch.ChunkRows < 1 {
			problems = append(problems, "fetch.chunk_rows must be >= 1")
		}
	case "match":
		if c.Match.NameThreshold < 0 || c.Match.NameThreshold > 100 {
			problems = append(problems, "match.name_threshold must be between 0 and 100")
		}
		if c.Match.AddressThreshold < 0 || c.Match.AddressThreshold > 100 {
			problems = append(problems, "match.address_threshold must be between 0 and 100")
		}
	case "crawl":
		if c.Crawl.BatchSize < 1 || c.Crawl.BatchSize > 500 {
			problems = append(problems, "crawl.batch_size must be between 1 and 500")
		}
		if c.Crawl.MaxConcurrent < 1 || c.Crawl.MaxConcurrent > 50 {
			problems = append(problems, "crawl.max_concurrent must be between 1 and 50")
		}
		switch c.Crawl.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				problems = append(problems, "anthropic.key is required (set CLINICDIR_ANTHROPIC_KEY)")
			}
		case "openai":
			if c.OpenAI.Key == "" {
				problems = append(problems, "openai.key is required (set CLINICDIR_OPENAI_KEY)")
			}
		case "openrouter":
			if c.OpenRouter.Key == "" {
				problems = append(problems, "openrouter.key is required (set CLINICDIR_OPENROUTER_KEY)")
			}
		default:
			problems = append(problems, fmt.Sprintf("crawl.provider %q is not one of anthropic, openai, openrouter", c.Crawl.Provider))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ProviderModel returns the model configured for the active crawl
// provider, honoring an explicit crawl.model override.
func (c *Config) ProviderModel() string {
	if c.Crawl.Model != "" {
		return c.Crawl.Model
	}
	switch c.Crawl.Provider {
	case "openai":
		return c.OpenAI.Model
	case "openrouter":
		return c.OpenRouter.Model
	default:
		return c.Anthropic.Model
	}
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
