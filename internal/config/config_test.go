package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://download.cms.gov/nppes/NPI_Files.html", cfg.Fetch.DownloadPage)
	assert.Equal(t, "data", cfg.Fetch.DataDir)
	assert.Equal(t, 100_000, cfg.Fetch.ChunkRows)
	assert.Equal(t, 70, cfg.Match.NameThreshold)
	assert.Equal(t, 75, cfg.Match.AddressThreshold)
	assert.Equal(t, "anthropic", cfg.Crawl.Provider)
	assert.Equal(t, 25, cfg.Crawl.BatchSize)
	assert.Equal(t, 5, cfg.Crawl.MaxConcurrent)
	assert.Equal(t, 100, cfg.Crawl.DelayMs)
	assert.Equal(t, []string{"/insurance", "/billing", "/patient-information", "/payment"}, cfg.Crawl.CandidatePaths)
	assert.Equal(t, 24, cfg.Crawl.CacheTTLHours)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.Equal(t, "data/clinicdir.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
fetch:
  data_dir: /srv/nppes
match:
  name_threshold: 80
crawl:
  provider: openai
  batch_size: 50
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/nppes", cfg.Fetch.DataDir)
	assert.Equal(t, 80, cfg.Match.NameThreshold)
	assert.Equal(t, "openai", cfg.Crawl.Provider)
	assert.Equal(t, 50, cfg.Crawl.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 75, cfg.Match.AddressThreshold)
	assert.Equal(t, 5, cfg.Crawl.MaxConcurrent)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
crawl:
  provider: openai
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CLINICDIR_CRAWL_PROVIDER", "openrouter")
	t.Setenv("CLINICDIR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "openrouter", cfg.Crawl.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CLINICDIR_CRAWL_BATCH_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Crawl.BatchSize)
}

// validCrawl returns a Config that passes crawl validation.
func validCrawl() *Config {
	cfg := &Config{}
	cfg.Crawl.Provider = "anthropic"
	cfg.Crawl.BatchSize = 25
	cfg.Crawl.MaxConcurrent = 5
	cfg.Anthropic.Key = "sk-ant-key"
	return cfg
}

func TestValidateCrawl_AllPresent(t *testing.T) {
	assert.NoError(t, validCrawl().Validate("crawl"))
}

func TestValidateCrawl_MissingKey(t *testing.T) {
	cfg := validCrawl()
	cfg.Anthropic.Key = ""

	err := cfg.Validate("crawl")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateCrawl_KeyMatchesProvider(t *testing.T) {
	cfg := validCrawl()
	cfg.Crawl.Provider = "openrouter"
	cfg.Anthropic.Key = "sk-ant-key"

	err := cfg.Validate("crawl")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter.key is required")

	cfg.OpenRouter.Key = "sk-or-key"
	assert.NoError(t, cfg.Validate("crawl"))
}

func TestValidateCrawl_UnknownProvider(t *testing.T) {
	cfg := validCrawl()
	cfg.Crawl.Provider = "mistral"

	err := cfg.Validate("crawl")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.provider")
}

func TestValidateCrawl_ConcurrencyBounds(t *testing.T) {
	cfg := validCrawl()

	cfg.Crawl.MaxConcurrent = 0
	err := cfg.Validate("crawl")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "crawl.max_concurrent must be between 1 and 50")

	cfg.Crawl.MaxConcurrent = 51
	err = cfg.Validate("crawl")
	assert.Error(t, err)

	cfg.Crawl.MaxConcurrent = 50
	assert.NoError(t, cfg.Validate("crawl"))
}

func TestValidateMatch_ThresholdBounds(t *testing.T) {
	cfg := &Config{}
	cfg.Match.NameThreshold = 101
	cfg.Match.AddressThreshold = 75

	err := cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "match.name_threshold")

	cfg.Match.NameThreshold = 70
	assert.NoError(t, cfg.Validate("match"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validCrawl().Validate("enrich")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestProviderModel(t *testing.T) {
	cfg := &Config{}
	cfg.Anthropic.Model = "claude-sonnet-4-5-20250929"
	cfg.OpenAI.Model = "gpt-4o-mini"
	cfg.OpenRouter.Model = "anthropic/claude-sonnet-4.5"

	cfg.Crawl.Provider = "anthropic"
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.ProviderModel())

	cfg.Crawl.Provider = "openai"
	assert.Equal(t, "gpt-4o-mini", cfg.ProviderModel())

	cfg.Crawl.Provider = "openrouter"
	assert.Equal(t, "anthropic/claude-sonnet-4.5", cfg.ProviderModel())

	cfg.Crawl.Model = "gpt-4.1"
	assert.Equal(t, "gpt-4.1", cfg.ProviderModel())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
