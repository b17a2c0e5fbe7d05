package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/checkpoint"
	"github.com/clinic-atlas/directory-cli/internal/fetcher"
	"github.com/clinic-atlas/directory-cli/internal/insurance"
	"github.com/clinic-atlas/directory-cli/internal/model"
	"github.com/clinic-atlas/directory-cli/internal/scrape"
	"github.com/clinic-atlas/directory-cli/internal/store"
	"github.com/clinic-atlas/directory-cli/pkg/anthropic"
	"github.com/clinic-atlas/directory-cli/pkg/jina"
	"github.com/clinic-atlas/directory-cli/pkg/openai"
)

var (
	crawlInput         string
	crawlProvider      string
	crawlModel         string
	crawlBatchSize     int
	crawlMaxConcurrent int
	crawlOffset        int
	crawlLimit         int
	crawlCheckpoint    string
	crawlNoCache       bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl clinic websites and extract insurance data",
	Long: `Crawls each clinic's website, gathers the pages most likely to list
accepted insurance, and extracts a structured record with an LLM.

Results are checkpointed per batch and keyed by clinic ID, so an
interrupted run resumes where it stopped and already-processed clinics
are never re-crawled.

Examples:
  clinicdir crawl --input clinics.json
  clinicdir crawl --input clinics.json --provider openrouter --limit 100
  clinicdir crawl --input clinics.json --offset 500 --batch-size 50`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		crawlDefaults()
		if err := cfg.Validate("crawl"); err != nil {
			return err
		}

		if _, err := os.Stat(crawlInput); os.IsNotExist(err) {
			return eris.Errorf("crawl: input %s not found; export the clinic directory to JSON first", crawlInput)
		}
		clinics, err := fetcher.ReadJSONArrayFile[model.Clinic](crawlInput)
		if err != nil {
			return eris.Wrap(err, "crawl: read clinics")
		}

		provider, err := buildProvider()
		if err != nil {
			return err
		}

		var cache insurance.PageCache
		var st *store.SQLiteStore
		if !crawlNoCache {
			st, err = store.NewSQLite(cfg.Store.Path)
			if err != nil {
				return eris.Wrap(err, "crawl: open store")
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			cache = st
		}

		scrapers := []scrape.Scraper{scrape.NewLocalScraper(
			scrape.WithTimeout(time.Duration(cfg.Crawl.TimeoutSecs) * time.Second),
		)}
		if cfg.Jina.Key != "" {
			scrapers = append(scrapers, scrape.NewJinaAdapter(
				jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL)),
			))
		}
		chain := scrape.NewChain(scrapers...)

		gatherer := insurance.NewGatherer(
			chain,
			cache,
			time.Duration(cfg.Crawl.CacheTTLHours)*time.Hour,
			cfg.Crawl.CandidatePaths,
		)

		cp, err := checkpoint.Load(crawlCheckpoint)
		if err != nil {
			return err
		}

		runner := insurance.NewRunner(gatherer, insurance.NewExtractor(provider), cp, insurance.Options{
			BatchSize:     crawlBatchSize,
			MaxConcurrent: crawlMaxConcurrent,
			Delay:         time.Duration(cfg.Crawl.DelayMs) * time.Millisecond,
			Offset:        crawlOffset,
			Limit:         crawlLimit,
		})

		var runID string
		if st != nil {
			if runID, err = st.StartRun(ctx, provider.Name(), crawlModel); err != nil {
				zap.L().Warn("crawl: run history unavailable", zap.Error(err))
			}
		}

		stats, runErr := runner.Run(ctx, clinics)

		if st != nil && runID != "" {
			if err := st.FinishRun(ctx, runID, store.RunStats{
				Total:     stats.Total,
				Succeeded: stats.Succeeded,
				Failed:    stats.Failed,
				Skipped:   stats.Skipped,
			}); err != nil {
				zap.L().Warn("crawl: record run failed", zap.Error(err))
			}
		}
		if runErr != nil {
			return eris.Wrap(runErr, "crawl: run")
		}

		confidence := make(map[string]int)
		withInsurance := 0
		for _, r := range cp.Results() {
			if r.Extraction == nil {
				continue
			}
			confidence[string(r.Extraction.Confidence)]++
			if len(r.Extraction.InsuranceProviders) > 0 {
				withInsurance++
			}
		}
		zap.L().Info("crawl: done",
			zap.String("checkpoint", crawlCheckpoint),
			zap.Int("succeeded", stats.Succeeded),
			zap.Int("failed", stats.Failed),
			zap.Int("skipped", stats.Skipped),
			zap.Int("with_insurance_providers", withInsurance),
			zap.Any("confidence", confidence),
		)
		return nil
	},
}

// buildProvider constructs the LLM provider selected by config/flags.
func buildProvider() (insurance.Provider, error) {
	switch crawlProvider {
	case "anthropic":
		return insurance.NewAnthropicProvider(anthropic.NewClient(cfg.Anthropic.Key), crawlModel), nil
	case "openai":
		client := openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(crawlModel),
		)
		return insurance.NewOpenAIProvider(client, crawlModel, "openai"), nil
	case "openrouter":
		client := openai.NewClient(cfg.OpenRouter.Key,
			openai.WithBaseURL(cfg.OpenRouter.BaseURL),
			openai.WithModel(crawlModel),
		)
		return insurance.NewOpenAIProvider(client, crawlModel, "openrouter"), nil
	default:
		return nil, eris.Errorf("crawl: unknown provider %q", crawlProvider)
	}
}

// crawlDefaults fills unset crawl flags from config, and pushes flag
// overrides back so Validate sees them.
func crawlDefaults() {
	if crawlProvider == "" {
		crawlProvider = cfg.Crawl.Provider
	} else {
		cfg.Crawl.Provider = crawlProvider
	}
	if crawlModel == "" {
		crawlModel = cfg.ProviderModel()
	} else {
		cfg.Crawl.Model = crawlModel
	}
	if crawlBatchSize == 0 {
		crawlBatchSize = cfg.Crawl.BatchSize
	} else {
		cfg.Crawl.BatchSize = crawlBatchSize
	}
	if crawlMaxConcurrent == 0 {
		crawlMaxConcurrent = cfg.Crawl.MaxConcurrent
	} else {
		cfg.Crawl.MaxConcurrent = crawlMaxConcurrent
	}
	if crawlCheckpoint == "" {
		crawlCheckpoint = cfg.Crawl.CheckpointPath
	}
}

func init() {
	crawlCmd.Flags().StringVar(&crawlInput, "input", "data/clinics.json", "clinic directory export (JSON array)")
	crawlCmd.Flags().StringVar(&crawlProvider, "provider", "", "LLM provider: anthropic, openai, or openrouter")
	crawlCmd.Flags().StringVar(&crawlModel, "model", "", "model name (defaults per provider)")
	crawlCmd.Flags().IntVar(&crawlBatchSize, "batch-size", 0, "clinics per checkpointed batch")
	crawlCmd.Flags().IntVar(&crawlMaxConcurrent, "max-concurrent", 0, "concurrent clinic crawls within a batch")
	crawlCmd.Flags().IntVar(&crawlOffset, "offset", 0, "start from clinic N (0-indexed)")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 0, "process only N clinics (0 = all)")
	crawlCmd.Flags().StringVar(&crawlCheckpoint, "checkpoint", "", "path for the resume checkpoint JSON")
	crawlCmd.Flags().BoolVar(&crawlNoCache, "no-cache", false, "disable the SQLite page cache and run history")
	rootCmd.AddCommand(crawlCmd)
}
