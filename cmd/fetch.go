package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/fetcher"
	"github.com/clinic-atlas/directory-cli/internal/registry"
)

var (
	fetchDataDir    string
	fetchOutput     string
	fetchClinicZips string
	fetchChunkRows  int
	fetchNoProgress bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download and filter the NPPES provider registry",
	Long: `Downloads the latest monthly NPPES full-replacement file from CMS,
extracts the provider CSV, and filters it down to pain-related taxonomies
and medical organizations in clinic postal codes.

Both the download and the extraction are idempotent: files already on
disk are reused, so an interrupted fetch picks up where it stopped.

Examples:
  # Full fetch with defaults from config.yaml
  clinicdir fetch

  # Custom locations
  clinicdir fetch --data-dir /srv/nppes --output /srv/nppes/filtered.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fetchDefaults()
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		var progress fetcher.ProgressSink = fetcher.NewMPBSink()
		if fetchNoProgress {
			progress = fetcher.NoopSink{}
		}
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			RateLimiters: fetcher.DefaultRateLimiters(),
			Progress:     progress,
		})

		sourcePath, err := registry.EnsureSourceTable(ctx, f, cfg.Fetch.DownloadPage, fetchDataDir)
		if err != nil {
			return eris.Wrap(err, "fetch: ensure source table")
		}
		progress.Wait()

		clinicZips := registry.LoadClinicZips(fetchClinicZips)

		src, err := os.Open(sourcePath)
		if err != nil {
			return eris.Wrap(err, "fetch: open source table")
		}
		defer src.Close()

		out, err := os.Create(fetchOutput)
		if err != nil {
			return eris.Wrap(err, "fetch: create output")
		}
		defer out.Close()

		stats, err := registry.Filter(ctx, src, out, registry.FilterOptions{
			Codes:      registry.CodesOfInterest(),
			ClinicZips: clinicZips,
			ChunkRows:  fetchChunkRows,
		})
		if err != nil {
			return eris.Wrap(err, "fetch: filter registry")
		}

		topCodes := make([]string, 0, len(stats.TaxonomyTop))
		for _, tc := range stats.TaxonomyTop {
			topCodes = append(topCodes, fmt.Sprintf("%s=%d", tc.Code, tc.Count))
		}
		zap.L().Info("fetch: complete",
			zap.String("output", fetchOutput),
			zap.Int("rows_processed", stats.Processed),
			zap.Int("rows_kept", stats.Kept),
			zap.Int("rows_malformed", stats.Malformed),
			zap.Any("entity_types", stats.EntityCounts),
			zap.Strings("top_taxonomy_codes", topCodes),
		)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDataDir, "data-dir", "", "directory for the downloaded archive and extracted CSV")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "path for the filtered registry CSV")
	fetchCmd.Flags().StringVar(&fetchClinicZips, "clinic-zips", "", "JSON file of clinic postal codes used by the organization filter")
	fetchCmd.Flags().IntVar(&fetchChunkRows, "chunk-rows", 0, "rows per processing chunk")
	fetchCmd.Flags().BoolVar(&fetchNoProgress, "no-progress", false, "disable the download progress bar")
	rootCmd.AddCommand(fetchCmd)
}

// fetchDefaults fills unset fetch flags from config. Called from RunE
// paths because cfg is only loaded in PersistentPreRunE.
func fetchDefaults() {
	if fetchDataDir == "" {
		fetchDataDir = cfg.Fetch.DataDir
	}
	if fetchOutput == "" {
		fetchOutput = cfg.Fetch.OutputPath
	}
	if fetchClinicZips == "" {
		fetchClinicZips = cfg.Fetch.ClinicZipsPath
	}
	if fetchChunkRows == 0 {
		fetchChunkRows = cfg.Fetch.ChunkRows
	}
}
