package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/fetcher"
	"github.com/clinic-atlas/directory-cli/internal/match"
	"github.com/clinic-atlas/directory-cli/internal/model"
	"github.com/clinic-atlas/directory-cli/internal/registry"
)

var (
	matchInput    string
	matchRegistry string
	matchOutput   string
	matchNameThr  int
	matchAddrThr  int
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match directory clinics to registry records",
	Long: `Matches each clinic from the directory export against the filtered
registry using a tiered cascade: exact phone, then fuzzy name, then
fuzzy street address, both fuzzy tiers scoped to the clinic's postal
code. The first tier that produces a candidate wins.

Examples:
  clinicdir match --input clinics.json --output matches.json
  clinicdir match --input clinics.json --name-threshold 80`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if matchRegistry == "" {
			matchRegistry = cfg.Match.RegistryPath
		}
		if matchNameThr == 0 {
			matchNameThr = cfg.Match.NameThreshold
		}
		if matchAddrThr == 0 {
			matchAddrThr = cfg.Match.AddressThreshold
		}
		if err := cfg.Validate("match"); err != nil {
			return err
		}

		if _, err := os.Stat(matchInput); os.IsNotExist(err) {
			return eris.Errorf("match: input %s not found; export the clinic directory to JSON first", matchInput)
		}
		if _, err := os.Stat(matchRegistry); os.IsNotExist(err) {
			return eris.Errorf("match: registry %s not found; run `clinicdir fetch` first", matchRegistry)
		}

		clinics, err := fetcher.ReadJSONArrayFile[model.Clinic](matchInput)
		if err != nil {
			return eris.Wrap(err, "match: read clinics")
		}

		records, err := registry.LoadFilteredFile(ctx, matchRegistry)
		if err != nil {
			return eris.Wrap(err, "match: load registry")
		}

		idx := match.NewIndex(records)
		zap.L().Info("match: index built",
			zap.Int("clinics", len(clinics)),
			zap.Int("registry_records", idx.Size()),
		)

		matcher := match.New(idx, match.Options{
			NameThreshold:    matchNameThr,
			AddressThreshold: matchAddrThr,
		})
		results, stats := matcher.Run(clinics)

		if err := fetcher.WriteJSONArrayFile(matchOutput, results); err != nil {
			return eris.Wrap(err, "match: write results")
		}
		logSampleMatches(results)

		zap.L().Info("match: results written",
			zap.String("output", matchOutput),
			zap.Int("matched", stats.Matched()),
			zap.Int("unmatched", stats.Unmatched),
		)
		return nil
	},
}

// logSampleMatches logs up to three matches per tier so an operator can
// sanity-check a run without opening the output file.
func logSampleMatches(results []model.MatchResult) {
	perTier := make(map[model.MatchTier]int)
	for _, r := range results {
		if perTier[r.MatchTier] >= 3 {
			continue
		}
		perTier[r.MatchTier]++
		zap.L().Info("match: sample",
			zap.String("tier", string(r.MatchTier)),
			zap.String("clinic_id", r.ClinicID),
			zap.String("npi", r.NPI),
			zap.String("matched_org", r.MatchedOrgName),
			zap.Int("score", r.MatchScore),
		)
	}
}

func init() {
	matchCmd.Flags().StringVar(&matchInput, "input", "data/clinics.json", "clinic directory export (JSON array)")
	matchCmd.Flags().StringVar(&matchRegistry, "registry", "", "filtered registry CSV from `clinicdir fetch`")
	matchCmd.Flags().StringVar(&matchOutput, "output", "data/clinic_matches.json", "path for the match results JSON")
	matchCmd.Flags().IntVar(&matchNameThr, "name-threshold", 0, "minimum fuzzy score for the name tier")
	matchCmd.Flags().IntVar(&matchAddrThr, "address-threshold", 0, "minimum fuzzy score for the address tier")
	rootCmd.AddCommand(matchCmd)
}
