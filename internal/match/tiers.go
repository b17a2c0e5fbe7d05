package match

import (
	"github.com/clinic-atlas/directory-cli/internal/model"
	"github.com/clinic-atlas/directory-cli/internal/normalize"
)

// Default acceptance thresholds for the fuzzy tiers, on the 0-100
// token-sort scale. A candidate scoring exactly the threshold is accepted.
const (
	DefaultNameThreshold    = 70
	DefaultAddressThreshold = 75
)

// Candidate is a registry record selected by a tier, with its score.
type Candidate struct {
	Record *model.RegistryRecord
	Score  int
}

// Tier is one rule of the matcher pipeline. Eval returns the tier's best
// candidate for the clinic, or ok=false when the tier has nothing usable
// (missing inputs or no candidate at threshold) and the pipeline should
// fall through.
type Tier interface {
	Name() model.MatchTier
	Eval(clinic model.Clinic, idx *Index) (Candidate, bool)
}

// phoneTier matches on any of the clinic's normalized phone numbers.
// The first index hit wins outright with score 100.
type phoneTier struct{}

func (phoneTier) Name() model.MatchTier { return model.TierPhone }

func (phoneTier) Eval(clinic model.Clinic, idx *Index) (Candidate, bool) {
	for _, raw := range clinic.Phones {
		phone := normalize.Phone(raw)
		if phone == "" {
			continue
		}
		if candidates := idx.Phone(phone); len(candidates) > 0 {
			return Candidate{Record: candidates[0], Score: 100}, true
		}
	}
	return Candidate{}, false
}

// nameTier fuzzy-matches the clinic name against every registry record
// sharing the clinic's 5-digit postal code.
type nameTier struct {
	threshold int
}

func (nameTier) Name() model.MatchTier { return model.TierName }

func (t nameTier) Eval(clinic model.Clinic, idx *Index) (Candidate, bool) {
	name := normalize.Name(clinic.Title)
	zip := normalize.Zip5(clinic.PostalCode)
	if name == "" || len(zip) != 5 {
		return Candidate{}, false
	}
	return bestByScore(idx.Zip(zip), t.threshold, func(r *model.RegistryRecord) string {
		return r.NormName
	}, name)
}

// addressTier fuzzy-matches the normalized street address over the same
// postal-code cohort.
type addressTier struct {
	threshold int
}

func (addressTier) Name() model.MatchTier { return model.TierAddress }

func (t addressTier) Eval(clinic model.Clinic, idx *Index) (Candidate, bool) {
	addr := normalize.Address(clinic.StreetAddress)
	zip := normalize.Zip5(clinic.PostalCode)
	if addr == "" || len(zip) != 5 {
		return Candidate{}, false
	}
	return bestByScore(idx.Zip(zip), t.threshold, func(r *model.RegistryRecord) string {
		return r.NormAddress
	}, addr)
}

// bestByScore scans a candidate cohort and keeps the highest-scoring
// record at or above the threshold. Ties go to the lexicographically
// smaller NPI, which keeps results stable regardless of index build order.
func bestByScore(cohort []*model.RegistryRecord, threshold int, field func(*model.RegistryRecord) string, target string) (Candidate, bool) {
	var best Candidate
	for _, r := range cohort {
		value := field(r)
		if value == "" {
			continue
		}
		score := normalize.TokenSortRatio(target, value)
		if score < threshold {
			continue
		}
		if best.Record == nil || score > best.Score ||
			(score == best.Score && r.NPI < best.Record.NPI) {
			best = Candidate{Record: r, Score: score}
		}
	}
	return best, best.Record != nil
}
