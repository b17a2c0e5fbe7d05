package match

import (
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/model"
)

// Stats tallies matcher outcomes per tier for the triage summary.
type Stats struct {
	Total     int
	Phone     int
	Name      int
	Address   int
	Unmatched int
}

// Matched returns the total number of clinics with any match.
func (s Stats) Matched() int { return s.Phone + s.Name + s.Address }

// Matcher runs the ordered tier pipeline over an index.
type Matcher struct {
	idx   *Index
	tiers []Tier
}

// Options tunes the fuzzy tier thresholds.
type Options struct {
	NameThreshold    int
	AddressThreshold int
}

// New creates a Matcher with the default tier order: phone, name, address.
func New(idx *Index, opts Options) *Matcher {
	if opts.NameThreshold == 0 {
		opts.NameThreshold = DefaultNameThreshold
	}
	if opts.AddressThreshold == 0 {
		opts.AddressThreshold = DefaultAddressThreshold
	}
	return &Matcher{
		idx: idx,
		tiers: []Tier{
			phoneTier{},
			nameTier{threshold: opts.NameThreshold},
			addressTier{threshold: opts.AddressThreshold},
		},
	}
}

// MatchOne evaluates tiers in order for a single clinic. The first tier
// that yields a candidate wins; later tiers are never consulted, even if
// they would score higher.
func (m *Matcher) MatchOne(clinic model.Clinic) (*model.MatchResult, model.MatchTier) {
	for _, tier := range m.tiers {
		cand, ok := tier.Eval(clinic, m.idx)
		if !ok {
			continue
		}
		r := cand.Record
		return &model.MatchResult{
			ClinicID:       clinic.ID,
			NPI:            r.NPI,
			MatchTier:      tier.Name(),
			MatchScore:     cand.Score,
			MatchedOrgName: r.DisplayName(),
			EntityType:     string(r.EntityType),
			TaxonomyCode:   r.TaxonomyCodes[0],
		}, tier.Name()
	}
	return nil, ""
}

// Run matches every clinic and returns the results with tier statistics.
// Unmatched clinics are tallied but produce no result.
func (m *Matcher) Run(clinics []model.Clinic) ([]model.MatchResult, Stats) {
	results := make([]model.MatchResult, 0, len(clinics))
	stats := Stats{Total: len(clinics)}

	for _, clinic := range clinics {
		result, tier := m.MatchOne(clinic)
		if result == nil {
			stats.Unmatched++
			continue
		}
		switch tier {
		case model.TierPhone:
			stats.Phone++
		case model.TierName:
			stats.Name++
		case model.TierAddress:
			stats.Address++
		}
		results = append(results, *result)
	}

	zap.L().Info("match: run complete",
		zap.Int("clinics", stats.Total),
		zap.Int("matched", stats.Matched()),
		zap.Int("phone", stats.Phone),
		zap.Int("name", stats.Name),
		zap.Int("address", stats.Address),
		zap.Int("unmatched", stats.Unmatched),
	)

	return results, stats
}
