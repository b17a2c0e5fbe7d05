package model

// Clinic is one record from the internal clinic export. Read-only input
// to the matcher and crawler pipelines.
type Clinic struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	StreetAddress string   `json:"streetAddress,omitempty"`
	PostalCode    string   `json:"postalCode,omitempty"`
	Phones        []string `json:"phones,omitempty"`
	State         string   `json:"state,omitempty"`
	Website       string   `json:"website,omitempty"`
}

// MatchTier identifies which rule of the tiered matcher produced a result.
type MatchTier string

const (
	TierPhone   MatchTier = "phone"
	TierName    MatchTier = "name"
	TierAddress MatchTier = "address"
)

// MatchResult links a clinic to its best registry match. At most one per
// clinic per run.
type MatchResult struct {
	ClinicID       string    `json:"clinicId"`
	NPI            string    `json:"npi"`
	MatchTier      MatchTier `json:"matchTier"`
	MatchScore     int       `json:"matchScore"`
	MatchedOrgName string    `json:"matchedOrgName"`
	EntityType     string    `json:"entityType"`
	TaxonomyCode   string    `json:"taxonomyCode"`
}
