// Package model holds the shared data types passed between pipelines.
package model

// EntityType is the NPPES entity type code: "1" for individual providers,
// "2" for organizations.
type EntityType string

const (
	EntityIndividual   EntityType = "1"
	EntityOrganization EntityType = "2"
)

// RegistryRecord is one row of the filtered NPPES registry. Immutable once
// loaded; lives for a single pipeline run.
type RegistryRecord struct {
	NPI            string
	EntityType     EntityType
	OrgName        string
	FirstName      string
	LastName       string
	Address        string
	City           string
	State          string
	PostalCode     string // free-form, often 9 digits
	Phone          string // free-form
	SoleProprietor string
	TaxonomyCodes  [3]string

	// Precomputed at load time so tier scans don't re-normalize per clinic.
	NormPhone   string // last 10 digits, or "" if unusable
	Zip5        string // first 5 chars of PostalCode
	NormName    string
	NormAddress string
}

// IsOrganization reports whether the record is an entity-type-2 row.
func (r *RegistryRecord) IsOrganization() bool {
	return r.EntityType == EntityOrganization
}

// DisplayName returns the organization name, or "first last" for
// individual providers.
func (r *RegistryRecord) DisplayName() string {
	if r.OrgName != "" {
		return r.OrgName
	}
	name := r.FirstName
	if r.LastName != "" {
		if name != "" {
			name += " "
		}
		name += r.LastName
	}
	return name
}
