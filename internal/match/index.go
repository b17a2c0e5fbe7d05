// Package match implements the tiered clinic-to-registry matcher: an
// ordered pipeline of rules (phone, name, address) where the first
// successful tier wins and later tiers are never consulted.
package match

import (
	"github.com/clinic-atlas/directory-cli/internal/model"
)

// Index holds the hash lookups built once per run over the filtered
// registry. Candidate lists preserve source row order.
type Index struct {
	byPhone map[string][]*model.RegistryRecord
	byZip   map[string][]*model.RegistryRecord
	size    int
}

// NewIndex builds phone and postal-code indexes over the registry.
func NewIndex(records []*model.RegistryRecord) *Index {
	idx := &Index{
		byPhone: make(map[string][]*model.RegistryRecord),
		byZip:   make(map[string][]*model.RegistryRecord),
		size:    len(records),
	}
	for _, r := range records {
		if len(r.NormPhone) == 10 {
			idx.byPhone[r.NormPhone] = append(idx.byPhone[r.NormPhone], r)
		}
		if len(r.Zip5) == 5 {
			idx.byZip[r.Zip5] = append(idx.byZip[r.Zip5], r)
		}
	}
	return idx
}

// Size returns the number of indexed registry records.
func (i *Index) Size() int { return i.size }

// Phone returns the registry records sharing a normalized 10-digit phone.
func (i *Index) Phone(phone string) []*model.RegistryRecord {
	return i.byPhone[phone]
}

// Zip returns the registry records sharing a 5-digit postal code.
func (i *Index) Zip(zip5 string) []*model.RegistryRecord {
	return i.byZip[zip5]
}
