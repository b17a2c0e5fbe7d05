package registry

import (
	"github.com/rotisserie/eris"
)

// NPPES source column headers for the fields the pipelines consume. The
// bulk file carries 300+ columns; everything else is dropped at filter
// time.
const (
	ColNPI        = "NPI"
	ColEntityType = "Entity Type Code"
	ColOrgName    = "Provider Organization Name (Legal Business Name)"
	ColLastName   = "Provider Last Name (Legal Name)"
	ColFirstName  = "Provider First Name"
	ColAddress    = "Provider Business Practice Location Address First Line"
	ColCity       = "Provider Business Practice Location Address City Name"
	ColState      = "Provider Business Practice Location Address State Name"
	ColPostal     = "Provider Business Practice Location Address Postal Code"
	ColPhone      = "Provider Business Practice Location Address Telephone Number"
	ColSoleProp   = "Is Sole Proprietor"
	ColTaxonomy1  = "Healthcare Provider Taxonomy Code_1"
	ColTaxonomy2  = "Healthcare Provider Taxonomy Code_2"
	ColTaxonomy3  = "Healthcare Provider Taxonomy Code_3"
)

// Columns is the output column order of the filtered table, preserved
// from the source file's relative ordering.
var Columns = []string{
	ColNPI,
	ColEntityType,
	ColOrgName,
	ColLastName,
	ColFirstName,
	ColAddress,
	ColCity,
	ColState,
	ColPostal,
	ColPhone,
	ColSoleProp,
	ColTaxonomy1,
	ColTaxonomy2,
	ColTaxonomy3,
}

// Projection maps the needed columns to their indexes in a source header.
type Projection struct {
	indexes map[string]int
}

// NewProjection resolves each needed column against the source header.
// Missing columns are an error: the NPPES layout is stable and a missing
// header means the wrong file was downloaded.
func NewProjection(header []string) (*Projection, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[name] = i
	}
	indexes := make(map[string]int, len(Columns))
	for _, col := range Columns {
		i, ok := byName[col]
		if !ok {
			return nil, eris.Errorf("registry: column %q not found in source header", col)
		}
		indexes[col] = i
	}
	return &Projection{indexes: indexes}, nil
}

// Get returns the named column's value from a source row, or "" when the
// row is short.
func (p *Projection) Get(row []string, col string) string {
	i, ok := p.indexes[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Project reduces a source row to the output column set, in order.
func (p *Projection) Project(row []string) []string {
	out := make([]string, len(Columns))
	for j, col := range Columns {
		out[j] = p.Get(row, col)
	}
	return out
}
