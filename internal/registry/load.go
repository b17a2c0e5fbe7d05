package registry

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/fetcher"
	"github.com/clinic-atlas/directory-cli/internal/model"
	"github.com/clinic-atlas/directory-cli/internal/normalize"
)

// LoadClinicZips extracts the set of 5-digit postal codes from a clinic
// export file. A missing file is not fatal: filtering degrades to
// taxonomy-only and the caller is warned.
func LoadClinicZips(path string) map[string]struct{} {
	clinics, err := fetcher.ReadJSONArrayFile[model.Clinic](path)
	if err != nil {
		zap.L().Warn("registry: clinic export unavailable, filtering by taxonomy only",
			zap.String("path", path),
			zap.Error(err),
		)
		return map[string]struct{}{}
	}

	zips := make(map[string]struct{})
	for _, c := range clinics {
		if z := normalize.Zip5(c.PostalCode); len(z) == 5 {
			zips[z] = struct{}{}
		}
	}
	zap.L().Info("registry: loaded clinic postal codes",
		zap.Int("clinics", len(clinics)),
		zap.Int("zips", len(zips)),
	)
	return zips
}

// Prepare fills a record's normalized lookup fields. Individual providers
// match on "first last" rather than the (empty) organization name.
func Prepare(r *model.RegistryRecord) {
	r.NormPhone = normalize.Phone(r.Phone)
	r.Zip5 = normalize.Zip5(r.PostalCode)
	if r.EntityType == model.EntityIndividual {
		r.NormName = normalize.IndividualName(r.FirstName, r.LastName)
	} else {
		r.NormName = normalize.Name(r.OrgName)
	}
	r.NormAddress = normalize.Address(r.Address)
}

// recordFromRow builds a RegistryRecord from a filtered-table row laid
// out per Columns.
func recordFromRow(row []string) *model.RegistryRecord {
	get := func(col string) string {
		if i := columnIndex(col); i >= 0 && i < len(row) {
			return row[i]
		}
		return ""
	}
	r := &model.RegistryRecord{
		NPI:            get(ColNPI),
		EntityType:     model.EntityType(get(ColEntityType)),
		OrgName:        get(ColOrgName),
		LastName:       get(ColLastName),
		FirstName:      get(ColFirstName),
		Address:        get(ColAddress),
		City:           get(ColCity),
		State:          get(ColState),
		PostalCode:     get(ColPostal),
		Phone:          get(ColPhone),
		SoleProprietor: get(ColSoleProp),
		TaxonomyCodes: [3]string{
			get(ColTaxonomy1), get(ColTaxonomy2), get(ColTaxonomy3),
		},
	}
	Prepare(r)
	return r
}

// LoadFiltered reads a filtered registry table into memory with the
// normalized lookup fields precomputed.
func LoadFiltered(ctx context.Context, r io.Reader) ([]*model.RegistryRecord, error) {
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader: true,
	})

	var records []*model.RegistryRecord
	for row := range rowCh {
		records = append(records, recordFromRow(row))
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "registry: read filtered table")
	}
	return records, nil
}

// LoadFilteredFile reads a filtered registry table from disk.
func LoadFilteredFile(ctx context.Context, path string) ([]*model.RegistryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return LoadFiltered(ctx, f)
}
