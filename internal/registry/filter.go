package registry

import (
	"context"
	"encoding/csv"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/fetcher"
	"github.com/clinic-atlas/directory-cli/internal/normalize"
)

// DefaultChunkRows is the number of source rows buffered per chunk before
// the keep-list is flushed to the output writer.
const DefaultChunkRows = 100_000

// FilterOptions configures a registry filter run.
type FilterOptions struct {
	// Codes is the taxonomy codes-of-interest set. Defaults to
	// CodesOfInterest() when nil.
	Codes map[string]struct{}
	// ClinicZips is the 5-digit postal codes of known clinics. Empty set
	// degrades to taxonomy-only filtering.
	ClinicZips map[string]struct{}
	// ChunkRows bounds per-chunk memory. Defaults to DefaultChunkRows.
	ChunkRows int
}

// FilterStats summarizes a filter run for operator visibility.
type FilterStats struct {
	Processed    int
	Kept         int
	Malformed    int
	EntityCounts map[string]int
	TaxonomyTop  []TaxonomyCount
}

// TaxonomyCount pairs a primary taxonomy code with its kept-row count.
type TaxonomyCount struct {
	Code  string
	Count int
}

// keep reports whether a projected row survives the filter. A row is kept
// when any of its three taxonomy codes is of interest, or when it is an
// organization located in a clinic postal code. Individuals never match
// on postal code alone.
func keep(p *Projection, row []string, codes, clinicZips map[string]struct{}) bool {
	for _, col := range []string{ColTaxonomy1, ColTaxonomy2, ColTaxonomy3} {
		if _, ok := codes[p.Get(row, col)]; ok {
			return true
		}
	}
	if len(clinicZips) == 0 {
		return false
	}
	if p.Get(row, ColEntityType) != "2" {
		return false
	}
	_, ok := clinicZips[normalize.Zip5(p.Get(row, ColPostal))]
	return ok
}

// Filter streams the NPPES source table through the keep predicate in
// bounded chunks, writing kept rows (projected to Columns, postal codes
// normalized to 5 digits) to w. Malformed source rows are counted and
// skipped. Row order is preserved.
func Filter(ctx context.Context, r io.Reader, w io.Writer, opts FilterOptions) (*FilterStats, error) {
	if opts.Codes == nil {
		opts.Codes = CodesOfInterest()
	}
	if opts.ChunkRows <= 0 {
		opts.ChunkRows = DefaultChunkRows
	}

	stats := &FilterStats{EntityCounts: make(map[string]int)}
	taxonomyCounts := make(map[string]int)

	headerCh := make(chan []string, 1)
	malformed := func(line int, err error) {
		stats.Malformed++
		zap.L().Debug("registry: skipping malformed row",
			zap.Int("line", line),
			zap.Error(err),
		)
	}
	rowCh, errCh := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:   true,
		HeaderCh:    headerCh,
		OnMalformed: malformed,
	})

	var proj *Projection
	out := csv.NewWriter(w)

	chunk := make([][]string, 0, opts.ChunkRows)
	chunkNum := 0
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		chunkNum++
		for _, row := range chunk {
			if err := out.Write(row); err != nil {
				return eris.Wrap(err, "registry: write filtered row")
			}
		}
		chunk = chunk[:0]
		if chunkNum%10 == 0 {
			zap.L().Info("registry: filter progress",
				zap.Int("processed", stats.Processed),
				zap.Int("kept", stats.Kept),
			)
		}
		return nil
	}

	for row := range rowCh {
		if proj == nil {
			header := <-headerCh
			p, err := NewProjection(header)
			if err != nil {
				return nil, err
			}
			proj = p
			if err := out.Write(Columns); err != nil {
				return nil, eris.Wrap(err, "registry: write header")
			}
		}

		stats.Processed++
		if !keep(proj, row, opts.Codes, opts.ClinicZips) {
			continue
		}

		projected := proj.Project(row)
		projected[postalIndex] = normalize.Zip5(projected[postalIndex])
		chunk = append(chunk, projected)
		stats.Kept++
		stats.EntityCounts[projected[entityIndex]]++
		if code := projected[taxonomy1Index]; code != "" {
			taxonomyCounts[code]++
		}

		if len(chunk) >= opts.ChunkRows {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "registry: stream source table")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return nil, eris.Wrap(err, "registry: flush output")
	}

	stats.TaxonomyTop = topTaxonomy(taxonomyCounts, 15)

	zap.L().Info("registry: filter complete",
		zap.Int("processed", stats.Processed),
		zap.Int("kept", stats.Kept),
		zap.Int("malformed", stats.Malformed),
	)

	return stats, nil
}

// Output-column indexes used by the filter hot loop.
var (
	postalIndex    = columnIndex(ColPostal)
	entityIndex    = columnIndex(ColEntityType)
	taxonomy1Index = columnIndex(ColTaxonomy1)
)

func columnIndex(col string) int {
	for i, c := range Columns {
		if c == col {
			return i
		}
	}
	return -1
}

func topTaxonomy(counts map[string]int, n int) []TaxonomyCount {
	top := make([]TaxonomyCount, 0, len(counts))
	for code, count := range counts {
		top = append(top, TaxonomyCount{Code: code, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Code < top[j].Code
	})
	if len(top) > n {
		top = top[:n]
	}
	return top
}
