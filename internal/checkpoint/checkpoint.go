// Package checkpoint persists per-clinic extraction results between
// runs so an interrupted crawl resumes where it stopped.
package checkpoint

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/fetcher"
	"github.com/clinic-atlas/directory-cli/internal/model"
)

// Checkpoint holds extraction results keyed by clinic ID. The on-disk
// form is a JSON array; the key order of reloaded results is the order
// they were first recorded.
type Checkpoint struct {
	path    string
	order   []string
	results map[string]model.ExtractionResult
}

// Load reads a checkpoint file. A missing file yields an empty
// checkpoint, so first runs need no setup.
func Load(path string) (*Checkpoint, error) {
	cp := &Checkpoint{
		path:    path,
		results: make(map[string]model.ExtractionResult),
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cp, nil
	}

	results, err := fetcher.ReadJSONArrayFile[model.ExtractionResult](path)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: read file")
	}
	for _, r := range results {
		cp.Put(r)
	}

	zap.L().Info("checkpoint: loaded",
		zap.String("path", path),
		zap.Int("results", len(cp.order)),
	)
	return cp, nil
}

// Put records a result, replacing any earlier result for the clinic.
func (c *Checkpoint) Put(r model.ExtractionResult) {
	if _, seen := c.results[r.ClinicID]; !seen {
		c.order = append(c.order, r.ClinicID)
	}
	c.results[r.ClinicID] = r
}

// Has reports whether the clinic already has a recorded result.
func (c *Checkpoint) Has(clinicID string) bool {
	_, ok := c.results[clinicID]
	return ok
}

// Get returns the recorded result for a clinic, if any.
func (c *Checkpoint) Get(clinicID string) (model.ExtractionResult, bool) {
	r, ok := c.results[clinicID]
	return r, ok
}

// Len returns the number of recorded results.
func (c *Checkpoint) Len() int { return len(c.order) }

// Results returns all recorded results in insertion order.
func (c *Checkpoint) Results() []model.ExtractionResult {
	out := make([]model.ExtractionResult, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.results[id])
	}
	return out
}

// Save writes the checkpoint to disk. The write goes through a temp
// file and rename, so a crash mid-save never corrupts the previous
// checkpoint.
func (c *Checkpoint) Save() error {
	if err := fetcher.WriteJSONArrayFile(c.path, c.Results()); err != nil {
		return eris.Wrap(err, "checkpoint: save")
	}
	return nil
}
