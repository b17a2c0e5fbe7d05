package insurance

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic-atlas/directory-cli/internal/checkpoint"
	"github.com/clinic-atlas/directory-cli/internal/model"
	"github.com/clinic-atlas/directory-cli/internal/scrape"
)

func testClinics(ids ...string) []model.Clinic {
	out := make([]model.Clinic, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Clinic{
			ID:      id,
			Title:   "Clinic " + id,
			Website: "https://" + id + ".example.com",
			State:   "WA",
		})
	}
	return out
}

// runnerFixture wires a Runner against fakes: every clinic site serves
// a main page with insurance content, and the provider replies with
// valid JSON.
func runnerFixture(t *testing.T, cpPath string, opts Options, clinics []model.Clinic) (*Runner, *checkpoint.Checkpoint, *fakeFetcher) {
	t.Helper()
	pages := make(map[string]string, len(clinics))
	for _, c := range clinics {
		pages[c.Website] = padded("We accept Medicare and Aetna insurance plans here.")
	}
	fetch := &fakeFetcher{pages: pages}
	cp, err := checkpoint.Load(cpPath)
	require.NoError(t, err)

	r := NewRunner(
		NewGatherer(fetch, nil, 0, nil),
		NewExtractor(&fakeProvider{reply: extractionJSON}),
		cp,
		opts,
	)
	return r, cp, fetch
}

func TestRunnerProcessesAll(t *testing.T) {
	clinics := testClinics("c1", "c2", "c3")
	path := filepath.Join(t.TempDir(), "cp.json")
	r, cp, _ := runnerFixture(t, path, Options{BatchSize: 2, MaxConcurrent: 2}, clinics)

	stats, err := r.Run(context.Background(), clinics)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 3, stats.WithInsurance)
	assert.Equal(t, 3, stats.WithPayment)
	assert.Equal(t, 3, cp.Len())

	got, ok := cp.Get("c2")
	require.True(t, ok)
	assert.Nil(t, got.Error)
	assert.Equal(t, []string{"Medicare", "Aetna"}, got.Extraction.InsuranceProviders)
	assert.Equal(t, "WA", got.State)
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	clinics := testClinics("c1", "c2", "c3")
	path := filepath.Join(t.TempDir(), "cp.json")

	// Seed a prior run's checkpoint with c1 and c3 done.
	seed, err := checkpoint.Load(path)
	require.NoError(t, err)
	seed.Put(model.ExtractionResult{ClinicID: "c1"})
	seed.Put(model.ExtractionResult{ClinicID: "c3"})
	require.NoError(t, seed.Save())

	r, _, fetch := runnerFixture(t, path, Options{}, clinics)
	stats, err := r.Run(context.Background(), clinics)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Succeeded)

	// Only c2's site was touched.
	for _, u := range fetch.fetched {
		assert.Contains(t, u, "c2.example.com")
	}
}

func TestRunnerOffsetAndLimit(t *testing.T) {
	clinics := testClinics("c1", "c2", "c3", "c4", "c5")
	path := filepath.Join(t.TempDir(), "cp.json")
	r, cp, _ := runnerFixture(t, path, Options{Offset: 1, Limit: 2}, clinics)

	stats, err := r.Run(context.Background(), clinics)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.True(t, cp.Has("c2"))
	assert.True(t, cp.Has("c3"))
	assert.False(t, cp.Has("c1"))
	assert.False(t, cp.Has("c4"))
}

func TestRunnerOffsetPastEnd(t *testing.T) {
	clinics := testClinics("c1", "c2")
	path := filepath.Join(t.TempDir(), "cp.json")
	r, _, _ := runnerFixture(t, path, Options{Offset: 10}, clinics)

	stats, err := r.Run(context.Background(), clinics)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestRunnerTagsNoContent(t *testing.T) {
	clinics := testClinics("c1")
	path := filepath.Join(t.TempDir(), "cp.json")
	r, cp, fetch := runnerFixture(t, path, Options{}, clinics)
	// Wipe the site so every fetch fails.
	fetch.pages = map[string]string{}

	stats, err := r.Run(context.Background(), clinics)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	got, ok := cp.Get("c1")
	require.True(t, ok)
	require.NotNil(t, got.Error)
	assert.Equal(t, model.ErrNoContent, *got.Error)
	assert.Nil(t, got.Extraction)
}

func TestRunnerTagsExtractionFailed(t *testing.T) {
	clinics := testClinics("c1")
	path := filepath.Join(t.TempDir(), "cp.json")

	pages := map[string]string{
		clinics[0].Website: padded("We accept Medicare and Aetna insurance plans here."),
	}
	cp, err := checkpoint.Load(path)
	require.NoError(t, err)
	r := NewRunner(
		NewGatherer(&fakeFetcher{pages: pages}, nil, 0, nil),
		NewExtractor(&fakeProvider{reply: "I cannot answer that."}),
		cp,
		Options{},
	)

	stats, err := r.Run(context.Background(), clinics)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	got, _ := cp.Get("c1")
	require.NotNil(t, got.Error)
	assert.Equal(t, model.ErrExtractionFailed, *got.Error)
}

// tripFetcher cancels the run when a marked URL comes up, standing in
// for an operator interrupt mid-batch.
type tripFetcher struct {
	inner  *fakeFetcher
	trip   string
	cancel context.CancelFunc
}

func (f *tripFetcher) Scrape(ctx context.Context, url string) (*scrape.Result, error) {
	if strings.Contains(url, f.trip) {
		f.cancel()
		return nil, context.Canceled
	}
	return f.inner.Scrape(ctx, url)
}

func TestRunnerSavesProgressOnCancel(t *testing.T) {
	clinics := testClinics("c1", "c2", "c3")
	path := filepath.Join(t.TempDir(), "cp.json")

	pages := make(map[string]string, len(clinics))
	for _, c := range clinics {
		pages[c.Website] = padded("We accept Medicare and Aetna insurance plans here.")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetch := &tripFetcher{inner: &fakeFetcher{pages: pages}, trip: "c2", cancel: cancel}

	cp, err := checkpoint.Load(path)
	require.NoError(t, err)
	r := NewRunner(
		NewGatherer(fetch, nil, 0, nil),
		NewExtractor(&fakeProvider{reply: extractionJSON}),
		cp,
		Options{BatchSize: 3, MaxConcurrent: 1},
	)

	_, err = r.Run(ctx, clinics)
	require.Error(t, err)

	// Work finished before the interrupt is on disk for the next run.
	reloaded, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Has("c1"))
	got, ok := reloaded.Get("c1")
	require.True(t, ok)
	assert.Nil(t, got.Error)
	require.NotNil(t, got.Extraction)
	assert.Equal(t, []string{"Medicare", "Aetna"}, got.Extraction.InsuranceProviders)
}

func TestRunnerSavesCheckpointPerBatch(t *testing.T) {
	clinics := testClinics("c1", "c2", "c3")
	path := filepath.Join(t.TempDir(), "cp.json")
	r, _, _ := runnerFixture(t, path, Options{BatchSize: 1}, clinics)

	_, err := r.Run(context.Background(), clinics)
	require.NoError(t, err)

	// The file on disk holds all results, readable by a fresh load.
	reloaded, err := checkpoint.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Len())
}
