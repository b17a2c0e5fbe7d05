package insurance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clinic-atlas/directory-cli/internal/checkpoint"
	"github.com/clinic-atlas/directory-cli/internal/model"
)

// Options tunes a crawl run.
type Options struct {
	BatchSize     int
	MaxConcurrent int
	Delay         time.Duration // pause between crawl and LLM call
	Offset        int           // skip the first N clinics
	Limit         int           // process at most N clinics, 0 = all
}

// Stats summarizes a crawl run.
type Stats struct {
	Total     int // clinics in scope after offset/limit
	Skipped   int // already present in the checkpoint
	Succeeded int
	Failed    int // no_content or extraction_failed

	// Aggregates over this run's successful extractions.
	WithInsurance int // at least one named insurance provider
	WithPayment   int // at least one payment method
}

// Runner drives the crawl: batches of clinics, bounded concurrency
// within a batch, and a checkpoint save after every batch so an
// interrupted run loses at most one batch of work.
type Runner struct {
	gatherer  *Gatherer
	extractor *Extractor
	cp        *checkpoint.Checkpoint
	opts      Options
}

// NewRunner creates a Runner.
func NewRunner(gatherer *Gatherer, extractor *Extractor, cp *checkpoint.Checkpoint, opts Options) *Runner {
	if opts.BatchSize < 1 {
		opts.BatchSize = 25
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 5
	}
	return &Runner{
		gatherer:  gatherer,
		extractor: extractor,
		cp:        cp,
		opts:      opts,
	}
}

// Run processes every clinic not yet in the checkpoint. Per-clinic
// failures are recorded as tagged results, not errors; the returned
// error is reserved for checkpoint writes and context cancellation.
func (r *Runner) Run(ctx context.Context, clinics []model.Clinic) (Stats, error) {
	scoped := clinics
	if r.opts.Offset > 0 {
		if r.opts.Offset >= len(scoped) {
			scoped = nil
		} else {
			scoped = scoped[r.opts.Offset:]
		}
	}
	if r.opts.Limit > 0 && r.opts.Limit < len(scoped) {
		scoped = scoped[:r.opts.Limit]
	}

	stats := Stats{Total: len(scoped)}

	remaining := make([]model.Clinic, 0, len(scoped))
	for _, c := range scoped {
		if r.cp.Has(c.ID) {
			stats.Skipped++
			continue
		}
		remaining = append(remaining, c)
	}

	zap.L().Info("insurance: starting crawl",
		zap.Int("clinics", stats.Total),
		zap.Int("already_processed", stats.Skipped),
		zap.Int("remaining", len(remaining)),
		zap.Int("batch_size", r.opts.BatchSize),
		zap.Int("max_concurrent", r.opts.MaxConcurrent),
	)

	totalBatches := (len(remaining) + r.opts.BatchSize - 1) / r.opts.BatchSize
	for start := 0; start < len(remaining); start += r.opts.BatchSize {
		end := min(start+r.opts.BatchSize, len(remaining))
		batch := remaining[start:end]
		batchNum := start/r.opts.BatchSize + 1

		batchStart := time.Now()

		var mu sync.Mutex
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.MaxConcurrent)
		for _, clinic := range batch {
			g.Go(func() error {
				result := r.processOne(gCtx, clinic)
				mu.Lock()
				r.cp.Put(result)
				if result.Failed() {
					stats.Failed++
				} else {
					stats.Succeeded++
					if len(result.Extraction.InsuranceProviders) > 0 {
						stats.WithInsurance++
					}
					if len(result.Extraction.PaymentMethods) > 0 {
						stats.WithPayment++
					}
				}
				mu.Unlock()
				return gCtx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			// Save what finished before bailing out.
			_ = r.cp.Save()
			return stats, err
		}

		if err := r.cp.Save(); err != nil {
			return stats, err
		}

		zap.L().Info("insurance: batch complete",
			zap.Int("batch", batchNum),
			zap.Int("total_batches", totalBatches),
			zap.Int("clinics", len(batch)),
			zap.Duration("elapsed", time.Since(batchStart)),
			zap.Int("total_processed", r.cp.Len()),
			zap.Int("succeeded", stats.Succeeded),
			zap.Int("failed", stats.Failed),
			zap.Int("with_insurance", stats.WithInsurance),
			zap.Int("with_payment", stats.WithPayment),
		)
	}

	zap.L().Info("insurance: crawl complete",
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// processOne crawls and extracts a single clinic. Failures come back as
// tagged results so the checkpoint records them and reruns skip them.
func (r *Runner) processOne(ctx context.Context, clinic model.Clinic) model.ExtractionResult {
	result := model.ExtractionResult{
		ClinicID: clinic.ID,
		Title:    clinic.Title,
		Website:  clinic.Website,
		State:    clinic.State,
	}

	content := r.gatherer.Gather(ctx, clinic.Website)
	if content == "" {
		zap.L().Debug("insurance: no content", zap.String("clinic", clinic.Title))
		result.Error = model.ErrorTag(model.ErrNoContent)
		return result
	}

	// Brief pause between the crawl and the API call.
	if r.opts.Delay > 0 {
		select {
		case <-ctx.Done():
			result.Error = model.ErrorTag(model.ErrExtractionFailed)
			return result
		case <-time.After(r.opts.Delay):
		}
	}

	extraction, err := r.extractor.Extract(ctx, content)
	if err != nil {
		zap.L().Warn("insurance: extraction failed",
			zap.String("clinic", clinic.Title),
			zap.Error(err),
		)
		result.Error = model.ErrorTag(model.ErrExtractionFailed)
		return result
	}

	zap.L().Debug("insurance: extracted",
		zap.String("clinic", clinic.Title),
		zap.Int("insurance_providers", len(extraction.InsuranceProviders)),
		zap.Int("payment_methods", len(extraction.PaymentMethods)),
		zap.String("confidence", string(extraction.Confidence)),
	)
	result.Extraction = extraction
	return result
}
