package fetcher

import (
	"io"
	"path/filepath"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressSink wraps a download body so byte progress can be reported as
// it streams. total is the Content-Length, or -1 when unknown.
type ProgressSink interface {
	Track(name string, total int64, body io.Reader) io.Reader
	Wait()
}

// MPBSink renders one progress bar per download using mpb.
type MPBSink struct {
	container *mpb.Progress
}

// NewMPBSink creates an mpb-backed progress sink.
func NewMPBSink() *MPBSink {
	return &MPBSink{container: mpb.New(mpb.WithWidth(60))}
}

// Track attaches a progress bar to the body reader.
func (s *MPBSink) Track(name string, total int64, body io.Reader) io.Reader {
	bar := s.container.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(filepath.Base(name), decor.WCSyncSpaceR),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageSpeed(decor.SizeB1024(0), " % .1f"),
		),
		mpb.BarRemoveOnComplete(),
	)
	return bar.ProxyReader(body)
}

// Wait blocks until all bars have completed rendering.
func (s *MPBSink) Wait() {
	s.container.Wait()
}

// NoopSink discards progress. Used in non-interactive runs and tests.
type NoopSink struct{}

func (NoopSink) Track(_ string, _ int64, body io.Reader) io.Reader { return body }
func (NoopSink) Wait()                                             {}
