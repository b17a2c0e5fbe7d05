package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	Comment    rune            // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
	// OnMalformed, when set, receives per-row parse errors and the stream
	// continues with the next row. When nil, a parse error is fatal.
	OnMalformed func(line int, err error)
}

// StreamCSV reads CSV rows into a channel without materializing the file,
// which matters for the multi-GB registry dumps this tool processes. The
// caller must drain the row channel; a fatal error arrives on the error
// channel and both channels close when the stream ends.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)
		if err := stream(ctx, r, opts, rowCh); err != nil {
			errCh <- err
		}
	}()

	return rowCh, errCh
}

func stream(ctx context.Context, r io.Reader, opts CSVOptions, rowCh chan<- []string) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // registry rows vary in width across vintages
	reader.LazyQuotes = opts.LazyQuotes
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}

	headerPending := opts.HasHeader
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "csv: context cancelled")
		}

		record, err := reader.Read()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			parseErr, recoverable := err.(*csv.ParseError)
			if !recoverable || opts.OnMalformed == nil {
				return eris.Wrap(err, "csv: read row")
			}
			opts.OnMalformed(parseErr.Line, err)
			continue
		}

		if opts.TrimSpace {
			for i := range record {
				record[i] = strings.TrimSpace(record[i])
			}
		}

		dest := rowCh
		if headerPending {
			headerPending = false
			if opts.HeaderCh == nil {
				continue
			}
			dest = opts.HeaderCh
		}
		select {
		case dest <- record:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
	}
}
