package fetcher

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// ReadJSONArray decodes a JSON array of T from a reader.
func ReadJSONArray[T any](r io.Reader) ([]T, error) {
	var items []T
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, eris.Wrap(err, "json: decode array")
	}
	return items, nil
}

// ReadJSONArrayFile decodes a JSON array of T from a file on disk.
func ReadJSONArrayFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "json: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadJSONArray[T](f)
}

// WriteJSONArrayFile writes items as an indented JSON array, atomically:
// the content lands in a temp file first and is renamed over the target,
// so a crash mid-write never leaves a truncated artifact.
func WriteJSONArrayFile[T any](path string, items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return eris.Wrap(err, "json: marshal array")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "json: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "json: rename %s", path)
	}
	return nil
}
