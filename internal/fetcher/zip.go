package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIPMatching extracts the single archive member whose base name
// has the given prefix and suffix (e.g. "npidata_pfile_" / ".csv").
// Returns the extracted file path. Exactly one member must match.
func ExtractZIPMatching(zipPath, prefix, suffix, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var matches []*zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.Base(f.Name)
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			matches = append(matches, f)
		}
	}

	if len(matches) == 0 {
		return "", eris.Errorf("zip: no member matching %s*%s in %s", prefix, suffix, zipPath)
	}
	if len(matches) > 1 {
		return "", eris.Errorf("zip: %d members matching %s*%s, expected 1", len(matches), prefix, suffix)
	}

	return extractZIPEntry(matches[0], destDir)
}

// extractZIPEntry extracts a single zip.File to the destination directory,
// flattened to its base name.
func extractZIPEntry(f *zip.File, destDir string) (string, error) {
	// Sanitize against zip slip.
	base := filepath.Base(f.Name)
	destPath := filepath.Join(destDir, base)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q", f.Name)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create destination directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
