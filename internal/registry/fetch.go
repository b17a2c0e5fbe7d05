package registry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clinic-atlas/directory-cli/internal/fetcher"
)

// DefaultDownloadPage is the CMS page listing NPPES dissemination files.
const DefaultDownloadPage = "https://download.cms.gov/nppes/NPI_Files.html"

// fullFilePattern matches the monthly full-replacement archive link on the
// CMS download page.
var fullFilePattern = regexp.MustCompile(`href="(https?://download\.cms\.gov/nppes/NPPES_Data_Dissemination_\w+_\d{4}\.zip)"`)

// Archive members of interest inside the dissemination ZIP.
const (
	dataFilePrefix = "npidata_pfile_"
	dataFileSuffix = ".csv"
)

// FindLatestFileURL scrapes the CMS download page for the most recent
// monthly full-replacement archive URL.
func FindLatestFileURL(ctx context.Context, f fetcher.Fetcher, pageURL string) (string, error) {
	body, err := f.Get(ctx, pageURL)
	if err != nil {
		return "", eris.Wrap(err, "registry: fetch download page")
	}
	defer body.Close() //nolint:errcheck

	page, err := io.ReadAll(body)
	if err != nil {
		return "", eris.Wrap(err, "registry: read download page")
	}

	m := fullFilePattern.FindSubmatch(page)
	if m == nil {
		return "", eris.Errorf("registry: no dissemination archive link found on %s", pageURL)
	}
	return string(m[1]), nil
}

// EnsureSourceTable makes the raw NPPES data file available under dataDir,
// downloading and extracting only what is missing. Both steps are
// idempotent: an archive or CSV already on disk is reused as-is.
func EnsureSourceTable(ctx context.Context, f fetcher.Fetcher, pageURL, dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", eris.Wrap(err, "registry: create data dir")
	}

	// A previously extracted CSV short-circuits everything.
	if existing, err := findDataFile(dataDir); err == nil {
		zap.L().Info("registry: source table already extracted", zap.String("path", existing))
		return existing, nil
	}

	archiveURL, err := FindLatestFileURL(ctx, f, pageURL)
	if err != nil {
		return "", err
	}

	zipPath := filepath.Join(dataDir, filepath.Base(archiveURL))
	if _, err := os.Stat(zipPath); err == nil {
		zap.L().Info("registry: archive already downloaded", zap.String("path", zipPath))
	} else {
		zap.L().Info("registry: downloading archive",
			zap.String("url", archiveURL),
			zap.String("path", zipPath),
		)
		n, err := f.DownloadToFile(ctx, archiveURL, zipPath)
		if err != nil {
			return "", eris.Wrap(err, "registry: download archive")
		}
		zap.L().Info("registry: archive downloaded", zap.Int64("bytes", n))
	}

	csvPath, err := fetcher.ExtractZIPMatching(zipPath, dataFilePrefix, dataFileSuffix, dataDir)
	if err != nil {
		return "", eris.Wrap(err, "registry: extract data file")
	}
	zap.L().Info("registry: source table extracted", zap.String("path", csvPath))
	return csvPath, nil
}

// findDataFile locates an already-extracted npidata CSV under dataDir.
func findDataFile(dataDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, dataFilePrefix+"*"+dataFileSuffix))
	if err != nil || len(matches) == 0 {
		return "", eris.Errorf("registry: no extracted data file in %s", dataDir)
	}
	return matches[0], nil
}
