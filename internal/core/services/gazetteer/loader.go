package gazetteer

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openlistings/listings-refinery/internal/pkg/errors"
	"github.com/openlistings/listings-refinery/internal/pkg/retry"
)

// Loader obtains the gazetteer reference file, fetching and extracting the
// remote archive when the local copy is absent. A load failure is fatal for
// the whole pipeline: no normalization can proceed without reference data.
type Loader struct {
	dir         string
	filename    string
	url         string
	maxAttempts int
	client      *http.Client
	logger      *slog.Logger
}

// NewLoader creates a Loader. dir is the local reference-data directory,
// filename the expected extract (e.g. "AU.txt"), url the remote ZIP.
func NewLoader(dir, filename, url string, maxAttempts int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Loader{
		dir:         dir,
		filename:    filename,
		url:         url,
		maxAttempts: maxAttempts,
		client:      &http.Client{Timeout: 2 * time.Minute},
		logger:      logger,
	}
}

// Load returns the gazetteer, fetching the archive first if needed
func (l *Loader) Load(ctx context.Context) (*Gazetteer, error) {
	path := filepath.Join(l.dir, l.filename)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		l.logger.Info("gazetteer extract absent, fetching archive",
			slog.String("path", path),
			slog.String("url", l.url))
		if err := l.fetchAndExtract(ctx); err != nil {
			return nil, errors.GazetteerUnavailable(err)
		}
	}

	g, err := LoadFile(path)
	if err != nil {
		return nil, errors.GazetteerUnavailable(err)
	}

	l.logger.Info("gazetteer loaded",
		slog.String("path", path),
		slog.Int("entries", g.Len()))
	return g, nil
}

// LoadFile parses a tab-separated gazetteer file. The place name is the
// second column.
func LoadFile(path string) (*Gazetteer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gazetteer file: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		cols := strings.Split(scanner.Text(), "\t")
		if len(cols) < 2 {
			continue
		}
		names = append(names, cols[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading gazetteer file: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("gazetteer file %q contains no entries", path)
	}

	return New(names), nil
}

// fetchAndExtract downloads the remote archive, extracts it into the
// reference-data directory and deletes the compressed artifact.
func (l *Loader) fetchAndExtract(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create reference-data directory: %w", err)
	}

	archivePath := filepath.Join(l.dir, filepath.Base(l.url))

	r := &retry.Config{
		MaxAttempts: l.maxAttempts,
		BaseDelay:   2 * time.Second,
		Logger:      l.logger,
	}
	if err := r.Do(ctx, "gazetteer fetch", func() error {
		return l.download(ctx, archivePath)
	}); err != nil {
		return err
	}

	if err := l.extract(archivePath); err != nil {
		return err
	}

	if err := os.Remove(archivePath); err != nil {
		l.logger.Warn("failed to delete gazetteer archive",
			slog.String("path", archivePath),
			slog.Any("error", err))
	}
	return nil
}

func (l *Loader) download(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

func (l *Loader) extract(archivePath string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		// Flatten: archive members land directly in the refdata dir
		name := filepath.Base(f.Name)
		if name == "." || f.FileInfo().IsDir() {
			continue
		}
		if err := l.extractFile(f, filepath.Join(l.dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive member %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("failed to extract %q: %w", f.Name, err)
	}
	return nil
}
