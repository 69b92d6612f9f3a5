// Package storage keeps per-run artifacts on the local filesystem: a copy of
// the input export and the normalized output, archived under the batch id,
// plus the content hash that makes batch tracking idempotent.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage manages run artifacts in the local filesystem
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// NewLocalStorage creates a new local storage instance rooted at basePath
func NewLocalStorage(basePath string, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStorage{basePath: basePath, logger: logger}, nil
}

// HashFile returns the hex sha256 of a file's contents, streamed so large
// exports are not read into memory
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for hashing: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ArchiveFile copies a run artifact into the batch's archive directory and
// returns the stored path
func (s *LocalStorage) ArchiveFile(ctx context.Context, batchID, kind, srcPath string) (string, error) {
	runDir := filepath.Join(s.basePath, "runs", batchID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(runDir, kind+"-"+filepath.Base(srcPath))
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer dest.Close()

	size, err := io.Copy(dest, src)
	if err != nil {
		return "", fmt.Errorf("failed to copy artifact: %w", err)
	}

	s.logger.Info("run artifact archived",
		slog.String("batch_id", batchID),
		slog.String("kind", kind),
		slog.String("path", destPath),
		slog.Int64("size", size))

	return destPath, nil
}

// RunPath returns the archive directory for a batch
func (s *LocalStorage) RunPath(batchID string) string {
	return filepath.Join(s.basePath, "runs", batchID)
}

// CleanupOldRuns removes archived runs older than the given duration
func (s *LocalStorage) CleanupOldRuns(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	runsDir := filepath.Join(s.basePath, "runs")

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read runs directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			runPath := filepath.Join(runsDir, entry.Name())
			if err := os.RemoveAll(runPath); err != nil {
				s.logger.Warn("failed to remove old run",
					slog.String("path", runPath),
					slog.Any("error", err))
				continue
			}
			s.logger.Debug("removed old run", slog.String("path", runPath))
		}
	}
	return nil
}
