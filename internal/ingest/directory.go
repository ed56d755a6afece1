package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDirectory walks root and returns every document file in lexical order,
// skipping hidden entries when requested.
func ScanDirectory(root string, skipHidden bool, logger *slog.Logger) ([]string, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var (
		paths []string
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("ingest.walk_error", "path", path, "error", walkErr)
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && hiddenBelow(root, path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !isDocument(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}

	sort.Strings(paths)
	logger.Info("ingest.scanned", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	return paths, stats, nil
}
