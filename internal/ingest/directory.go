package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/grocery-receipts/constants"
)

// ScanDirectory walks root, skips hidden entries if requested, and returns
// every receipt file in lexical path order with aggregate stats.
func ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]Source, []FileError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root_path is required")
	}

	var sources []Source
	var failures []FileError
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			failures = append(failures, FileError{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		// skip hidden dirs/files if requested
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		format, ok := constants.FormatForPath(path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			failures = append(failures, FileError{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		stats.Matched++
		sources = append(sources, Source{
			Path:    path,
			Format:  format,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return sources, failures, stats, fmt.Errorf("walk: %w", err)
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, failures, stats, nil
}
