package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/grocery-receipts/constants"
)

// AllowedExt checks if a file extension is a receipt format.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// MetaPath is the sidecar path for a receipt: receipts/a.html -> receipts/a.meta.json.
func MetaPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + constants.MetaSuffix
}
