package constants

import "strings"

// Format is the shape a receipt file arrives in.
type Format string

const (
	FormatHTML Format = "HTML"
	FormatJSON Format = "JSON"
)

// Formats holds the allowed values for the format column in import_run.
var Formats = []string{string(FormatHTML), string(FormatJSON)}

// AllowedExtensions holds the default receipt file extensions picked up by ingestion.
var AllowedExtensions = map[string]Format{
	"html": FormatHTML,
	"htm":  FormatHTML,
	"json": FormatJSON,
}

// MetaSuffix marks the sidecar that carries id, date and store for an HTML receipt.
const MetaSuffix = ".meta.json"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FormatForPath returns the receipt format of a path, ignoring sidecars.
func FormatForPath(path string) (Format, bool) {
	if strings.HasSuffix(strings.ToLower(path), MetaSuffix) {
		return "", false
	}
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", false
	}
	f, ok := AllowedExtensions[NormalizeExt(path[i:])]
	return f, ok
}
