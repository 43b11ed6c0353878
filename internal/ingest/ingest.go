package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/constants"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

// Source is one receipt file found on disk.
type Source struct {
	Path    string
	Format  constants.Format
	Size    int64
	ModTime time.Time
}

// FileError is a path that could not be scanned or loaded.
type FileError struct {
	Path string
	Err  string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// Meta is the sidecar carrying what an HTML receipt page does not contain.
type Meta struct {
	ID    string        `json:"id"`
	Date  string        `json:"date"`
	Store receipt.Store `json:"store"`
}

// Loaded is a parsed receipt together with the file it came from.
type Loaded struct {
	Source  Source
	HashHex string
	Receipt *receipt.Detailed
}

// Loader is the behavior the importer command depends on.
type Loader interface {
	// LoadReceipt parses a single receipt file.
	LoadReceipt(ctx context.Context, path string) (*Loaded, error)
}
