package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/grocery-receipts/constants"
	"github.com/joseph-ayodele/grocery-receipts/internal/common"
	"github.com/joseph-ayodele/grocery-receipts/internal/lidl"
	"github.com/joseph-ayodele/grocery-receipts/internal/receipt"
)

// FSLoader reads receipts from the local filesystem.
type FSLoader struct {
	Location *time.Location
	Logger   *slog.Logger
}

func NewFSLoader(loc *time.Location, logger *slog.Logger) *FSLoader {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FSLoader{Location: loc, Logger: logger}
}

func (l *FSLoader) LoadReceipt(ctx context.Context, path string) (*Loaded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	format, ok := constants.FormatForPath(abs)
	if !ok {
		return nil, fmt.Errorf("unsupported or missing extension: %q", filepath.Ext(abs))
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(data)

	src := Source{Path: abs, Format: format, Size: info.Size(), ModTime: info.ModTime()}

	var rcpt *receipt.Detailed
	switch format {
	case constants.FormatJSON:
		rcpt, err = lidl.DecodeReceipt(data, lidl.WithLocation(l.Location))
	case constants.FormatHTML:
		rcpt, err = l.loadHTML(abs, info.ModTime(), data)
	}
	if err != nil {
		l.Logger.Warn("ingest.load.failed", "path", abs, "format", format, "error", err)
		return nil, fmt.Errorf("%s: %w", abs, err)
	}

	l.Logger.Debug("ingest.load.ok", "path", abs, "receipt_id", rcpt.ID, "items", len(rcpt.Items))
	return &Loaded{Source: src, HashHex: hex.EncodeToString(sum[:]), Receipt: rcpt}, nil
}

func (l *FSLoader) loadHTML(path string, modTime time.Time, data []byte) (*receipt.Detailed, error) {
	meta, err := l.readMeta(path)
	if err != nil {
		return nil, err
	}

	var date time.Time
	if meta.Date != "" {
		date, err = lidl.ParseBackendTime(meta.Date, l.Location)
		if err != nil {
			return nil, fmt.Errorf("sidecar date: %w", err)
		}
	} else {
		date = modTime.In(l.Location)
	}
	if meta.ID == "" {
		meta.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	x := lidl.NewHTMLExtractor(l.Logger)
	return x.Extract(meta.ID, date, meta.Store, bytes.NewReader(data))
}

// readMeta loads the sidecar; a missing one yields an empty Meta so the
// file name and modification time stand in.
func (l *FSLoader) readMeta(path string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(MetaPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		l.Logger.Warn("ingest.meta.missing", "path", path)
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("read sidecar: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decode sidecar: %w", err)
	}
	v := common.NewValidator().
		Field("id", meta.ID, common.MaxLength(128)).
		Field("store.id", meta.Store.ID, common.MaxLength(64)).
		Field("store.name", meta.Store.Name, common.MaxLength(256))
	if err := v.Error(); err != nil {
		return meta, fmt.Errorf("sidecar: %w", err)
	}
	return meta, nil
}
