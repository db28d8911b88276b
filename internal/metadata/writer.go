package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spred/offline-downloader/internal/model"
	"github.com/spred/offline-downloader/internal/platform"
)

// SidecarSuffix is appended to the content file path
const SidecarSuffix = ".meta.json"

// ErrContentMissing is returned when the content file is absent
var ErrContentMissing = errors.New("metadata: content file does not exist")

// SidecarPath returns the sidecar location for a content file
func SidecarPath(filePath string) string {
	return filePath + SidecarSuffix
}

// Writer persists sidecars
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a sidecar writer
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// Write stores md next to filePath. The content file must exist; its size on
// disk replaces md.ActualSizeBytes. The sidecar is replaced atomically.
func (w *Writer) Write(filePath string, md model.TransferMetadata) error {
	info, err := os.Stat(filePath)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrContentMissing, filePath)
	}
	md.ActualSizeBytes = info.Size()
	if md.SafeFileName == "" {
		md.SafeFileName = filepath.Base(filePath)
	}

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: marshal: %w", err)
	}

	pending, err := platform.CreatePending(SidecarPath(filePath))
	if err != nil {
		return err
	}
	if _, err := pending.Write(data); err != nil {
		pending.Abort()
		return fmt.Errorf("metadata: write %s: %w", pending.FinalPath(), err)
	}
	if err := pending.Commit(); err != nil {
		return err
	}

	w.logger.Debug("wrote sidecar", "path", SidecarPath(filePath), "key", md.OriginalKey)
	return nil
}

// Read loads the sidecar of a content file
func Read(filePath string) (model.TransferMetadata, error) {
	var md model.TransferMetadata
	data, err := os.ReadFile(SidecarPath(filePath))
	if err != nil {
		return md, err
	}
	if err := json.Unmarshal(data, &md); err != nil {
		return md, fmt.Errorf("metadata: decode %s: %w", SidecarPath(filePath), err)
	}
	return md, nil
}

// Owner returns the content key recorded in the sidecar of filePath
func Owner(filePath string) (string, bool) {
	md, err := Read(filePath)
	if err != nil || md.OriginalKey == "" {
		return "", false
	}
	return md.OriginalKey, true
}

// Find scans dirs for a sidecar describing contentKey whose content file still
// exists, and returns the content file path.
func Find(dirs []string, contentKey string) (string, bool) {
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+SidecarSuffix))
		if err != nil {
			continue
		}
		for _, sidecar := range matches {
			content := strings.TrimSuffix(sidecar, SidecarSuffix)
			md, err := Read(content)
			if err != nil || md.OriginalKey != contentKey {
				continue
			}
			if info, err := os.Stat(content); err == nil && info.Mode().IsRegular() {
				return content, true
			}
		}
	}
	return "", false
}
