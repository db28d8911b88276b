package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spred/offline-downloader/internal/model"
)

// Folder names used by the storage tiers. Both have shipped, so both are probed.
const (
	ModernFolderName = "SpredVideos"
	LegacyFolderName = ".spredHiddenFolder"
)

// ErrEmptyStorageRoot is returned when no root directory is configured
var ErrEmptyStorageRoot = errors.New("platform: storage root is empty")

// FolderForTier returns the folder name used by tier
func FolderForTier(tier model.StorageTier) string {
	if tier == model.TierLegacyPermissioned {
		return LegacyFolderName
	}
	return ModernFolderName
}

// OwnerFunc returns the content key recorded for the file at path, if any
type OwnerFunc func(path string) (contentKey string, ok bool)

// Locator computes destination paths under a root directory
type Locator struct {
	root   string
	tier   model.StorageTier
	owners OwnerFunc
	logger *slog.Logger
}

// NewLocator creates a locator writing under root with the given tier.
// An empty tier is detected from the device.
func NewLocator(root string, tier model.StorageTier, logger *slog.Logger) *Locator {
	if tier == "" {
		tier = DetectStorageTier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{root: root, tier: tier, logger: logger}
}

// WithOwners returns a copy of the locator that consults owners so that two
// keys sharing a filename never resolve to each other's file
func (l *Locator) WithOwners(owners OwnerFunc) *Locator {
	c := *l
	c.owners = owners
	return &c
}

// Tier returns the tier new downloads are written with
func (l *Locator) Tier() model.StorageTier {
	return l.tier
}

// Folders returns every folder a download may live in, preferred tier first
func (l *Locator) Folders() []string {
	preferred := FolderForTier(l.tier)
	folders := []string{filepath.Join(l.root, preferred)}
	for _, name := range []string{ModernFolderName, LegacyFolderName} {
		if name != preferred {
			folders = append(folders, filepath.Join(l.root, name))
		}
	}
	return folders
}

// Locate computes the storage target for a download and makes sure its
// directory exists.
func (l *Locator) Locate(contentKey, displayTitle string) (model.StorageTarget, error) {
	if l.root == "" {
		return model.StorageTarget{}, ErrEmptyStorageRoot
	}

	folder := FolderForTier(l.tier)
	dir := filepath.Join(l.root, folder)
	if err := CreateDirectoryIfNotExists(dir); err != nil {
		return model.StorageTarget{}, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, SafeFileName(contentKey, displayTitle))
	if l.ownedByOther(path, contentKey) {
		path = filepath.Join(dir, KeyedFileName(filepath.Base(path), contentKey))
		l.logger.Debug("filename taken by another key", "key", contentKey, "path", path)
	}

	return model.StorageTarget{
		RootDirectory: l.root,
		FolderName:    folder,
		FilePath:      path,
		Tier:          l.tier,
	}, nil
}

// CheckExisting probes every folder convention for a content file named after
// displayTitle or contentKey. Files recorded for another key are skipped.
// Probe errors are logged and treated as absent.
func (l *Locator) CheckExisting(contentKey, displayTitle string) (string, bool) {
	names := []string{SafeFileName(contentKey, displayTitle)}
	if keyName := KeyFileName(contentKey); keyName != names[0] {
		names = append(names, keyName)
	}
	if l.owners != nil {
		for _, name := range names {
			names = append(names, KeyedFileName(name, contentKey))
		}
	}

	for _, dir := range l.Folders() {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err == nil && info.Mode().IsRegular() {
				if l.ownedByOther(candidate, contentKey) {
					continue
				}
				return candidate, true
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				l.logger.Warn("failed to probe existing download", "path", candidate, "error", err)
			}
		}
	}
	return "", false
}

func (l *Locator) ownedByOther(path, contentKey string) bool {
	if l.owners == nil {
		return false
	}
	owner, ok := l.owners(path)
	return ok && owner != contentKey
}

// ListContentFiles returns the content files present in every folder convention
func (l *Locator) ListContentFiles() ([]string, error) {
	var files []string
	for _, dir := range l.Folders() {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ContentExtension) || IsPendingName(name) {
				continue
			}
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}
