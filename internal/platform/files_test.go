package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spred/offline-downloader/internal/model"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test_dir", "nested")

	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestDefaultStorageRoot(t *testing.T) {
	if IsAndroid() {
		t.Skip("desktop layout only")
	}

	root, err := DefaultStorageRoot("cc.spred.app")
	if err != nil {
		t.Fatalf("Failed to get storage root: %v", err)
	}
	if filepath.Base(root) != "Downloads" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", root)
	}
}

func TestTierForSDK(t *testing.T) {
	tests := []struct {
		sdk      int
		expected model.StorageTier
	}{
		{21, model.TierLegacyPermissioned},
		{28, model.TierLegacyPermissioned},
		{29, model.TierModernScoped},
		{34, model.TierModernScoped},
	}

	for _, tt := range tests {
		if got := tierForSDK(tt.sdk); got != tt.expected {
			t.Errorf("tierForSDK(%d) = %s, expected %s", tt.sdk, got, tt.expected)
		}
	}
}

func TestFolderForTier(t *testing.T) {
	if FolderForTier(model.TierModernScoped) != ModernFolderName {
		t.Errorf("Expected %s for modern tier", ModernFolderName)
	}
	if FolderForTier(model.TierLegacyPermissioned) != LegacyFolderName {
		t.Errorf("Expected %s for legacy tier", LegacyFolderName)
	}
}

func TestNotifyMediaScannerOffAndroid(t *testing.T) {
	if IsAndroid() {
		t.Skip("desktop only")
	}
	// Must return without spawning anything
	NotifyMediaScanner(filepath.Join(t.TempDir(), "a.mp4"))
}
