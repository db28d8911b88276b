package platform

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/spred/offline-downloader/internal/model"
)

// Operating system constants
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
	OSLinux   = "linux"
	OSAndroid = "android"
)

// File permissions
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// ScopedStorageMinSDK is the first Android API level with scoped storage
const ScopedStorageMinSDK = 29

// IsAndroid reports whether the process runs on Android
func IsAndroid() bool {
	return runtime.GOOS == OSAndroid ||
		os.Getenv("ANDROID_DATA") != "" ||
		os.Getenv("ANDROID_ROOT") != "" ||
		os.Getenv("ANDROID_STORAGE") != "" ||
		filepath.Base(os.Args[0]) == "libdist.so" // Fyne Android apps run as libdist.so
}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// DefaultStorageRoot returns the external files directory of the app on
// Android, and the user's Downloads directory elsewhere.
func DefaultStorageRoot(appID string) (string, error) {
	if IsAndroid() {
		return filepath.Join("/sdcard/Android/data", appID, "files"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, "Downloads"), nil
}

// DetectStorageTier picks the storage tier the device supports. Desktop
// platforms never need an extra permission.
func DetectStorageTier() model.StorageTier {
	if !IsAndroid() {
		return model.TierModernScoped
	}

	sdk, err := androidSDKLevel()
	if err != nil {
		slog.Warn("failed to read android sdk level, assuming legacy storage", "error", err)
		return model.TierLegacyPermissioned
	}
	return tierForSDK(sdk)
}

func tierForSDK(sdk int) model.StorageTier {
	if sdk >= ScopedStorageMinSDK {
		return model.TierModernScoped
	}
	return model.TierLegacyPermissioned
}

func androidSDKLevel() (int, error) {
	out, err := exec.Command("getprop", "ro.build.version.sdk").Output()
	if err != nil {
		return 0, fmt.Errorf("getprop: %w", err)
	}
	return strconv.Atoi(strings.TrimSpace(string(out)))
}

// NotifyMediaScanner asks the Android media scanner to index filePath so the
// video shows up in the gallery. It returns immediately; failures are logged.
func NotifyMediaScanner(filePath string) {
	if !IsAndroid() {
		return
	}

	cmd := exec.Command("am", "broadcast", "-a", "android.intent.action.MEDIA_SCANNER_SCAN_FILE", "-d", "file://"+filePath)
	go func() {
		if err := cmd.Run(); err != nil {
			slog.Warn("failed to notify media scanner", "path", filePath, "error", err)
		}
	}()
}
