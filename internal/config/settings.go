package config

import (
	"time"

	"fyne.io/fyne/v2"

	"github.com/spred/offline-downloader/internal/auth"
	"github.com/spred/offline-downloader/internal/platform"
)

// Settings keys for Fyne preferences
const (
	KeyStorageRoot       = "storage_root"
	KeyStorageTier       = "storage_tier"
	KeyUnparseableToken  = "unparseable_token_policy"
	KeyProgressInterval  = "progress_interval_ms"
	KeyAutoOpenCompleted = "auto_open_on_complete"
)

// Bounds for the progress callback interval
const (
	MinProgressInterval = 50 * time.Millisecond
	MaxProgressInterval = 5 * time.Second
)

// DefaultAutoOpenCompleted controls whether finished files are opened
const DefaultAutoOpenCompleted = false

// Settings manages per-device preferences that override the engine config
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetStorageRoot returns the directory holding the content folders
func (s *Settings) GetStorageRoot() string {
	root := s.app.Preferences().String(KeyStorageRoot)
	if root == "" {
		defaultRoot, err := platform.DefaultStorageRoot(AppID)
		if err != nil {
			defaultRoot = "/tmp/spred"
		}
		s.SetStorageRoot(defaultRoot)
		return defaultRoot
	}
	return root
}

// SetStorageRoot sets the storage root directory
func (s *Settings) SetStorageRoot(root string) {
	s.app.Preferences().SetString(KeyStorageRoot, root)
}

// GetStorageTier returns auto, modern or legacy
func (s *Settings) GetStorageTier() string {
	tier := s.app.Preferences().String(KeyStorageTier)
	switch tier {
	case TierAuto, TierModern, TierLegacy:
		return tier
	}
	return TierAuto
}

// SetStorageTier sets the storage tier; unknown values reset it to auto
func (s *Settings) SetStorageTier(tier string) {
	switch tier {
	case TierModern, TierLegacy:
	default:
		tier = TierAuto
	}
	s.app.Preferences().SetString(KeyStorageTier, tier)
}

// GetStorageTierOptions returns the selectable storage tiers
func (s *Settings) GetStorageTierOptions() []string {
	return []string{TierAuto, TierModern, TierLegacy}
}

// GetUnparseablePolicy returns the policy for tokens without a readable expiry
func (s *Settings) GetUnparseablePolicy() auth.UnparseablePolicy {
	policy, err := auth.ParsePolicy(s.app.Preferences().String(KeyUnparseableToken))
	if err != nil {
		return auth.DefaultUnparseablePolicy
	}
	return policy
}

// SetUnparseablePolicy sets the unparseable token policy
func (s *Settings) SetUnparseablePolicy(policy auth.UnparseablePolicy) {
	s.app.Preferences().SetString(KeyUnparseableToken, string(policy))
}

// GetProgressInterval returns the minimum delay between progress callbacks
func (s *Settings) GetProgressInterval() time.Duration {
	ms := s.app.Preferences().Int(KeyProgressInterval)
	if ms <= 0 {
		return Default().ProgressInterval
	}
	return time.Duration(ms) * time.Millisecond
}

// SetProgressInterval sets the progress interval, clamped to sane bounds
func (s *Settings) SetProgressInterval(interval time.Duration) {
	if interval < MinProgressInterval {
		interval = MinProgressInterval
	}
	if interval > MaxProgressInterval {
		interval = MaxProgressInterval
	}
	s.app.Preferences().SetInt(KeyProgressInterval, int(interval/time.Millisecond))
}

// GetAutoOpenOnComplete returns whether to open completed downloads
func (s *Settings) GetAutoOpenOnComplete() bool {
	return s.app.Preferences().BoolWithFallback(KeyAutoOpenCompleted, DefaultAutoOpenCompleted)
}

// SetAutoOpenOnComplete sets whether to open completed downloads
func (s *Settings) SetAutoOpenOnComplete(open bool) {
	s.app.Preferences().SetBool(KeyAutoOpenCompleted, open)
}

// ApplyTo copies the device preferences onto cfg
func (s *Settings) ApplyTo(cfg *Config) {
	cfg.StorageRoot = s.GetStorageRoot()
	cfg.StorageTier = s.GetStorageTier()
	cfg.UnparseableToken = string(s.GetUnparseablePolicy())
	cfg.ProgressInterval = s.GetProgressInterval()
}
