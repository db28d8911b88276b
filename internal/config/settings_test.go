package config

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"

	"github.com/spred/offline-downloader/internal/auth"
)

func TestNewSettings(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.app != app {
		t.Error("Settings app reference should match provided app")
	}
}

func TestStorageRoot(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	// Test default value
	root := settings.GetStorageRoot()
	if root == "" {
		t.Error("Storage root should not be empty")
	}

	customRoot := "/custom/spred"
	settings.SetStorageRoot(customRoot)

	if got := settings.GetStorageRoot(); got != customRoot {
		t.Errorf("Expected storage root %s, got %s", customRoot, got)
	}
}

func TestStorageTier(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if got := settings.GetStorageTier(); got != TierAuto {
		t.Errorf("Expected default tier %s, got %s", TierAuto, got)
	}

	settings.SetStorageTier(TierLegacy)
	if got := settings.GetStorageTier(); got != TierLegacy {
		t.Errorf("Expected tier %s, got %s", TierLegacy, got)
	}

	settings.SetStorageTier("sideways")
	if got := settings.GetStorageTier(); got != TierAuto {
		t.Errorf("Unknown tier should reset to %s, got %s", TierAuto, got)
	}

	if len(settings.GetStorageTierOptions()) != 3 {
		t.Errorf("Expected 3 tier options, got %d", len(settings.GetStorageTierOptions()))
	}
}

func TestUnparseablePolicy(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if got := settings.GetUnparseablePolicy(); got != auth.DefaultUnparseablePolicy {
		t.Errorf("Expected default policy %s, got %s", auth.DefaultUnparseablePolicy, got)
	}

	settings.SetUnparseablePolicy(auth.TreatUnparseableAsExpired)
	if got := settings.GetUnparseablePolicy(); got != auth.TreatUnparseableAsExpired {
		t.Errorf("Expected policy %s, got %s", auth.TreatUnparseableAsExpired, got)
	}

	app.Preferences().SetString(KeyUnparseableToken, "maybe")
	if got := settings.GetUnparseablePolicy(); got != auth.DefaultUnparseablePolicy {
		t.Errorf("Invalid stored policy should fall back to %s, got %s", auth.DefaultUnparseablePolicy, got)
	}
}

func TestProgressInterval(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if got := settings.GetProgressInterval(); got != Default().ProgressInterval {
		t.Errorf("Expected default interval %v, got %v", Default().ProgressInterval, got)
	}

	settings.SetProgressInterval(500 * time.Millisecond)
	if got := settings.GetProgressInterval(); got != 500*time.Millisecond {
		t.Errorf("Expected interval 500ms, got %v", got)
	}

	// Test boundary values
	settings.SetProgressInterval(time.Millisecond)
	if settings.GetProgressInterval() != MinProgressInterval {
		t.Errorf("Interval should be clamped to minimum %v", MinProgressInterval)
	}

	settings.SetProgressInterval(time.Minute)
	if settings.GetProgressInterval() != MaxProgressInterval {
		t.Errorf("Interval should be clamped to maximum %v", MaxProgressInterval)
	}
}

func TestAutoOpenOnComplete(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.GetAutoOpenOnComplete() != DefaultAutoOpenCompleted {
		t.Errorf("Expected default auto open %v", DefaultAutoOpenCompleted)
	}

	settings.SetAutoOpenOnComplete(true)
	if !settings.GetAutoOpenOnComplete() {
		t.Error("Expected auto open to be enabled")
	}
}

func TestApplyTo(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)
	settings.SetStorageRoot("/data/spred")
	settings.SetStorageTier(TierModern)
	settings.SetUnparseablePolicy(auth.TreatUnparseableAsExpired)
	settings.SetProgressInterval(time.Second)

	cfg := Default()
	settings.ApplyTo(cfg)

	if cfg.StorageRoot != "/data/spred" {
		t.Errorf("StorageRoot = %s, expected /data/spred", cfg.StorageRoot)
	}
	if cfg.StorageTier != TierModern {
		t.Errorf("StorageTier = %s, expected %s", cfg.StorageTier, TierModern)
	}
	if cfg.UnparseableToken != string(auth.TreatUnparseableAsExpired) {
		t.Errorf("UnparseableToken = %s, expected expired", cfg.UnparseableToken)
	}
	if cfg.ProgressInterval != time.Second {
		t.Errorf("ProgressInterval = %v, expected 1s", cfg.ProgressInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
