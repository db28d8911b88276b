package ui

import (
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/spred/offline-downloader/internal/auth"
	"github.com/spred/offline-downloader/internal/config"
)

// SettingsDialog edits the device preferences
type SettingsDialog struct {
	settings *config.Settings
	window   fyne.Window
	dialog   *dialog.ConfirmDialog

	storageRootEntry *widget.Entry
	tierSelect       *widget.Select
	policySelect     *widget.Select
	intervalEntry    *widget.Entry
	autoOpenCheck    *widget.Check
}

// NewSettingsDialog creates a new settings dialog
func NewSettingsDialog(settings *config.Settings, window fyne.Window) *SettingsDialog {
	sd := &SettingsDialog{
		settings: settings,
		window:   window,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	sd.storageRootEntry = widget.NewEntry()
	sd.storageRootEntry.SetPlaceHolder("Storage root")
	browseBtn := widget.NewButton("Browse", sd.onBrowseDirectory)
	storageRow := container.NewBorder(nil, nil, nil, browseBtn, sd.storageRootEntry)

	sd.tierSelect = widget.NewSelect(sd.settings.GetStorageTierOptions(), nil)
	sd.policySelect = widget.NewSelect([]string{
		string(auth.TreatUnparseableAsFresh),
		string(auth.TreatUnparseableAsExpired),
	}, nil)

	sd.intervalEntry = widget.NewEntry()
	sd.intervalEntry.SetPlaceHolder("milliseconds")

	sd.autoOpenCheck = widget.NewCheck("Open downloads when they finish", nil)

	form := container.NewVBox(
		widget.NewLabel("Storage root:"),
		storageRow,
		widget.NewLabel("Storage tier:"),
		sd.tierSelect,
		widget.NewLabel("Unreadable token expiry is treated as:"),
		sd.policySelect,
		widget.NewLabel("Progress update interval (ms):"),
		sd.intervalEntry,
		sd.autoOpenCheck,
		widget.NewLabel("Engine changes apply on next launch."),
	)

	sd.dialog = dialog.NewCustomConfirm("Settings", "Save", "Cancel", form, sd.onSave, sd.window)
	sd.dialog.Resize(fyne.NewSize(460, 380))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.storageRootEntry.SetText(sd.settings.GetStorageRoot())
	sd.tierSelect.SetSelected(sd.settings.GetStorageTier())
	sd.policySelect.SetSelected(string(sd.settings.GetUnparseablePolicy()))
	sd.intervalEntry.SetText(strconv.FormatInt(sd.settings.GetProgressInterval().Milliseconds(), 10))
	sd.autoOpenCheck.SetChecked(sd.settings.GetAutoOpenOnComplete())
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.storageRootEntry.SetText(uri.Path())
	}, sd.window)
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	if root := sd.storageRootEntry.Text; root != "" {
		sd.settings.SetStorageRoot(root)
	}
	if sd.tierSelect.Selected != "" {
		sd.settings.SetStorageTier(sd.tierSelect.Selected)
	}
	if sd.policySelect.Selected != "" {
		if policy, err := auth.ParsePolicy(sd.policySelect.Selected); err == nil {
			sd.settings.SetUnparseablePolicy(policy)
		}
	}
	if ms, err := strconv.Atoi(sd.intervalEntry.Text); err == nil {
		sd.settings.SetProgressInterval(time.Duration(ms) * time.Millisecond)
	}
	sd.settings.SetAutoOpenOnComplete(sd.autoOpenCheck.Checked)

	dialog.ShowInformation("Settings", "Settings saved.", sd.window)
}
