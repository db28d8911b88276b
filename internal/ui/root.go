package ui

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/spred/offline-downloader/internal/config"
	"github.com/spred/offline-downloader/internal/download"
	"github.com/spred/offline-downloader/internal/model"
)

// RootUI represents the main window content
type RootUI struct {
	window   fyne.Window
	engine   download.Engine
	settings *config.Settings
	logger   *slog.Logger
	open     func(path string) error // opens completed files

	keyEntry    *widget.Entry
	titleEntry  *widget.Entry
	tokenEntry  *widget.Entry
	userEntry   *widget.Entry
	walletEntry *widget.Entry
	downloadBtn *widget.Button

	sessionBox    *fyne.Container
	rows          map[string]*SessionRow // by session ID, touched on the Fyne goroutine only
	downloadsList *widget.List
	downloads     []download.Download
}

// NewRootUI builds the main window content and subscribes to engine events
func NewRootUI(window fyne.Window, engine download.Engine, settings *config.Settings, logger *slog.Logger) *RootUI {
	if logger == nil {
		logger = slog.Default()
	}
	ui := &RootUI{
		window:   window,
		engine:   engine,
		settings: settings,
		logger:   logger,
		open:     openFile,
		rows:     make(map[string]*SessionRow),
	}

	engine.SetUpdateCallback(ui.onEvent)
	window.SetOnClosed(engine.Close)

	ui.setupUI()
	ui.refreshDownloads()
	return ui
}

func (ui *RootUI) setupUI() {
	ui.keyEntry = widget.NewEntry()
	ui.keyEntry.SetPlaceHolder("Content key, e.g. videos/sermon-01.mp4")
	ui.keyEntry.Validator = func(s string) error {
		if strings.TrimSpace(s) == "" {
			return model.ErrEmptyContentKey
		}
		return nil
	}
	ui.keyEntry.OnSubmitted = func(string) { ui.onDownloadClick() }

	ui.titleEntry = widget.NewEntry()
	ui.titleEntry.SetPlaceHolder("Title (optional)")
	ui.tokenEntry = widget.NewPasswordEntry()
	ui.tokenEntry.SetPlaceHolder("Bearer token")
	ui.userEntry = widget.NewEntry()
	ui.userEntry.SetPlaceHolder("User id")
	ui.walletEntry = widget.NewEntry()
	ui.walletEntry.SetPlaceHolder("Wallet (paid content only)")

	ui.downloadBtn = widget.NewButtonWithIcon("Download", theme.DownloadIcon(), ui.onDownloadClick)
	ui.downloadBtn.Importance = widget.HighImportance

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		NewSettingsDialog(ui.settings, ui.window).Show()
	})
	balanceBtn := widget.NewButton("Balance", ui.onBalanceClick)

	form := widget.NewForm(
		widget.NewFormItem("Key", ui.keyEntry),
		widget.NewFormItem("Title", ui.titleEntry),
		widget.NewFormItem("Token", ui.tokenEntry),
		widget.NewFormItem("User", ui.userEntry),
		widget.NewFormItem("Wallet", ui.walletEntry),
	)
	actions := container.NewHBox(settingsBtn, balanceBtn, ui.downloadBtn)
	top := container.NewVBox(form, container.NewBorder(nil, nil, nil, actions))

	ui.sessionBox = container.NewVBox()

	ui.downloadsList = widget.NewList(
		func() int { return len(ui.downloads) },
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil, widget.NewLabel(""), widget.NewLabel(""))
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if id >= len(ui.downloads) {
				return
			}
			d := ui.downloads[id]
			border := item.(*fyne.Container)
			name := border.Objects[0].(*widget.Label)
			when := border.Objects[1].(*widget.Label)
			name.SetText(downloadName(d))
			when.SetText(downloadTime(d))
		},
	)

	tabs := container.NewAppTabs(
		container.NewTabItem("Active", container.NewVScroll(ui.sessionBox)),
		container.NewTabItem("Downloaded", ui.downloadsList),
	)
	ui.window.SetContent(container.NewBorder(top, nil, nil, nil, tabs))
}

func (ui *RootUI) request() model.TransferRequest {
	return model.TransferRequest{
		ContentKey:      strings.TrimSpace(ui.keyEntry.Text),
		DisplayTitle:    strings.TrimSpace(ui.titleEntry.Text),
		AuthToken:       strings.TrimSpace(ui.tokenEntry.Text),
		UserID:          strings.TrimSpace(ui.userEntry.Text),
		WalletReference: strings.TrimSpace(ui.walletEntry.Text),
	}
}

func (ui *RootUI) onDownloadClick() {
	req := ui.request()
	if err := req.Validate(); err != nil {
		dialog.ShowError(err, ui.window)
		return
	}

	if path, ok := ui.engine.CheckExisting(req.ContentKey, req.DisplayTitle); ok {
		msg := fmt.Sprintf("%s is already saved. Download it again?", filepath.Base(path))
		dialog.ShowConfirm("Already downloaded", msg, func(again bool) {
			if again {
				ui.start(req)
			}
		}, ui.window)
		return
	}
	ui.start(req)
}

func (ui *RootUI) start(req model.TransferRequest) {
	session, err := ui.engine.Start(context.Background(), req)
	if err != nil {
		dialog.ShowError(err, ui.window)
		return
	}
	if _, ok := ui.rows[session.ID()]; ok {
		dialog.ShowInformation("Download", "This content is already downloading.", ui.window)
		return
	}

	row := NewSessionRow(session, ui.onCancel)
	ui.rows[session.ID()] = row
	ui.sessionBox.Add(row)
}

func (ui *RootUI) onCancel(contentKey string) {
	if err := ui.engine.Cancel(contentKey); err != nil {
		ui.logger.Debug("cancel ignored", "key", contentKey, "error", err)
	}
}

func (ui *RootUI) onBalanceClick() {
	req := ui.request()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		balance := ui.engine.Balance(ctx, req.AuthToken, req.WalletReference)

		msg := fmt.Sprintf("Available: %.2f %s", balance.Available, balance.Currency)
		if balance.Degraded {
			msg = "Balance is unavailable right now. Free content can still be downloaded."
		}
		fyne.Do(func() {
			dialog.ShowInformation("Wallet", msg, ui.window)
		})
	}()
}

// onEvent runs on session goroutines
func (ui *RootUI) onEvent(e download.Event) {
	fyne.Do(func() {
		row, ok := ui.rows[e.SessionID]
		if !ok {
			return
		}
		row.Update(e)

		if e.Terminal() {
			ui.refreshDownloads()
			if e.Outcome.Kind == model.OutcomeFailed && !e.Outcome.Failure.Retryable() {
				dialog.ShowInformation("Download", e.Outcome.Failure.Remediation().Message(), ui.window)
			}
			if path, ok := autoOpenPath(e, ui.settings != nil && ui.settings.GetAutoOpenOnComplete()); ok {
				if err := ui.open(path); err != nil {
					ui.logger.Warn("failed to open download", "path", path, "error", err)
				}
			}
		}
	})
}

// autoOpenPath returns the file to open for a completed session
func autoOpenPath(e download.Event, enabled bool) (string, bool) {
	if !enabled || !e.Terminal() || e.Outcome.Kind != model.OutcomeCompleted || e.Outcome.FilePath == "" {
		return "", false
	}
	return e.Outcome.FilePath, true
}

func openFile(path string) error {
	u, err := url.Parse(storage.NewFileURI(path).String())
	if err != nil {
		return err
	}
	return fyne.CurrentApp().OpenURL(u)
}

func (ui *RootUI) refreshDownloads() {
	downloads, err := ui.engine.ListDownloads()
	if err != nil {
		ui.logger.Warn("failed to list downloads", "error", err)
		return
	}
	ui.downloads = downloads
	if ui.downloadsList != nil {
		ui.downloadsList.Refresh()
	}
}

func downloadName(d download.Download) string {
	if d.Metadata != nil && d.Metadata.OriginalTitle != "" {
		return d.Metadata.OriginalTitle
	}
	return filepath.Base(d.FilePath)
}

func downloadTime(d download.Download) string {
	if d.Metadata == nil {
		return ""
	}
	return time.UnixMilli(d.Metadata.DownloadedAtEpochMs).Format("2006-01-02 15:04")
}
