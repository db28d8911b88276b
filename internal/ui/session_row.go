package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/spred/offline-downloader/internal/download"
	"github.com/spred/offline-downloader/internal/model"
)

// SessionRow renders one transfer session
type SessionRow struct {
	widget.BaseWidget

	contentKey string
	progress   binding.Float

	titleLabel *widget.Label
	stateLabel *widget.Label
	bar        *widget.ProgressBar
	cancelBtn  *widget.Button
}

// NewSessionRow creates a row for a session. onCancel receives the content key.
func NewSessionRow(session *download.Session, onCancel func(contentKey string)) *SessionRow {
	req := session.Request()
	title := req.DisplayTitle
	if title == "" {
		title = req.ContentKey
	}

	r := &SessionRow{
		contentKey: req.ContentKey,
		progress:   binding.NewFloat(),
		titleLabel: widget.NewLabel(title),
		stateLabel: widget.NewLabel(""),
	}
	r.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	r.titleLabel.Truncation = fyne.TextTruncateEllipsis
	r.stateLabel.Alignment = fyne.TextAlignTrailing
	r.bar = widget.NewProgressBarWithData(r.progress)
	r.cancelBtn = widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		if onCancel != nil {
			onCancel(r.contentKey)
		}
	})
	r.cancelBtn.Importance = widget.LowImportance

	r.ExtendBaseWidget(r)
	r.Update(download.Event{State: session.State(), Progress: session.Progress()})
	return r
}

// Update renders e. It must run on the Fyne goroutine.
func (r *SessionRow) Update(e download.Event) {
	_ = r.progress.Set(e.Progress.Fraction)
	r.stateLabel.SetText(stateText(e))
	if e.Terminal() || e.State.IsFinished() {
		r.cancelBtn.Disable()
	}
}

// CreateRenderer implements fyne.Widget
func (r *SessionRow) CreateRenderer() fyne.WidgetRenderer {
	header := container.NewHBox(r.titleLabel, layout.NewSpacer(), r.stateLabel)
	body := container.NewVBox(header, r.bar)
	return widget.NewSimpleRenderer(container.NewBorder(nil, nil, nil, r.cancelBtn, body))
}

// stateText is the status line shown for an event
func stateText(e download.Event) string {
	if e.Outcome == nil {
		if e.State.IsActive() {
			return fmt.Sprintf("%s %d%%", e.State, e.Progress.Percent())
		}
		return e.State.String()
	}

	switch e.Outcome.Kind {
	case model.OutcomeCompleted:
		return "Saved"
	case model.OutcomeCancelled:
		return "Cancelled"
	}
	return e.Outcome.Failure.Remediation().Message()
}
