package ui

import (
	"testing"

	"github.com/spred/offline-downloader/internal/download"
	"github.com/spred/offline-downloader/internal/failure"
	"github.com/spred/offline-downloader/internal/model"
)

func TestStateText(t *testing.T) {
	completed := model.Completed("/tmp/a.mp4")
	cancelled := model.Cancelled()
	failed := model.Failed(failure.New(failure.ErrMemoryExhausted))

	tests := []struct {
		name     string
		event    download.Event
		expected string
	}{
		{"idle", download.Event{State: model.SessionStateIdle}, "Idle"},
		{
			"streaming",
			download.Event{
				State:    model.SessionStateStreamWriting,
				Progress: model.ProgressState{Fraction: 0.41, Phase: model.PhaseTransferring},
			},
			"StreamWriting 41%",
		},
		{"completed", download.Event{State: model.SessionStateCompleted, Outcome: &completed}, "Saved"},
		{"cancelled", download.Event{State: model.SessionStateCancelled, Outcome: &cancelled}, "Cancelled"},
		{"failed", download.Event{State: model.SessionStateFailed, Outcome: &failed}, failure.RemediationFreeResources.Message()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stateText(tt.event); got != tt.expected {
				t.Errorf("stateText() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestDownloadName(t *testing.T) {
	bare := download.Download{FilePath: "/data/SpredVideos/clip.mp4"}
	if got := downloadName(bare); got != "clip.mp4" {
		t.Errorf("downloadName() = %q, expected clip.mp4", got)
	}
	if got := downloadTime(bare); got != "" {
		t.Errorf("downloadTime() = %q, expected empty", got)
	}

	described := download.Download{
		FilePath: "/data/SpredVideos/clip.mp4",
		Metadata: &model.TransferMetadata{OriginalTitle: "Sermon One", DownloadedAtEpochMs: 1},
	}
	if got := downloadName(described); got != "Sermon One" {
		t.Errorf("downloadName() = %q, expected Sermon One", got)
	}
}

func TestAutoOpenPath(t *testing.T) {
	completed := model.Completed("/data/SpredVideos/clip.mp4")
	cancelled := model.Cancelled()
	failed := model.Failed(failure.New(failure.ErrNoLocation))

	tests := []struct {
		name     string
		event    download.Event
		enabled  bool
		expected string
	}{
		{"completed", download.Event{State: model.SessionStateCompleted, Outcome: &completed}, true, "/data/SpredVideos/clip.mp4"},
		{"disabled", download.Event{State: model.SessionStateCompleted, Outcome: &completed}, false, ""},
		{"cancelled", download.Event{State: model.SessionStateCancelled, Outcome: &cancelled}, true, ""},
		{"failed", download.Event{State: model.SessionStateFailed, Outcome: &failed}, true, ""},
		{"in progress", download.Event{State: model.SessionStateStreamWriting}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := autoOpenPath(tt.event, tt.enabled)
			if path != tt.expected || ok != (tt.expected != "") {
				t.Errorf("autoOpenPath() = %q, %v, expected %q", path, ok, tt.expected)
			}
		})
	}
}
