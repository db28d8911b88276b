package model

import (
	"errors"
	"testing"

	"github.com/spred/offline-downloader/internal/failure"
)

func TestTransferRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		request TransferRequest
		wantErr bool
	}{
		{"valid", TransferRequest{ContentKey: "videos/abc.mp4"}, false},
		{"empty key", TransferRequest{}, true},
		{"blank key", TransferRequest{ContentKey: "   "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyContentKey) {
				t.Errorf("Expected ErrEmptyContentKey, got %v", err)
			}
		})
	}
}

func TestTransferResultVariants(t *testing.T) {
	results := []TransferResult{
		&DirectPayload{Bytes: []byte("abc"), DeclaredLength: 3},
		&RemoteLocation{URL: "https://cdn.example.com/a.mp4"},
	}

	var direct, remote int
	for _, r := range results {
		switch r.(type) {
		case *DirectPayload:
			direct++
		case *RemoteLocation:
			remote++
		default:
			t.Fatalf("Unexpected result type %T", r)
		}
	}

	if direct != 1 || remote != 1 {
		t.Errorf("Expected one of each variant, got direct=%d remote=%d", direct, remote)
	}
}

func TestStorageTargetFileName(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/data/SpredVideos/My_Video.mp4", "My_Video.mp4"},
		{`C:\Users\me\SpredVideos\clip.mp4`, "clip.mp4"},
		{"clip.mp4", "clip.mp4"},
	}

	for _, tt := range tests {
		target := StorageTarget{FilePath: tt.path}
		if got := target.FileName(); got != tt.expected {
			t.Errorf("FileName(%q) = %q, expected %q", tt.path, got, tt.expected)
		}
	}
}

func TestProgressStatePercent(t *testing.T) {
	p := ProgressState{Fraction: 0.426, Phase: PhaseTransferring}
	if p.Percent() != 42 {
		t.Errorf("Expected 42 percent, got %d", p.Percent())
	}
}

func TestOutcomeConstructors(t *testing.T) {
	done := Completed("/tmp/a.mp4")
	if done.Kind != OutcomeCompleted || done.FilePath != "/tmp/a.mp4" {
		t.Errorf("Unexpected completed outcome: %+v", done)
	}

	fe := failure.New(failure.ErrAuthExpired)
	failed := Failed(fe)
	if failed.Kind != OutcomeFailed || failed.Failure != fe {
		t.Errorf("Unexpected failed outcome: %+v", failed)
	}

	if Cancelled().Kind != OutcomeCancelled {
		t.Error("Expected cancelled outcome")
	}
}
