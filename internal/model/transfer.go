package model

import (
	"errors"
	"strings"

	"github.com/spred/offline-downloader/internal/failure"
)

// ErrEmptyContentKey is returned when a request does not name any content
var ErrEmptyContentKey = errors.New("model: content key is empty")

// TransferRequest is one user-initiated download. It is not modified after creation.
type TransferRequest struct {
	ContentKey      string // object key in the content bucket
	DisplayTitle    string // optional, used for the local filename
	AuthToken       string // bearer token
	UserID          string
	WalletReference string // optional; enables currency and debit fields
}

// Validate checks the request can be handed to the engine
func (r TransferRequest) Validate() error {
	if strings.TrimSpace(r.ContentKey) == "" {
		return ErrEmptyContentKey
	}
	return nil
}

// TransferResult is the outcome of a negotiation: either a *DirectPayload or a
// *RemoteLocation.
type TransferResult interface {
	transferResult()
}

// DirectPayload carries the media bytes returned inline by the content endpoint
type DirectPayload struct {
	Bytes             []byte
	DeclaredLength    int64  // Content-Length when the server sent one, else len(Bytes)
	SuggestedFilename string // from Content-Disposition, may be empty
}

// RemoteLocation points to the media for a subsequent streamed fetch
type RemoteLocation struct {
	URL string
}

func (*DirectPayload) transferResult()  {}
func (*RemoteLocation) transferResult() {}

// StorageTier is the storage-permission model of the device
type StorageTier string

const (
	// TierModernScoped is an app-scoped directory that needs no extra permission
	TierModernScoped StorageTier = "ModernScoped"

	// TierLegacyPermissioned is a directory that needs an explicit storage permission
	TierLegacyPermissioned StorageTier = "LegacyPermissioned"
)

// String returns the string representation of StorageTier
func (t StorageTier) String() string {
	return string(t)
}

// StorageTarget is the computed destination of a download
type StorageTarget struct {
	RootDirectory string
	FolderName    string
	FilePath      string
	Tier          StorageTier
}

// FileName returns the last element of FilePath
func (t StorageTarget) FileName() string {
	if i := strings.LastIndexAny(t.FilePath, `/\`); i >= 0 {
		return t.FilePath[i+1:]
	}
	return t.FilePath
}

// TransferMetadata is the sidecar descriptor written next to a completed download
type TransferMetadata struct {
	OriginalTitle       string `json:"originalTitle"`
	OriginalKey         string `json:"originalKey"`
	DownloadedAtEpochMs int64  `json:"downloadedAtEpochMs"`
	DeclaredSizeBytes   int64  `json:"declaredSizeBytes"`
	ActualSizeBytes     int64  `json:"actualSizeBytes"`
	SafeFileName        string `json:"safeFileName"`
}

// Phase names the stage a progress value belongs to
type Phase string

const (
	PhaseNegotiating  Phase = "Negotiating"
	PhaseTransferring Phase = "Transferring"
	PhaseEncoding     Phase = "Encoding"
	PhaseFinalizing   Phase = "Finalizing"
)

// ProgressState is a point-in-time progress snapshot of a session
type ProgressState struct {
	Fraction float64 // 0.0 to 1.0, never decreases within a session
	Phase    Phase
}

// Percent returns Fraction as a whole percentage
func (p ProgressState) Percent() int {
	return int(p.Fraction * 100)
}

// OutcomeKind tags a TransferOutcome
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "Completed"
	OutcomeFailed    OutcomeKind = "Failed"
	OutcomeCancelled OutcomeKind = "Cancelled"
)

// TransferOutcome is the terminal report of a session
type TransferOutcome struct {
	Kind     OutcomeKind
	FilePath string         // set when Completed
	Failure  *failure.Error // set when Failed
}

// Completed returns a successful outcome for filePath
func Completed(filePath string) TransferOutcome {
	return TransferOutcome{Kind: OutcomeCompleted, FilePath: filePath}
}

// Failed returns a failed outcome carrying the classified error
func Failed(err *failure.Error) TransferOutcome {
	return TransferOutcome{Kind: OutcomeFailed, Failure: err}
}

// Cancelled returns the outcome of a cancelled session
func Cancelled() TransferOutcome {
	return TransferOutcome{Kind: OutcomeCancelled}
}
