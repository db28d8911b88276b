package download

import (
	"context"

	"github.com/spred/offline-downloader/internal/fetch"
	"github.com/spred/offline-downloader/internal/model"
	"github.com/spred/offline-downloader/internal/negotiate"
)

// Negotiator resolves a request into a transfer mode
type Negotiator interface {
	Negotiate(ctx context.Context, req model.TransferRequest, onProgress negotiate.ProgressFunc) (model.TransferResult, error)
}

// Fetcher streams a remote location into a local file
type Fetcher interface {
	Download(ctx context.Context, rawURL, destinationPath string, onProgress fetch.ProgressFunc) (int64, error)
}

// BalanceChecker reports the wallet balance, degrading instead of failing
type BalanceChecker interface {
	Balance(ctx context.Context, token, walletReference string) negotiate.Balance
}

// Engine defines the interface exposed to the UI and the CLI.
type Engine interface {
	SetUpdateCallback(func(Event))
	Start(ctx context.Context, req model.TransferRequest) (*Session, error)
	Session(contentKey string) (*Session, bool)
	ActiveSessions() []*Session
	Cancel(contentKey string) error
	CheckExisting(contentKey, displayTitle string) (string, bool)
	ListDownloads() ([]Download, error)
	Balance(ctx context.Context, token, walletReference string) negotiate.Balance
	Close()
}
