package download

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spred/offline-downloader/internal/auth"
	"github.com/spred/offline-downloader/internal/config"
	"github.com/spred/offline-downloader/internal/encode"
	"github.com/spred/offline-downloader/internal/fetch"
	"github.com/spred/offline-downloader/internal/metadata"
	"github.com/spred/offline-downloader/internal/negotiate"
	"github.com/spred/offline-downloader/internal/platform"
)

// NewServiceFromConfig wires a Service from the engine configuration
func NewServiceFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	policy, err := auth.ParsePolicy(cfg.UnparseableToken)
	if err != nil {
		return nil, err
	}
	tokens := auth.NewValidator(policy)

	fetchOpts := cfg.FetchOptions()
	client := fetch.NewHTTPClient(fetchOpts)

	fetcher := fetch.New(fetchOpts, logger)
	if cfg.S3.Enabled() {
		src, err := fetch.NewS3Source(ctx, cfg.S3Options(), client)
		if err != nil {
			return nil, fmt.Errorf("download: configure s3 source: %w", err)
		}
		fetcher.Register("s3", src)
	}

	root := cfg.StorageRoot
	if root == "" {
		if root, err = platform.DefaultStorageRoot(config.AppID); err != nil {
			return nil, err
		}
	}
	tier, err := cfg.Tier()
	if err != nil {
		return nil, err
	}

	var balance BalanceChecker
	if cfg.BalanceEndpoint != "" {
		balance = negotiate.NewBalanceClient(cfg.BalanceEndpoint, cfg.Currency, cfg.Headers(), client, logger)
	}

	logger.Debug("engine configured",
		"endpoint", cfg.ContentEndpoint,
		"root", root,
		"policy", policy,
		"s3", cfg.S3.Enabled())

	return NewService(Components{
		Negotiator: negotiate.New(cfg.NegotiateOptions(), client, tokens, logger),
		Fetcher:    fetcher,
		Locator:    platform.NewLocator(root, tier, logger),
		Encoder:    encode.NewEncoder(cfg.ChunkSize, logger),
		Metadata:   metadata.NewWriter(logger),
		Balance:    balance,
		Logger:     logger,
	})
}
