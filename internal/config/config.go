package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spred/offline-downloader/internal/auth"
	"github.com/spred/offline-downloader/internal/encode"
	"github.com/spred/offline-downloader/internal/fetch"
	"github.com/spred/offline-downloader/internal/model"
	"github.com/spred/offline-downloader/internal/negotiate"
)

// AppID identifies the application to the OS and to fyne preferences
const AppID = "cc.spred.offline"

// Remote endpoints
const (
	DefaultAPIBase         = "https://www.spred.cc/api"
	DefaultContentEndpoint = DefaultAPIBase + "/ContentManager/Content/download-content"
	DefaultBalanceEndpoint = DefaultAPIBase + "/Payment/Enquiry/get-accountBalance"
)

// Storage tier selection values
const (
	TierAuto   = "auto"
	TierModern = "modern"
	TierLegacy = "legacy"
)

// Identity and bypass header names expected by the API gateway
const (
	HeaderBypassKey = "mobileAppByPassIVAndKey"
	HeaderUsername  = "username"
	HeaderPassword  = "password"
)

// EnvPrefix is the prefix of environment overrides, e.g. SPRED_READ_TIMEOUT
const EnvPrefix = "SPRED"

// Validation errors
var (
	ErrMissingContentEndpoint = errors.New("config: content_endpoint is required")
	ErrInvalidTimeout         = errors.New("config: timeouts must be positive")
	ErrInvalidChunkSize       = errors.New("config: chunk_size must be at least 3")
	ErrInvalidProgress        = errors.New("config: progress_interval must be positive")
	ErrInvalidStorageTier     = errors.New("config: storage_tier must be auto, modern or legacy")
	ErrIncompleteS3           = errors.New("config: s3.access_key and s3.secret_key must be set together")
)

// S3Config configures the s3:// source
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	SessionToken string `mapstructure:"session_token"`
	PathStyle    bool   `mapstructure:"path_style"`
}

// Enabled reports whether s3:// locations should be served
func (c S3Config) Enabled() bool {
	return c.Region != "" || c.Endpoint != ""
}

// Config is the engine configuration
type Config struct {
	ContentEndpoint  string        `mapstructure:"content_endpoint"`
	BalanceEndpoint  string        `mapstructure:"balance_endpoint"`
	BucketName       string        `mapstructure:"bucket_name"`
	Currency         string        `mapstructure:"currency"`
	Pin              string        `mapstructure:"pin"`
	BypassKey        string        `mapstructure:"bypass_key"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	NegotiateTimeout time.Duration `mapstructure:"negotiate_timeout"`
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
	ChunkSize        int           `mapstructure:"chunk_size"`
	MaxDirectPayload int64         `mapstructure:"max_direct_payload"`
	StorageRoot      string        `mapstructure:"storage_root"`
	StorageTier      string        `mapstructure:"storage_tier"`
	UnparseableToken string        `mapstructure:"unparseable_token"`
	S3               S3Config      `mapstructure:"s3"`
}

// Default returns the default engine configuration
func Default() *Config {
	return &Config{
		ContentEndpoint:  DefaultContentEndpoint,
		BalanceEndpoint:  DefaultBalanceEndpoint,
		BucketName:       negotiate.DefaultBucketName,
		Currency:         negotiate.DefaultCurrency,
		Pin:              negotiate.DefaultPin,
		ConnectTimeout:   fetch.DefaultConnectTimeout,
		ReadTimeout:      fetch.DefaultReadTimeout,
		NegotiateTimeout: negotiate.DefaultTimeout,
		ProgressInterval: fetch.DefaultProgressInterval,
		ChunkSize:        encode.DefaultChunkSize,
		MaxDirectPayload: negotiate.DefaultMaxDirectPayload,
		StorageTier:      TierAuto,
		UnparseableToken: string(auth.DefaultUnparseablePolicy),
	}
}

// SetDefaults registers every default with v so that environment variables
// are picked up for keys missing from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("content_endpoint", d.ContentEndpoint)
	v.SetDefault("balance_endpoint", d.BalanceEndpoint)
	v.SetDefault("bucket_name", d.BucketName)
	v.SetDefault("currency", d.Currency)
	v.SetDefault("pin", d.Pin)
	v.SetDefault("bypass_key", "")
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("read_timeout", d.ReadTimeout)
	v.SetDefault("negotiate_timeout", d.NegotiateTimeout)
	v.SetDefault("progress_interval", d.ProgressInterval)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("max_direct_payload", d.MaxDirectPayload)
	v.SetDefault("storage_root", "")
	v.SetDefault("storage_tier", d.StorageTier)
	v.SetDefault("unparseable_token", d.UnparseableToken)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.session_token", "")
	v.SetDefault("s3.path_style", false)
}

// Load reads the configuration from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ContentEndpoint) == "" {
		return ErrMissingContentEndpoint
	}
	if c.ConnectTimeout <= 0 || c.ReadTimeout <= 0 || c.NegotiateTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ChunkSize < 3 {
		return ErrInvalidChunkSize
	}
	if c.ProgressInterval <= 0 {
		return ErrInvalidProgress
	}
	if _, err := c.Tier(); err != nil {
		return err
	}
	if _, err := auth.ParsePolicy(c.UnparseableToken); err != nil {
		return err
	}
	if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		return ErrIncompleteS3
	}
	return nil
}

// Tier returns the configured storage tier, or "" for detection
func (c *Config) Tier() (model.StorageTier, error) {
	switch strings.ToLower(c.StorageTier) {
	case "", TierAuto:
		return "", nil
	case TierModern:
		return model.TierModernScoped, nil
	case TierLegacy:
		return model.TierLegacyPermissioned, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStorageTier, c.StorageTier)
}

// Headers returns the identity headers sent with every API call
func (c *Config) Headers() map[string]string {
	headers := map[string]string{}
	if c.BypassKey != "" {
		headers[HeaderBypassKey] = c.BypassKey
	}
	if c.Username != "" {
		headers[HeaderUsername] = c.Username
	}
	if c.Password != "" {
		headers[HeaderPassword] = c.Password
	}
	return headers
}

// FetchOptions returns the stream downloader options
func (c *Config) FetchOptions() fetch.Options {
	opts := fetch.DefaultOptions()
	opts.ConnectTimeout = c.ConnectTimeout
	opts.ReadTimeout = c.ReadTimeout
	opts.ProgressInterval = c.ProgressInterval
	return opts
}

// NegotiateOptions returns the content endpoint options
func (c *Config) NegotiateOptions() negotiate.Options {
	opts := negotiate.DefaultOptions(c.ContentEndpoint)
	opts.BucketName = c.BucketName
	opts.Currency = c.Currency
	opts.Pin = c.Pin
	opts.Headers = c.Headers()
	opts.Timeout = c.NegotiateTimeout
	opts.MaxDirectPayload = c.MaxDirectPayload
	opts.ProgressInterval = c.ProgressInterval
	return opts
}

// S3Options returns the S3 source options
func (c *Config) S3Options() fetch.S3Config {
	return fetch.S3Config{
		Endpoint:     c.S3.Endpoint,
		Region:       c.S3.Region,
		AccessKey:    c.S3.AccessKey,
		SecretKey:    c.S3.SecretKey,
		SessionToken: c.S3.SessionToken,
		UsePathStyle: c.S3.PathStyle,
	}
}
