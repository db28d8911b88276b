package negotiate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/spred/offline-downloader/internal/failure"
	"github.com/spred/offline-downloader/internal/model"
)

// Defaults for the content endpoint
const (
	DefaultBucketName       = "spredmedia-video-content"
	DefaultNarration        = "downloading video content"
	DefaultCurrency         = "NGN"
	DefaultPin              = "0000"
	DefaultTimeout          = 30 * time.Second
	DefaultMaxDirectPayload = 512 << 20
	DefaultProgressInterval = 250 * time.Millisecond
	maxEnvelopeSize         = 1 << 20
	readBufferSize          = 32 * 1024
)

// URLFields are probed in order for the download location in a JSON envelope
var URLFields = []string{"url", "data.url", "downloadUrl", "data.downloadUrl", "signedUrl", "data.signedUrl"}

// ErrEmptyEndpoint is returned when no content endpoint is configured
var ErrEmptyEndpoint = errors.New("negotiate: endpoint is empty")

var expiredAtPattern = regexp.MustCompile(`expired at '([^']+)'`)

var errStalled = fmt.Errorf("negotiate: no response data within timeout: %w", os.ErrDeadlineExceeded)

// ProgressFunc receives bytes read of an inline payload and its declared
// length, or -1 when unknown
type ProgressFunc func(read, total int64)

// TokenChecker decides whether a token may be sent to the server
type TokenChecker interface {
	Allow(token string) error
}

// Options configures a Negotiator
type Options struct {
	Endpoint         string
	BucketName       string
	Narration        string
	Currency         string
	Pin              string
	Amount           float64
	Headers          map[string]string // identity and bypass headers sent on every call
	Timeout          time.Duration     // maximum wait for headers and between body reads
	MaxDirectPayload int64
	ProgressInterval time.Duration
}

// DefaultOptions returns options for endpoint with the default payload values
func DefaultOptions(endpoint string) Options {
	return Options{
		Endpoint:         endpoint,
		BucketName:       DefaultBucketName,
		Narration:        DefaultNarration,
		Currency:         DefaultCurrency,
		Pin:              DefaultPin,
		Timeout:          DefaultTimeout,
		MaxDirectPayload: DefaultMaxDirectPayload,
		ProgressInterval: DefaultProgressInterval,
	}
}

type contentRequest struct {
	BucketName      string  `json:"bucketName"`
	Key             string  `json:"key"`
	Amount          float64 `json:"amount"`
	Narration       string  `json:"narration"`
	Currency        string  `json:"currency,omitempty"`
	DebitCurrency   string  `json:"debit_currency,omitempty"`
	DebitSubaccount string  `json:"debit_subaccount,omitempty"`
	UserID          string  `json:"userId"`
	Pin             string  `json:"pin"`
}

// Validate checks the options before use
func (o Options) Validate() error {
	if strings.TrimSpace(o.Endpoint) == "" {
		return ErrEmptyEndpoint
	}
	return nil
}

// Negotiator calls the content endpoint
type Negotiator struct {
	opts   Options
	client *http.Client
	tokens TokenChecker
	group  singleflight.Group
	logger *slog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by the callers of one in-flight request. It is
// cancelled when the last caller leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a negotiator. tokens may be nil to skip the local expiry check.
func New(opts Options, client *http.Client, tokens TokenChecker, logger *slog.Logger) *Negotiator {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxDirectPayload <= 0 {
		opts.MaxDirectPayload = DefaultMaxDirectPayload
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		opts:    opts,
		client:  client,
		tokens:  tokens,
		logger:  logger,
		flights: make(map[string]*flight),
	}
}

// Negotiate returns either a *model.DirectPayload or a *model.RemoteLocation.
// A call for a content key the same user is already negotiating waits for that
// request instead of issuing another one; onProgress, which may be nil, then
// stays with the caller that started it.
func (n *Negotiator) Negotiate(ctx context.Context, req model.TransferRequest, onProgress ProgressFunc) (model.TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if n.tokens != nil {
		if err := n.tokens.Allow(req.AuthToken); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("negotiate: missing user id: %w", failure.ErrAuthInvalid)
	}

	key := flightKey(req)
	f := n.join(ctx, key)
	defer n.leave(key, f)

	ch := n.group.DoChan(key, func() (any, error) {
		return n.do(f.ctx, req, onProgress)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			n.logger.Debug("joined in-flight negotiation", "key", req.ContentKey)
		}
		return res.Val.(model.TransferResult), nil
	}
}

func flightKey(req model.TransferRequest) string {
	return req.ContentKey + "\x00" + req.UserID
}

func (n *Negotiator) join(ctx context.Context, key string) *flight {
	n.mu.Lock()
	defer n.mu.Unlock()

	f, ok := n.flights[key]
	if !ok {
		// Detached so one caller leaving does not fail the others
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		n.flights[key] = f
	}
	f.waiters++
	return f
}

func (n *Negotiator) leave(key string, f *flight) {
	n.mu.Lock()
	defer n.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	n.group.Forget(key)
	if n.flights[key] == f {
		delete(n.flights, key)
	}
}

// do performs one request. The timeout bounds the wait for response headers
// and every gap between body reads, not the whole transfer.
func (n *Negotiator) do(ctx context.Context, req model.TransferRequest, onProgress ProgressFunc) (model.TransferResult, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	watchdog := time.AfterFunc(n.opts.Timeout, func() { cancel(errStalled) })
	defer watchdog.Stop()

	body, err := json.Marshal(n.payload(req))
	if err != nil {
		return nil, fmt.Errorf("negotiate: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("negotiate: build request: %w", err)
	}
	for k, v := range n.opts.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.AuthToken)

	n.logger.Debug("negotiating transfer", "key", req.ContentKey, "endpoint", n.opts.Endpoint)
	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, stalled(ctx, fmt.Errorf("negotiate: %w", err))
	}
	defer resp.Body.Close()
	watchdog.Reset(n.opts.Timeout)

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	reader := &watchedReader{r: resp.Body, watchdog: watchdog, timeout: n.opts.Timeout}
	var result model.TransferResult
	if isMediaType(resp.Header.Get("Content-Type")) {
		result, err = n.readDirect(resp, reader, req.ContentKey, onProgress)
	} else {
		result, err = n.readEnvelope(resp, reader)
	}
	if err != nil {
		return nil, stalled(ctx, err)
	}
	return result, nil
}

// stalled reports the read timeout instead of the cancellation it triggers
func stalled(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, errStalled) {
		return fmt.Errorf("%w (%v)", cause, err)
	}
	return err
}

// watchedReader pushes the watchdog back whenever data arrives
type watchedReader struct {
	r        io.Reader
	watchdog *time.Timer
	timeout  time.Duration
}

func (w *watchedReader) Read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	if n > 0 {
		w.watchdog.Reset(w.timeout)
	}
	return n, err
}

func (n *Negotiator) payload(req model.TransferRequest) contentRequest {
	p := contentRequest{
		BucketName: n.opts.BucketName,
		Key:        req.ContentKey,
		Amount:     n.opts.Amount,
		Narration:  n.opts.Narration,
		UserID:     req.UserID,
		Pin:        n.opts.Pin,
	}
	if req.WalletReference != "" {
		p.Currency = n.opts.Currency
		p.DebitCurrency = n.opts.Currency
		p.DebitSubaccount = req.WalletReference
	}
	return p
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	statusErr := &failure.StatusError{
		StatusCode:      resp.StatusCode,
		Status:          resp.Status,
		WWWAuthenticate: resp.Header.Get("WWW-Authenticate"),
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return statusErr
	}

	challenge := strings.ToLower(statusErr.WWWAuthenticate)
	if strings.Contains(challenge, "invalid_token") && strings.Contains(challenge, "expired") {
		if m := expiredAtPattern.FindStringSubmatch(statusErr.WWWAuthenticate); m != nil {
			return fmt.Errorf("%w at %s: %w", failure.ErrAuthExpired, m[1], statusErr)
		}
		return fmt.Errorf("%w: %w", failure.ErrAuthExpired, statusErr)
	}
	return fmt.Errorf("%w: %w", failure.ErrAuthInvalid, statusErr)
}

func (n *Negotiator) readDirect(resp *http.Response, body io.Reader, contentKey string, onProgress ProgressFunc) (*model.DirectPayload, error) {
	total := resp.ContentLength
	if total > n.opts.MaxDirectPayload {
		return nil, fmt.Errorf("negotiate: inline payload of %d bytes exceeds %d: %w", total, n.opts.MaxDirectPayload, failure.ErrMemoryExhausted)
	}

	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}
	throttle := &rate.Sometimes{Interval: n.opts.ProgressInterval}
	limited := io.LimitReader(body, n.opts.MaxDirectPayload+1)
	chunk := make([]byte, readBufferSize)
	for {
		k, err := limited.Read(chunk)
		if k > 0 {
			buf.Write(chunk[:k])
			if onProgress != nil {
				read := int64(buf.Len())
				throttle.Do(func() { onProgress(read, total) })
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("negotiate: read payload: %w", err)
		}
	}
	if int64(buf.Len()) > n.opts.MaxDirectPayload {
		return nil, fmt.Errorf("negotiate: inline payload exceeds %d bytes: %w", n.opts.MaxDirectPayload, failure.ErrMemoryExhausted)
	}

	data := buf.Bytes()
	declared := total
	if declared < 0 {
		declared = int64(len(data))
	}
	if onProgress != nil {
		onProgress(int64(len(data)), declared)
	}

	return &model.DirectPayload{
		Bytes:             data,
		DeclaredLength:    declared,
		SuggestedFilename: suggestedFilename(resp.Header.Get("Content-Disposition"), contentKey),
	}, nil
}

func (n *Negotiator) readEnvelope(resp *http.Response, body io.Reader) (*model.RemoteLocation, error) {
	contentType := resp.Header.Get("Content-Type")
	data, err := io.ReadAll(io.LimitReader(body, maxEnvelopeSize))
	if err != nil {
		return nil, fmt.Errorf("negotiate: read response: %w", err)
	}

	var envelope map[string]any
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("negotiate: response of type %q is neither media nor json: %w", contentType, failure.ErrNoLocation)
	}

	if location, ok := FindURL(envelope); ok {
		return &model.RemoteLocation{URL: location}, nil
	}
	return nil, fmt.Errorf("negotiate: none of %v present: %w", URLFields, failure.ErrNoLocation)
}

// FindURL returns the first non-empty string at one of URLFields
func FindURL(envelope map[string]any) (string, bool) {
	for _, field := range URLFields {
		var node any = envelope
		for _, part := range strings.Split(field, ".") {
			m, ok := node.(map[string]any)
			if !ok {
				node = nil
				break
			}
			node = m[part]
		}
		if s, ok := node.(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

func isMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/") ||
		strings.HasPrefix(mediaType, "audio/") ||
		mediaType == "application/octet-stream"
}

func suggestedFilename(disposition, contentKey string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}
	base := path.Base(strings.TrimRight(contentKey, "/"))
	if base == "." || base == "/" || base == "" {
		return ""
	}
	if path.Ext(base) == "" {
		base += ".mp4"
	}
	return base
}
