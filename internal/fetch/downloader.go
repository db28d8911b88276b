package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/spred/offline-downloader/internal/failure"
	"github.com/spred/offline-downloader/internal/platform"
)

// Default transfer settings
const (
	DefaultConnectTimeout   = 30 * time.Second
	DefaultReadTimeout      = 60 * time.Second
	DefaultProgressInterval = 250 * time.Millisecond
	DefaultBufferSize       = 32 * 1024
)

var (
	// ErrUnsupportedScheme is returned for locations no source can open
	ErrUnsupportedScheme = errors.New("fetch: unsupported url scheme")

	// ErrShortBody is returned when fewer bytes arrive than the server declared
	ErrShortBody = fmt.Errorf("fetch: body shorter than declared length: %w", io.ErrUnexpectedEOF)

	errIdle = fmt.Errorf("fetch: no data within read timeout: %w", os.ErrDeadlineExceeded)
)

// Options configures a Downloader
type Options struct {
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration // maximum gap between received bytes
	ProgressInterval time.Duration
	BufferSize       int
}

// DefaultOptions returns the default transfer options
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:   DefaultConnectTimeout,
		ReadTimeout:      DefaultReadTimeout,
		ProgressInterval: DefaultProgressInterval,
		BufferSize:       DefaultBufferSize,
	}
}

// ProgressFunc receives bytes written and the declared length, or -1 when unknown
type ProgressFunc func(written, total int64)

// Source opens a remote object for reading
type Source interface {
	Open(ctx context.Context, location *url.URL) (body io.ReadCloser, size int64, err error)
}

// NewHTTPClient returns a client that bounds connection setup by
// ConnectTimeout and waiting for response headers by ReadTimeout.
func NewHTTPClient(opts Options) *http.Client {
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   opts.ConnectTimeout,
			ResponseHeaderTimeout: opts.ReadTimeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          10,
		},
	}
}

// Downloader streams remote objects into files
type Downloader struct {
	opts    Options
	sources map[string]Source
	logger  *slog.Logger
}

// New creates a downloader with http and https sources
func New(opts Options, logger *slog.Logger) *Downloader {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpSource := &HTTPSource{Client: NewHTTPClient(opts)}
	return &Downloader{
		opts: opts,
		sources: map[string]Source{
			"http":  httpSource,
			"https": httpSource,
		},
		logger: logger,
	}
}

// Register adds or replaces the source for a url scheme
func (d *Downloader) Register(scheme string, src Source) {
	d.sources[strings.ToLower(scheme)] = src
}

// Download streams rawURL into destinationPath and returns the bytes written.
// On any error, including cancellation, nothing is left at destinationPath
// and an existing file there is kept unchanged.
func (d *Downloader) Download(ctx context.Context, rawURL, destinationPath string, onProgress ProgressFunc) (int64, error) {
	location, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("fetch: invalid url: %w", err)
	}
	src, ok := d.sources[strings.ToLower(location.Scheme)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedScheme, location.Scheme)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	body, size, err := src.Open(ctx, location)
	if err != nil {
		return 0, d.cause(ctx, err)
	}
	defer body.Close()

	pending, err := platform.CreatePending(destinationPath)
	if err != nil {
		return 0, err
	}

	reader := newIdleReader(body, d.opts.ReadTimeout, cancel)
	defer reader.stop()

	written, err := d.copy(ctx, pending, reader, size, onProgress)
	if err != nil {
		pending.Abort()
		return written, err
	}
	if err := pending.Commit(); err != nil {
		return written, err
	}

	if onProgress != nil {
		onProgress(written, size)
	}
	d.logger.Debug("stream download complete", "path", destinationPath, "bytes", written)
	return written, nil
}

func (d *Downloader) copy(ctx context.Context, dst io.Writer, src io.Reader, size int64, onProgress ProgressFunc) (int64, error) {
	throttle := &rate.Sometimes{Interval: d.opts.ProgressInterval}
	buf := make([]byte, d.opts.BufferSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, d.cause(ctx, err)
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("fetch: write: %w", err)
			}
			written += int64(n)
			if onProgress != nil {
				throttle.Do(func() { onProgress(written, size) })
			}
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return written, d.cause(ctx, rerr)
		}
	}

	if size >= 0 && written < size {
		return written, ErrShortBody
	}
	return written, nil
}

// cause prefers the idle timeout over the generic cancellation it triggers
func (d *Downloader) cause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, errIdle) {
		return cause
	}
	return err
}

// idleReader cancels the transfer when no bytes arrive within timeout
type idleReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
}

func newIdleReader(r io.Reader, timeout time.Duration, cancel context.CancelCauseFunc) *idleReader {
	ir := &idleReader{r: r, timeout: timeout}
	if timeout > 0 {
		ir.timer = time.AfterFunc(timeout, func() { cancel(errIdle) })
	}
	return ir
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 && ir.timer != nil {
		ir.timer.Reset(ir.timeout)
	}
	return n, err
}

func (ir *idleReader) stop() {
	if ir.timer != nil {
		ir.timer.Stop()
	}
}

// HTTPSource opens http and https locations with GET
type HTTPSource struct {
	Client *http.Client
}

// Open issues the request and returns the body and Content-Length
func (s *HTTPSource) Open(ctx context.Context, location *url.URL) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: build request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, 0, &failure.StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, resp.ContentLength, nil
}
