package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spred/offline-downloader/internal/encode"
	"github.com/spred/offline-downloader/internal/failure"
	"github.com/spred/offline-downloader/internal/metadata"
	"github.com/spred/offline-downloader/internal/model"
	"github.com/spred/offline-downloader/internal/negotiate"
	"github.com/spred/offline-downloader/internal/platform"
)

// ErrSessionNotFound is returned when no session is active for a content key
var ErrSessionNotFound = errors.New("download: no active session for content key")

// ErrServiceClosed is returned by Start after Close
var ErrServiceClosed = errors.New("download: service closed")

// receiveShare is the part of the transfer band spent receiving an inline
// payload; encoding it to disk takes the rest
const receiveShare = 0.8

var _ Engine = (*Service)(nil)

// Components are the collaborators of a Service
type Components struct {
	Negotiator Negotiator
	Fetcher    Fetcher
	Locator    *platform.Locator
	Encoder    *encode.Encoder   // defaults to encode.DefaultChunkSize
	Metadata   *metadata.Writer  // defaults to a new writer
	Balance    BalanceChecker    // optional
	Logger     *slog.Logger      // defaults to slog.Default()
	Now        func() time.Time  // defaults to time.Now
	Scanner    func(path string) // defaults to platform.NotifyMediaScanner
}

// Download is a content file found in the storage folders
type Download struct {
	FilePath string
	Metadata *model.TransferMetadata // nil when the sidecar is missing or unreadable
}

// Service runs transfer sessions, at most one per content key
type Service struct {
	negotiator Negotiator
	fetcher    Fetcher
	locator    *platform.Locator
	encoder    *encode.Encoder
	metadata   *metadata.Writer
	balance    BalanceChecker
	logger     *slog.Logger
	now        func() time.Time
	scanner    func(string)

	sessionsMutex sync.RWMutex
	sessions      map[string]*Session // active sessions by content key
	closed        bool
	onUpdate      func(Event) // callback for UI updates
	wg            sync.WaitGroup
}

// NewService creates a new download service
func NewService(c Components) (*Service, error) {
	if c.Negotiator == nil || c.Fetcher == nil || c.Locator == nil {
		return nil, fmt.Errorf("download: negotiator, fetcher and locator are required")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Encoder == nil {
		c.Encoder = encode.NewEncoder(encode.DefaultChunkSize, c.Logger)
	}
	if c.Metadata == nil {
		c.Metadata = metadata.NewWriter(c.Logger)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Scanner == nil {
		c.Scanner = platform.NotifyMediaScanner
	}

	return &Service{
		negotiator: c.Negotiator,
		fetcher:    c.Fetcher,
		locator:    c.Locator.WithOwners(metadata.Owner),
		encoder:    c.Encoder,
		metadata:   c.Metadata,
		balance:    c.Balance,
		logger:     c.Logger,
		now:        c.Now,
		scanner:    c.Scanner,
		sessions:   make(map[string]*Session),
	}, nil
}

// SetUpdateCallback sets the callback receiving the events of every session.
// It runs on the session goroutine and must not block.
func (s *Service) SetUpdateCallback(callback func(Event)) {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()
	s.onUpdate = callback
}

// Start begins a transfer for req, or returns the session already running
// for req.ContentKey. The session stops when ctx is cancelled.
func (s *Service) Start(ctx context.Context, req model.TransferRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	if s.closed {
		return nil, ErrServiceClosed
	}
	if existing, ok := s.sessions[req.ContentKey]; ok && !existing.State().IsFinished() {
		existing.logger.Info("joining active session")
		return existing, nil
	}

	session := newSession(ctx, req, s.notifyUpdate, s.logger)
	s.sessions[req.ContentKey] = session

	s.wg.Add(1)
	go s.run(session)

	session.logger.Info("session started", "title", req.DisplayTitle)
	return session, nil
}

// Session returns the active session for contentKey
func (s *Service) Session(contentKey string) (*Session, bool) {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()
	session, ok := s.sessions[contentKey]
	return session, ok
}

// ActiveSessions returns every running session, oldest first
func (s *Service) ActiveSessions() []*Session {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()

	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt().Before(sessions[j].StartedAt())
	})
	return sessions
}

// Cancel stops the active session for contentKey
func (s *Service) Cancel(contentKey string) error {
	session, ok := s.Session(contentKey)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, contentKey)
	}
	session.Cancel()
	return nil
}

// CheckExisting returns the path of a completed download of contentKey. It
// probes every folder convention by filename, then falls back to sidecars.
func (s *Service) CheckExisting(contentKey, displayTitle string) (string, bool) {
	if path, ok := s.locator.CheckExisting(contentKey, displayTitle); ok {
		return path, true
	}
	return metadata.Find(s.locator.Folders(), contentKey)
}

// ListDownloads returns the content files in every folder convention
func (s *Service) ListDownloads() ([]Download, error) {
	files, err := s.locator.ListContentFiles()
	if err != nil {
		return nil, err
	}

	downloads := make([]Download, 0, len(files))
	for _, file := range files {
		d := Download{FilePath: file}
		md, err := metadata.Read(file)
		switch {
		case err == nil:
			d.Metadata = &md
		case !errors.Is(err, os.ErrNotExist):
			s.logger.Warn("failed to read sidecar", "path", file, "error", err)
		}
		downloads = append(downloads, d)
	}
	return downloads, nil
}

// Balance returns the wallet balance, or a degraded zero balance when no
// balance endpoint is configured.
func (s *Service) Balance(ctx context.Context, token, walletReference string) negotiate.Balance {
	if s.balance == nil {
		return negotiate.Balance{Currency: negotiate.DefaultCurrency, Degraded: true}
	}
	return s.balance.Balance(ctx, token, walletReference)
}

// Close cancels every active session and waits for them to finish
func (s *Service) Close() {
	s.sessionsMutex.Lock()
	s.closed = true
	for _, session := range s.sessions {
		session.Cancel()
	}
	s.sessionsMutex.Unlock()

	s.wg.Wait()
}

func (s *Service) run(session *Session) {
	defer s.wg.Done()

	outcome := s.execute(session)
	s.release(session)
	switch outcome.Kind {
	case model.OutcomeFailed:
		session.logger.Warn("session failed",
			"kind", outcome.Failure.Kind,
			"cause", outcome.Failure.Cause,
			"remediation", outcome.Failure.Remediation(),
			"error", outcome.Failure.Err)
	case model.OutcomeCancelled:
		session.logger.Info("session cancelled")
	default:
		session.logger.Info("session completed", "path", outcome.FilePath)
	}
	session.finish(outcome)
}

// release forgets session so the key can be downloaded again
func (s *Service) release(session *Session) {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()
	if s.sessions[session.request.ContentKey] == session {
		delete(s.sessions, session.request.ContentKey)
	}
}

func (s *Service) execute(session *Session) model.TransferOutcome {
	ctx := session.ctx
	req := session.request

	if ctx.Err() != nil {
		return model.Cancelled()
	}
	session.transition(model.SessionStateNegotiating)

	target, err := s.locator.Locate(req.ContentKey, req.DisplayTitle)
	if err != nil {
		return s.failed(ctx, err)
	}

	result, err := s.negotiator.Negotiate(ctx, req, func(read, total int64) {
		session.tracker.Update(model.PhaseTransferring, receiveShare*ratio(read, total))
	})
	if err != nil {
		return s.failed(ctx, err)
	}
	session.tracker.Update(model.PhaseNegotiating, 1)

	title := req.DisplayTitle
	var declared int64
	switch r := result.(type) {
	case *model.DirectPayload:
		session.transition(model.SessionStateDirectWriting)
		declared = r.DeclaredLength
		if title == "" {
			title = r.SuggestedFilename
		}
		err = s.writeDirect(ctx, session, r, target.FilePath)
	case *model.RemoteLocation:
		session.transition(model.SessionStateStreamWriting)
		declared, err = s.writeStream(ctx, session, r, target.FilePath)
	default:
		err = failure.ErrNoLocation
	}
	if err != nil {
		return s.failed(ctx, err)
	}

	if ctx.Err() != nil {
		return model.Cancelled()
	}
	session.transition(model.SessionStateFinalizing)
	session.tracker.Update(model.PhaseFinalizing, 0)

	if _, err := os.Stat(target.FilePath); err != nil {
		return s.failed(ctx, fmt.Errorf("download: committed file missing: %w", err))
	}

	md := model.TransferMetadata{
		OriginalTitle:       title,
		OriginalKey:         req.ContentKey,
		DownloadedAtEpochMs: s.now().UnixMilli(),
		DeclaredSizeBytes:   declared,
		SafeFileName:        target.FileName(),
	}
	if err := s.metadata.Write(target.FilePath, md); err != nil {
		session.logger.Warn("failed to write sidecar", "path", target.FilePath, "error", err)
	}
	s.scanner(target.FilePath)

	session.tracker.Complete()
	return model.Completed(target.FilePath)
}

// writeDirect encodes an inline payload into a pending file and commits it
func (s *Service) writeDirect(ctx context.Context, session *Session, payload *model.DirectPayload, path string) error {
	pending, err := platform.CreatePending(path)
	if err != nil {
		return err
	}

	sink := encode.NewFileSink(pending)
	strategy, err := s.encoder.Write(ctx, sink, payload.Bytes, func(written, total int64) {
		session.tracker.Update(model.PhaseEncoding, receiveShare+(1-receiveShare)*ratio(written, total))
	})
	if err != nil {
		pending.Abort()
		return err
	}
	if payload.DeclaredLength > 0 && sink.Written() != payload.DeclaredLength {
		session.logger.Warn("written size differs from declared length",
			"written", sink.Written(), "declared", payload.DeclaredLength)
	}
	if err := pending.Commit(); err != nil {
		return err
	}

	session.logger.Debug("direct payload written", "path", path, "strategy", strategy, "bytes", sink.Written())
	return nil
}

// writeStream downloads a remote location and returns the declared length,
// or the bytes written when the server declared none.
func (s *Service) writeStream(ctx context.Context, session *Session, location *model.RemoteLocation, path string) (int64, error) {
	var declared int64
	written, err := s.fetcher.Download(ctx, location.URL, path, func(written, total int64) {
		declared = total
		session.tracker.Bytes(model.PhaseTransferring, written, total)
	})
	if err != nil {
		return 0, err
	}
	if declared <= 0 {
		declared = written
	}
	return declared, nil
}

func ratio(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// failed classifies err, or reports cancellation when the session was cancelled
func (s *Service) failed(ctx context.Context, err error) model.TransferOutcome {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return model.Cancelled()
	}
	var classified *failure.Error
	if !errors.As(err, &classified) {
		classified = failure.New(err)
	}
	return model.Failed(classified)
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(event Event) {
	s.sessionsMutex.RLock()
	callback := s.onUpdate
	s.sessionsMutex.RUnlock()

	if callback != nil {
		callback(event)
	}
}
