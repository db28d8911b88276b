package download

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spred/offline-downloader/internal/model"
	"github.com/spred/offline-downloader/internal/progress"
)

// Event is a change in a session's state or progress
type Event struct {
	SessionID  string
	ContentKey string
	State      model.SessionState
	Progress   model.ProgressState
	Outcome    *model.TransferOutcome // set on the terminal event only
}

// Terminal reports whether e is the last event of its session
func (e Event) Terminal() bool {
	return e.Outcome != nil
}

// Session is one transfer of one content key
type Session struct {
	id        string
	request   model.TransferRequest
	startedAt time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	tracker *progress.Tracker
	notify  func(Event)
	logger  *slog.Logger

	mu         sync.Mutex
	state      model.SessionState
	outcome    model.TransferOutcome
	finishedAt time.Time
	subs       map[int]chan Event
	nextSub    int
	done       chan struct{}
}

func newSession(parent context.Context, req model.TransferRequest, notify func(Event), logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:        "session-" + uuid.NewString(),
		request:   req,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		notify:    notify,
		state:     model.SessionStateIdle,
		subs:      make(map[int]chan Event),
		done:      make(chan struct{}),
	}
	s.logger = logger.With("session", s.id, "key", req.ContentKey)
	s.tracker = progress.NewTracker(s.onProgress)
	return s
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Request returns the request that started the session
func (s *Session) Request() model.TransferRequest {
	return s.request
}

// StartedAt returns when the session was created
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// State returns the current state
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns the current progress
func (s *Session) Progress() model.ProgressState {
	return s.tracker.Snapshot()
}

// Outcome returns the terminal outcome once the session has finished
func (s *Session) Outcome() (model.TransferOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.state.IsFinished()
}

// FinishedAt returns when the session finished, or the zero time
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

// Done is closed when the session reaches a terminal state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session finishes or ctx is done
func (s *Session) Wait(ctx context.Context) (model.TransferOutcome, error) {
	select {
	case <-s.done:
		outcome, _ := s.Outcome()
		return outcome, nil
	case <-ctx.Done():
		return model.TransferOutcome{}, ctx.Err()
	}
}

// Cancel asks the session to stop. Partial files are removed.
func (s *Session) Cancel() {
	s.cancel()
}

// Subscribe returns a channel of session events starting with the current
// state, and a function ending the subscription. The channel is closed after
// the terminal event. A slow reader misses intermediate events, never the
// terminal one.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 2 {
		buffer = 2
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	first := s.eventLocked(s.tracker.Snapshot())
	if s.state.IsFinished() {
		outcome := s.outcome
		first.Outcome = &outcome
		ch <- first
		close(ch)
		return ch, func() {}
	}

	ch <- first
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// transition moves the session to next and reports whether it was allowed
func (s *Session) transition(next model.SessionState) bool {
	s.mu.Lock()
	if !s.state.CanTransitionTo(next) {
		current := s.state
		s.mu.Unlock()
		s.logger.Warn("ignored illegal session transition", "from", current, "to", next)
		return false
	}
	s.state = next
	event := s.eventLocked(s.tracker.Snapshot())
	s.publishLocked(event)
	s.mu.Unlock()

	s.logger.Debug("session state changed", "state", next)
	s.notify(event)
	return true
}

// finish records the terminal outcome and ends every subscription
func (s *Session) finish(outcome model.TransferOutcome) {
	next := terminalState(outcome.Kind)

	s.mu.Lock()
	if s.state.IsFinished() {
		s.mu.Unlock()
		return
	}
	if !s.state.CanTransitionTo(next) {
		s.logger.Warn("forcing terminal state", "from", s.state, "to", next)
	}
	s.state = next
	s.outcome = outcome
	s.finishedAt = time.Now()
	event := s.eventLocked(s.tracker.Snapshot())
	event.Outcome = &outcome
	s.publishLocked(event)
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.tracker.Close()
	s.cancel()
	s.notify(event)
	close(s.done)
}

func (s *Session) onProgress(state model.ProgressState) {
	s.mu.Lock()
	if s.state.IsFinished() {
		s.mu.Unlock()
		return
	}
	event := s.eventLocked(state)
	s.publishLocked(event)
	s.mu.Unlock()

	s.notify(event)
}

func (s *Session) eventLocked(state model.ProgressState) Event {
	return Event{
		SessionID:  s.id,
		ContentKey: s.request.ContentKey,
		State:      s.state,
		Progress:   state,
	}
}

func (s *Session) publishLocked(event Event) {
	for _, ch := range s.subs {
		progress.Offer(ch, event)
	}
}

func terminalState(kind model.OutcomeKind) model.SessionState {
	switch kind {
	case model.OutcomeCompleted:
		return model.SessionStateCompleted
	case model.OutcomeCancelled:
		return model.SessionStateCancelled
	}
	return model.SessionStateFailed
}
