package progress

import (
	"sync"

	"github.com/spred/offline-downloader/internal/model"
)

type band struct {
	low, high float64
	rank      int
}

// Fraction ranges reserved for each phase
var bands = map[model.Phase]band{
	model.PhaseNegotiating:  {0.00, 0.05, 0},
	model.PhaseTransferring: {0.05, 0.95, 1},
	model.PhaseEncoding:     {0.05, 0.95, 1},
	model.PhaseFinalizing:   {0.95, 1.00, 2},
}

// Listener is notified synchronously of every accepted change
type Listener func(model.ProgressState)

// Tracker holds the progress of one session. Fraction never decreases and the
// phase never moves backwards; updates that would do either are ignored.
type Tracker struct {
	mu        sync.Mutex
	state     model.ProgressState
	listeners []Listener
	subs      map[int]chan model.ProgressState
	nextSub   int
	closed    bool
}

// NewTracker creates a tracker in the Negotiating phase at zero
func NewTracker(listeners ...Listener) *Tracker {
	return &Tracker{
		state:     model.ProgressState{Phase: model.PhaseNegotiating},
		listeners: listeners,
		subs:      make(map[int]chan model.ProgressState),
	}
}

// Snapshot returns the current state
func (t *Tracker) Snapshot() model.ProgressState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Update records that phase is phaseFraction (0..1) done
func (t *Tracker) Update(phase model.Phase, phaseFraction float64) model.ProgressState {
	b, ok := bands[phase]
	if !ok {
		return t.Snapshot()
	}
	phaseFraction = clamp(phaseFraction)

	t.mu.Lock()
	if t.closed || b.rank < bands[t.state.Phase].rank {
		state := t.state
		t.mu.Unlock()
		return state
	}

	fraction := b.low + (b.high-b.low)*phaseFraction
	if fraction < t.state.Fraction {
		fraction = t.state.Fraction
	}
	next := model.ProgressState{Fraction: fraction, Phase: phase}
	if next == t.state {
		t.mu.Unlock()
		return next
	}
	t.state = next
	t.publish(next)
	t.mu.Unlock()

	for _, l := range t.listeners {
		l(next)
	}
	return next
}

// Bytes records written of total bytes for phase. Unknown totals leave the
// fraction where it is.
func (t *Tracker) Bytes(phase model.Phase, written, total int64) model.ProgressState {
	if total <= 0 {
		return t.Update(phase, 0)
	}
	return t.Update(phase, float64(written)/float64(total))
}

// Complete moves the tracker to 1.0
func (t *Tracker) Complete() model.ProgressState {
	return t.Update(model.PhaseFinalizing, 1)
}

// Subscribe returns a channel of progress changes and a function that ends
// the subscription. A slow reader misses intermediate values, never the latest.
func (t *Tracker) Subscribe(buffer int) (<-chan model.ProgressState, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.ProgressState, buffer)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		ch <- t.state
		close(ch)
		return ch, func() {}
	}

	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	ch <- t.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(c)
			}
		})
	}
}

// Close ends every subscription. Later updates are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}

// publish must be called with t.mu held
func (t *Tracker) publish(state model.ProgressState) {
	for _, ch := range t.subs {
		Offer(ch, state)
	}
}

// Offer delivers v, dropping the oldest buffered value if the channel is full
func Offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func clamp(f float64) float64 {
	switch {
	case f != f, f < 0: // NaN or negative
		return 0
	case f > 1:
		return 1
	}
	return f
}
