package progress

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/spred/offline-downloader/internal/model"
)

func TestTrackerBands(t *testing.T) {
	tests := []struct {
		phase    model.Phase
		fraction float64
		expected float64
	}{
		{model.PhaseNegotiating, 1, 0.05},
		{model.PhaseTransferring, 0.5, 0.5},
		{model.PhaseTransferring, 1, 0.95},
		{model.PhaseFinalizing, 1, 1},
	}

	tracker := NewTracker()
	for _, tt := range tests {
		got := tracker.Update(tt.phase, tt.fraction)
		if diff := got.Fraction - tt.expected; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Update(%s, %v) fraction = %v, expected %v", tt.phase, tt.fraction, got.Fraction, tt.expected)
		}
		if got.Phase != tt.phase {
			t.Errorf("Update(%s) phase = %s", tt.phase, got.Phase)
		}
	}
}

func TestTrackerNeverDecreases(t *testing.T) {
	tracker := NewTracker()
	rng := rand.New(rand.NewSource(1))
	phases := []model.Phase{model.PhaseNegotiating, model.PhaseTransferring, model.PhaseEncoding, model.PhaseFinalizing}

	last := tracker.Snapshot()
	for i := 0; i < 1000; i++ {
		phase := phases[rng.Intn(len(phases))]
		got := tracker.Update(phase, rng.Float64()*1.2-0.1)
		if got.Fraction < last.Fraction {
			t.Fatalf("Fraction decreased from %v to %v", last.Fraction, got.Fraction)
		}
		if bands[got.Phase].rank < bands[last.Phase].rank {
			t.Fatalf("Phase moved backwards from %s to %s", last.Phase, got.Phase)
		}
		last = got
	}
}

func TestTrackerFallbackRestartDoesNotRegress(t *testing.T) {
	tracker := NewTracker()
	tracker.Bytes(model.PhaseEncoding, 600, 1000)

	// A fallback strategy starts the payload again from zero
	got := tracker.Bytes(model.PhaseEncoding, 100, 1000)
	if got.Fraction < 0.05+0.9*0.6 {
		t.Errorf("Fraction regressed to %v", got.Fraction)
	}
}

func TestTrackerUnknownTotal(t *testing.T) {
	tracker := NewTracker()
	tracker.Update(model.PhaseNegotiating, 1)

	got := tracker.Bytes(model.PhaseTransferring, 1234, -1)
	if got.Phase != model.PhaseTransferring || got.Fraction != 0.05 {
		t.Errorf("Unexpected state for unknown total: %+v", got)
	}
}

func TestTrackerListeners(t *testing.T) {
	var seen []model.ProgressState
	tracker := NewTracker(func(s model.ProgressState) { seen = append(seen, s) })

	tracker.Update(model.PhaseTransferring, 0.5)
	tracker.Update(model.PhaseTransferring, 0.5) // no change, no notification
	tracker.Complete()

	if len(seen) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(seen))
	}
	if seen[1].Fraction != 1 {
		t.Errorf("Expected final fraction 1, got %v", seen[1].Fraction)
	}
}

func TestTrackerSubscribe(t *testing.T) {
	tracker := NewTracker()
	ch, _ := tracker.Subscribe(4)

	var wg sync.WaitGroup
	var received []model.ProgressState
	wg.Add(1)
	go func() {
		defer wg.Done()
		for s := range ch {
			received = append(received, s)
		}
	}()

	for i := 1; i <= 100; i++ {
		tracker.Bytes(model.PhaseTransferring, int64(i), 100)
	}
	tracker.Complete()
	tracker.Close()
	wg.Wait()

	if len(received) == 0 {
		t.Fatal("Expected at least one progress value")
	}
	for i := 1; i < len(received); i++ {
		if received[i].Fraction < received[i-1].Fraction {
			t.Fatalf("Subscriber saw a decrease: %v then %v", received[i-1].Fraction, received[i].Fraction)
		}
	}
	if last := received[len(received)-1]; last.Fraction != 1 {
		t.Errorf("Expected last value 1, got %v", last.Fraction)
	}
}

func TestTrackerUnsubscribe(t *testing.T) {
	tracker := NewTracker()
	ch, cancel := tracker.Subscribe(1)
	<-ch // initial snapshot

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after unsubscribe")
	}

	// Updates after unsubscribe must not panic
	tracker.Update(model.PhaseTransferring, 0.3)
}

func TestTrackerSubscribeAfterClose(t *testing.T) {
	tracker := NewTracker()
	tracker.Complete()
	tracker.Close()

	ch, _ := tracker.Subscribe(1)
	s, ok := <-ch
	if !ok || s.Fraction != 1 {
		t.Errorf("Expected final snapshot, got %+v (ok=%v)", s, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("Expected closed channel")
	}
}
