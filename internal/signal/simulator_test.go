package signal

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

func collectSamples(t *testing.T, s Source, n int) []Sample {
	t.Helper()
	samples := make([]Sample, 0, n)
	timeout := time.After(3 * time.Second)
	for len(samples) < n {
		select {
		case sample, ok := <-s.Samples():
			if !ok {
				t.Fatalf("sample channel closed after %d samples", len(samples))
			}
			samples = append(samples, sample)
		case <-timeout:
			t.Fatalf("timed out after %d samples", len(samples))
		}
	}
	return samples
}

func TestSimulatorProducesBoundedWalk(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{
		Interval: 2 * time.Millisecond,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sim.Start(ctx); err != nil {
		t.Fatalf("failed to start simulator: %v", err)
	}
	defer sim.Stop()

	samples := collectSamples(t, sim, 20)

	prevHR, prevAlpha := initialHeartRate, initialAlpha
	for i, s := range samples {
		if s.Snapshot.HeartRate == nil || s.Snapshot.EEGAlpha == nil {
			t.Fatalf("sample %d: missing readings", i)
		}
		hr, alpha := *s.Snapshot.HeartRate, *s.Snapshot.EEGAlpha

		if hr < minHeartRate || hr > maxHeartRate {
			t.Errorf("sample %d: heart rate %v out of [%v,%v]", i, hr, minHeartRate, maxHeartRate)
		}
		if alpha < minAlphaPower || alpha > maxAlphaPower {
			t.Errorf("sample %d: alpha %v out of [%v,%v]", i, alpha, minAlphaPower, maxAlphaPower)
		}
		if d := math.Abs(hr - prevHR); d > maxHeartRateDelta+1e-9 {
			t.Errorf("sample %d: heart rate moved %v, max delta %v", i, d, maxHeartRateDelta)
		}
		if d := math.Abs(alpha - prevAlpha); d > maxAlphaPowerDelta+1e-9 {
			t.Errorf("sample %d: alpha moved %v, max delta %v", i, d, maxAlphaPowerDelta)
		}
		if s.Bands != nil || s.Cognitive != nil {
			t.Errorf("sample %d: simulator must not produce band data", i)
		}
		if s.Snapshot.Timestamp.IsZero() {
			t.Errorf("sample %d: missing timestamp", i)
		}
		prevHR, prevAlpha = hr, alpha
	}
}

func TestSimulatorEmitsImmediately(t *testing.T) {
	// A long interval must not delay the first sample.
	sim := NewSimulator(SimulatorConfig{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sim.Start(ctx)
	defer sim.Stop()

	select {
	case _, ok := <-sim.Samples():
		if !ok {
			t.Fatal("sample channel closed unexpectedly")
		}
	case <-time.After(time.Second):
		t.Fatal("no immediate first sample")
	}
}

func TestSimulatorStopClosesChannel(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{Interval: 2 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sim.Start(ctx)

	if err := sim.Stop(); err != nil {
		t.Fatalf("unexpected error from Stop: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sim.Samples():
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("sample channel never closed after Stop")
		}
	}
}

func TestSimulatorStartIdempotent(t *testing.T) {
	sim := NewSimulator(SimulatorConfig{Interval: 2 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sim.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	if err := sim.Start(ctx); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	sim.Stop()
	if err := sim.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

func TestSelectPrecedence(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"neurobrave wins", Config{NeuroBraveURL: "ws://nb", NeuroBraveAPIKey: "k", NeurospeedURL: "ws://ns", NeurospeedAPIKey: "k"}, "neurobrave"},
		{"neurospeed next", Config{NeurospeedURL: "ws://ns", NeurospeedAPIKey: "k"}, "neurospeed"},
		{"simulator fallback", Config{}, "simulator"},
		{"url without key is ignored", Config{NeuroBraveURL: "ws://nb"}, "simulator"},
		{"key without url is ignored", Config{NeurospeedAPIKey: "k"}, "simulator"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Select(tc.cfg).Name(); got != tc.want {
				t.Errorf("Select(%+v).Name() = %q, want %q", tc.cfg, got, tc.want)
			}
		})
	}
}
