// Package signal produces raw biometric samples for the classification
// pipeline.
//
// This file implements the simulated source used when no device bridge is
// configured.
package signal

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Physiological bounds for simulated values.
const (
	minHeartRate       = 60.0
	maxHeartRate       = 100.0
	maxHeartRateDelta  = 3.0
	minAlphaPower      = 5.0
	maxAlphaPower      = 15.0
	maxAlphaPowerDelta = 0.5

	// Resting defaults the random walk starts from.
	initialHeartRate = 72.0
	initialAlpha     = 8.2
)

// SimulatorConfig configures the simulated source.
type SimulatorConfig struct {
	// Interval between samples. Zero means DefaultSampleInterval.
	Interval time.Duration
	// Rand supplies the random walk. Nil means the shared global source.
	Rand *rand.Rand
}

// Simulator produces bounded random-walk heart rate and EEG alpha readings on
// a fixed cadence.
type Simulator struct {
	interval time.Duration
	rng      *rand.Rand

	samples chan Sample
	cancel  context.CancelFunc

	mu        sync.Mutex
	heartRate float64
	eegAlpha  float64
	started   bool
	stopped   bool
}

// NewSimulator creates a simulator; Start must be called to begin producing.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{
		interval:  interval,
		rng:       rng,
		samples:   make(chan Sample, 1),
		heartRate: initialHeartRate,
		eegAlpha:  initialAlpha,
	}
}

// Name identifies the source in logs and health output.
func (s *Simulator) Name() string { return "simulator" }

// Samples returns the sample stream. Closed after Stop.
func (s *Simulator) Samples() <-chan Sample { return s.samples }

// Start begins emitting one sample per interval until Stop is called or the
// context is cancelled. An immediate first sample is emitted so consumers do
// not wait a full interval for initial state.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	slog.Debug("Simulator.Start: starting simulated source", "interval", s.interval)
	go s.run(ctx)
	return nil
}

// Stop halts production and closes the sample channel.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Simulator) run(ctx context.Context) {
	defer close(s.samples)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.emit(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Simulator.run: context cancelled, stopping")
			return
		case <-ticker.C:
			s.emit(ctx)
		}
	}
}

func (s *Simulator) emit(ctx context.Context) {
	sample := s.nextSample()
	select {
	case s.samples <- sample:
	case <-ctx.Done():
	default:
		// Consumer is behind; latest-state-wins, drop the tick.
		slog.Debug("Simulator.emit: consumer behind, dropping sample")
	}
}

// nextSample advances the bounded random walk by at most one delta per reading.
func (s *Simulator) nextSample() Sample {
	s.mu.Lock()
	s.heartRate = boundedStep(s.rng, s.heartRate, maxHeartRateDelta, minHeartRate, maxHeartRate)
	s.eegAlpha = boundedStep(s.rng, s.eegAlpha, maxAlphaPowerDelta, minAlphaPower, maxAlphaPower)
	hr, alpha := s.heartRate, s.eegAlpha
	s.mu.Unlock()

	return Sample{
		Snapshot: newVitalsSnapshot(hr, alpha, time.Now()),
	}
}

func boundedStep(rng *rand.Rand, current, maxDelta, min, max float64) float64 {
	next := current + (rng.Float64()*2-1)*maxDelta
	if next < min {
		next = min
	}
	if next > max {
		next = max
	}
	return next
}
