// Package pipeline runs the signal-to-broadcast loop:
// source -> classifier -> state store -> notification engine -> hub.
//
// Classification happens synchronously inside the tick that produced the
// sample, and trigger evaluation runs immediately after each publish, gated
// on at least one live connection.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/NeuroPulse-App/neuropulse/internal/classifier"
	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/NeuroPulse-App/neuropulse/internal/notify"
	"github.com/NeuroPulse-App/neuropulse/internal/signal"
	"github.com/NeuroPulse-App/neuropulse/internal/state"
)

// Broadcaster is the hub surface the pipeline needs. Satisfied by *hub.Hub;
// tests substitute fakes.
type Broadcaster interface {
	BroadcastBiometric(snapshot models.BiometricSnapshot, states []models.EmotionalState)
	BroadcastNotification(n *models.Notification)
	ConnectionCount() int
}

// Runner drives the classification pipeline for one active source.
type Runner struct {
	source signal.Source
	store  *state.Store
	engine *notify.Engine
	hub    Broadcaster

	// fallback builds the simulator used when a bridge permanently fails.
	fallback func() signal.Source
}

// NewRunner wires a pipeline. The source must not be started yet.
func NewRunner(source signal.Source, store *state.Store, engine *notify.Engine, hub Broadcaster) *Runner {
	return &Runner{
		source:   source,
		store:    store,
		engine:   engine,
		hub:      hub,
		fallback: func() signal.Source { return signal.NewSimulator(signal.SimulatorConfig{}) },
	}
}

// Run consumes samples until the context is cancelled. When a bridge source
// exhausts its retry budget and closes its stream, the runner falls back to
// the simulated source instead of stopping.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.source.Start(ctx); err != nil {
		return err
	}
	defer r.source.Stop()

	slog.Info("Runner.Run: pipeline started", "source", r.source.Name())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample, ok := <-r.source.Samples():
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := r.fallBack(ctx); err != nil {
					return err
				}
				continue
			}
			r.handleSample(sample)
		}
	}
}

func (r *Runner) fallBack(ctx context.Context) error {
	if r.source.Name() == "simulator" {
		return errors.New("simulated source stopped unexpectedly")
	}
	slog.Error("Runner.fallBack: source unavailable, falling back to simulator", "source", r.source.Name())
	r.source.Stop()
	r.source = r.fallback()
	return r.source.Start(ctx)
}

// handleSample classifies one sample and publishes the result. A rich-band
// sample that cannot be classified skips the tick: the store keeps its last
// value and nothing is broadcast.
func (r *Runner) handleSample(sample signal.Sample) {
	var states []models.EmotionalState
	if sample.Bands != nil {
		cognitive := 0.0
		if sample.Cognitive != nil {
			cognitive = *sample.Cognitive
		}
		var err error
		states, err = classifier.ClassifyBands(*sample.Bands, cognitive)
		if err != nil {
			slog.Warn("Runner.handleSample: classification unavailable, skipping tick", "error", err)
			return
		}
	} else {
		states = classifier.ClassifyVitals(sample.Snapshot.HeartRate, sample.Snapshot.EEGAlpha)
	}

	r.store.Publish(sample.Snapshot, states)
	r.hub.BroadcastBiometric(sample.Snapshot, states)

	// Trigger evaluation is wasted work with nobody listening.
	if r.hub.ConnectionCount() == 0 {
		return
	}
	if n := r.engine.Evaluate(states); n != nil {
		slog.Info("Runner.handleSample: notification triggered", "category", n.Category, "title", n.Title)
		r.hub.BroadcastNotification(n)
	}
}
