// Package signal produces raw biometric samples for the classification
// pipeline.
//
// One implementation simulates plausible values on a fixed cadence; the
// bridge implementations stream real samples from external device services.
// Exactly one source is active at a time, selected once at startup: a
// configured bridge always disables simulation.
package signal

import (
	"context"
	"log/slog"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

// Sample is one reading pushed by a source. Vitals-only sources fill just the
// snapshot; rich-band sources additionally carry per-band EEG power and the
// cognitive-decision scalar.
type Sample struct {
	Snapshot  models.BiometricSnapshot
	Bands     *models.EEGBandPower
	Cognitive *float64
}

// Source is a producer of biometric samples.
//
// Samples() is closed when the source has permanently stopped producing,
// either because Stop was called or because a bridge exhausted its retry
// budget. The pipeline treats an unexpected close as SourceUnavailable and
// falls back to the simulator.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Samples() <-chan Sample
}

// Config selects and configures the active source.
type Config struct {
	// NeuroBrave bridge credentials. Presence enables the bridge.
	NeuroBraveURL    string
	NeuroBraveAPIKey string

	// Neurospeed bridge credentials. Presence enables the bridge.
	NeurospeedURL    string
	NeurospeedAPIKey string

	// SampleInterval is the simulator cadence. Zero means DefaultSampleInterval.
	SampleInterval time.Duration
}

// DefaultSampleInterval is the simulator cadence when none is configured.
const DefaultSampleInterval = 5 * time.Second

// Select chooses the active source from configuration precedence:
// NeuroBrave bridge, then Neurospeed bridge, then the simulator. The decision
// is made exactly once; callers must not re-select per tick.
func Select(cfg Config) Source {
	if cfg.NeuroBraveURL != "" && cfg.NeuroBraveAPIKey != "" {
		slog.Info("signal.Select: using NeuroBrave bridge", "url", cfg.NeuroBraveURL)
		return NewNeuroBraveBridge(cfg.NeuroBraveURL, cfg.NeuroBraveAPIKey)
	}
	if cfg.NeurospeedURL != "" && cfg.NeurospeedAPIKey != "" {
		slog.Info("signal.Select: using Neurospeed bridge", "url", cfg.NeurospeedURL)
		return NewNeurospeedBridge(cfg.NeurospeedURL, cfg.NeurospeedAPIKey)
	}
	slog.Info("signal.Select: no bridge configured, using simulator", "interval", cfg.SampleInterval)
	return NewSimulator(SimulatorConfig{Interval: cfg.SampleInterval})
}
