// Package signal produces raw biometric samples for the classification
// pipeline.
//
// This file implements the websocket bridges to the external device
// services. Each bridge pushes samples asynchronously instead of being
// polled, and each is enabled solely by presence of its own credentials.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/gorilla/websocket"
)

// Bridge retry policy. A bridge that fails to (re)connect this many times in
// a row closes its sample stream; the pipeline then falls back to the
// simulator.
const (
	bridgeRetryInterval           = 3 * time.Second
	bridgeMaxConsecutiveFailures  = 5
	bridgeHandshakeTimeout        = 10 * time.Second
	bridgeSampleChannelBufferSize = 4
)

// parseFunc converts one vendor wire message into a Sample.
type parseFunc func(data []byte, now time.Time) (Sample, error)

// bridge is the shared websocket client behind both vendor adapters.
type bridge struct {
	name   string
	url    string
	apiKey string
	parse  parseFunc

	dialer        *websocket.Dialer
	retryInterval time.Duration
	maxFailures   int

	samples chan Sample
	cancel  context.CancelFunc

	mu      sync.Mutex
	started bool
	stopped bool
}

func newBridge(name, url, apiKey string, parse parseFunc) *bridge {
	return &bridge{
		name:          name,
		url:           url,
		apiKey:        apiKey,
		parse:         parse,
		dialer:        &websocket.Dialer{HandshakeTimeout: bridgeHandshakeTimeout},
		retryInterval: bridgeRetryInterval,
		maxFailures:   bridgeMaxConsecutiveFailures,
		samples:       make(chan Sample, bridgeSampleChannelBufferSize),
	}
}

func (b *bridge) Name() string           { return b.name }
func (b *bridge) Samples() <-chan Sample { return b.samples }

// Start launches the connect/read loop. The sample channel is closed once
// the retry budget is exhausted or Stop is called.
func (b *bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	slog.Debug("bridge.Start: starting device bridge", "bridge", b.name, "url", b.url)
	go b.run(ctx)
	return nil
}

// Stop halts the bridge and closes the sample channel.
func (b *bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil
	}
	b.stopped = true
	if b.cancel != nil {
		b.cancel()
	}
	return nil
}

func (b *bridge) run(ctx context.Context) {
	defer close(b.samples)

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := b.dial(ctx)
		if err != nil {
			failures++
			slog.Warn("bridge.run: connect failed", "bridge", b.name, "error", err, "consecutive_failures", failures)
			if failures >= b.maxFailures {
				slog.Error("bridge.run: retry budget exhausted, giving up", "bridge", b.name, "failures", failures)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.retryInterval):
			}
			continue
		}

		failures = 0
		slog.Info("bridge.run: connected", "bridge", b.name)
		b.readLoop(ctx, conn)
		conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(b.retryInterval):
		}
	}
}

func (b *bridge) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+b.apiKey)
	conn, _, err := b.dialer.DialContext(ctx, b.url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s bridge: %w", b.name, err)
	}
	return conn, nil
}

// readLoop consumes messages until the connection breaks. A single malformed
// message is dropped without tearing the connection down.
func (b *bridge) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("bridge.readLoop: read failed, reconnecting", "bridge", b.name, "error", err)
			}
			return
		}

		sample, err := b.parse(data, time.Now())
		if err != nil {
			slog.Warn("bridge.readLoop: dropping malformed sample", "bridge", b.name, "error", err)
			continue
		}

		select {
		case b.samples <- sample:
		case <-ctx.Done():
			return
		default:
			// Consumer is behind; latest-state-wins, drop the sample.
			slog.Debug("bridge.readLoop: consumer behind, dropping sample", "bridge", b.name)
		}
	}
}

// newVitalsSnapshot builds a snapshot carrying heart rate and alpha power.
func newVitalsSnapshot(heartRate, eegAlpha float64, ts time.Time) models.BiometricSnapshot {
	return models.BiometricSnapshot{
		HeartRate: &heartRate,
		EEGAlpha:  &eegAlpha,
		Timestamp: ts,
	}
}

// neuroBraveMessage is the NeuroBrave wire format: plain vitals.
type neuroBraveMessage struct {
	HeartRate  *float64 `json:"heart_rate"`
	AlphaPower *float64 `json:"alpha_power"`
	Timestamp  int64    `json:"timestamp"`
}

// NewNeuroBraveBridge creates the NeuroBrave device bridge. NeuroBrave
// supplies heart rate and alpha power only, so its samples take the vitals
// classification path.
func NewNeuroBraveBridge(url, apiKey string) Source {
	return newBridge("neurobrave", url, apiKey, parseNeuroBrave)
}

func parseNeuroBrave(data []byte, now time.Time) (Sample, error) {
	var msg neuroBraveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Sample{}, fmt.Errorf("invalid NeuroBrave payload: %w", err)
	}
	if msg.HeartRate == nil && msg.AlphaPower == nil {
		return Sample{}, fmt.Errorf("NeuroBrave payload carries no readings")
	}

	ts := now
	if msg.Timestamp > 0 {
		ts = time.UnixMilli(msg.Timestamp)
	}
	return Sample{
		Snapshot: models.BiometricSnapshot{
			HeartRate: msg.HeartRate,
			EEGAlpha:  msg.AlphaPower,
			Timestamp: ts,
		},
	}, nil
}

// neurospeedMessage is the Neurospeed wire format: full band powers plus the
// cognitive-decision scalar.
type neurospeedMessage struct {
	HeartRate *float64             `json:"hr"`
	Bands     *models.EEGBandPower `json:"bands"`
	Cognitive *float64             `json:"cognitive_decision"`
	Timestamp int64                `json:"timestamp"`
}

// NewNeurospeedBridge creates the Neurospeed device bridge. Neurospeed
// supplies per-band EEG power vectors, so its samples take the rich-band
// classification path.
func NewNeurospeedBridge(url, apiKey string) Source {
	return newBridge("neurospeed", url, apiKey, parseNeurospeed)
}

func parseNeurospeed(data []byte, now time.Time) (Sample, error) {
	var msg neurospeedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Sample{}, fmt.Errorf("invalid Neurospeed payload: %w", err)
	}
	if msg.Bands == nil {
		return Sample{}, fmt.Errorf("Neurospeed payload missing band powers")
	}

	ts := now
	if msg.Timestamp > 0 {
		ts = time.UnixMilli(msg.Timestamp)
	}
	snapshot := models.BiometricSnapshot{
		HeartRate: msg.HeartRate,
		Timestamp: ts,
	}
	if msg.Bands.Alpha > 0 {
		alpha := msg.Bands.Alpha
		snapshot.EEGAlpha = &alpha
	}
	cognitive := 0.0
	if msg.Cognitive != nil {
		cognitive = *msg.Cognitive
	}
	return Sample{
		Snapshot:  snapshot,
		Bands:     msg.Bands,
		Cognitive: &cognitive,
	}, nil
}
