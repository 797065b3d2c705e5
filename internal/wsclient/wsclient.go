// Package wsclient maintains one logical consumer connection to the hub.
//
// The manager dials the hub's websocket endpoint, replays the latest cached
// biometric update to its consumer on every (re)connect, and reconnects with
// a fixed backoff up to a bounded attempt count. Once the budget is exhausted
// it stops and surfaces a permanent-disconnected state until Reset re-arms it.
package wsclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/gorilla/websocket"
)

// ConnState is the lifecycle state of the logical connection.
type ConnState string

const (
	StateConnecting              ConnState = "connecting"
	StateConnected               ConnState = "connected"
	StateDisconnected            ConnState = "disconnected"
	StatePermanentlyDisconnected ConnState = "permanently_disconnected"
)

// Reconnect policy reference values.
const (
	DefaultReconnectInterval = 3 * time.Second
	DefaultMaxAttempts       = 5
)

// Config configures a ConnManager.
type Config struct {
	// URL of the hub websocket endpoint.
	URL string
	// ReconnectInterval between attempts. Zero means DefaultReconnectInterval.
	ReconnectInterval time.Duration
	// MaxAttempts before giving up. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// OnEvent receives every inbound event, including the cached replay.
	OnEvent func(models.Event)
	// OnStateChange observes connection state transitions. Optional.
	OnStateChange func(ConnState)
	// Dialer overrides the websocket dialer. Optional.
	Dialer *websocket.Dialer
}

// ConnManager owns the consumer side of one hub connection.
type ConnManager struct {
	cfg   Config
	reset chan struct{}

	mu       sync.Mutex
	state    ConnState
	attempts int
	cached   *models.Event
	conn     *websocket.Conn
	cancel   context.CancelFunc
	started  bool
}

// New creates a ConnManager; Start begins connecting.
func New(cfg Config) *ConnManager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &ConnManager{
		cfg:   cfg,
		reset: make(chan struct{}, 1),
		state: StateDisconnected,
	}
}

// Start launches the connect/reconnect loop.
func (m *ConnManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	go m.run(ctx)
	return nil
}

// Stop tears down the connection and halts reconnection.
func (m *ConnManager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.Unlock()
}

// State returns the current connection state.
func (m *ConnManager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reset zeroes the attempt counter and resumes reconnecting after a
// permanent disconnect, mirroring a manual page reload.
func (m *ConnManager) Reset() {
	m.mu.Lock()
	m.attempts = 0
	m.mu.Unlock()
	select {
	case m.reset <- struct{}{}:
	default:
	}
}

// Latest returns the most recently cached biometric_update event, if any.
func (m *ConnManager) Latest() (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		return models.Event{}, false
	}
	return *m.cached, true
}

func (m *ConnManager) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m.setState(StateConnecting)
		conn, _, err := m.cfg.Dialer.DialContext(ctx, m.cfg.URL, nil)
		if err != nil {
			if !m.recordFailure(ctx, err) {
				// Permanent disconnect: hold until Reset or shutdown.
				select {
				case <-ctx.Done():
					return
				case <-m.reset:
					slog.Info("ConnManager.run: manual reset, resuming reconnection")
					continue
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.cfg.ReconnectInterval):
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.attempts = 0
		m.mu.Unlock()
		m.setState(StateConnected)
		slog.Info("ConnManager.run: connected", "url", m.cfg.URL)

		m.replayCached()
		m.readLoop(ctx, conn)
		conn.Close()

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		m.setState(StateDisconnected)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.ReconnectInterval):
		}
	}
}

// recordFailure counts a failed attempt. Returns false once the budget is
// exhausted and the manager has entered the permanent-disconnected state.
func (m *ConnManager) recordFailure(ctx context.Context, err error) bool {
	m.mu.Lock()
	m.attempts++
	attempts := m.attempts
	max := m.cfg.MaxAttempts
	m.mu.Unlock()

	slog.Warn("ConnManager.recordFailure: connect failed", "error", err, "attempt", attempts, "max_attempts", max)
	if attempts >= max {
		m.setState(StatePermanentlyDisconnected)
		slog.Error("ConnManager.recordFailure: reconnect budget exhausted", "attempts", attempts)
		return false
	}
	return true
}

// replayCached hands the latest cached biometric update to the consumer so it
// has state immediately on connect.
func (m *ConnManager) replayCached() {
	m.mu.Lock()
	cached := m.cached
	m.mu.Unlock()
	if cached != nil && m.cfg.OnEvent != nil {
		m.cfg.OnEvent(*cached)
	}
}

// readLoop consumes events until the connection breaks. A malformed payload
// discards that single message without tearing down the connection.
func (m *ConnManager) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("ConnManager.readLoop: read failed", "error", err)
			}
			return
		}

		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("ConnManager.readLoop: dropping malformed message", "error", err)
			continue
		}

		if ev.Type == models.EventBiometricUpdate {
			m.mu.Lock()
			copied := ev
			m.cached = &copied
			m.mu.Unlock()
		}
		if m.cfg.OnEvent != nil {
			m.cfg.OnEvent(ev)
		}
	}
}

func (m *ConnManager) setState(s ConnState) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()
	if changed && m.cfg.OnStateChange != nil {
		m.cfg.OnStateChange(s)
	}
}
