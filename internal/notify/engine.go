// Package notify decides when the assistant reaches out to the user.
//
// The engine owns the append-only notification ledger, the per-tick trigger
// policy, the once-per-connection welcome message, and the inbound
// action/feedback protocol. Randomness and time are injectable so tests can
// force deterministic trigger outcomes.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
	"github.com/google/uuid"
)

// Rand supplies the randomness behind the trigger policy.
// math/rand/v2's *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// AlertSender delivers out-of-band escalation alerts (e.g. SMS).
type AlertSender interface {
	SendAlert(ctx context.Context, to string, body string) error
}

// Trigger policy constants. The 65/35 trigger cut points intentionally differ
// from the 33/66 label cut points; they are separate calibrations.
const (
	DefaultTriggerProbability = 0.20
	DefaultStressTrigger      = 65.0
	DefaultCalmTrigger        = 35.0

	// DefaultEscalationTicks is how many consecutive high-stress evaluations
	// produce an alert-category escalation.
	DefaultEscalationTicks = 3

	// WelcomeDelay is how long after connect the welcome notification fires.
	WelcomeDelay = 2 * time.Second

	alertSendTimeout = 10 * time.Second
)

// Config configures an Engine. Zero values fall back to the defaults above.
type Config struct {
	Rand               Rand
	Now                func() time.Time
	TriggerProbability float64
	StressTrigger      float64
	CalmTrigger        float64
	EscalationTicks    int

	// AlertSender and AlertRecipient enable SMS escalation when both are set.
	AlertSender    AlertSender
	AlertRecipient string
}

// Engine is the notification state machine. Safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	ledger []*models.Notification

	rng         Rand
	now         func() time.Time
	probability float64
	stressAbove float64
	calmBelow   float64

	escalationTicks int
	consecutiveHigh int
	alertedEpisode  bool
	alertSender     AlertSender
	alertRecipient  string

	welcomed map[string]struct{}
}

// NewEngine creates an Engine from cfg, applying defaults for zero fields.
func NewEngine(cfg Config) *Engine {
	if cfg.Rand == nil {
		cfg.Rand = defaultRand{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TriggerProbability <= 0 {
		cfg.TriggerProbability = DefaultTriggerProbability
	}
	if cfg.StressTrigger <= 0 {
		cfg.StressTrigger = DefaultStressTrigger
	}
	if cfg.CalmTrigger <= 0 {
		cfg.CalmTrigger = DefaultCalmTrigger
	}
	if cfg.EscalationTicks <= 0 {
		cfg.EscalationTicks = DefaultEscalationTicks
	}
	return &Engine{
		rng:             cfg.Rand,
		now:             cfg.Now,
		probability:     cfg.TriggerProbability,
		stressAbove:     cfg.StressTrigger,
		calmBelow:       cfg.CalmTrigger,
		escalationTicks: cfg.EscalationTicks,
		alertSender:     cfg.AlertSender,
		alertRecipient:  cfg.AlertRecipient,
		welcomed:        make(map[string]struct{}),
	}
}

// Evaluate runs the trigger policy for one published tick. It returns at most
// one notification per call: a sustained-stress escalation when due,
// otherwise the probabilistic state-based check-in. Callers invoke it only
// when at least one client is connected.
func (e *Engine) Evaluate(states []models.EmotionalState) *models.Notification {
	emotional, ok := models.StateByKind(states, models.EmotionKindEmotional)
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if n := e.trackEscalation(emotional); n != nil {
		e.append(n)
		return n
	}

	// One trigger decision per tick.
	if e.rng.Float64() >= e.probability {
		return nil
	}

	var n *models.Notification
	switch {
	case emotional.Level > e.stressAbove:
		n = e.stressNotification(emotional)
	case emotional.Level < e.calmBelow:
		n = e.calmNotification(emotional)
	default:
		n = e.neutralNotification(emotional)
	}
	e.append(n)
	return n
}

// trackEscalation updates the sustained-stress episode counters and returns
// an alert notification at most once per episode. Caller holds the lock.
func (e *Engine) trackEscalation(emotional models.EmotionalState) *models.Notification {
	if emotional.Level <= e.stressAbove {
		e.consecutiveHigh = 0
		e.alertedEpisode = false
		return nil
	}

	e.consecutiveHigh++
	if e.consecutiveHigh < e.escalationTicks || e.alertedEpisode {
		return nil
	}
	e.alertedEpisode = true

	n := e.newNotification(models.NotificationAlert,
		"Sustained high stress",
		"Your stress level has stayed high for a while. Consider stepping away for a short break.",
		[]models.ResponseOption{
			{Label: "Guide me", ActionID: ActionStressRelief},
			{Label: "Dismiss", ActionID: ActionDismiss},
		}, &emotional)

	if e.alertSender != nil && e.alertRecipient != "" {
		go e.sendAlertSMS(n.Message)
	}
	slog.Info("Engine.trackEscalation: sustained stress alert emitted", "level", emotional.Level, "ticks", e.consecutiveHigh)
	return n
}

func (e *Engine) sendAlertSMS(body string) {
	ctx, cancel := context.WithTimeout(context.Background(), alertSendTimeout)
	defer cancel()
	if err := e.alertSender.SendAlert(ctx, e.alertRecipient, body); err != nil {
		slog.Error("Engine.sendAlertSMS: failed to send escalation SMS", "error", err)
	}
}

// Welcome returns the once-per-connection welcome notification, or nil when
// the connection was already welcomed. The caller is responsible for the
// 2 second post-connect delay.
func (e *Engine) Welcome(connectionID string) *models.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.welcomed[connectionID]; ok {
		return nil
	}
	e.welcomed[connectionID] = struct{}{}

	n := e.newNotification(models.NotificationFeedbackLoop,
		"Welcome to NeuroPulse",
		"I'll keep an eye on your biometric signals while we chat. How are you feeling right now?",
		[]models.ResponseOption{
			{Label: "Feeling calm", ActionID: ActionRespondCalm},
			{Label: "A bit stressed", ActionID: ActionRespondStressed},
		}, nil)
	e.append(n)
	slog.Debug("Engine.Welcome: welcome notification created", "connection_id", connectionID, "notification_id", n.ID)
	return n
}

// ForgetConnection releases the welcome bookkeeping for a closed connection.
func (e *Engine) ForgetConnection(connectionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.welcomed, connectionID)
}

// HandleAction marks the referenced notification read and returns the local
// acknowledgement for the action, if the action has one. The acknowledgement
// is an echo for the acting client only; it is never appended to the ledger
// or re-broadcast.
func (e *Engine) HandleAction(notificationID, actionID string) (*models.Notification, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var target *models.Notification
	for _, n := range e.ledger {
		if n.ID == notificationID {
			target = n
			break
		}
	}
	if target == nil {
		return nil, models.ErrUnknownNotification
	}
	target.Read = true

	ack := e.ackForAction(actionID)
	slog.Debug("Engine.HandleAction: action handled", "notification_id", notificationID, "action_id", actionID, "ack", ack != nil)
	return ack, nil
}

// List returns a copy of the ledger in append order.
func (e *Engine) List() []models.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Notification, len(e.ledger))
	for i, n := range e.ledger {
		out[i] = *n
	}
	return out
}

// Unread returns the number of unread notifications.
func (e *Engine) Unread() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, n := range e.ledger {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead marks a single notification read.
func (e *Engine) MarkRead(notificationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, n := range e.ledger {
		if n.ID == notificationID {
			n.Read = true
			return nil
		}
	}
	return models.ErrUnknownNotification
}

// ClearAll empties the current ledger. Future appends are unaffected.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger = nil
	slog.Info("Engine.ClearAll: notification ledger cleared")
}

// append adds a notification to the ledger. Caller holds the lock.
func (e *Engine) append(n *models.Notification) {
	e.ledger = append(e.ledger, n)
}

func (e *Engine) newNotification(category models.NotificationCategory, title, message string, options []models.ResponseOption, related *models.EmotionalState) *models.Notification {
	var stateCopy *models.EmotionalState
	if related != nil {
		c := *related
		stateCopy = &c
	}
	return &models.Notification{
		ID:                    uuid.NewString(),
		Category:              category,
		Title:                 title,
		Message:               message,
		ResponseOptions:       options,
		RelatedEmotionalState: stateCopy,
		CreatedAt:             e.now(),
	}
}
