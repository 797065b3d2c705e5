package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/NeuroPulse-App/neuropulse/internal/messaging"
	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

// scriptedRand replays fixed values so trigger outcomes are deterministic.
type scriptedRand struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *scriptedRand) IntN(n int) int {
	v := r.ints[r.ii%len(r.ints)]
	r.ii++
	return v % n
}

func emotionalStates(level float64) []models.EmotionalState {
	return []models.EmotionalState{
		{Kind: models.EmotionKindEmotional, Level: level},
		{Kind: models.EmotionKindStress, Level: level},
	}
}

func hasAction(n *models.Notification, actionID string) bool {
	for _, opt := range n.ResponseOptions {
		if opt.ActionID == actionID {
			return true
		}
	}
	return false
}

func TestEvaluateNoTriggerWhenRollFails(t *testing.T) {
	e := NewEngine(Config{Rand: &scriptedRand{floats: []float64{0.99}, ints: []int{0}}})

	if n := e.Evaluate(emotionalStates(80)); n != nil {
		t.Errorf("expected no notification when the roll fails, got %v", n)
	}
	if got := e.List(); len(got) != 0 {
		t.Errorf("expected empty ledger, got %d entries", len(got))
	}
}

func TestEvaluateNoEmotionalState(t *testing.T) {
	e := NewEngine(Config{Rand: &scriptedRand{floats: []float64{0}, ints: []int{0}}})

	states := []models.EmotionalState{{Kind: models.EmotionKindFocus, Level: 90}}
	if n := e.Evaluate(states); n != nil {
		t.Errorf("expected nil without an emotional state, got %v", n)
	}
}

func TestEvaluateStressPathVariants(t *testing.T) {
	// IntN=0 picks the accuracy-confirmation variant.
	e := NewEngine(Config{Rand: &scriptedRand{floats: []float64{0}, ints: []int{0}}})
	n := e.Evaluate(emotionalStates(80))
	if n == nil {
		t.Fatal("expected a stress notification")
	}
	if n.Category != models.NotificationContextBased {
		t.Errorf("expected context_based category, got %s", n.Category)
	}
	if !hasAction(n, ActionConfirmAccurate) || !hasAction(n, ActionConfirmWrong) {
		t.Errorf("expected accuracy confirmation options, got %v", n.ResponseOptions)
	}
	if n.RelatedEmotionalState == nil || n.RelatedEmotionalState.Level != 80 {
		t.Errorf("expected related emotional state at level 80, got %v", n.RelatedEmotionalState)
	}

	// IntN=1 picks the breathing offer.
	e = NewEngine(Config{Rand: &scriptedRand{floats: []float64{0}, ints: []int{1}}})
	n = e.Evaluate(emotionalStates(80))
	if n == nil {
		t.Fatal("expected a stress notification")
	}
	if !hasAction(n, ActionStressRelief) || !hasAction(n, ActionDismiss) {
		t.Errorf("expected breathing offer options, got %v", n.ResponseOptions)
	}
}

func TestEvaluateCalmPath(t *testing.T) {
	e := NewEngine(Config{Rand: &scriptedRand{floats: []float64{0}, ints: []int{0}}})

	n := e.Evaluate(emotionalStates(20))
	if n == nil {
		t.Fatal("expected a calm notification")
	}
	if !hasAction(n, ActionPlanYes) {
		t.Errorf("expected planning offer, got %v", n.ResponseOptions)
	}
}

func TestEvaluateNeutralPath(t *testing.T) {
	e := NewEngine(Config{Rand: &scriptedRand{floats: []float64{0}, ints: []int{0}}})

	n := e.Evaluate(emotionalStates(50))
	if n == nil {
		t.Fatal("expected a neutral check-in")
	}
	if len(n.ResponseOptions) != 3 {
		t.Fatalf("expected three check-in options, got %d", len(n.ResponseOptions))
	}
	if !hasAction(n, ActionCheckinWell) || !hasAction(n, ActionCheckinTense) || !hasAction(n, ActionCheckinBusy) {
		t.Errorf("unexpected check-in options: %v", n.ResponseOptions)
	}
}

func TestEvaluateTriggerBoundaries(t *testing.T) {
	// Exactly at the stress trigger the stress path does not fire; exactly at
	// the calm trigger the calm path does not fire. Both land on neutral.
	for _, level := range []float64{DefaultStressTrigger, DefaultCalmTrigger} {
		e := NewEngine(Config{Rand: &scriptedRand{floats: []float64{0}, ints: []int{0}}})
		n := e.Evaluate(emotionalStates(level))
		if n == nil {
			t.Fatalf("expected a notification at level %v", level)
		}
		if !hasAction(n, ActionCheckinWell) {
			t.Errorf("expected neutral check-in at level %v, got %v", level, n.ResponseOptions)
		}
	}
}

func TestWelcomeOncePerConnection(t *testing.T) {
	e := NewEngine(Config{})

	first := e.Welcome("conn-1")
	if first == nil {
		t.Fatal("expected a welcome notification")
	}
	if first.Category != models.NotificationFeedbackLoop {
		t.Errorf("expected feedback_loop category, got %s", first.Category)
	}
	if second := e.Welcome("conn-1"); second != nil {
		t.Errorf("expected nil on repeat welcome, got %v", second)
	}

	// A different connection is welcomed independently.
	if other := e.Welcome("conn-2"); other == nil {
		t.Error("expected a welcome for a new connection")
	}

	// Forgetting the connection re-arms the welcome.
	e.ForgetConnection("conn-1")
	if again := e.Welcome("conn-1"); again == nil {
		t.Error("expected a welcome after ForgetConnection")
	}
}

func TestHandleActionMarksReadAndAcks(t *testing.T) {
	e := NewEngine(Config{})
	n := e.CheckIn()
	other := e.CheckIn()

	if e.Unread() != 2 {
		t.Fatalf("expected 2 unread, got %d", e.Unread())
	}

	// An action with no acknowledgement returns nil ack and marks only its
	// target read.
	ack, err := e.HandleAction(n.ID, ActionCheckinWell)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack != nil {
		t.Errorf("expected no ack for %s, got %v", ActionCheckinWell, ack)
	}
	if e.Unread() != 1 {
		t.Errorf("expected 1 unread after action, got %d", e.Unread())
	}

	// stress_relief produces an ack that never enters the ledger.
	before := len(e.List())
	ack, err = e.HandleAction(other.ID, ActionStressRelief)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ack == nil {
		t.Fatal("expected a breathing-exercise ack")
	}
	if ack.Category != models.NotificationFeedbackLoop {
		t.Errorf("expected feedback_loop ack, got %s", ack.Category)
	}
	if len(e.List()) != before {
		t.Errorf("ack leaked into the ledger: %d -> %d", before, len(e.List()))
	}

	// Unknown notification IDs are rejected.
	if _, err := e.HandleAction("no-such-id", ActionDismiss); !errors.Is(err, models.ErrUnknownNotification) {
		t.Errorf("expected ErrUnknownNotification, got %v", err)
	}
}

func TestMarkReadAndClearAll(t *testing.T) {
	e := NewEngine(Config{})
	n := e.CheckIn()

	if err := e.MarkRead(n.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Unread() != 0 {
		t.Errorf("expected 0 unread, got %d", e.Unread())
	}
	if err := e.MarkRead("missing"); !errors.Is(err, models.ErrUnknownNotification) {
		t.Errorf("expected ErrUnknownNotification, got %v", err)
	}

	e.ClearAll()
	if len(e.List()) != 0 {
		t.Errorf("expected empty ledger after ClearAll, got %d", len(e.List()))
	}

	// The ledger keeps working after a clear.
	e.CheckIn()
	if len(e.List()) != 1 {
		t.Errorf("expected 1 entry after post-clear append, got %d", len(e.List()))
	}
}

func TestEscalationOncePerEpisode(t *testing.T) {
	sender := messaging.NewMockSender(false)
	e := NewEngine(Config{
		// Roll always fails so only the escalation path can emit.
		Rand:           &scriptedRand{floats: []float64{0.99}, ints: []int{0}},
		AlertSender:    sender,
		AlertRecipient: "+15550000001",
	})

	// Two high-stress ticks are not enough.
	for i := 0; i < 2; i++ {
		if n := e.Evaluate(emotionalStates(90)); n != nil {
			t.Fatalf("unexpected notification on tick %d: %v", i+1, n)
		}
	}

	// The third consecutive tick escalates.
	n := e.Evaluate(emotionalStates(90))
	if n == nil {
		t.Fatal("expected an escalation on the third high-stress tick")
	}
	if n.Category != models.NotificationAlert {
		t.Errorf("expected alert category, got %s", n.Category)
	}

	// The episode alerts only once, no matter how long it lasts.
	for i := 0; i < 5; i++ {
		if again := e.Evaluate(emotionalStates(90)); again != nil {
			t.Fatalf("expected no repeat alert within the episode, got %v", again)
		}
	}

	// Dropping below the trigger ends the episode; a new sustained run alerts
	// again.
	if n := e.Evaluate(emotionalStates(40)); n != nil {
		t.Fatalf("unexpected notification on recovery tick: %v", n)
	}
	for i := 0; i < 2; i++ {
		if n := e.Evaluate(emotionalStates(90)); n != nil {
			t.Fatalf("unexpected notification on tick %d of second episode: %v", i+1, n)
		}
	}
	if n := e.Evaluate(emotionalStates(90)); n == nil {
		t.Fatal("expected a second-episode escalation")
	}

	// The SMS goes out asynchronously; wait for both sends.
	deadline := time.Now().Add(2 * time.Second)
	for sender.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := sender.Calls(); got != 2 {
		t.Errorf("expected 2 escalation SMS sends, got %d", got)
	}
}

func TestEscalationWithoutSender(t *testing.T) {
	e := NewEngine(Config{Rand: &scriptedRand{floats: []float64{0.99}, ints: []int{0}}})

	for i := 0; i < 2; i++ {
		e.Evaluate(emotionalStates(90))
	}
	if n := e.Evaluate(emotionalStates(90)); n == nil {
		t.Fatal("expected the escalation notification even without an alert sender")
	}
}

func TestNotificationFields(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(Config{Now: func() time.Time { return now }})

	n := e.CheckIn()
	if n.ID == "" {
		t.Error("expected a notification ID")
	}
	if !n.CreatedAt.Equal(now) {
		t.Errorf("expected injected creation time, got %v", n.CreatedAt)
	}
	if n.Read {
		t.Error("expected new notifications to start unread")
	}
}
