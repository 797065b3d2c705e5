// Package notify decides when the assistant reaches out to the user.
//
// This file holds the fixed notification copy and the action vocabulary of
// the user-response protocol.
package notify

import (
	"math/rand/v2"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

// Action identifiers carried in notification response options.
const (
	ActionRespondCalm     = "respond_calm"
	ActionRespondStressed = "respond_stressed"
	ActionConfirmAccurate = "confirm_accurate"
	ActionConfirmWrong    = "confirm_wrong"
	ActionStressRelief    = "stress_relief"
	ActionPlanYes         = "plan_yes"
	ActionCheckinWell     = "checkin_well"
	ActionCheckinTense    = "checkin_tense"
	ActionCheckinBusy     = "checkin_busy"
	ActionDismiss         = "dismiss"
)

// defaultRand adapts the shared math/rand/v2 source to the Rand interface.
type defaultRand struct{}

func (defaultRand) Float64() float64 { return rand.Float64() }
func (defaultRand) IntN(n int) int   { return rand.IntN(n) }

// stressNotification picks one of the two stress-path variants, 50/50.
// Caller holds the lock.
func (e *Engine) stressNotification(emotional models.EmotionalState) *models.Notification {
	if e.rng.IntN(2) == 0 {
		return e.newNotification(models.NotificationContextBased,
			"Feeling stressed?",
			"Your biometrics suggest elevated stress. Does that match how you feel?",
			[]models.ResponseOption{
				{Label: "Yes", ActionID: ActionConfirmAccurate},
				{Label: "No", ActionID: ActionConfirmWrong},
			}, &emotional)
	}
	return e.newNotification(models.NotificationContextBased,
		"Take a breather?",
		"Your stress level looks high. Want me to guide you through a short breathing exercise?",
		[]models.ResponseOption{
			{Label: "Guide me", ActionID: ActionStressRelief},
			{Label: "No thanks", ActionID: ActionDismiss},
		}, &emotional)
}

// calmNotification offers planning/reflection suggestions. Caller holds the lock.
func (e *Engine) calmNotification(emotional models.EmotionalState) *models.Notification {
	return e.newNotification(models.NotificationContextBased,
		"Good moment to plan",
		"You seem calm and settled. Want a couple of suggestions for planning or reflection?",
		[]models.ResponseOption{
			{Label: "Yes please", ActionID: ActionPlanYes},
			{Label: "Not now", ActionID: ActionDismiss},
		}, &emotional)
}

// neutralNotification is the mid-range check-in. Caller holds the lock.
func (e *Engine) neutralNotification(emotional models.EmotionalState) *models.Notification {
	return e.newNotification(models.NotificationContextBased,
		"Quick check-in",
		"How are things going right now?",
		[]models.ResponseOption{
			{Label: "Doing well", ActionID: ActionCheckinWell},
			{Label: "A bit tense", ActionID: ActionCheckinTense},
			{Label: "Just busy", ActionID: ActionCheckinBusy},
		}, &emotional)
}

// CheckIn builds a scheduled conversation-based check-in notification and
// appends it to the ledger. Used by the cron wellness schedule, outside the
// per-tick trigger policy.
func (e *Engine) CheckIn() *models.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.newNotification(models.NotificationConversationBased,
		"Scheduled check-in",
		"Time for your scheduled wellness check-in. How has your day been going?",
		[]models.ResponseOption{
			{Label: "Doing well", ActionID: ActionCheckinWell},
			{Label: "A bit tense", ActionID: ActionCheckinTense},
			{Label: "Just busy", ActionID: ActionCheckinBusy},
		}, nil)
	e.append(n)
	return n
}

// ackForAction returns the local acknowledgement toast for actions that have
// one. Acks are not part of the ledger. Caller holds the lock.
func (e *Engine) ackForAction(actionID string) *models.Notification {
	switch actionID {
	case ActionStressRelief:
		return e.newNotification(models.NotificationFeedbackLoop,
			"Breathing exercise",
			"Breathe in for 4 seconds, hold for 4, breathe out for 6. Repeat five times.",
			nil, nil)
	case ActionRespondCalm:
		return e.newNotification(models.NotificationFeedbackLoop,
			"Thanks for sharing",
			"Got it. I'll treat your current readings as a calm baseline.",
			nil, nil)
	case ActionRespondStressed:
		return e.newNotification(models.NotificationFeedbackLoop,
			"Thanks for sharing",
			"Got it. I'll keep a closer eye on your stress signals.",
			nil, nil)
	case ActionPlanYes:
		return e.newNotification(models.NotificationFeedbackLoop,
			"Planning suggestions",
			"Try writing down the three things that matter most today, then pick the smallest one to start with.",
			nil, nil)
	case ActionConfirmWrong:
		return e.newNotification(models.NotificationFeedbackLoop,
			"Noted",
			"Thanks for the correction. I'll weigh your self-report against the sensor readings.",
			nil, nil)
	default:
		return nil
	}
}
