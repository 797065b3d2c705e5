// Package classifier derives normalized emotional-state scores from raw
// biometric signals.
//
// All functions are deterministic and side-effect free. The constants and cut
// points differ between the vitals path and the rich-band path; they are
// per-sensor calibrations and must not be unified.
package classifier

import (
	"errors"
	"math"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

// ErrIncompleteBands is returned by ClassifyBands when the required band
// powers are absent. Callers must surface "classification unavailable" and
// keep the previous published state rather than fabricating zeros.
var ErrIncompleteBands = errors.New("classification unavailable: incomplete EEG band power")

// General label cut points. Focus and engagement use the asymmetric 70/30
// cut points instead.
const (
	lowCutoff  = 33.0
	highCutoff = 66.0

	focusHighCutoff = 70.0
	focusLowCutoff  = 30.0
)

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// labelFor maps a kind and clamped level to its label and color tag.
//
// The emotional kind reports how the user feels (calm/moderate/stressed);
// every other kind reports intensity (low/moderate/high). Focus and
// engagement use the 70/30 cut points.
func labelFor(kind models.EmotionKind, level float64) (models.EmotionLabel, models.ColorTag) {
	switch kind {
	case models.EmotionKindFocus:
		switch {
		case level > focusHighCutoff:
			return models.EmotionLabelHigh, models.ColorTagFocused
		case level < focusLowCutoff:
			return models.EmotionLabelLow, models.ColorTagCalm
		default:
			return models.EmotionLabelModerate, models.ColorTagModerate
		}
	case models.EmotionKindEngagement:
		switch {
		case level > focusHighCutoff:
			return models.EmotionLabelHigh, models.ColorTagEngaged
		case level < focusLowCutoff:
			return models.EmotionLabelLow, models.ColorTagCalm
		default:
			return models.EmotionLabelModerate, models.ColorTagModerate
		}
	case models.EmotionKindEmotional:
		switch {
		case level < lowCutoff:
			return models.EmotionLabelCalm, models.ColorTagCalm
		case level < highCutoff:
			return models.EmotionLabelModerate, models.ColorTagModerate
		default:
			return models.EmotionLabelStressed, models.ColorTagAlert
		}
	default:
		switch {
		case level < lowCutoff:
			return models.EmotionLabelLow, models.ColorTagCalm
		case level < highCutoff:
			return models.EmotionLabelModerate, models.ColorTagModerate
		default:
			return models.EmotionLabelHigh, models.ColorTagAlert
		}
	}
}

// newState builds a fully labelled EmotionalState with the level clamped to [0,100].
func newState(kind models.EmotionKind, level float64) models.EmotionalState {
	level = clamp(level)
	label, color := labelFor(kind, level)
	return models.EmotionalState{Kind: kind, Level: level, Label: label, ColorTag: color}
}

// ClassifyVitals derives emotional states from heart rate and EEG alpha power.
//
// Missing readings contribute nothing; this path never errors. The focus
// state is omitted when alpha power is unavailable since its formula has no
// heart-rate term.
func ClassifyVitals(heartRate, eegAlpha *float64) []models.EmotionalState {
	var stress float64
	if heartRate != nil && *heartRate > 80 {
		stress += (*heartRate - 60) * 2
	}
	if eegAlpha != nil && *eegAlpha < 8 {
		stress += (8 - *eegAlpha) * 15
	}
	stress = clamp(stress)

	states := []models.EmotionalState{
		newState(models.EmotionKindEmotional, stress),
		newState(models.EmotionKindStress, stress),
	}
	if eegAlpha != nil {
		focus := 100 - math.Abs(*eegAlpha-10)*15
		states = append(states, newState(models.EmotionKindFocus, focus))
	}
	return states
}

// ClassifyBands derives emotional states from full per-band EEG power plus an
// externally supplied cognitive-decision scalar in [0,1].
//
// Alpha and theta power are required denominators; when either is absent the
// tick is unclassifiable and ErrIncompleteBands is returned.
func ClassifyBands(bands models.EEGBandPower, cognitive float64) ([]models.EmotionalState, error) {
	if bands.Alpha <= 0 || bands.Theta <= 0 {
		return nil, ErrIncompleteBands
	}

	engagement := (bands.Beta / bands.Alpha) * 50
	stress := (bands.Beta/bands.Alpha + bands.Beta/bands.Theta) * 25
	focus := math.Max(0, math.Min(1, cognitive)) * 100

	stress = clamp(stress)
	return []models.EmotionalState{
		newState(models.EmotionKindEmotional, stress),
		newState(models.EmotionKindStress, stress),
		newState(models.EmotionKindFocus, focus),
		newState(models.EmotionKindEngagement, engagement),
	}, nil
}
