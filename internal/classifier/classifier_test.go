package classifier

import (
	"errors"
	"testing"

	"github.com/NeuroPulse-App/neuropulse/internal/models"
)

func f(v float64) *float64 { return &v }

func stateByKind(t *testing.T, states []models.EmotionalState, kind models.EmotionKind) models.EmotionalState {
	t.Helper()
	s, ok := models.StateByKind(states, kind)
	if !ok {
		t.Fatalf("expected state of kind %s, got %v", kind, states)
	}
	return s
}

func TestClassifyVitalsHighStress(t *testing.T) {
	// heartRate=100, eegAlpha=5 -> stress = (40*2)+(3*15) = 125, clamped to 100.
	states := ClassifyVitals(f(100), f(5))

	stress := stateByKind(t, states, models.EmotionKindStress)
	if stress.Level != 100 {
		t.Errorf("expected stress level 100, got %v", stress.Level)
	}
	if stress.Label != models.EmotionLabelHigh || stress.ColorTag != models.ColorTagAlert {
		t.Errorf("expected High/alert stress, got %s/%s", stress.Label, stress.ColorTag)
	}

	emotional := stateByKind(t, states, models.EmotionKindEmotional)
	if emotional.Level != 100 {
		t.Errorf("expected emotional level to reuse stress level 100, got %v", emotional.Level)
	}
	if emotional.Label != models.EmotionLabelStressed || emotional.ColorTag != models.ColorTagAlert {
		t.Errorf("expected Stressed/alert emotional, got %s/%s", emotional.Label, emotional.ColorTag)
	}

	// focus = 100 - |5-10|*15 = 25 -> Low/calm under the 70/30 cut points.
	focus := stateByKind(t, states, models.EmotionKindFocus)
	if focus.Level != 25 {
		t.Errorf("expected focus level 25, got %v", focus.Level)
	}
	if focus.Label != models.EmotionLabelLow || focus.ColorTag != models.ColorTagCalm {
		t.Errorf("expected Low/calm focus, got %s/%s", focus.Label, focus.ColorTag)
	}
}

func TestClassifyVitalsRestingDefaults(t *testing.T) {
	// heartRate=72, eegAlpha=8.2 -> stress = 0 -> Calm.
	states := ClassifyVitals(f(72), f(8.2))

	emotional := stateByKind(t, states, models.EmotionKindEmotional)
	if emotional.Level != 0 {
		t.Errorf("expected emotional level 0, got %v", emotional.Level)
	}
	if emotional.Label != models.EmotionLabelCalm || emotional.ColorTag != models.ColorTagCalm {
		t.Errorf("expected Calm/calm emotional, got %s/%s", emotional.Label, emotional.ColorTag)
	}

	// focus = 100 - 1.8*15 = 73 -> High/focused (73 > 70).
	focus := stateByKind(t, states, models.EmotionKindFocus)
	if focus.Level != 73 {
		t.Errorf("expected focus level 73, got %v", focus.Level)
	}
	if focus.Label != models.EmotionLabelHigh || focus.ColorTag != models.ColorTagFocused {
		t.Errorf("expected High/focused focus, got %s/%s", focus.Label, focus.ColorTag)
	}
}

func TestClassifyVitalsMissingInputs(t *testing.T) {
	// Missing heart rate contributes nothing.
	states := ClassifyVitals(nil, f(10))
	stress := stateByKind(t, states, models.EmotionKindStress)
	if stress.Level != 0 {
		t.Errorf("expected stress 0 without heart rate, got %v", stress.Level)
	}
	focus := stateByKind(t, states, models.EmotionKindFocus)
	if focus.Level != 100 {
		t.Errorf("expected focus 100 at alpha=10, got %v", focus.Level)
	}

	// Missing alpha: stress from heart rate only, no focus state at all.
	states = ClassifyVitals(f(90), nil)
	stress = stateByKind(t, states, models.EmotionKindStress)
	if stress.Level != 60 {
		t.Errorf("expected stress 60 at hr=90, got %v", stress.Level)
	}
	if _, ok := models.StateByKind(states, models.EmotionKindFocus); ok {
		t.Error("expected no focus state without alpha power")
	}

	// Nothing at all still yields a calm baseline, never an error.
	states = ClassifyVitals(nil, nil)
	if len(states) != 2 {
		t.Fatalf("expected emotional+stress states, got %d", len(states))
	}
	for _, s := range states {
		if s.Level != 0 {
			t.Errorf("expected level 0 for %s, got %v", s.Kind, s.Level)
		}
	}
}

func TestClassifyVitalsLevelsAlwaysInRange(t *testing.T) {
	for hr := 40.0; hr <= 200; hr += 7 {
		for alpha := 0.0; alpha <= 30; alpha += 1.3 {
			for _, s := range ClassifyVitals(f(hr), f(alpha)) {
				if s.Level < 0 || s.Level > 100 {
					t.Fatalf("level out of range for hr=%v alpha=%v kind=%s: %v", hr, alpha, s.Kind, s.Level)
				}
			}
		}
	}
}

func TestClassifyBands(t *testing.T) {
	bands := models.EEGBandPower{Delta: 5, Theta: 10, Alpha: 10, Beta: 20, Gamma: 2}
	states, err := ClassifyBands(bands, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// engagement = (20/10)*50 = 100 -> High/engaged.
	engagement := stateByKind(t, states, models.EmotionKindEngagement)
	if engagement.Level != 100 {
		t.Errorf("expected engagement 100, got %v", engagement.Level)
	}
	if engagement.Label != models.EmotionLabelHigh || engagement.ColorTag != models.ColorTagEngaged {
		t.Errorf("expected High/engaged, got %s/%s", engagement.Label, engagement.ColorTag)
	}

	// stress = (2 + 2)*25 = 100.
	stress := stateByKind(t, states, models.EmotionKindStress)
	if stress.Level != 100 {
		t.Errorf("expected stress 100, got %v", stress.Level)
	}

	// focus = 0.8*100 = 80 -> High/focused.
	focus := stateByKind(t, states, models.EmotionKindFocus)
	if focus.Level != 80 {
		t.Errorf("expected focus 80, got %v", focus.Level)
	}
	if focus.Label != models.EmotionLabelHigh || focus.ColorTag != models.ColorTagFocused {
		t.Errorf("expected High/focused, got %s/%s", focus.Label, focus.ColorTag)
	}
}

func TestClassifyBandsIncomplete(t *testing.T) {
	_, err := ClassifyBands(models.EEGBandPower{Theta: 10, Beta: 20}, 0.5)
	if !errors.Is(err, ErrIncompleteBands) {
		t.Errorf("expected ErrIncompleteBands for missing alpha, got %v", err)
	}

	_, err = ClassifyBands(models.EEGBandPower{Alpha: 10, Beta: 20}, 0.5)
	if !errors.Is(err, ErrIncompleteBands) {
		t.Errorf("expected ErrIncompleteBands for missing theta, got %v", err)
	}
}

func TestClassifyBandsCognitiveClamped(t *testing.T) {
	bands := models.EEGBandPower{Theta: 10, Alpha: 10, Beta: 5}
	states, err := ClassifyBands(bands, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	focus := stateByKind(t, states, models.EmotionKindFocus)
	if focus.Level != 100 {
		t.Errorf("expected focus clamped to 100, got %v", focus.Level)
	}

	states, err = ClassifyBands(bands, -0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	focus = stateByKind(t, states, models.EmotionKindFocus)
	if focus.Level != 0 {
		t.Errorf("expected focus clamped to 0, got %v", focus.Level)
	}
}

func TestLabelThresholdBoundaries(t *testing.T) {
	tests := []struct {
		kind  models.EmotionKind
		level float64
		label models.EmotionLabel
		color models.ColorTag
	}{
		{models.EmotionKindStress, 32.9, models.EmotionLabelLow, models.ColorTagCalm},
		{models.EmotionKindStress, 33, models.EmotionLabelModerate, models.ColorTagModerate},
		{models.EmotionKindStress, 65.9, models.EmotionLabelModerate, models.ColorTagModerate},
		{models.EmotionKindStress, 66, models.EmotionLabelHigh, models.ColorTagAlert},
		{models.EmotionKindEmotional, 0, models.EmotionLabelCalm, models.ColorTagCalm},
		{models.EmotionKindEmotional, 66, models.EmotionLabelStressed, models.ColorTagAlert},
		{models.EmotionKindFocus, 70, models.EmotionLabelModerate, models.ColorTagModerate},
		{models.EmotionKindFocus, 70.1, models.EmotionLabelHigh, models.ColorTagFocused},
		{models.EmotionKindFocus, 30, models.EmotionLabelModerate, models.ColorTagModerate},
		{models.EmotionKindFocus, 29.9, models.EmotionLabelLow, models.ColorTagCalm},
		{models.EmotionKindEngagement, 70.1, models.EmotionLabelHigh, models.ColorTagEngaged},
		{models.EmotionKindEngagement, 29.9, models.EmotionLabelLow, models.ColorTagCalm},
	}
	for _, tc := range tests {
		label, color := labelFor(tc.kind, tc.level)
		if label != tc.label || color != tc.color {
			t.Errorf("labelFor(%s, %v) = %s/%s, want %s/%s", tc.kind, tc.level, label, color, tc.label, tc.color)
		}
	}
}
