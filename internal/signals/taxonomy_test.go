package signals

import "testing"

func TestTrainingWeightTiers(t *testing.T) {
	cases := map[string]float64{
		"slot_confirmed":     WeightTier1,
		"slot_locked":        WeightTier2,
		"card_viewed":        WeightTier3,
		"card_impression":    WeightTier4,
		"totally_unknown_xy": DefaultWeight,
	}
	for signalType, want := range cases {
		if got := TrainingWeight(signalType); got != want {
			t.Errorf("TrainingWeight(%q) = %v, want %v", signalType, got, want)
		}
	}
}

func TestPolarityIsExclusive(t *testing.T) {
	for signalType := range positiveSignals {
		if IsNegative(signalType) {
			t.Errorf("signal type %q is both positive and negative", signalType)
		}
	}
	for signalType := range negativeSignals {
		if IsPositive(signalType) {
			t.Errorf("signal type %q is both positive and negative", signalType)
		}
	}
}

func TestIsKnownType(t *testing.T) {
	if !IsKnownType("slot_confirmed") {
		t.Error("slot_confirmed should be a known type")
	}
	if IsKnownType("made_up_event") {
		t.Error("made_up_event should not be a known type")
	}
}
