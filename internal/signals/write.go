package signals

import (
	"time"

	"github.com/google/uuid"

	"iaros/itinerary_core/internal/apperr"
	"iaros/itinerary_core/internal/models"
)

// WriteRequest is the server-side write contract for a BehavioralSignal.
// SignalWeight is never accepted from a client payload — callers fill it
// in from TrainingWeight or a sub-flow-specific override before calling
// Validate.
type WriteRequest struct {
	UserID         uuid.UUID
	TripID         uuid.UUID
	ActivityNodeID *uuid.UUID
	SlotID         *uuid.UUID
	SignalType     string
	SignalValue    float64
	TripPhase      models.TripPhase
	RawAction      string
	Source         models.SignalSource
	Subflow        string
	SignalWeight   float64
}

// Validate enforces the write contract in spec §4.1: required fields
// present, signalWeight in range, signalType known.
func (r WriteRequest) Validate() error {
	if r.UserID == uuid.Nil {
		return apperr.Input("missing_user_id", "userId is required")
	}
	if r.TripID == uuid.Nil {
		return apperr.Input("missing_trip_id", "tripId is required")
	}
	if r.SignalType == "" {
		return apperr.Input("missing_signal_type", "signalType is required")
	}
	if r.RawAction == "" {
		return apperr.Input("missing_raw_action", "rawAction is required")
	}
	if r.TripPhase == "" {
		return apperr.Input("missing_trip_phase", "tripPhase is required")
	}
	if !IsKnownType(r.SignalType) {
		return apperr.Input("unknown_signal_type", "signalType is not part of the known taxonomy")
	}
	if r.SignalWeight < SignalWeightMin || r.SignalWeight > SignalWeightMax {
		return apperr.Input("signal_weight_out_of_range", "signalWeight must be within [-1.0, 3.0]")
	}
	return nil
}

// ToModel converts a validated WriteRequest into the persisted row shape.
func (r WriteRequest) ToModel(now time.Time) models.BehavioralSignal {
	return models.BehavioralSignal{
		ID:             uuid.New(),
		UserID:         r.UserID,
		TripID:         r.TripID,
		ActivityNodeID: r.ActivityNodeID,
		SlotID:         r.SlotID,
		SignalType:     r.SignalType,
		SignalValue:    r.SignalValue,
		TripPhase:      r.TripPhase,
		RawAction:      r.RawAction,
		Source:         r.Source,
		Subflow:        r.Subflow,
		SignalWeight:   r.SignalWeight,
		CreatedAt:      now,
	}
}
