package signals

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"iaros/itinerary_core/internal/models"
)

func validRequest() WriteRequest {
	return WriteRequest{
		UserID:       uuid.New(),
		TripID:       uuid.New(),
		SignalType:   "slot_confirmed",
		SignalValue:  1.0,
		TripPhase:    models.TripPhaseActive,
		RawAction:    "user tapped confirm",
		Source:       models.SignalSourceUserBehavioral,
		SignalWeight: 1.0,
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, validRequest().Validate())
}

func TestValidate_MissingUserID(t *testing.T) {
	r := validRequest()
	r.UserID = uuid.Nil
	require.Error(t, r.Validate())
}

func TestValidate_UnknownSignalType(t *testing.T) {
	r := validRequest()
	r.SignalType = "not_a_real_type"
	require.Error(t, r.Validate())
}

func TestValidate_SignalWeightOutOfRange(t *testing.T) {
	r := validRequest()
	r.SignalWeight = 3.1
	require.Error(t, r.Validate())

	r.SignalWeight = -1.1
	require.Error(t, r.Validate())
}

func TestValidate_SignalWeightBoundary(t *testing.T) {
	r := validRequest()
	r.SignalWeight = 3.0
	require.NoError(t, r.Validate())

	r.SignalWeight = -1.0
	require.NoError(t, r.Validate())
}
