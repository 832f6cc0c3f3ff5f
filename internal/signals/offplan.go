package signals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"iaros/itinerary_core/internal/apperr"
	"iaros/itinerary_core/internal/models"
)

// Fixed parameters of the off-plan-add sub-flow (spec §4.1).
const (
	offPlanSignalType   = "slot_confirmed"
	offPlanSignalWeight = 1.4
	offPlanSource       = models.SignalSourceUserBehavioral
	offPlanSubflow      = "onthefly_add"
	ingestionSource     = "off_plan_add"
)

// OffPlanResultType tags the three possible outcomes of an off-plan add.
type OffPlanResultType string

const (
	OffPlanResultSignal           OffPlanResultType = "signal"
	OffPlanResultIngestionRequest OffPlanResultType = "ingestion_request"
	OffPlanResultDuplicate        OffPlanResultType = "duplicate"
)

// OffPlanResult is the outcome of handling an off-plan activity add.
type OffPlanResult struct {
	Type    OffPlanResultType
	Signal  *models.BehavioralSignal
	Request *models.CorpusIngestionRequest
	Message string
}

// normalizePlaceName is the unmatched-branch venue key (spec §4.1): the
// lowercased trimmed place name, used both for the raw-action slug and
// for the corpus-ingestion dedup check/insert so differently-cased
// entries of the same venue collide.
func normalizePlaceName(trimmed string) string {
	return strings.ToLower(trimmed)
}

// OffPlanHandler wires the matched/unmatched/duplicate off-plan-add flow
// directly against gorm, grounded on
// original_source/services/api/signals/off_plan_handler.py.
type OffPlanHandler struct {
	db *gorm.DB
}

func NewOffPlanHandler(db *gorm.DB) *OffPlanHandler {
	return &OffPlanHandler{db: db}
}

// HandleAdd resolves a mid-trip off-plan activity add. activityNodeID is
// nil when the entity resolver found no corpus match.
func (h *OffPlanHandler) HandleAdd(
	ctx context.Context,
	userID, tripID uuid.UUID,
	placeName string,
	activityNodeID *uuid.UUID,
) (OffPlanResult, error) {
	if userID == uuid.Nil {
		return OffPlanResult{}, apperr.Input("missing_user_id", "userId is required")
	}
	if tripID == uuid.Nil {
		return OffPlanResult{}, apperr.Input("missing_trip_id", "tripId is required")
	}
	trimmed := strings.TrimSpace(placeName)
	if trimmed == "" {
		return OffPlanResult{}, apperr.Input("missing_place_name", "placeName is required")
	}

	normalized := normalizePlaceName(trimmed)
	rawActionKey := fmt.Sprintf("off_plan_add:%s", normalized)

	if activityNodeID != nil {
		return h.handleMatched(ctx, userID, tripID, trimmed, rawActionKey, *activityNodeID)
	}
	return h.handleUnmatched(ctx, userID, tripID, normalized, rawActionKey)
}

func (h *OffPlanHandler) handleMatched(
	ctx context.Context,
	userID, tripID uuid.UUID,
	placeName, rawActionKey string,
	activityNodeID uuid.UUID,
) (OffPlanResult, error) {
	var existing int64
	err := h.db.WithContext(ctx).Model(&models.BehavioralSignal{}).
		Where("user_id = ? AND trip_id = ? AND (raw_action = ? OR activity_node_id = ?)",
			userID, tripID, rawActionKey, activityNodeID).
		Count(&existing).Error
	if err != nil {
		return OffPlanResult{}, apperr.Transient("offplan_dedup_lookup_failed", "failed to check for duplicate off-plan add", err)
	}
	if existing > 0 {
		return OffPlanResult{Type: OffPlanResultDuplicate, Message: "this venue was already recorded for this trip"}, nil
	}

	signal := models.BehavioralSignal{
		ID:             uuid.New(),
		UserID:         userID,
		TripID:         tripID,
		ActivityNodeID: &activityNodeID,
		SignalType:     offPlanSignalType,
		SignalValue:    1.0,
		TripPhase:      models.TripPhaseActive,
		RawAction:      rawActionKey,
		Source:         offPlanSource,
		Subflow:        offPlanSubflow,
		SignalWeight:   offPlanSignalWeight,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.db.WithContext(ctx).Create(&signal).Error; err != nil {
		return OffPlanResult{}, apperr.Transient("offplan_signal_write_failed", "failed to write off-plan signal", err)
	}
	return OffPlanResult{Type: OffPlanResultSignal, Signal: &signal}, nil
}

// handleUnmatched dedupes and persists the corpus-ingestion request.
// normalizedPlaceName is the lowercased trimmed place name — the spec's
// venue key for the unmatched branch — so "Cafe X" and "cafe x" collide
// on the same dedup check and stored row.
func (h *OffPlanHandler) handleUnmatched(
	ctx context.Context,
	userID, tripID uuid.UUID,
	normalizedPlaceName, rawActionKey string,
) (OffPlanResult, error) {
	var existing int64
	err := h.db.WithContext(ctx).Model(&models.CorpusIngestionRequest{}).
		Where("user_id = ? AND trip_id = ? AND place_name = ?", userID, tripID, normalizedPlaceName).
		Count(&existing).Error
	if err != nil {
		return OffPlanResult{}, apperr.Transient("offplan_dedup_lookup_failed", "failed to check for duplicate ingestion request", err)
	}
	if existing > 0 {
		return OffPlanResult{Type: OffPlanResultDuplicate, Message: "this venue was already recorded for this trip"}, nil
	}

	req := models.CorpusIngestionRequest{
		ID:        uuid.New(),
		TripID:    tripID,
		UserID:    userID,
		PlaceName: normalizedPlaceName,
		Status:    models.IngestionStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.db.WithContext(ctx).Create(&req).Error; err != nil {
		return OffPlanResult{}, apperr.Transient("offplan_ingestion_write_failed", "failed to write ingestion request", err)
	}
	return OffPlanResult{Type: OffPlanResultIngestionRequest, Request: &req}, nil
}
