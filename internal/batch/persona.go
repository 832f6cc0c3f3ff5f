package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"iaros/itinerary_core/internal/models"
)

// Fixed EMA parameters, spec §4.2.2.
const (
	emaAlpha              = 0.3
	midTripAlphaMultiplier = 3
	minSignalsForUpdate    = 2
	defaultConfidence      = 0.5
	confidenceFloor        = 0.05
	confidenceCeil         = 0.98
)

var positivePersonaSignals = map[string]struct{}{
	"slot_confirm":         {},
	"slot_complete":        {},
	"post_loved":           {},
	"discover_shortlist":   {},
	"discover_swipe_right": {},
}

var negativePersonaSignals = map[string]struct{}{
	"slot_skip":           {},
	"slot_reject":         {},
	"post_disliked":       {},
	"discover_swipe_left": {},
}

// dimensionMapping is one (dimension, positive value, weight) triple a
// category contributes to.
type dimensionMapping struct {
	Dimension     string
	PositiveValue string
	Weight        float64
}

// categoryDimensionMap is the full 15-category persona-mapping table
// (SPEC_FULL §3), grounded on
// original_source/services/api/jobs/persona_updater.py's
// CATEGORY_DIMENSION_MAP.
var categoryDimensionMap = map[string][]dimensionMapping{
	"restaurant": {
		{"food_priority", "food_driven", 1.0},
	},
	"cafe": {
		{"food_priority", "food_driven", 0.6},
		{"pace_preference", "slow_traveler", 0.3},
	},
	"bar": {
		{"nightlife_interest", "nightlife_seeker", 0.8},
	},
	"club": {
		{"nightlife_interest", "nightlife_seeker", 1.0},
		{"energy_level", "high_energy", 0.5},
	},
	"museum": {
		{"culture_engagement", "culture_immersive", 1.0},
	},
	"temple": {
		{"culture_engagement", "culture_immersive", 0.8},
		{"authenticity_preference", "authenticity_driven", 0.5},
	},
	"gallery": {
		{"culture_engagement", "culture_immersive", 0.7},
	},
	"market": {
		{"food_priority", "food_driven", 0.5},
		{"authenticity_preference", "authenticity_driven", 0.6},
	},
	"park": {
		{"nature_preference", "nature_driven", 0.8},
		{"energy_level", "medium_energy", 0.3},
	},
	"hike": {
		{"nature_preference", "nature_driven", 1.0},
		{"energy_level", "high_energy", 0.7},
	},
	"viewpoint": {
		{"nature_preference", "nature_curious", 0.5},
	},
	"onsen": {
		{"pace_preference", "slow_traveler", 0.6},
		{"authenticity_preference", "authenticity_driven", 0.4},
	},
	"shopping": {
		{"budget_orientation", "moderate_spender", 0.4},
	},
	"neighborhood": {
		{"authenticity_preference", "locally_curious", 0.7},
		{"pace_preference", "slow_traveler", 0.4},
	},
	"entertainment": {
		{"energy_level", "high_energy", 0.5},
		{"social_orientation", "social_explorer", 0.4},
	},
}

// defaultValueForDimension backstops a persona dimension's initial value
// on cold start, grounded on persona_updater.py's
// _default_value_for_dimension.
var defaultValueForDimension = map[string]string{
	"energy_level":             "medium_energy",
	"social_orientation":       "small_group",
	"planning_style":           "flexible",
	"budget_orientation":       "moderate_spender",
	"food_priority":            "food_balanced",
	"culture_engagement":       "culture_moderate",
	"nature_preference":        "nature_curious",
	"nightlife_interest":       "balanced_schedule",
	"authenticity_preference": "locally_curious",
	"pace_preference":          "moderate_pace",
	"unknown":                  "unknown",
}

func defaultValueFor(dimension string) string {
	if v, ok := defaultValueForDimension[dimension]; ok {
		return v
	}
	return defaultValueForDimension["unknown"]
}

// effectiveAlpha returns the base alpha for a trip phase: boosted to
// min(1.0, 3*alpha) during the active phase, else the base alpha.
func effectiveAlpha(tripPhase models.TripPhase) float64 {
	if tripPhase == models.TripPhaseActive {
		boosted := emaAlpha * midTripAlphaMultiplier
		if boosted > 1.0 {
			boosted = 1.0
		}
		return boosted
	}
	return emaAlpha
}

// computeEMA applies the weighted EMA update and clamps to
// [confidenceFloor, confidenceCeil]. alpha here is the (possibly
// phase-boosted) base rate from effectiveAlpha — it is multiplied again
// by weight, preserving the original's double-multiplication exactly.
func computeEMA(currentConfidence float64, signalDirection int, alpha, weight float64) float64 {
	target := 0.0
	if signalDirection > 0 {
		target = 1.0
	}
	effAlpha := alpha * weight
	newValue := effAlpha*target + (1-effAlpha)*currentConfidence
	if newValue < confidenceFloor {
		newValue = confidenceFloor
	}
	if newValue > confidenceCeil {
		newValue = confidenceCeil
	}
	return newValue
}

// signalForPersona is one signal joined to its activity category,
// consumed by buildDimensionUpdates.
type signalForPersona struct {
	Category   string
	SignalType string
	TripPhase  models.TripPhase
}

// dimensionUpdate is the computed upsert for one (userId, dimension).
type dimensionUpdate struct {
	Dimension  string
	Value      string
	Confidence float64
}

// buildDimensionUpdates computes the per-dimension EMA updates for one
// user's signals in the window. The cold-start guard
// (minSignalsForUpdate) is applied PER DIMENSION, not per user.
//
// The categorical value column is never derived from the signal's
// mapping — it preserves the dimension's existing value, or seeds the
// configured default for a dimension the user has never had before
// (spec §4.2.2 step 5; persona_updater.py's existing_value/
// _default_value_for_dimension). Only the numeric confidence moves via
// the weighted EMA.
func buildDimensionUpdates(userSignals []signalForPersona, existingValue map[string]string, currentConfidence map[string]float64) []dimensionUpdate {
	dimensionSignalCount := map[string]int{}
	confidence := map[string]float64{}

	for _, sig := range userSignals {
		mappings, ok := categoryDimensionMap[sig.Category]
		if !ok {
			continue
		}
		direction := 0
		if _, pos := positivePersonaSignals[sig.SignalType]; pos {
			direction = 1
		} else if _, neg := negativePersonaSignals[sig.SignalType]; neg {
			direction = -1
		} else {
			continue
		}

		alpha := effectiveAlpha(sig.TripPhase)
		for _, m := range mappings {
			dimensionSignalCount[m.Dimension]++
			base, exists := confidence[m.Dimension]
			if !exists {
				if c, ok := currentConfidence[m.Dimension]; ok {
					base = c
				} else {
					base = defaultConfidence
				}
			}
			confidence[m.Dimension] = computeEMA(base, direction, alpha, m.Weight)
		}
	}

	var updates []dimensionUpdate
	for dimension, count := range dimensionSignalCount {
		if count < minSignalsForUpdate {
			continue
		}
		value, hadExisting := existingValue[dimension]
		if !hadExisting {
			value = defaultValueFor(dimension)
		}
		updates = append(updates, dimensionUpdate{
			Dimension:  dimension,
			Value:      value,
			Confidence: confidence[dimension],
		})
	}
	return updates
}

// PersonaUpdateResult is the public shape returned by PersonaUpdate.Run.
type PersonaUpdateResult struct {
	Date              time.Time
	Status            models.AuditStatus
	UsersUpdated      int
	DimensionsUpdated int
	DurationMS        int64
}

// PersonaUpdate runs the nightly persona EMA update job (spec §4.2.2).
type PersonaUpdate struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPersonaUpdate(db *gorm.DB, logger *zap.Logger) *PersonaUpdate {
	return &PersonaUpdate{db: db, logger: logger}
}

func (p *PersonaUpdate) Run(ctx context.Context, runDate time.Time) (PersonaUpdateResult, error) {
	start := time.Now()
	runDate = truncateToDate(runDate)

	var existing int64
	if err := p.db.WithContext(ctx).Model(&models.PersonaUpdateRun{}).
		Where("run_date = ? AND status = ?", runDate, models.AuditStatusSuccess).
		Count(&existing).Error; err != nil {
		return PersonaUpdateResult{}, err
	}
	if existing > 0 {
		return PersonaUpdateResult{Date: runDate, Status: models.AuditStatusSkipped}, nil
	}

	windowStart, windowEnd := Window(runDate)

	type row struct {
		UserID     uuid.UUID
		Category   string
		SignalType string
		TripPhase  models.TripPhase
	}
	var rows []row
	err := p.db.WithContext(ctx).Raw(`
		SELECT bs.user_id, an.persona_category AS category, bs.signal_type, bs.trip_phase
		FROM behavioral_signals bs
		JOIN itinerary_slots s ON s.id = bs.slot_id
		JOIN activity_nodes an ON an.id = s.activity_node_id
		WHERE bs.source = 'user_behavioral'
		  AND bs.created_at >= ? AND bs.created_at < ?
		ORDER BY bs.user_id, bs.created_at
	`, windowStart, windowEnd).Scan(&rows).Error
	if err != nil {
		p.recordErrorAudit(ctx, runDate, err, time.Since(start).Milliseconds())
		return PersonaUpdateResult{}, err
	}

	byUser := map[uuid.UUID][]signalForPersona{}
	for _, r := range rows {
		byUser[r.UserID] = append(byUser[r.UserID], signalForPersona{
			Category: r.Category, SignalType: r.SignalType, TripPhase: r.TripPhase,
		})
	}

	usersUpdated := 0
	dimensionsUpdated := 0

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for userID, signals := range byUser {
			var existingDims []models.PersonaDimension
			if err := tx.Where("user_id = ?", userID).Find(&existingDims).Error; err != nil {
				return err
			}
			currentConfidence := make(map[string]float64, len(existingDims))
			existingValue := make(map[string]string, len(existingDims))
			for _, d := range existingDims {
				currentConfidence[d.Dimension] = d.Confidence
				existingValue[d.Dimension] = d.Value
			}

			updates := buildDimensionUpdates(signals, existingValue, currentConfidence)
			if len(updates) == 0 {
				continue
			}
			for _, u := range updates {
				err := tx.Exec(`
					INSERT INTO persona_dimensions (user_id, dimension, value, confidence, source, updated_at)
					VALUES (?, ?, ?, ?, 'behavioral_ema', NOW())
					ON CONFLICT (user_id, dimension) DO UPDATE SET
						confidence = EXCLUDED.confidence,
						source = EXCLUDED.source,
						updated_at = EXCLUDED.updated_at
				`, userID, u.Dimension, u.Value, u.Confidence).Error
				if err != nil {
					return err
				}
				dimensionsUpdated++
			}
			usersUpdated++
		}

		return tx.Create(&models.PersonaUpdateRun{
			RunDate:           runDate,
			Status:            models.AuditStatusSuccess,
			UsersUpdated:      usersUpdated,
			DimensionsUpdated: dimensionsUpdated,
			DurationMS:        time.Since(start).Milliseconds(),
			CreatedAt:         time.Now().UTC(),
		}).Error
	})
	if err != nil {
		p.recordErrorAudit(ctx, runDate, err, time.Since(start).Milliseconds())
		return PersonaUpdateResult{}, err
	}

	return PersonaUpdateResult{
		Date:              runDate,
		Status:            models.AuditStatusSuccess,
		UsersUpdated:       usersUpdated,
		DimensionsUpdated: dimensionsUpdated,
		DurationMS:        time.Since(start).Milliseconds(),
	}, nil
}

func (p *PersonaUpdate) recordErrorAudit(ctx context.Context, runDate time.Time, cause error, durationMS int64) {
	err := p.db.WithContext(ctx).Create(&models.PersonaUpdateRun{
		RunDate:      runDate,
		Status:       models.AuditStatusError,
		ErrorMessage: cause.Error(),
		DurationMS:   durationMS,
		CreatedAt:    time.Now().UTC(),
	}).Error
	if err != nil {
		p.logger.Error("failed to write error audit row for persona update run",
			zap.Time("run_date", runDate), zap.Error(err))
	}
}
