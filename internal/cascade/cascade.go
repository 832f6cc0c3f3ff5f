// Package cascade implements the same-day time-shift re-solver (§4.4):
// a pure evaluation step and a transactional apply step, grounded on
// original_source/services/api/pivot/cascade.py.
package cascade

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"iaros/itinerary_core/internal/models"
)

// SlotSnapshot is the read-only view of an itinerary slot cascade
// evaluation operates on.
type SlotSnapshot struct {
	ID              string
	DayNumber       int
	SortOrder       int
	SlotType        models.SlotType
	Status          models.SlotStatus
	StartTime       *time.Time
	EndTime         *time.Time
	DurationMinutes *int
	IsLocked        bool
}

// SlotUpdate is one downstream slot's recomputed timing.
type SlotUpdate struct {
	SlotID    string
	NewStart  *time.Time
	NewEnd    *time.Time
	SortOrder int
}

// Result is the outcome of evaluating a cascade from a swapped slot.
type Result struct {
	PivotSlotID           string
	DayNumber             int
	AffectedSlotIDs       []string
	Updates               []SlotUpdate
	CrossDayImpact        bool
	CrossDayPivotRequired bool
	Warning               string
}

func durationDelta(oldDuration, newDuration *int) int {
	if oldDuration == nil || newDuration == nil {
		return 0
	}
	return *newDuration - *oldDuration
}

// loadLocation resolves the trip's IANA timezone, falling back to UTC
// with a logged warning on an unknown zone name (matches the original's
// graceful tz fallback).
func loadLocation(tripTimezone string, logger *zap.Logger) *time.Location {
	if tripTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tripTimezone)
	if err != nil {
		if logger != nil {
			logger.Warn("unknown trip timezone, falling back to UTC",
				zap.String("timezone", tripTimezone), zap.Error(err))
		}
		return time.UTC
	}
	return loc
}

// Evaluate computes the cascade of a slot-duration change across the
// same day's downstream slots. Pure: no I/O, no mutation of inputs.
func Evaluate(
	swappedSlot SlotSnapshot,
	newDurationMinutes *int,
	sameDaySlots []SlotSnapshot,
	tripTimezone string,
	logger *zap.Logger,
) Result {
	_ = loadLocation(tripTimezone, logger) // resolved for local-time semantics downstream callers may need

	result := Result{
		PivotSlotID: swappedSlot.ID,
		DayNumber:   swappedSlot.DayNumber,
	}

	delta := durationDelta(swappedSlot.DurationMinutes, newDurationMinutes)

	downstream := selectDownstream(swappedSlot, sameDaySlots)
	if len(downstream) == 0 {
		result.Warning = "No downstream slots to cascade."
		return result
	}
	if delta == 0 {
		result.Warning = "Duration unchanged — no cascade needed."
		return result
	}

	shift := time.Duration(delta) * time.Minute
	updates := make([]SlotUpdate, 0, len(downstream))
	affected := make([]string, 0, len(downstream))
	for _, slot := range downstream {
		update := SlotUpdate{SlotID: slot.ID, SortOrder: slot.SortOrder}
		if slot.StartTime != nil {
			shifted := slot.StartTime.Add(shift)
			update.NewStart = &shifted
		}
		if slot.EndTime != nil {
			shifted := slot.EndTime.Add(shift)
			update.NewEnd = &shifted
		}
		updates = append(updates, update)
		affected = append(affected, slot.ID)
	}

	result.Updates = updates
	result.AffectedSlotIDs = affected

	return result
}

// EvaluateWithCrossDayCheck runs the pure Evaluate step and then, only
// when the duration grew, consults the database for cross-day spillover
// — the one part of cascade evaluation that cannot be pure, since it
// depends on day N+1's persisted slots. Cross-day cascade is never
// performed automatically; the caller must issue a new pivot.
func EvaluateWithCrossDayCheck(
	ctx context.Context,
	db *gorm.DB,
	tripID string,
	swappedSlot SlotSnapshot,
	newDurationMinutes *int,
	sameDaySlots []SlotSnapshot,
	tripTimezone string,
	logger *zap.Logger,
) (Result, error) {
	result := Evaluate(swappedSlot, newDurationMinutes, sameDaySlots, tripTimezone, logger)

	delta := durationDelta(swappedSlot.DurationMinutes, newDurationMinutes)
	if delta <= 0 {
		return result, nil
	}

	impact, err := CheckCrossDayImpact(ctx, db, tripID, swappedSlot.DayNumber, delta)
	if err != nil {
		return result, err
	}
	result.CrossDayImpact = impact
	result.CrossDayPivotRequired = impact
	return result, nil
}

// selectDownstream returns the same-day slots strictly after the
// swapped slot's sortOrder, excluding locked or terminal slots, sorted
// ascending by sortOrder.
func selectDownstream(swapped SlotSnapshot, sameDaySlots []SlotSnapshot) []SlotSnapshot {
	var out []SlotSnapshot
	for _, s := range sameDaySlots {
		if s.ID == swapped.ID {
			continue
		}
		if s.DayNumber != swapped.DayNumber {
			continue
		}
		if s.SortOrder <= swapped.SortOrder {
			continue
		}
		if s.IsLocked {
			continue
		}
		if s.Status.IsTerminal() {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// CheckCrossDayImpact determines whether shifting day dayNumber's slots
// by deltaMinutes (always called with delta > 0) pushes the last
// non-completed end time past the start of any slot on day dayNumber+1.
func CheckCrossDayImpact(ctx context.Context, db *gorm.DB, tripID string, dayNumber, deltaMinutes int) (bool, error) {
	if deltaMinutes <= 0 {
		return false, nil
	}

	var lastEnd *time.Time
	row := db.WithContext(ctx).Raw(`
		SELECT end_time FROM itinerary_slots
		WHERE trip_id = ? AND day_number = ? AND status NOT IN ('completed','skipped')
		ORDER BY sort_order DESC LIMIT 1
	`, tripID, dayNumber).Row()
	if row == nil {
		return false, nil
	}
	if err := row.Scan(&lastEnd); err != nil {
		return false, nil
	}
	if lastEnd == nil {
		return false, nil
	}

	newLastEnd := lastEnd.Add(time.Duration(deltaMinutes) * time.Minute)

	// Any next-day slot starting before the new last end counts as
	// spillover, not just the earliest one — a later-sorted slot can
	// still start earlier in wall-clock time (e.g. after a manual
	// reorder), matching the original's "any" check.
	var collisions int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM itinerary_slots
		WHERE trip_id = ? AND day_number = ? AND start_time < ?
	`, tripID, dayNumber+1, newLastEnd).Row().Scan(&collisions)
	if err != nil {
		return false, nil
	}

	return collisions > 0, nil
}

// Apply writes the recomputed downstream timings in a single
// transaction, skipping any row that has since become locked or reached
// a terminal status — one row's failure does not abort the rest.
func Apply(ctx context.Context, db *gorm.DB, logger *zap.Logger, result Result) (int, error) {
	applied := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range result.Updates {
			res := tx.Exec(`
				UPDATE itinerary_slots
				SET start_time = ?, end_time = ?, updated_at = NOW()
				WHERE id = ? AND is_locked = false AND status NOT IN ('completed','skipped')
			`, u.NewStart, u.NewEnd, u.SlotID)
			if res.Error != nil {
				logger.Error("cascade apply failed for slot",
					zap.String("slot_id", u.SlotID), zap.Error(res.Error))
				continue
			}
			applied += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return applied, err
	}
	return applied, nil
}
