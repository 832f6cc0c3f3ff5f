package cascade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"iaros/itinerary_core/internal/models"
)

func ts(hh, mm int) *time.Time {
	t := time.Date(2026, 2, 22, hh, mm, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func TestEvaluate_ThirtyMinuteShift(t *testing.T) {
	swapped := SlotSnapshot{
		ID: "slot-3", DayNumber: 2, SortOrder: 3,
		DurationMinutes: intPtr(30),
		StartTime:       ts(10, 0), EndTime: ts(10, 30),
	}
	sameDay := []SlotSnapshot{
		swapped,
		{ID: "slot-4", DayNumber: 2, SortOrder: 4, Status: models.SlotStatusProposed, StartTime: ts(11, 0), EndTime: ts(12, 0)},
		{ID: "slot-5", DayNumber: 2, SortOrder: 5, Status: models.SlotStatusProposed, StartTime: ts(12, 30), EndTime: ts(13, 0)},
		{ID: "slot-6", DayNumber: 2, SortOrder: 6, Status: models.SlotStatusProposed, StartTime: ts(13, 30), EndTime: ts(14, 0)},
	}

	result := Evaluate(swapped, intPtr(60), sameDay, "UTC", nil)

	require.Len(t, result.Updates, 3)
	require.ElementsMatch(t, []string{"slot-4", "slot-5", "slot-6"}, result.AffectedSlotIDs)
	for _, u := range result.Updates {
		require.Equal(t, u.SortOrder, findSortOrder(sameDay, u.SlotID))
	}

	slot4 := findUpdate(result.Updates, "slot-4")
	require.Equal(t, time.Date(2026, 2, 22, 11, 30, 0, 0, time.UTC), *slot4.NewStart)
	require.Equal(t, time.Date(2026, 2, 22, 12, 30, 0, 0, time.UTC), *slot4.NewEnd)
}

func TestEvaluate_NoDownstreamSlots(t *testing.T) {
	swapped := SlotSnapshot{ID: "slot-1", DayNumber: 1, SortOrder: 1, DurationMinutes: intPtr(30)}
	result := Evaluate(swapped, intPtr(60), []SlotSnapshot{swapped}, "UTC", nil)
	require.Equal(t, "No downstream slots to cascade.", result.Warning)
	require.Empty(t, result.Updates)
}

func TestEvaluate_NoDurationChange(t *testing.T) {
	swapped := SlotSnapshot{ID: "slot-1", DayNumber: 1, SortOrder: 1, DurationMinutes: intPtr(30)}
	downstream := SlotSnapshot{ID: "slot-2", DayNumber: 1, SortOrder: 2, Status: models.SlotStatusProposed}
	result := Evaluate(swapped, intPtr(30), []SlotSnapshot{swapped, downstream}, "UTC", nil)
	require.Equal(t, "Duration unchanged — no cascade needed.", result.Warning)
}

func TestEvaluate_SkipsLockedAndTerminal(t *testing.T) {
	swapped := SlotSnapshot{ID: "slot-1", DayNumber: 1, SortOrder: 1, DurationMinutes: intPtr(30)}
	locked := SlotSnapshot{ID: "slot-2", DayNumber: 1, SortOrder: 2, IsLocked: true, Status: models.SlotStatusProposed}
	completed := SlotSnapshot{ID: "slot-3", DayNumber: 1, SortOrder: 3, Status: models.SlotStatusCompleted}
	eligible := SlotSnapshot{ID: "slot-4", DayNumber: 1, SortOrder: 4, Status: models.SlotStatusProposed}

	result := Evaluate(swapped, intPtr(60), []SlotSnapshot{swapped, locked, completed, eligible}, "UTC", nil)
	require.Equal(t, []string{"slot-4"}, result.AffectedSlotIDs)
}

func findUpdate(updates []SlotUpdate, id string) SlotUpdate {
	for _, u := range updates {
		if u.SlotID == id {
			return u
		}
	}
	return SlotUpdate{}
}

func findSortOrder(slots []SlotSnapshot, id string) int {
	for _, s := range slots {
		if s.ID == id {
			return s.SortOrder
		}
	}
	return -1
}
