package microstops

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TransitSegment is a transit slot with resolved origin/destination
// coordinates.
type TransitSegment struct {
	SlotID            string
	SortOrder         int
	StartTime         *time.Time
	EndTime           *time.Time
	OriginLat         float64
	OriginLon         float64
	DestinationLat    float64
	DestinationLon    float64
	OriginNodeID      *string
	DestinationNodeID *string
}

// Insertion is a micro-stop slot that was inserted into the itinerary.
type Insertion struct {
	NewSlotID           string
	ActivityNodeID      string
	ActivityName        string
	InsertedAfterSlotID string
	SortOrder           int
	StartTime           *time.Time
	EndTime             *time.Time
	DurationMinutes     int
	ConvergenceScore    *float64
}

// Result summarizes one suggest-for-day run.
type Result struct {
	TripID                     string
	DayNumber                  int
	TransitSegmentsEvaluated   int
	Insertions                 []Insertion
	Warnings                   []string
}

func (r Result) InsertedCount() int { return len(r.Insertions) }

// Service orchestrates proximity-based micro-stop suggestions for a
// trip day, grounded on
// original_source/services/api/microstops/service.py.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// SuggestForDay evaluates all transit slots on a day and proposes
// micro-stops. Never raises on partial failures — failures accumulate
// as warnings instead.
func (s *Service) SuggestForDay(ctx context.Context, tripID string, dayNumber int) (Result, error) {
	result := Result{TripID: tripID, DayNumber: dayNumber}

	segments, err := s.fetchTransitSegments(ctx, tripID, dayNumber)
	if err != nil {
		return result, err
	}
	result.TransitSegmentsEvaluated = len(segments)
	if len(segments) == 0 {
		result.Warnings = append(result.Warnings, "No eligible transit segments found.")
		return result, nil
	}

	maxSortOrder, err := s.fetchMaxSortOrder(ctx, tripID, dayNumber)
	if err != nil {
		return result, err
	}

	for _, segment := range segments {
		insertion, err := s.evaluateSegment(ctx, tripID, dayNumber, segment, maxSortOrder)
		if err != nil {
			s.logger.Error("micro-stop evaluation failed",
				zap.String("slot_id", segment.SlotID), zap.Error(err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("segment %s failed: %v", segment.SlotID, err))
			continue
		}
		if insertion != nil {
			result.Insertions = append(result.Insertions, *insertion)
			maxSortOrder = insertion.SortOrder + 1
		}
	}

	s.logger.Info("micro-stops evaluated",
		zap.String("trip_id", tripID), zap.Int("day_number", dayNumber),
		zap.Int("segments", result.TransitSegmentsEvaluated), zap.Int("inserted", result.InsertedCount()))

	return result, nil
}

func (s *Service) fetchTransitSegments(ctx context.Context, tripID string, dayNumber int) ([]TransitSegment, error) {
	rows, err := s.db.WithContext(ctx).Raw(`
		WITH ranked AS (
			SELECT
				s.id, s.sort_order, s.slot_type, s.start_time, s.end_time,
				s.is_locked, s.status,
				LAG(s.activity_node_id) OVER (ORDER BY s.sort_order) AS origin_node_id,
				LEAD(s.activity_node_id) OVER (ORDER BY s.sort_order) AS dest_node_id
			FROM itinerary_slots s
			WHERE s.trip_id = ? AND s.day_number = ?
		)
		SELECT
			r.id, r.sort_order, r.start_time, r.end_time,
			r.origin_node_id, r.dest_node_id,
			orig.latitude, orig.longitude, dest.latitude, dest.longitude
		FROM ranked r
		LEFT JOIN activity_nodes orig ON orig.id = r.origin_node_id
		LEFT JOIN activity_nodes dest ON dest.id = r.dest_node_id
		WHERE r.slot_type = 'transit'
		  AND r.is_locked = false
		  AND r.status NOT IN ('completed', 'skipped')
		  AND orig.latitude IS NOT NULL AND orig.longitude IS NOT NULL
		  AND dest.latitude IS NOT NULL AND dest.longitude IS NOT NULL
		ORDER BY r.sort_order ASC
	`, tripID, dayNumber).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []TransitSegment
	for rows.Next() {
		var seg TransitSegment
		if err := rows.Scan(
			&seg.SlotID, &seg.SortOrder, &seg.StartTime, &seg.EndTime,
			&seg.OriginNodeID, &seg.DestinationNodeID,
			&seg.OriginLat, &seg.OriginLon, &seg.DestinationLat, &seg.DestinationLon,
		); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func (s *Service) hasExistingFlexAfter(ctx context.Context, tripID string, dayNumber, sortOrder int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM itinerary_slots
		WHERE trip_id = ? AND day_number = ? AND sort_order = ? AND slot_type = 'flex'
	`, tripID, dayNumber, sortOrder+1).Row().Scan(&count)
	return count > 0, err
}

func (s *Service) fetchMaxSortOrder(ctx context.Context, tripID string, dayNumber int) (int, error) {
	var maxOrder int
	err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(MAX(sort_order), 0) FROM itinerary_slots
		WHERE trip_id = ? AND day_number = ?
	`, tripID, dayNumber).Row().Scan(&maxOrder)
	return maxOrder, err
}

func (s *Service) evaluateSegment(
	ctx context.Context,
	tripID string,
	dayNumber int,
	segment TransitSegment,
	currentMaxSortOrder int,
) (*Insertion, error) {
	hasFlex, err := s.hasExistingFlexAfter(ctx, tripID, dayNumber, segment.SortOrder)
	if err != nil {
		return nil, err
	}
	if hasFlex {
		return nil, nil
	}

	var excludeIDs []string
	if segment.OriginNodeID != nil {
		excludeIDs = append(excludeIDs, *segment.OriginNodeID)
	}
	if segment.DestinationNodeID != nil {
		excludeIDs = append(excludeIDs, *segment.DestinationNodeID)
	}

	candidates := FindNodesAlongPath(
		ctx, s.db, s.logger,
		segment.OriginLat, segment.OriginLon, segment.DestinationLat, segment.DestinationLon,
		tripID, dayNumber, excludeIDs,
	)
	if len(candidates) == 0 {
		return nil, nil
	}

	top := candidates[0]
	duration := defaultMicroDuration
	if top.DurationMinutes != nil {
		duration = *top.DurationMinutes
	}

	var startTime, endTime *time.Time
	if segment.EndTime != nil {
		start := *segment.EndTime
		end := start.Add(time.Duration(duration) * time.Minute)
		startTime, endTime = &start, &end
	}

	newSlotID := uuid.New().String()
	newSortOrder := segment.SortOrder + 1

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			UPDATE itinerary_slots SET sort_order = sort_order + 1, updated_at = NOW()
			WHERE trip_id = ? AND day_number = ? AND sort_order >= ? AND id != ?
		`, tripID, dayNumber, newSortOrder, segment.SlotID).Error; err != nil {
			return err
		}
		return tx.Exec(`
			INSERT INTO itinerary_slots (
				id, trip_id, activity_node_id, day_number, sort_order,
				slot_type, status, start_time, end_time, duration_minutes,
				is_locked, was_swapped, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, 'flex', 'proposed', ?, ?, ?, false, false, NOW(), NOW())
			ON CONFLICT DO NOTHING
		`, newSlotID, tripID, top.ActivityNodeID, dayNumber, newSortOrder,
			startTime, endTime, duration).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("micro-stop inserted",
		zap.String("slot_id", newSlotID), zap.String("node_id", top.ActivityNodeID),
		zap.String("after_transit", segment.SlotID), zap.Int("duration_minutes", duration))

	return &Insertion{
		NewSlotID:           newSlotID,
		ActivityNodeID:      top.ActivityNodeID,
		ActivityName:        top.Name,
		InsertedAfterSlotID: segment.SlotID,
		SortOrder:           newSortOrder,
		StartTime:           startTime,
		EndTime:             endTime,
		DurationMinutes:     duration,
		ConvergenceScore:    top.ConvergenceScore,
	}, nil
}
