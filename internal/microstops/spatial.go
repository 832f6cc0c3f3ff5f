// Package microstops implements the proximity-based micro-stop inserter
// (§4.4): a buffered-path spatial candidate query and the insertion
// service that rides on top of it, grounded on
// original_source/services/api/microstops/{spatial,service}.py.
package microstops

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Fixed spatial-query parameters (spec §4.4).
const (
	TransitBufferMeters  = 200.0
	MaxCandidates        = 5
	MinConvergenceScore  = 0.4
)

// Category default micro-stop durations in minutes (SPEC_FULL §3),
// grounded on original_source/services/api/microstops/spatial.py's
// _CATEGORY_DEFAULT_DURATION.
var categoryDefaultDuration = map[string]int{
	"dining":        30,
	"drinks":        20,
	"culture":       25,
	"outdoors":      20,
	"active":        30,
	"entertainment": 30,
	"shopping":      20,
	"experience":    25,
	"nightlife":     25,
	"wellness":      20,
}

const defaultMicroDuration = 20

// EstimateDuration returns the clamped [15,30] minute default for a
// category, falling back to defaultMicroDuration for unknown categories.
func EstimateDuration(category string) int {
	d, ok := categoryDefaultDuration[category]
	if !ok {
		d = defaultMicroDuration
	}
	if d < 15 {
		d = 15
	}
	if d > 30 {
		d = 30
	}
	return d
}

// SpatialCandidate is one ActivityNode found along a transit path.
type SpatialCandidate struct {
	ActivityNodeID   string
	Name             string
	Category         string
	ConvergenceScore *float64
	DurationMinutes  *int
}

// buildSpatialQueryArgs assembles the exclude-node SQL clause and the
// positional args for FindNodesAlongPath's query. Split out as a pure
// function so the "IN" binding (and the empty-exclude-list case, which
// must omit the clause entirely rather than emit an always-NULL
// comparison) is unit-testable without a database.
func buildSpatialQueryArgs(originLat, originLon, destLat, destLon float64, excludeNodeIDs []string) (excludeClause string, args []interface{}) {
	args = []interface{}{originLon, originLat, destLon, destLat, TransitBufferMeters, MinConvergenceScore}
	if len(excludeNodeIDs) > 0 {
		excludeClause = "AND NOT (n.id IN ?)"
		args = append(args, excludeNodeIDs)
	}
	args = append(args, MaxCandidates)
	return excludeClause, args
}

// FindNodesAlongPath runs the PostGIS buffered-line candidate query:
// project the origin→destination line into a meter-accurate CRS, buffer
// it by TransitBufferMeters, and select approved/canonical nodes whose
// point lies within the buffer, excluding already-scheduled nodes.
//
// Non-fatal by design: any query failure is logged and yields an empty
// slice, matching the original's graceful-degradation behavior.
func FindNodesAlongPath(
	ctx context.Context,
	db *gorm.DB,
	logger *zap.Logger,
	originLat, originLon, destLat, destLon float64,
	tripID string,
	dayNumber int,
	excludeNodeIDs []string,
) []SpatialCandidate {
	excludeClause, args := buildSpatialQueryArgs(originLat, originLon, destLat, destLon, excludeNodeIDs)

	// Nodes already scheduled on this trip day are never candidates; their
	// two args bind just before the trailing LIMIT.
	scheduledClause := "AND NOT EXISTS (SELECT 1 FROM itinerary_slots sl WHERE sl.trip_id = ? AND sl.day_number = ? AND sl.activity_node_id = n.id)"
	limit := args[len(args)-1]
	args = append(args[:len(args)-1], tripID, dayNumber, limit)

	rows, err := db.WithContext(ctx).Raw(`
		WITH transit_path AS (
			SELECT ST_Transform(
				ST_SetSRID(ST_MakeLine(ST_MakePoint(?, ?), ST_MakePoint(?, ?)), 4326),
				3857
			) AS path_3857
		),
		buffered AS (
			SELECT ST_Transform(ST_Buffer(path_3857, ?), 4326) AS zone FROM transit_path
		)
		SELECT
			n.id, n.name, n.category, n.convergence_score
		FROM activity_nodes n, buffered
		WHERE n.status = 'approved'
		  AND n.is_canonical = true
		  AND n.convergence_score >= ?
		  `+excludeClause+`
		  `+scheduledClause+`
		  AND ST_Within(ST_SetSRID(ST_MakePoint(n.longitude, n.latitude), 4326), buffered.zone)
		ORDER BY n.convergence_score DESC NULLS LAST
		LIMIT ?
	`, args...).Rows()

	if err != nil {
		if logger != nil {
			logger.Warn("spatial candidate query failed", zap.Error(err), zap.String("trip_id", tripID))
		}
		return []SpatialCandidate{}
	}
	defer rows.Close()

	var candidates []SpatialCandidate
	for rows.Next() {
		var c SpatialCandidate
		if err := rows.Scan(&c.ActivityNodeID, &c.Name, &c.Category, &c.ConvergenceScore); err != nil {
			if logger != nil {
				logger.Warn("spatial candidate scan failed", zap.Error(err))
			}
			continue
		}
		duration := EstimateDuration(c.Category)
		c.DurationMinutes = &duration
		candidates = append(candidates, c)
	}
	return candidates
}
