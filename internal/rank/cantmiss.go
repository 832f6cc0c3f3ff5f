// Package rank implements post-ranking passes applied after persona-based
// scoring and before final slot assignment: the cantMiss score floor and
// the (feature-flagged) tourist correction demotion. Grounded on
// original_source/services/api/ranking/cant_miss.py and
// original_source/services/api/generation/tourist_correction.py.
package rank

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// CantMissScoreFloor is the minimum ranking score a cantMiss node may
	// carry after this pass — irreplaceable venues cannot be suppressed
	// below it regardless of persona fit.
	CantMissScoreFloor = 0.72
	iconicVibeTag       = "iconic-worth-it"
)

// Candidate is the minimal shape this package needs from a ranked item.
type Candidate struct {
	ActivityNodeID string
	Score          float64
}

type cantMissRow struct {
	ActivityNodeID string
	VibeTagSlugs   []string
}

// ApplyCantMissFloor boosts any cantMiss node scoring below
// CantMissScoreFloor, mutating scores in place. It does not re-sort —
// the caller decides ordering after this pass. A DB failure is logged
// and the candidates are returned unmodified; this pass never blocks
// the caller's ranking flow.
func ApplyCantMissFloor(ctx context.Context, db *gorm.DB, logger *zap.Logger, candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ActivityNodeID
	}

	rows, err := fetchCantMissRows(ctx, db, ids)
	if err != nil {
		logger.Error("cant_miss_floor: query failed, skipping floor pass", zap.Error(err))
		return candidates
	}
	if len(rows) == 0 {
		return candidates
	}

	cantMissByID := make(map[string]cantMissRow, len(rows))
	for _, row := range rows {
		cantMissByID[row.ActivityNodeID] = row
	}

	var boostedIDs []string
	for i := range candidates {
		row, ok := cantMissByID[candidates[i].ActivityNodeID]
		if !ok {
			continue
		}

		if !containsTag(row.VibeTagSlugs, iconicVibeTag) {
			logger.Warn("cant_miss_floor: node missing iconic vibe tag, check seeding pipeline",
				zap.String("activity_node_id", row.ActivityNodeID),
				zap.Strings("vibe_tags", row.VibeTagSlugs))
		}

		if candidates[i].Score < CantMissScoreFloor {
			candidates[i].Score = CantMissScoreFloor
			boostedIDs = append(boostedIDs, row.ActivityNodeID)
		}
	}

	if len(boostedIDs) > 0 {
		logger.Info("cant_miss_floor applied", zap.Int("count", len(boostedIDs)), zap.Strings("ids", boostedIDs))
	}

	return candidates
}

// cantMissLookupSQL binds candidateIDs via gorm's `IN ?` slice
// expansion — NOT `= ANY(?)`, which gorm turns into an invalid
// row-constructor cast for a plain []string arg.
const cantMissLookupSQL = `
		SELECT id, COALESCE(vibe_tags::text, '[]') AS vibe_tags
		FROM activity_nodes
		WHERE id IN ?
		  AND cant_miss = true
	`

func fetchCantMissRows(ctx context.Context, db *gorm.DB, candidateIDs []string) ([]cantMissRow, error) {
	type scanRow struct {
		ID       string
		VibeTags string
	}
	var scanned []scanRow

	err := db.WithContext(ctx).Raw(cantMissLookupSQL, candidateIDs).Scan(&scanned).Error
	if err != nil {
		return nil, err
	}

	rows := make([]cantMissRow, len(scanned))
	for i, s := range scanned {
		rows[i] = cantMissRow{
			ActivityNodeID: s.ID,
			VibeTagSlugs:   parseJSONStringArray(s.VibeTags),
		}
	}
	return rows, nil
}

func containsTag(tags []string, target string) bool {
	for _, t := range tags {
		if t == target {
			return true
		}
	}
	return false
}
