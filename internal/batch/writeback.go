package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"iaros/itinerary_core/internal/models"
)

// WriteBackResult is the public shape returned by WriteBack.Run.
type WriteBackResult struct {
	Date       time.Time
	Status     models.AuditStatus
	RowsUpdated int
	DurationMS int64
}

// WriteBack runs the behavioral write-back job (spec §4.2.1): for each
// ActivityNode referenced by "user_behavioral" signals in the window,
// accumulate impression/acceptance counters and recompute the
// Laplace-smoothed quality score in one CTE, using CUMULATIVE totals
// (see DESIGN.md Open Question (a)).
type WriteBack struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewWriteBack(db *gorm.DB, logger *zap.Logger) *WriteBack {
	return &WriteBack{db: db, logger: logger}
}

// impression/acceptance signal-type sets, spec §4.2.1.
var writeBackImpressionTypes = []string{
	"slot_view", "slot_tap", "slot_confirm", "slot_complete",
	"discover_swipe_right", "discover_shortlist",
}

var writeBackAcceptanceTypes = []string{
	"slot_confirm", "slot_complete", "discover_shortlist", "post_loved",
}

func (w *WriteBack) Run(ctx context.Context, runDate time.Time) (WriteBackResult, error) {
	start := time.Now()
	runDate = truncateToDate(runDate)

	var existing int64
	if err := w.db.WithContext(ctx).Model(&models.WriteBackRun{}).
		Where("run_date = ? AND status = ?", runDate, models.AuditStatusSuccess).
		Count(&existing).Error; err != nil {
		return WriteBackResult{}, err
	}
	if existing > 0 {
		return WriteBackResult{Date: runDate, Status: models.AuditStatusSkipped}, nil
	}

	windowStart, windowEnd := Window(runDate)

	var rowsUpdated int64
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(writeBackSQL,
			writeBackImpressionTypes, writeBackAcceptanceTypes, windowStart, windowEnd)
		if res.Error != nil {
			return res.Error
		}
		rowsUpdated = res.RowsAffected

		durationMS := time.Since(start).Milliseconds()
		return tx.Create(&models.WriteBackRun{
			RunDate:     runDate,
			Status:      models.AuditStatusSuccess,
			RowsUpdated: int(rowsUpdated),
			DurationMS:  durationMS,
			CreatedAt:   time.Now().UTC(),
		}).Error
	})
	if err != nil {
		w.recordErrorAudit(ctx, runDate, err, time.Since(start).Milliseconds())
		return WriteBackResult{}, err
	}

	return WriteBackResult{
		Date:        runDate,
		Status:      models.AuditStatusSuccess,
		RowsUpdated: int(rowsUpdated),
		DurationMS:  time.Since(start).Milliseconds(),
	}, nil
}

func (w *WriteBack) recordErrorAudit(ctx context.Context, runDate time.Time, cause error, durationMS int64) {
	err := w.db.WithContext(ctx).Create(&models.WriteBackRun{
		RunDate:      runDate,
		Status:       models.AuditStatusError,
		ErrorMessage: cause.Error(),
		DurationMS:   durationMS,
		CreatedAt:    time.Now().UTC(),
	}).Error
	if err != nil {
		w.logger.Error("failed to write error audit row for write-back run",
			zap.Time("run_date", runDate), zap.Error(err))
	}
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// writeBackSQL aggregates impression/acceptance counts per ActivityNode
// over the window and recomputes behavioral_quality_score from the
// CUMULATIVE (post-update) counters — the Laplace denominator must use
// cumulative totals, not the window's delta alone (DESIGN.md Open
// Question (a)).
const writeBackSQL = `
WITH signal_agg AS (
	SELECT
		activity_node_id,
		COUNT(*) FILTER (WHERE signal_type IN ?) AS impression_count,
		COUNT(*) FILTER (WHERE signal_type IN ?) AS acceptance_count
	FROM behavioral_signals
	WHERE source = 'user_behavioral'
	  AND activity_node_id IS NOT NULL
	  AND created_at >= ? AND created_at < ?
	GROUP BY activity_node_id
)
UPDATE activity_nodes an
SET
	impression_count = an.impression_count + sa.impression_count,
	acceptance_count = an.acceptance_count + sa.acceptance_count,
	behavioral_quality_score = (an.acceptance_count + sa.acceptance_count + 1.0)
		/ (an.impression_count + sa.impression_count + 2.0),
	updated_at = NOW()
FROM signal_agg sa
WHERE an.id = sa.activity_node_id
`
