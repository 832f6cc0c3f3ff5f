package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"iaros/itinerary_core/internal/models"
)

// Fixed extraction parameters, spec §4.2.3.
const minCompletedTripsForExtract = 3

var trainingPositiveTypes = map[string]struct{}{
	"slot_confirm": {}, "slot_complete": {}, "post_loved": {}, "discover_shortlist": {},
}

var trainingNegativeTypes = map[string]struct{}{
	"slot_skip": {}, "post_disliked": {}, "discover_swipe_left": {},
}

// TrainingExtractResult is the public shape returned by Run.
type TrainingExtractResult struct {
	TargetDate    time.Time
	Status        models.AuditStatus
	RowsExtracted int
	FilePath      string
	DurationMS    int64
	ErrorMessage  string
}

// TrainingExtract produces the BPR training-pair columnar file (spec
// §4.2.3). No Parquet/Arrow binding exists anywhere in the teacher's
// dependency surface (see DESIGN.md) — the file is written as CSV, a
// legitimate columnar text format for this row shape.
type TrainingExtract struct {
	db        *gorm.DB
	logger    *zap.Logger
	outputDir string
}

func NewTrainingExtract(db *gorm.DB, logger *zap.Logger, outputDir string) *TrainingExtract {
	return &TrainingExtract{db: db, logger: logger, outputDir: outputDir}
}

func (t *TrainingExtract) outputFilePath(targetDate time.Time) string {
	return filepath.Join(t.outputDir, fmt.Sprintf("bpr_training_%s.csv", targetDate.Format("2006-01-02")))
}

func (t *TrainingExtract) Run(ctx context.Context, targetDate time.Time) (TrainingExtractResult, error) {
	start := time.Now()
	targetDate = truncateToDate(targetDate)
	outputPath := t.outputFilePath(targetDate)

	if _, err := os.Stat(outputPath); err == nil {
		t.writeAuditRow(ctx, targetDate, models.AuditStatusSkipped, 0, outputPath, "", time.Since(start).Milliseconds())
		return TrainingExtractResult{TargetDate: targetDate, Status: models.AuditStatusSkipped, FilePath: outputPath}, nil
	}

	windowStart, windowEnd := Window(targetDate)

	type signalRow struct {
		UserID         uuid.UUID
		ActivityNodeID uuid.UUID
		SignalType     string
	}
	var rows []signalRow
	err := t.db.WithContext(ctx).Raw(`
		SELECT user_id, activity_node_id, signal_type
		FROM behavioral_signals
		WHERE source = 'user_behavioral'
		  AND activity_node_id IS NOT NULL
		  AND created_at >= ? AND created_at < ?
	`, windowStart, windowEnd).Scan(&rows).Error
	if err != nil {
		t.recordFailure(ctx, targetDate, err, time.Since(start).Milliseconds())
		return TrainingExtractResult{}, err
	}

	eligibleUsers, err := t.eligibleUsers(ctx, minCompletedTripsForExtract)
	if err != nil {
		t.recordFailure(ctx, targetDate, err, time.Since(start).Milliseconds())
		return TrainingExtractResult{}, err
	}

	positives := map[uuid.UUID][]string{}
	negatives := map[uuid.UUID][]string{}
	for _, r := range rows {
		if _, ok := eligibleUsers[r.UserID]; !ok {
			continue
		}
		if _, ok := trainingPositiveTypes[r.SignalType]; ok {
			positives[r.UserID] = append(positives[r.UserID], r.ActivityNodeID.String())
		} else if _, ok := trainingNegativeTypes[r.SignalType]; ok {
			negatives[r.UserID] = append(negatives[r.UserID], r.ActivityNodeID.String())
		}
	}

	pairs := buildBPRPairs(positives, negatives, time.Now().UTC().Unix())

	if err := writeBPRCSV(outputPath, pairs); err != nil {
		t.recordFailure(ctx, targetDate, err, time.Since(start).Milliseconds())
		return TrainingExtractResult{}, err
	}

	durationMS := time.Since(start).Milliseconds()
	t.writeAuditRow(ctx, targetDate, models.AuditStatusSuccess, len(pairs), outputPath, "", durationMS)

	return TrainingExtractResult{
		TargetDate:    targetDate,
		Status:        models.AuditStatusSuccess,
		RowsExtracted: len(pairs),
		FilePath:      outputPath,
		DurationMS:    durationMS,
	}, nil
}

type bprPair struct {
	UserID    string
	PosItem   string
	NegItem   string
	Timestamp int64
}

// buildBPRPairs pairs each positive signal with a random negative from
// the same user; users lacking both are skipped.
func buildBPRPairs(positives, negatives map[uuid.UUID][]string, timestamp int64) []bprPair {
	var pairs []bprPair
	for userID, posItems := range positives {
		negItems, ok := negatives[userID]
		if !ok || len(negItems) == 0 {
			continue
		}
		for _, pos := range posItems {
			neg := negItems[rand.Intn(len(negItems))]
			pairs = append(pairs, bprPair{
				UserID: userID.String(), PosItem: pos, NegItem: neg, Timestamp: timestamp,
			})
		}
	}
	return pairs
}

func writeBPRCSV(path string, pairs []bprPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"user_id", "pos_item", "neg_item", "timestamp"}); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := w.Write([]string{p.UserID, p.PosItem, p.NegItem, strconv.FormatInt(p.Timestamp, 10)}); err != nil {
			return err
		}
	}
	return w.Error()
}

func (t *TrainingExtract) eligibleUsers(ctx context.Context, minCompletedTrips int) (map[uuid.UUID]struct{}, error) {
	var userIDs []uuid.UUID
	err := t.db.WithContext(ctx).Raw(`
		SELECT tm.user_id
		FROM trip_members tm
		JOIN trips t ON t.id = tm.trip_id
		WHERE t.status = 'completed'
		GROUP BY tm.user_id
		HAVING COUNT(*) >= ?
	`, minCompletedTrips).Scan(&userIDs).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		set[id] = struct{}{}
	}
	return set, nil
}

func (t *TrainingExtract) writeAuditRow(ctx context.Context, targetDate time.Time, status models.AuditStatus, rowsExtracted int, filePath, errMsg string, durationMS int64) {
	err := t.db.WithContext(ctx).Create(&models.TrainingExtractRun{
		RunDate:       targetDate,
		Status:        status,
		RowsExtracted: rowsExtracted,
		FilePath:      filePath,
		ErrorMessage:  errMsg,
		DurationMS:    durationMS,
		CreatedAt:     time.Now().UTC(),
	}).Error
	if err != nil {
		t.logger.Error("failed to write training extract audit row", zap.Time("target_date", targetDate), zap.Error(err))
	}
}

func (t *TrainingExtract) recordFailure(ctx context.Context, targetDate time.Time, cause error, durationMS int64) {
	t.writeAuditRow(ctx, targetDate, models.AuditStatusError, 0, "", cause.Error(), durationMS)
}
