package shadow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"iaros/itinerary_core/internal/models"
)

// Model is the candidate ranking model a shadow run compares against
// production. Callers inject an implementation; with none injected and
// shadow mode disabled, Runner is a no-op.
type Model interface {
	ModelID() string
	ModelVersion() string
	Predict(ctx context.Context, userID string, candidateItems []string) ([]string, error)
}

// Result is the outcome of one shadow comparison.
type Result struct {
	ModelID      string
	ModelVersion string
	Overlap5     float64
	NDCG10       float64
	LatencyMS    int64
}

// Runner drives the fire-and-forget shadow comparison. The caller never
// awaits RunDetached — it returns immediately, and the comparison
// completes on its own goroutine.
type Runner struct {
	db      *gorm.DB
	logger  *zap.Logger
	model   Model
	enabled bool

	latency prometheus.Histogram
}

func NewRunner(db *gorm.DB, logger *zap.Logger, model Model, enabled bool) *Runner {
	return &Runner{
		db:      db,
		logger:  logger,
		model:   model,
		enabled: enabled,
		latency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "shadow_ranker_latency_ms",
			Help: "Latency of shadow model predictions in milliseconds.",
		}),
	}
}

// Run executes one shadow comparison synchronously and persists the
// result. Returns nil, nil if shadow mode is disabled and no model is
// injected (zero overhead path) — callers normally use RunDetached
// instead of calling this directly from a production request path.
func (r *Runner) Run(ctx context.Context, userID string, candidates, productionRankings []string) (*Result, error) {
	if !r.enabled && r.model == nil {
		return nil, nil
	}
	if r.model == nil {
		r.logger.Info("shadow mode enabled but no model injected; skipping run")
		return nil, nil
	}

	start := time.Now()
	shadowRankings, err := r.model.Predict(ctx, userID, candidates)
	latencyMS := time.Since(start).Milliseconds()
	r.latency.Observe(float64(latencyMS))

	if err != nil {
		r.logger.Error("shadow model prediction failed", zap.Error(err), zap.String("user_id", userID))
		return nil, nil
	}

	overlap := OverlapAtK(shadowRankings, productionRankings, 5)
	ndcg := NDCGAtK(shadowRankings, productionRankings, 10)

	result := Result{
		ModelID:      r.model.ModelID(),
		ModelVersion: r.model.ModelVersion(),
		Overlap5:     overlap,
		NDCG10:       ndcg,
		LatencyMS:    latencyMS,
	}

	if err := r.store(ctx, result, shadowRankings, productionRankings); err != nil {
		r.logger.Error("failed to persist shadow result", zap.Error(err))
	}

	return &result, nil
}

func (r *Runner) store(ctx context.Context, result Result, shadowRankings, productionRankings []string) error {
	shadowJSON, err := json.Marshal(shadowRankings)
	if err != nil {
		return err
	}
	prodJSON, err := json.Marshal(productionRankings)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Create(&models.ShadowResult{
		ID:                 uuid.New(),
		ModelID:            result.ModelID,
		ModelVersion:       result.ModelVersion,
		ShadowRankings:     shadowJSON,
		ProductionRankings: prodJSON,
		OverlapAt5:         result.Overlap5,
		NDCGAt10:           result.NDCG10,
		LatencyMS:          result.LatencyMS,
		CreatedAt:          time.Now().UTC(),
	}).Error
}

// RunDetached spawns Run on its own goroutine and returns immediately.
// Any panic or error inside the goroutine is caught and logged by the
// done-callback — it never propagates to the caller and never delays
// the production response.
func (r *Runner) RunDetached(ctx context.Context, userID string, candidates, productionRankings []string) {
	taskName := fmt.Sprintf("shadow-%s", userID)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("shadow task panicked",
					zap.String("task", taskName), zap.Any("recover", rec))
			}
		}()

		// Detach from the caller's cancellation — the production request
		// may have already returned by the time this runs.
		detachedCtx := context.Background()
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			detachedCtx, cancel = context.WithDeadline(detachedCtx, deadline)
			defer cancel()
		}

		if _, err := r.Run(detachedCtx, userID, candidates, productionRankings); err != nil {
			r.logger.Error("shadow task failed", zap.String("task", taskName), zap.Error(err))
		}
	}()
}
