// Command batchrunner drives the three nightly jobs (§4.2): behavioral
// write-back, persona EMA update, and BPR training-pair extraction. Each
// runs once per UTC day against yesterday's window, on its own
// independent small connection pool, scheduled with robfig/cron/v3.
package main

import (
	"context"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"iaros/itinerary_core/internal/batch"
	"iaros/itinerary_core/internal/config"
	"iaros/itinerary_core/internal/dbx"
	"iaros/itinerary_core/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger := logging.Must(cfg.Env)
	defer logger.Sync()

	db, err := dbx.ConnectBatch(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(cfg.Database, cfg.MigrationsDir); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	writeBack := batch.NewWriteBack(db.Gorm, logger)
	personaUpdate := batch.NewPersonaUpdate(db.Gorm, logger)
	trainingExtract := batch.NewTrainingExtract(db.Gorm, logger, cfg.Batch.TrainingExtractOutputDir)

	runNightlyJobs := func() {
		runDate := batch.Yesterday()
		ctx := context.Background()
		logger.Info("nightly batch run starting", zap.Time("run_date", runDate))

		if result, err := writeBack.Run(ctx, runDate); err != nil {
			logger.Error("write-back job failed", zap.Error(err))
		} else {
			logger.Info("write-back job complete", zap.Int("rows_updated", result.RowsUpdated))
		}

		if result, err := personaUpdate.Run(ctx, runDate); err != nil {
			logger.Error("persona update job failed", zap.Error(err))
		} else {
			logger.Info("persona update job complete", zap.Int("users_updated", result.UsersUpdated))
		}

		if result, err := trainingExtract.Run(ctx, runDate); err != nil {
			logger.Error("training extract job failed", zap.Error(err))
		} else {
			logger.Info("training extract job complete", zap.Int("pairs_written", result.RowsExtracted))
		}

		logger.Info("nightly batch run complete", zap.Time("run_date", runDate))
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.Batch.ScheduleCronSpec, runNightlyJobs); err != nil {
		logger.Fatal("failed to schedule nightly batch jobs", zap.Error(err), zap.String("cron_spec", cfg.Batch.ScheduleCronSpec))
	}

	logger.Info("batchrunner scheduled", zap.String("cron_spec", cfg.Batch.ScheduleCronSpec))
	c.Run()
}
