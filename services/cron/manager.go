package cron

import (
	"context"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/services"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// OutboxDispatcher is the part of the event dispatcher the scheduled jobs drive
type OutboxDispatcher interface {
	DispatchPending(ctx context.Context, locker services.StudentLocker) (services.DispatchResult, error)
	PurgeDelivered(ctx context.Context, retention time.Duration) (int64, error)
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron       *cron.Cron
	db         *gorm.DB
	dispatcher OutboxDispatcher
	locker     services.StudentLocker
	log        *logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, dispatcher OutboxDispatcher, locker services.StudentLocker, log *logger.Logger) *CronManager {
	// Seconds precision; a slow sweep never overlaps the next tick
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &CronManager{
		cron:       c,
		db:         db,
		dispatcher: dispatcher,
		locker:     locker,
		log:        log.With("component", "cron"),
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info("cron jobs started", "entries", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every 30 seconds: retry undelivered selection events
	_, err := m.cron.AddFunc("*/30 * * * * *", func() {
		m.DispatchSelectionEvents()
	})
	if err != nil {
		return err
	}

	// 2. Daily at 3 AM: purge delivered events and old job logs
	_, err = m.cron.AddFunc("0 0 3 * * *", func() {
		m.CleanupOldData()
	})
	if err != nil {
		return err
	}

	return nil
}

// logJobStart records the start of a run and returns its log row id
func (m *CronManager) logJobStart(jobName string) uint {
	m.log.Debug("starting job", "job", jobName)

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronJobRunning,
		StartedAt: time.Now().UTC(),
		Metadata:  []byte("{}"),
	}
	if err := m.db.Create(&cronLog).Error; err != nil {
		m.log.Warn("failed to record job start", "job", jobName, "error", err)
		return 0
	}
	return cronLog.ID
}

// logJobComplete records successful completion of a run
func (m *CronManager) logJobComplete(runID uint, jobName string, startedAt time.Time, message string) {
	m.log.Debug("completed job", "job", jobName, "message", message)
	m.finishRun(runID, jobName, startedAt, map[string]interface{}{
		"status":  model.CronJobCompleted,
		"message": message,
	})
}

// logJobError records a failed run
func (m *CronManager) logJobError(runID uint, jobName string, startedAt time.Time, err error) {
	m.log.Error("job failed", "job", jobName, "error", err)
	m.finishRun(runID, jobName, startedAt, map[string]interface{}{
		"status":    model.CronJobFailed,
		"error_msg": err.Error(),
	})
}

func (m *CronManager) finishRun(runID uint, jobName string, startedAt time.Time, updates map[string]interface{}) {
	if runID == 0 {
		return
	}
	now := time.Now().UTC()
	updates["completed_at"] = now
	updates["duration"] = now.Sub(startedAt).Milliseconds()

	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", runID).Updates(updates).Error; err != nil {
		m.log.Warn("failed to record job result", "job", jobName, "error", err)
	}
}
