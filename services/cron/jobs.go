package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
)

const (
	JobDispatchSelectionEvents = "dispatch_selection_events"
	JobCleanupOldData          = "cleanup_old_data"

	deliveredEventRetention = 30 * 24 * time.Hour
	cronLogRetention        = 7 * 24 * time.Hour
)

// DispatchSelectionEvents hands pending selection events to the task generator.
// Runs every 30 seconds; also invoked by cmd/dispatch.
func (m *CronManager) DispatchSelectionEvents() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	startedAt := time.Now()
	runID := m.logJobStart(JobDispatchSelectionEvents)

	result, err := m.dispatcher.DispatchPending(ctx, m.locker)
	if err != nil {
		m.logJobError(runID, JobDispatchSelectionEvents, startedAt, err)
		return "", err
	}

	message := fmt.Sprintf("Swept %d students, delivered %d events, %d students still pending",
		result.Students, result.Delivered, result.Failed)
	m.logJobComplete(runID, JobDispatchSelectionEvents, startedAt, message)
	return message, nil
}

// CleanupOldData purges delivered selection events and old job logs.
// Runs daily at 3 AM.
func (m *CronManager) CleanupOldData() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	startedAt := time.Now()
	runID := m.logJobStart(JobCleanupOldData)

	purged, err := m.dispatcher.PurgeDelivered(ctx, deliveredEventRetention)
	if err != nil {
		m.logJobError(runID, JobCleanupOldData, startedAt, err)
		return "", err
	}

	cutoff := time.Now().UTC().Add(-cronLogRetention)
	logs := m.db.WithContext(ctx).
		Where("created_at < ? AND id <> ?", cutoff, runID).
		Delete(&model.CronJobLog{})
	if logs.Error != nil {
		err := fmt.Errorf("failed to delete old cron logs: %w", logs.Error)
		m.logJobError(runID, JobCleanupOldData, startedAt, err)
		return "", err
	}

	message := fmt.Sprintf("Purged %d delivered events and %d cron logs", purged, logs.RowsAffected)
	m.logJobComplete(runID, JobCleanupOldData, startedAt, message)
	return message, nil
}
