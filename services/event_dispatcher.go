package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"gorm.io/gorm"
)

// EventDispatcher delivers selection events from the outbox to the task generator
type EventDispatcher struct {
	db           *gorm.DB
	generator    TaskGenerator
	maxAttempts  int
	sweepTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger
}

// NewEventDispatcher creates a dispatcher. maxAttempts <= 0 means 10.
func NewEventDispatcher(db *gorm.DB, generator TaskGenerator, maxAttempts int, log *logger.Logger) *EventDispatcher {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &EventDispatcher{
		db:           db,
		generator:    generator,
		maxAttempts:  maxAttempts,
		sweepTimeout: 5 * time.Second,
		now:          time.Now,
		log:          log.With("service", "EventDispatcher"),
	}
}

// WithSweepTimeout bounds how long a sweep spends on one student, and so how
// long it holds that student's lock. It should match the inline hook timeout.
func (d *EventDispatcher) WithSweepTimeout(timeout time.Duration) *EventDispatcher {
	if timeout > 0 {
		d.sweepTimeout = timeout
	}
	return d
}

// DeliverPending hands the student's pending events to the generator in id
// order. The caller must hold the student's lock. Delivery stops at the first
// failure so a later unlock never overtakes an earlier lock.
func (d *EventDispatcher) DeliverPending(ctx context.Context, studentID uint) (int, error) {
	var events []model.SelectionEvent
	if err := d.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, model.SelectionEventPending).
		Order("id ASC").
		Find(&events).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}

	// Outcomes are recorded even when the hook ran out the caller's deadline.
	bookCtx := context.WithoutCancel(ctx)

	delivered := 0
	for i := range events {
		event := &events[i]
		hookErr := d.invoke(ctx, event)
		if hookErr == nil {
			marked, err := d.markDelivered(bookCtx, event)
			if err != nil {
				return delivered, err
			}
			if marked {
				delivered++
			} else {
				d.log.Debug("selection event already settled by another dispatcher",
					"event_id", event.ID,
					"student_id", studentID,
				)
			}
			continue
		}

		attempts := event.Attempts + 1
		status := model.SelectionEventPending
		if attempts >= d.maxAttempts {
			status = model.SelectionEventFailed
		}
		if err := d.db.WithContext(bookCtx).
			Model(&model.SelectionEvent{}).
			Where("id = ? AND status = ?", event.ID, model.SelectionEventPending).
			Updates(map[string]interface{}{
				"attempts":   attempts,
				"status":     status,
				"last_error": hookErr.Error(),
			}).Error; err != nil {
			return delivered, fmt.Errorf("failed to record delivery failure: %w", err)
		}

		if status == model.SelectionEventFailed {
			d.log.Error("selection event abandoned",
				"event_id", event.ID,
				"student_id", studentID,
				"attempts", attempts,
				"error", hookErr,
			)
			continue
		}
		return delivered, fmt.Errorf("event %d: %w: %v", event.ID, ErrTaskGeneration, hookErr)
	}

	return delivered, nil
}

func (d *EventDispatcher) invoke(ctx context.Context, event *model.SelectionEvent) error {
	switch event.Action {
	case model.SelectionActionLocked:
		return d.generator.OnLocked(ctx, event.StudentID, event.UniversityID)
	case model.SelectionActionUnlocked:
		return d.generator.OnUnlocked(ctx, event.StudentID, event.UniversityID)
	default:
		return fmt.Errorf("unknown selection action %q", event.Action)
	}
}

// markDelivered reports false when the event was no longer pending, i.e.
// another dispatcher settled it first.
func (d *EventDispatcher) markDelivered(ctx context.Context, event *model.SelectionEvent) (bool, error) {
	now := d.now().UTC()
	result := d.db.WithContext(ctx).
		Model(&model.SelectionEvent{}).
		Where("id = ? AND status = ?", event.ID, model.SelectionEventPending).
		Updates(map[string]interface{}{
			"status":       model.SelectionEventDelivered,
			"attempts":     event.Attempts + 1,
			"delivered_at": now,
			"last_error":   "",
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark event delivered: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DispatchResult summarizes one outbox sweep
type DispatchResult struct {
	Students  int
	Delivered int
	Failed    int
}

// DispatchPending sweeps every student with pending events, taking each
// student's lock so the sweep never races a live transition.
func (d *EventDispatcher) DispatchPending(ctx context.Context, locker StudentLocker) (DispatchResult, error) {
	var result DispatchResult

	var studentIDs []uint
	if err := d.db.WithContext(ctx).
		Model(&model.SelectionEvent{}).
		Where("status = ?", model.SelectionEventPending).
		Distinct("student_id").
		Order("student_id ASC").
		Pluck("student_id", &studentIDs).Error; err != nil {
		return result, fmt.Errorf("failed to list pending students: %w", err)
	}

	for _, studentID := range studentIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		release, err := locker.Acquire(ctx, studentID)
		if err != nil {
			return result, fmt.Errorf("failed to lock student %d: %w", studentID, err)
		}
		studentCtx, cancel := context.WithTimeout(ctx, d.sweepTimeout)
		delivered, err := d.DeliverPending(studentCtx, studentID)
		cancel()
		release()

		result.Students++
		result.Delivered += delivered
		if err != nil {
			result.Failed++
			d.log.Warn("selection event delivery failed",
				"student_id", studentID,
				"error", err,
			)
		}
	}

	return result, nil
}

// PurgeDelivered deletes delivered events older than the retention window
func (d *EventDispatcher) PurgeDelivered(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := d.now().UTC().Add(-retention)
	result := d.db.WithContext(ctx).
		Where("status = ? AND delivered_at < ?", model.SelectionEventDelivered, cutoff).
		Delete(&model.SelectionEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge delivered events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
