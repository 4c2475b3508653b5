package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UniversityCatalog is the read side of the catalog the state machine needs
type UniversityCatalog interface {
	Exists(ctx context.Context, universityID uint) (bool, error)
}

// EventDeliverer drains a student's pending selection events
type EventDeliverer interface {
	DeliverPending(ctx context.Context, studentID uint) (int, error)
}

// SelectionConfig tunes the selection service
type SelectionConfig struct {
	// HookTimeout bounds the inline task generation after a transition commits
	HookTimeout time.Duration
	// LockWait bounds how long a request queues behind the same student's transition
	LockWait time.Duration
}

// SelectionService owns the shortlist -> lock -> unlock lifecycle of a student.
// Transitions for one student are serialized and each runs in one transaction.
type SelectionService struct {
	store       *database.ShortlistStore
	catalog     UniversityCatalog
	locker      StudentLocker
	deliverer   EventDeliverer
	hookTimeout time.Duration
	lockWait    time.Duration
	now         func() time.Time
	log         *logger.Logger
}

// SelectionStatus summarizes where a student is in the selection lifecycle
type SelectionStatus struct {
	State          model.SelectionState  `json:"state"`
	Stage          int                   `json:"stage"`
	ShortlistCount int                   `json:"shortlist_count"`
	Locked         *model.ShortlistEntry `json:"locked_university"`
}

// NewSelectionService creates the selection state machine
func NewSelectionService(
	store *database.ShortlistStore,
	catalog UniversityCatalog,
	locker StudentLocker,
	deliverer EventDeliverer,
	cfg SelectionConfig,
	log *logger.Logger,
) *SelectionService {
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = 5 * time.Second
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 10 * time.Second
	}
	return &SelectionService{
		store:       store,
		catalog:     catalog,
		locker:      locker,
		deliverer:   deliverer,
		hookTimeout: cfg.HookTimeout,
		lockWait:    cfg.LockWait,
		now:         time.Now,
		log:         log.With("service", "SelectionService"),
	}
}

// List returns the student's shortlist in insertion order
func (s *SelectionService) List(ctx context.Context, studentID uint) ([]model.ShortlistEntry, error) {
	return s.store.Get(ctx, studentID)
}

// Status derives the selection state and dashboard stage
func (s *SelectionService) Status(ctx context.Context, studentID uint) (*SelectionStatus, error) {
	entries, err := s.store.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	state := model.DeriveSelectionState(entries)
	status := &SelectionStatus{
		State:          state,
		Stage:          state.Stage(),
		ShortlistCount: len(entries),
	}
	for i := range entries {
		if entries[i].IsLocked {
			status.Locked = &entries[i]
			break
		}
	}
	return status, nil
}

// Shortlist adds a university to the student's shortlist. Shortlisting an
// existing pair returns the stored entry with created set to false.
func (s *SelectionService) Shortlist(ctx context.Context, studentID, universityID uint, category *model.ShortlistCategory) (*model.ShortlistEntry, bool, error) {
	exists, err := s.catalog.Exists(ctx, universityID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check university: %w", err)
	}
	if !exists {
		return nil, false, ErrUniversityNotFound
	}

	var (
		entry   *model.ShortlistEntry
		created bool
	)
	err = s.withStudentLock(ctx, studentID, func() error {
		existing, err := s.store.Find(ctx, studentID, universityID)
		if err == nil {
			entry = existing
			return nil
		}
		if !errors.Is(err, database.ErrEntryNotFound) {
			return err
		}

		fresh := &model.ShortlistEntry{
			StudentID:    studentID,
			UniversityID: universityID,
			Category:     category,
		}
		if err := s.store.Create(ctx, fresh); err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			// Another instance inserted the pair first.
			existing, err := s.store.Find(ctx, studentID, universityID)
			if err != nil {
				return err
			}
			entry = existing
			return nil
		}

		created = true
		entry, err = s.store.Find(ctx, studentID, universityID)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.log.Info("university shortlisted", "student_id", studentID, "university_id", universityID)
	}
	return entry, created, nil
}

// Lock makes universityID the student's committed choice. Locking the
// already locked university is a no-op; locking a second one is a conflict.
func (s *SelectionService) Lock(ctx context.Context, studentID, universityID uint) (*model.ShortlistEntry, error) {
	var (
		result  *model.ShortlistEntry
		emitted bool
	)

	err := s.withStudentLock(ctx, studentID, func() error {
		err := s.store.Transaction(ctx, func(tx *database.ShortlistStore) error {
			selection, err := tx.AcquireSelection(ctx, studentID)
			if err != nil {
				return err
			}

			entry, err := tx.Find(ctx, studentID, universityID)
			if err != nil {
				if errors.Is(err, database.ErrEntryNotFound) {
					return ErrNotShortlisted
				}
				return err
			}
			if entry.IsLocked {
				result = entry
				return nil
			}
			if selection.LockedUniversityID != nil {
				return ErrAlreadyLocked
			}

			swapped, err := tx.SwapLockedUniversity(ctx, studentID, nil, &universityID)
			if err != nil {
				return err
			}
			if !swapped {
				return ErrAlreadyLocked
			}

			now := s.now().UTC()
			if err := tx.UpdateLock(ctx, entry.ID, true, &now); err != nil {
				switch {
				case errors.Is(err, gorm.ErrDuplicatedKey):
					return ErrAlreadyLocked
				case errors.Is(err, database.ErrEntryNotFound):
					return ErrNotShortlisted
				}
				return err
			}
			entry.IsLocked = true
			entry.LockedAt = &now

			if err := appendSelectionEvent(ctx, tx, entry, model.SelectionActionLocked, selection.Version+1); err != nil {
				return err
			}

			result = entry
			emitted = true
			return nil
		})
		if err != nil {
			return err
		}

		if emitted {
			s.deliver(ctx, studentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if emitted {
		s.log.Info("university locked", "student_id", studentID, "university_id", universityID)
	}
	return result, nil
}

// Unlock releases the student's locked university. confirm must be true
// because unlocking discards the tasks generated for it.
func (s *SelectionService) Unlock(ctx context.Context, studentID, universityID uint, confirm bool) (*model.ShortlistEntry, error) {
	if !confirm {
		return nil, ErrConfirmationRequired
	}

	var result *model.ShortlistEntry
	err := s.withStudentLock(ctx, studentID, func() error {
		err := s.store.Transaction(ctx, func(tx *database.ShortlistStore) error {
			selection, err := tx.AcquireSelection(ctx, studentID)
			if err != nil {
				return err
			}

			entry, err := tx.Find(ctx, studentID, universityID)
			if err != nil {
				if errors.Is(err, database.ErrEntryNotFound) {
					return ErrNotLocked
				}
				return err
			}
			if !entry.IsLocked {
				return ErrNotLocked
			}

			swapped, err := tx.SwapLockedUniversity(ctx, studentID, &universityID, nil)
			if err != nil {
				return err
			}
			if !swapped {
				// The entry is the source of truth for what is locked; realign the
				// pointer so the version still advances once per transition.
				s.log.Warn("selection pointer disagrees with locked entry",
					"student_id", studentID,
					"university_id", universityID,
					"pointer", selection.LockedUniversityID,
				)
				swapped, err = tx.SwapLockedUniversity(ctx, studentID, selection.LockedUniversityID, nil)
				if err != nil {
					return err
				}
				if !swapped {
					return fmt.Errorf("failed to clear selection pointer for student %d", studentID)
				}
			}
			if err := tx.UpdateLock(ctx, entry.ID, false, nil); err != nil {
				if errors.Is(err, database.ErrEntryNotFound) {
					return ErrNotLocked
				}
				return err
			}
			entry.IsLocked = false
			entry.LockedAt = nil

			if err := appendSelectionEvent(ctx, tx, entry, model.SelectionActionUnlocked, selection.Version+1); err != nil {
				return err
			}

			result = entry
			return nil
		})
		if err != nil {
			return err
		}

		s.deliver(ctx, studentID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("university unlocked", "student_id", studentID, "university_id", universityID)
	return result, nil
}

// Remove deletes an unlocked entry from the shortlist
func (s *SelectionService) Remove(ctx context.Context, studentID, universityID uint) error {
	err := s.withStudentLock(ctx, studentID, func() error {
		return s.store.Transaction(ctx, func(tx *database.ShortlistStore) error {
			if _, err := tx.AcquireSelection(ctx, studentID); err != nil {
				return err
			}

			entry, err := tx.Find(ctx, studentID, universityID)
			if err != nil {
				if errors.Is(err, database.ErrEntryNotFound) {
					return ErrNotShortlisted
				}
				return err
			}
			if entry.IsLocked {
				return ErrCannotRemoveLocked
			}

			if err := tx.Delete(ctx, studentID, universityID); err != nil {
				if errors.Is(err, database.ErrEntryNotFound) {
					return ErrNotShortlisted
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("university removed from shortlist", "student_id", studentID, "university_id", universityID)
	return nil
}

func (s *SelectionService) withStudentLock(ctx context.Context, studentID uint, fn func() error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	release, err := s.locker.Acquire(acquireCtx, studentID)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to acquire student lock: %w", err)
	}
	defer release()

	return fn()
}

// deliver runs the task generator for events that just committed. It is
// detached from the request so a disconnecting client cannot cut it short.
// Failures stay in the outbox for the retry job.
func (s *SelectionService) deliver(ctx context.Context, studentID uint) {
	if s.deliverer == nil {
		return
	}

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.hookTimeout)
	defer cancel()

	if _, err := s.deliverer.DeliverPending(hookCtx, studentID); err != nil {
		s.log.Error("task generation failed",
			"student_id", studentID,
			"kind", KindDependency,
			"error", err,
		)
	}
}

type selectionEventPayload struct {
	EntryID      uint       `json:"entry_id"`
	StudentID    uint       `json:"student_id"`
	UniversityID uint       `json:"university_id"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	Version      int64      `json:"version"`
}

func appendSelectionEvent(ctx context.Context, tx *database.ShortlistStore, entry *model.ShortlistEntry, action model.SelectionAction, version int64) error {
	payload, err := json.Marshal(selectionEventPayload{
		EntryID:      entry.ID,
		StudentID:    entry.StudentID,
		UniversityID: entry.UniversityID,
		LockedAt:     entry.LockedAt,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("failed to encode selection event: %w", err)
	}

	event := model.SelectionEvent{
		StudentID:      entry.StudentID,
		UniversityID:   entry.UniversityID,
		Action:         action,
		IdempotencyKey: model.SelectionEventKey(entry.StudentID, entry.UniversityID, action, version),
		Payload:        datatypes.JSON(payload),
		Status:         model.SelectionEventPending,
	}
	if err := tx.DB().WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to append selection event: %w", err)
	}
	return nil
}
