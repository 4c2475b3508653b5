package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEntryNotFound is returned when no shortlist entry matches
var ErrEntryNotFound = errors.New("shortlist entry not found")

// ShortlistStore persists shortlist entries and the per-student lock pointer.
// A store obtained from Transaction is bound to that transaction.
type ShortlistStore struct {
	db *gorm.DB
}

// NewShortlistStore creates a store on top of db
func NewShortlistStore(db *gorm.DB) *ShortlistStore {
	return &ShortlistStore{db: db}
}

// Transaction runs fn with a store bound to a single database transaction
func (s *ShortlistStore) Transaction(ctx context.Context, fn func(tx *ShortlistStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ShortlistStore{db: tx})
	})
}

// DB exposes the underlying handle so callers can write related rows in the same transaction
func (s *ShortlistStore) DB() *gorm.DB {
	return s.db
}

// Get returns the student's entries in insertion order with university details
func (s *ShortlistStore) Get(ctx context.Context, studentID uint) ([]model.ShortlistEntry, error) {
	var entries []model.ShortlistEntry
	err := s.db.WithContext(ctx).
		Preload("University").
		Where("student_id = ?", studentID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shortlist: %w", err)
	}
	return entries, nil
}

// GetLocked returns the locked entry, or nil when the student has none
func (s *ShortlistStore) GetLocked(ctx context.Context, studentID uint) (*model.ShortlistEntry, error) {
	var entry model.ShortlistEntry
	err := s.db.WithContext(ctx).
		Preload("University").
		Where("student_id = ? AND is_locked = ?", studentID, true).
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch locked entry: %w", err)
	}
	return &entry, nil
}

// Find returns the entry for (student, university) or ErrEntryNotFound
func (s *ShortlistStore) Find(ctx context.Context, studentID, universityID uint) (*model.ShortlistEntry, error) {
	var entry model.ShortlistEntry
	err := s.db.WithContext(ctx).
		Preload("University").
		Where("student_id = ? AND university_id = ?", studentID, universityID).
		Take(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to fetch shortlist entry: %w", err)
	}
	return &entry, nil
}

// Create inserts a new unlocked entry. A duplicate (student, university)
// pair surfaces as gorm.ErrDuplicatedKey.
func (s *ShortlistStore) Create(ctx context.Context, entry *model.ShortlistEntry) error {
	entry.IsLocked = false
	entry.LockedAt = nil
	if err := s.db.WithContext(ctx).Omit("University").Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		return fmt.Errorf("failed to create shortlist entry: %w", err)
	}
	return nil
}

// UpdateLock flips the locked flag of an entry. lockedAt must be non-nil iff locked.
func (s *ShortlistStore) UpdateLock(ctx context.Context, entryID uint, locked bool, lockedAt *time.Time) error {
	if locked != (lockedAt != nil) {
		return fmt.Errorf("locked_at must be set iff the entry is locked")
	}
	result := s.db.WithContext(ctx).
		Model(&model.ShortlistEntry{}).
		Where("id = ? AND is_locked = ?", entryID, !locked).
		Updates(map[string]interface{}{
			"is_locked": locked,
			"locked_at": lockedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update shortlist entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Delete removes an unlocked entry for (student, university)
func (s *ShortlistStore) Delete(ctx context.Context, studentID, universityID uint) error {
	result := s.db.WithContext(ctx).
		Where("student_id = ? AND university_id = ? AND is_locked = ?", studentID, universityID, false).
		Delete(&model.ShortlistEntry{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete shortlist entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// AcquireSelection makes sure the student's selection row exists and
// locks it for the rest of the transaction. Concurrent transitions for
// the same student queue on this row.
func (s *ShortlistStore) AcquireSelection(ctx context.Context, studentID uint) (*model.StudentSelection, error) {
	seed := model.StudentSelection{StudentID: studentID}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure selection row: %w", err)
	}

	var selection model.StudentSelection
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		Take(&selection).Error; err != nil {
		return nil, fmt.Errorf("failed to lock selection row: %w", err)
	}
	return &selection, nil
}

// SwapLockedUniversity moves the lock pointer from expected to next.
// It returns false without error when the pointer no longer equals expected.
func (s *ShortlistStore) SwapLockedUniversity(ctx context.Context, studentID uint, expected, next *uint) (bool, error) {
	query := s.db.WithContext(ctx).
		Model(&model.StudentSelection{}).
		Where("student_id = ?", studentID)
	if expected == nil {
		query = query.Where("locked_university_id IS NULL")
	} else {
		query = query.Where("locked_university_id = ?", *expected)
	}

	result := query.Updates(map[string]interface{}{
		"locked_university_id": next,
		"version":              gorm.Expr("version + 1"),
		"updated_at":           time.Now().UTC(),
	})
	if result.Error != nil {
		return false, fmt.Errorf("failed to swap locked university: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Selection reads the student's selection row without locking it
func (s *ShortlistStore) Selection(ctx context.Context, studentID uint) (*model.StudentSelection, error) {
	var selection model.StudentSelection
	err := s.db.WithContext(ctx).Where("student_id = ?", studentID).Take(&selection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.StudentSelection{StudentID: studentID}, nil
		}
		return nil, fmt.Errorf("failed to fetch selection: %w", err)
	}
	return &selection, nil
}
