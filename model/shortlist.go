package model

import "time"

// ShortlistCategory is the recommendation bucket a shortlist entry came from
type ShortlistCategory string

const (
	ShortlistCategoryDream  ShortlistCategory = "dream"
	ShortlistCategoryTarget ShortlistCategory = "target"
	ShortlistCategorySafe   ShortlistCategory = "safe"
)

// ShortlistEntry links a student to a university they are considering.
// A student holds at most one locked entry; locked_at is set iff is_locked.
type ShortlistEntry struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	StudentID    uint               `gorm:"not null;uniqueIndex:idx_shortlist_student_university;uniqueIndex:idx_shortlist_one_locked,where:is_locked = true" json:"student_id"`
	UniversityID uint               `gorm:"not null;uniqueIndex:idx_shortlist_student_university" json:"university_id"`
	IsLocked     bool               `gorm:"not null;default:false" json:"is_locked"`
	Category     *ShortlistCategory `gorm:"type:varchar(10)" json:"category"`
	CreatedAt    time.Time          `json:"created_at"`
	LockedAt     *time.Time         `json:"locked_at"`

	// Relationships
	University University `gorm:"foreignKey:UniversityID;constraint:OnDelete:RESTRICT" json:"university"`
}

// TableName specifies the table name for ShortlistEntry
func (ShortlistEntry) TableName() string {
	return "shortlist_entries"
}

// StudentSelection is the per-student pointer to the locked university.
// Transitions row-lock it and compare-and-swap LockedUniversityID.
type StudentSelection struct {
	StudentID          uint      `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
	LockedUniversityID *uint     `json:"locked_university_id"`
	Version            int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for StudentSelection
func (StudentSelection) TableName() string {
	return "student_selections"
}

// SelectionState is the derived lifecycle state of a student's selection
type SelectionState string

const (
	SelectionStateNone     SelectionState = "no_selection"
	SelectionStateUnlocked SelectionState = "has_unlocked_shortlist"
	SelectionStateLocked   SelectionState = "has_locked_choice"
)

// Dashboard stages shown by the client's stage indicator
const (
	StageBuildingProfile         = 1
	StageDiscoveringUniversities = 2
	StageFinalizingUniversities  = 3
	StagePreparingApplications   = 4
)

// DeriveSelectionState computes the state from the entries of one student
func DeriveSelectionState(entries []ShortlistEntry) SelectionState {
	if len(entries) == 0 {
		return SelectionStateNone
	}
	for _, e := range entries {
		if e.IsLocked {
			return SelectionStateLocked
		}
	}
	return SelectionStateUnlocked
}

// Stage maps a selection state to the dashboard stage number
func (s SelectionState) Stage() int {
	switch s {
	case SelectionStateLocked:
		return StagePreparingApplications
	case SelectionStateUnlocked:
		return StageFinalizingUniversities
	default:
		return StageDiscoveringUniversities
	}
}
