package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaskGenerator reacts to selection transitions. Both hooks may be invoked
// more than once for the same transition and must tolerate it.
type TaskGenerator interface {
	OnLocked(ctx context.Context, studentID, universityID uint) error
	OnUnlocked(ctx context.Context, studentID, universityID uint) error
}

// UniversityReader looks up catalog entries
type UniversityReader interface {
	Get(ctx context.Context, universityID uint) (*model.University, error)
}

type taskTemplate struct {
	Key         string
	Title       string // %s is the university name
	Description string
	Category    model.TaskCategory
	Priority    model.TaskPriority
	DueIn       time.Duration
}

var lockedUniversityTemplates = []taskTemplate{
	{
		Key:         "sop",
		Title:       "Write Statement of Purpose for %s",
		Description: "Draft, review and finalize a statement of purpose tailored to the program.",
		Category:    model.TaskCategoryDocument,
		Priority:    model.TaskPriorityHigh,
		DueIn:       21 * 24 * time.Hour,
	},
	{
		Key:         "lor",
		Title:       "Request letters of recommendation for %s",
		Description: "Ask two or three referees and share the submission instructions with them.",
		Category:    model.TaskCategoryDocument,
		Priority:    model.TaskPriorityHigh,
		DueIn:       28 * 24 * time.Hour,
	},
	{
		Key:         "transcripts",
		Title:       "Collect official transcripts",
		Description: "Request sealed transcripts and degree certificates from your institution.",
		Category:    model.TaskCategoryDocument,
		Priority:    model.TaskPriorityMedium,
		DueIn:       14 * 24 * time.Hour,
	},
	{
		Key:         "test_scores",
		Title:       "Send test scores to %s",
		Description: "Report English proficiency and standardized test scores to the admissions office.",
		Category:    model.TaskCategoryExam,
		Priority:    model.TaskPriorityMedium,
		DueIn:       30 * 24 * time.Hour,
	},
	{
		Key:         "application_form",
		Title:       "Complete the %s application form",
		Description: "Fill in the online application and upload the prepared documents.",
		Category:    model.TaskCategoryApplication,
		Priority:    model.TaskPriorityHigh,
		DueIn:       35 * 24 * time.Hour,
	},
	{
		Key:         "application_fee",
		Title:       "Pay the application fee",
		Description: "Pay the fee and keep the receipt for your records.",
		Category:    model.TaskCategoryApplication,
		Priority:    model.TaskPriorityLow,
		DueIn:       40 * 24 * time.Hour,
	},
}

// TemplateTaskGenerator creates a fixed checklist for the locked university
// and deletes every university-scoped task on unlock. Each hook re-reads the
// student's selection under a row lock and skips work the current selection
// has already superseded, so a late replay from another dispatcher cannot
// bring back tasks for a university that is no longer locked.
type TemplateTaskGenerator struct {
	db         *gorm.DB
	university UniversityReader
	now        func() time.Time
	log        *logger.Logger
}

// NewTemplateTaskGenerator creates the default task generator
func NewTemplateTaskGenerator(db *gorm.DB, university UniversityReader, log *logger.Logger) *TemplateTaskGenerator {
	return &TemplateTaskGenerator{
		db:         db,
		university: university,
		now:        time.Now,
		log:        log.With("service", "TemplateTaskGenerator"),
	}
}

func (g *TemplateTaskGenerator) OnLocked(ctx context.Context, studentID, universityID uint) error {
	university, err := g.university.Get(ctx, universityID)
	if err != nil {
		return fmt.Errorf("failed to load university %d: %w", universityID, err)
	}

	now := g.now().UTC()
	tasks := make([]model.Task, 0, len(lockedUniversityTemplates))
	for _, tpl := range lockedUniversityTemplates {
		title := tpl.Title
		if strings.Contains(title, "%s") {
			title = fmt.Sprintf(tpl.Title, university.Name)
		}
		due := now.Add(tpl.DueIn)
		uniID := universityID
		tasks = append(tasks, model.Task{
			StudentID:    studentID,
			UniversityID: &uniID,
			Title:        title,
			Description:  tpl.Description,
			Category:     tpl.Category,
			Priority:     tpl.Priority,
			DueDate:      &due,
			Source:       model.TaskSourceGenerated,
			TemplateKey:  tpl.Key,
		})
	}

	var created int64
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedUniversity(tx, studentID)
		if err != nil {
			return err
		}
		if current == nil || *current != universityID {
			g.log.Info("skipped stale lock event",
				"student_id", studentID,
				"university_id", universityID,
			)
			return nil
		}

		// Existing (student, university, template) rows win, so replays add nothing.
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tasks)
		if result.Error != nil {
			return fmt.Errorf("failed to create tasks: %w", result.Error)
		}
		created = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}

	g.log.Info("generated university tasks",
		"student_id", studentID,
		"university_id", universityID,
		"created", created,
	)
	return nil
}

func (g *TemplateTaskGenerator) OnUnlocked(ctx context.Context, studentID, universityID uint) error {
	var deleted int64
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockedUniversity(tx, studentID)
		if err != nil {
			return err
		}
		// Locked again since: the tasks belong to the newer lock.
		if current != nil && *current == universityID {
			g.log.Info("skipped stale unlock event",
				"student_id", studentID,
				"university_id", universityID,
			)
			return nil
		}

		result := tx.Where("student_id = ? AND university_id = ?", studentID, universityID).
			Delete(&model.Task{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete university tasks: %w", result.Error)
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}

	g.log.Info("removed university tasks",
		"student_id", studentID,
		"university_id", universityID,
		"deleted", deleted,
	)
	return nil
}

// lockedUniversity row-locks the student's selection and returns the locked
// university, or nil when nothing is locked.
func lockedUniversity(tx *gorm.DB, studentID uint) (*uint, error) {
	var selection model.StudentSelection
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ?", studentID).
		Take(&selection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	return selection.LockedUniversityID, nil
}
