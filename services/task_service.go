package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"gorm.io/gorm"
)

// TaskService manages the student's guidance board
type TaskService struct {
	db  *gorm.DB
	now func() time.Time
	log *logger.Logger
}

// NewTaskService creates a new task service
func NewTaskService(db *gorm.DB, log *logger.Logger) *TaskService {
	return &TaskService{
		db:  db,
		now: time.Now,
		log: log.With("service", "TaskService"),
	}
}

// CreateTaskInput holds the fields of a manual task
type CreateTaskInput struct {
	Title        string
	Description  string
	Category     model.TaskCategory
	Priority     model.TaskPriority
	DueDate      *time.Time
	UniversityID *uint
}

// taskListOrder puts open tasks first, then high to low priority, then the
// earliest due date with undated tasks last.
var taskListOrder = fmt.Sprintf(
	"is_completed ASC, CASE priority WHEN '%s' THEN 0 WHEN '%s' THEN 1 ELSE 2 END, due_date IS NULL, due_date ASC, id ASC",
	model.TaskPriorityHigh, model.TaskPriorityMedium,
)

// List returns the student's tasks, open ones first, then by priority and due date
func (s *TaskService) List(ctx context.Context, studentID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order(taskListOrder).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return tasks, nil
}

// Create adds a manual task
func (s *TaskService) Create(ctx context.Context, studentID uint, input CreateTaskInput) (*model.Task, error) {
	task := model.Task{
		StudentID:    studentID,
		UniversityID: input.UniversityID,
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Priority:     input.Priority,
		DueDate:      input.DueDate,
		Source:       model.TaskSourceManual,
	}
	if task.Category == "" {
		task.Category = model.TaskCategoryGeneral
	}
	if task.Priority == "" {
		task.Priority = model.TaskPriorityMedium
	}

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

// SetCompleted marks a task done or open again
func (s *TaskService) SetCompleted(ctx context.Context, studentID, taskID uint, completed bool) (*model.Task, error) {
	var task model.Task
	if err := s.db.WithContext(ctx).
		Where("id = ? AND student_id = ?", taskID, studentID).
		Take(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}

	var completedAt *time.Time
	if completed {
		now := s.now().UTC()
		completedAt = &now
	}
	if err := s.db.WithContext(ctx).Model(&task).Updates(map[string]interface{}{
		"is_completed": completed,
		"completed_at": completedAt,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	task.IsCompleted = completed
	task.CompletedAt = completedAt
	return &task, nil
}

// Delete removes a task owned by the student
func (s *TaskService) Delete(ctx context.Context, studentID, taskID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND student_id = ?", taskID, studentID).
		Delete(&model.Task{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
