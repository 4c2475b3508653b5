package model

import "time"

// TaskCategory groups tasks on the guidance board
type TaskCategory string

const (
	TaskCategoryDocument    TaskCategory = "document"
	TaskCategoryApplication TaskCategory = "application"
	TaskCategoryExam        TaskCategory = "exam"
	TaskCategoryGeneral     TaskCategory = "general"
)

// TaskPriority orders tasks within a category
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// TaskSource tells generated tasks apart from ones the student created
type TaskSource string

const (
	TaskSourceGenerated TaskSource = "generated"
	TaskSourceManual    TaskSource = "manual"
)

// Task is a to-do item on a student's guidance board.
// Tasks with a UniversityID are scoped to that university and are removed on unlock.
type Task struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	StudentID    uint         `gorm:"not null;index;uniqueIndex:idx_task_generated_template,where:template_key <> ''" json:"student_id"`
	UniversityID *uint        `gorm:"index;uniqueIndex:idx_task_generated_template,where:template_key <> ''" json:"university_id,omitempty"`
	Title        string       `gorm:"type:varchar(255);not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Category     TaskCategory `gorm:"type:varchar(20);not null;default:'general'" json:"category"`
	Priority     TaskPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	IsCompleted  bool         `gorm:"not null;default:false" json:"is_completed"`
	DueDate      *time.Time   `json:"due_date,omitempty"`
	Source       TaskSource   `gorm:"type:varchar(20);not null;default:'manual'" json:"source"`
	TemplateKey  string       `gorm:"type:varchar(60);not null;default:'';uniqueIndex:idx_task_generated_template,where:template_key <> ''" json:"-"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}
