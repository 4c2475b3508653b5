package task

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/handlers"
	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/services"
	"github.com/hkbharti77/AI-Counsellor/utils/middleware"
	"github.com/hkbharti77/AI-Counsellor/utils/response"
	"github.com/hkbharti77/AI-Counsellor/utils/validation"
)

// TaskHandler serves the student's guidance board
type TaskHandler struct {
	tasks     *services.TaskService
	validator *validation.Validator
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{
		tasks:     tasks,
		validator: validation.NewValidator(),
	}
}

// CreateTaskRequest represents the request body for a manual task
type CreateTaskRequest struct {
	Title        string     `json:"title" validate:"required,min=3,max=255"`
	Description  string     `json:"description" validate:"omitempty,max=2000"`
	Category     string     `json:"category" validate:"omitempty,oneof=document application exam general"`
	Priority     string     `json:"priority" validate:"omitempty,oneof=high medium low"`
	DueDate      *time.Time `json:"due_date"`
	UniversityID *uint      `json:"university_id" validate:"omitempty,gt=0"`
}

// ListTasks handles GET /api/v1/tasks
func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	tasks, err := h.tasks.List(c.UserContext(), studentID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch tasks")
	}

	return response.Success(c, tasks)
}

// CreateTask handles POST /api/v1/tasks
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.RespondValidation(c, err)
	}

	task, err := h.tasks.Create(c.UserContext(), studentID, services.CreateTaskInput{
		Title:        validation.SanitizeString(req.Title),
		Description:  validation.SanitizeString(req.Description),
		Category:     model.TaskCategory(req.Category),
		Priority:     model.TaskPriority(req.Priority),
		DueDate:      req.DueDate,
		UniversityID: req.UniversityID,
	})
	if err != nil {
		return response.InternalServerError(c, "Failed to create task")
	}

	return response.Created(c, task)
}

// CompleteTask handles POST /api/v1/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *fiber.Ctx) error {
	return h.setCompleted(c, true)
}

// UncompleteTask handles POST /api/v1/tasks/:id/uncomplete
func (h *TaskHandler) UncompleteTask(c *fiber.Ctx) error {
	return h.setCompleted(c, false)
}

func (h *TaskHandler) setCompleted(c *fiber.Ctx, completed bool) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid task ID")
	}

	task, err := h.tasks.SetCompleted(c.UserContext(), studentID, uint(id), completed)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to update task")
	}

	return response.Success(c, task)
}

// DeleteTask handles DELETE /api/v1/tasks/:id
func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid task ID")
	}

	if err := h.tasks.Delete(c.UserContext(), studentID, uint(id)); err != nil {
		return handlers.RespondError(c, err, "Failed to delete task")
	}

	return response.SuccessWithMessage(c, "Task deleted", nil)
}
