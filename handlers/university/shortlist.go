package university

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/handlers"
	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/services"
	"github.com/hkbharti77/AI-Counsellor/utils/middleware"
	"github.com/hkbharti77/AI-Counsellor/utils/response"
	"github.com/hkbharti77/AI-Counsellor/utils/validation"
)

// ShortlistHandler exposes the selection lifecycle of the authenticated student
type ShortlistHandler struct {
	selection *services.SelectionService
	validator *validation.Validator
}

// NewShortlistHandler creates a new shortlist handler
func NewShortlistHandler(selection *services.SelectionService) *ShortlistHandler {
	return &ShortlistHandler{
		selection: selection,
		validator: validation.NewValidator(),
	}
}

// ShortlistRequest represents the request body for shortlisting a university
type ShortlistRequest struct {
	UniversityID uint    `json:"university_id" validate:"required,gt=0"`
	Category     *string `json:"category" validate:"omitempty,oneof=dream target safe"`
}

// LockRequest represents the request body for locking a university
type LockRequest struct {
	UniversityID uint `json:"university_id" validate:"required,gt=0"`
}

// UnlockRequest represents the request body for unlocking a university
type UnlockRequest struct {
	UniversityID uint `json:"university_id" validate:"required,gt=0"`
	Confirm      bool `json:"confirm"`
}

// GetShortlist handles GET /api/v1/universities/shortlist
func (h *ShortlistHandler) GetShortlist(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	entries, err := h.selection.List(c.UserContext(), studentID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch shortlist")
	}

	return response.Success(c, entries)
}

// AddToShortlist handles POST /api/v1/universities/shortlist
func (h *ShortlistHandler) AddToShortlist(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req ShortlistRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.RespondValidation(c, err)
	}

	var category *model.ShortlistCategory
	if req.Category != nil {
		cat := model.ShortlistCategory(*req.Category)
		category = &cat
	}

	entry, created, err := h.selection.Shortlist(c.UserContext(), studentID, req.UniversityID, category)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to shortlist university")
	}

	if !created {
		return response.SuccessWithMessage(c, "University is already in your shortlist", entry)
	}
	return response.Created(c, entry)
}

// LockUniversity handles POST /api/v1/universities/lock
func (h *ShortlistHandler) LockUniversity(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req LockRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.RespondValidation(c, err)
	}

	entry, err := h.selection.Lock(c.UserContext(), studentID, req.UniversityID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to lock university")
	}

	return response.SuccessWithMessage(c, "University locked", entry)
}

// UnlockUniversity handles POST /api/v1/universities/unlock
func (h *ShortlistHandler) UnlockUniversity(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UnlockRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.RespondValidation(c, err)
	}

	entry, err := h.selection.Unlock(c.UserContext(), studentID, req.UniversityID, req.Confirm)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to unlock university")
	}

	return response.SuccessWithMessage(c, "University unlocked", entry)
}

// RemoveFromShortlist handles DELETE /api/v1/universities/shortlist/:university_id
func (h *ShortlistHandler) RemoveFromShortlist(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	universityID, err := c.ParamsInt("university_id")
	if err != nil || universityID <= 0 {
		return response.BadRequest(c, "Invalid university ID")
	}

	if err := h.selection.Remove(c.UserContext(), studentID, uint(universityID)); err != nil {
		return handlers.RespondError(c, err, "Failed to remove university")
	}

	return response.SuccessWithMessage(c, "University removed from shortlist", nil)
}

// GetSelectionStatus handles GET /api/v1/universities/selection
func (h *ShortlistHandler) GetSelectionStatus(c *fiber.Ctx) error {
	studentID, ok := middleware.GetStudentID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	status, err := h.selection.Status(c.UserContext(), studentID)
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch selection status")
	}

	return response.Success(c, status)
}
