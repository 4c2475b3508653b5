package university

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/handlers"
	"github.com/hkbharti77/AI-Counsellor/services"
	"github.com/hkbharti77/AI-Counsellor/utils/response"
	"github.com/hkbharti77/AI-Counsellor/utils/validation"
)

// UniversityHandler serves the read-only catalog
type UniversityHandler struct {
	catalog *services.CatalogService
}

// NewUniversityHandler creates a new university handler
func NewUniversityHandler(catalog *services.CatalogService) *UniversityHandler {
	return &UniversityHandler{
		catalog: catalog,
	}
}

// ListUniversities handles GET /api/v1/universities
func (h *UniversityHandler) ListUniversities(c *fiber.Ctx) error {
	// Parse query parameters
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	maxTuition, _ := strconv.Atoi(c.Query("max_tuition", "0"))
	maxRanking, _ := strconv.Atoi(c.Query("max_ranking", "0"))

	opts := services.ListUniversitiesOptions{
		Search:     validation.SanitizeString(c.Query("search")),
		Country:    validation.SanitizeString(c.Query("country")),
		Program:    validation.SanitizeString(c.Query("program")),
		MaxTuition: maxTuition,
		MaxRanking: maxRanking,
		Page:       page,
		Limit:      limit,
	}

	universities, total, err := h.catalog.List(c.UserContext(), opts)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch universities")
	}

	return response.Paginated(c, universities, response.CalculatePagination(page, limit, total))
}

// GetUniversity handles GET /api/v1/universities/:id
func (h *UniversityHandler) GetUniversity(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid university ID")
	}

	university, err := h.catalog.Get(c.UserContext(), uint(id))
	if err != nil {
		return handlers.RespondError(c, err, "Failed to fetch university")
	}

	return response.Success(c, university)
}
