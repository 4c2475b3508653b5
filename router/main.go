package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/handlers"
	task_handlers "github.com/hkbharti77/AI-Counsellor/handlers/task"
	university_handlers "github.com/hkbharti77/AI-Counsellor/handlers/university"
	"github.com/hkbharti77/AI-Counsellor/services"
	"github.com/hkbharti77/AI-Counsellor/utils"
	"github.com/hkbharti77/AI-Counsellor/utils/auth"
	"github.com/hkbharti77/AI-Counsellor/utils/middleware"
)

// Dependencies are the wired services the routes are served from
type Dependencies struct {
	Store          database.Storage
	Cache          handlers.Pinger
	JWTManager     *auth.JWTManager
	Catalog        *services.CatalogService
	Selection      *services.SelectionService
	Tasks          *services.TaskService
	AllowedOrigins string
	// RateLimitRequests per minute and IP; 0 disables the limiter
	RateLimitRequests int
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	authMiddleware := middleware.NewAuthMiddleware(deps.JWTManager)

	universityHandler := university_handlers.NewUniversityHandler(deps.Catalog)
	shortlistHandler := university_handlers.NewShortlistHandler(deps.Selection)
	taskHandler := task_handlers.NewTaskHandler(deps.Tasks)

	// Apply security middleware
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    deps.AllowedOrigins,
		RateLimitRequests: deps.RateLimitRequests,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, handlers.HealthDeps{
		Store: deps.Store,
		Cache: deps.Cache,
	}))

	// API v1 group
	api := app.Group("/api/v1")

	// Universities routes. Fixed paths are registered before /:id.
	universities := api.Group("/universities")
	universities.Get("/", universityHandler.ListUniversities)                                                              // Public: Browse the catalog
	universities.Get("/shortlist", authMiddleware.Required(), shortlistHandler.GetShortlist)                               // Protected: Student's shortlist
	universities.Post("/shortlist", authMiddleware.Required(), shortlistHandler.AddToShortlist)                            // Protected: Shortlist a university
	universities.Delete("/shortlist/:university_id<int>", authMiddleware.Required(), shortlistHandler.RemoveFromShortlist) // Protected: Remove an unlocked entry
	universities.Post("/lock", authMiddleware.Required(), shortlistHandler.LockUniversity)                                 // Protected: Commit to a university
	universities.Post("/unlock", authMiddleware.Required(), shortlistHandler.UnlockUniversity)                             // Protected: Release the commitment
	universities.Get("/selection", authMiddleware.Required(), shortlistHandler.GetSelectionStatus)                         // Protected: Lifecycle state and stage
	universities.Get("/:id<int>", universityHandler.GetUniversity)                                                         // Public: University details

	// Tasks routes (all protected)
	tasks := api.Group("/tasks", authMiddleware.Required())
	tasks.Get("/", taskHandler.ListTasks)
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Post("/:id<int>/complete", taskHandler.CompleteTask)
	tasks.Post("/:id<int>/uncomplete", taskHandler.UncompleteTask)
	tasks.Delete("/:id<int>", taskHandler.DeleteTask)
}
