package routes

import (
	"time"

	"loanhub/internal/adapters/http/handlers"
	"loanhub/internal/adapters/http/middleware"
	"loanhub/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, ctr *Container, cfg *config.Config, log *zap.Logger, gatherer prometheus.Gatherer) {
	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(ctr.DB, cfg.AppMode)
	authHandler := handlers.NewAuthHandler(ctr.Accounts, log)
	userHandler := handlers.NewUserHandler(ctr.Accounts, log)
	caseHandler := handlers.NewCaseHandler(ctr.Cases, log)
	detailHandler := handlers.NewCaseDetailHandler(ctr.Providers, ctr.PriorLoans, ctr.Logs, ctr.Comments, ctr.Events, log)
	todoHandler := handlers.NewTodoHandler(ctr.Todos, log)
	dashboardHandler := handlers.NewDashboardHandler(ctr.Dashboard, ctr.Export, ctr.Now, log)
	noticeHandler := handlers.NewNoticeHandler(ctr.Notices, log)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	auth := middleware.AuthMiddleware(cfg.JWT.Secret)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	// Auth routes
	authRoutes := apiV1.Group("/auth")
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Get("/me", auth, authHandler.Me)

	// Profile routes (Authenticated users)
	profileRoutes := apiV1.Group("/profile", auth)
	profileRoutes.Put("/", authHandler.UpdateProfile)
	profileRoutes.Put("/password", authHandler.ChangePassword)

	// User management routes
	userRoutes := apiV1.Group("/users", auth)
	setupUserRoutes(userRoutes, userHandler)

	// Case routes
	caseRoutes := apiV1.Group("/cases", auth, middleware.NoCacheHeaders())
	setupCaseRoutes(caseRoutes, caseHandler, detailHandler, todoHandler, dashboardHandler)

	// Todo routes
	todoRoutes := apiV1.Group("/todos", auth)
	todoRoutes.Get("/mine", todoHandler.ListMine)
	todoRoutes.Patch("/:todoId", todoHandler.Update)
	todoRoutes.Delete("/:todoId", todoHandler.Delete)
	todoRoutes.Get("/:todoId/history", todoHandler.History)

	templateRoutes := apiV1.Group("/todo-templates", auth)
	templateRoutes.Get("/", todoHandler.ListTemplates)
	templateRoutes.Post("/", todoHandler.CreateTemplate)
	templateRoutes.Post("/:templateId/apply", todoHandler.ApplyTemplate)

	// Dashboard routes
	dashboardRoutes := apiV1.Group("/dashboard", auth, middleware.NoCacheHeaders())
	dashboardRoutes.Get("/", dashboardHandler.Get)
	dashboardRoutes.Get("/calendar", dashboardHandler.Calendar)

	// Notice routes
	noticeRoutes := apiV1.Group("/notices", auth)
	noticeRoutes.Get("/", middleware.PrivateCacheHeaders(time.Minute), noticeHandler.List)
	noticeRoutes.Post("/", middleware.ManagersOnly(), noticeHandler.Create)
	noticeRoutes.Delete("/:id", middleware.ManagersOnly(), noticeHandler.Deactivate)
}

// setupUserRoutes configures account management routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", middleware.ManagersOnly(), handler.ListUsers)
	router.Post("/", middleware.ManagersOnly(), handler.CreateUser)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id/active", middleware.ManagersOnly(), handler.SetActive)
}

// setupCaseRoutes configures case routes and their child collections
func setupCaseRoutes(
	router fiber.Router,
	caseHandler *handlers.CaseHandler,
	detail *handlers.CaseDetailHandler,
	todoHandler *handlers.TodoHandler,
	dashboardHandler *handlers.DashboardHandler,
) {
	router.Get("/", caseHandler.List)
	router.Post("/", caseHandler.Create)
	router.Get("/export", dashboardHandler.ExportCSV)
	router.Get("/:id", caseHandler.Get)
	router.Patch("/:id", caseHandler.Update)
	router.Delete("/:id", caseHandler.Delete)

	// Lifecycle
	router.Put("/:id/status", caseHandler.ChangeStatus)
	router.Put("/:id/schedule", caseHandler.SetSchedule)
	router.Post("/:id/urgent", caseHandler.ToggleUrgent)
	router.Get("/:id/history", caseHandler.History)
	router.Put("/:id/manager", middleware.ManagersOnly(), caseHandler.AssignManager)

	// Security providers
	router.Get("/:id/providers", detail.ListProviders)
	router.Post("/:id/providers", detail.CreateProvider)
	router.Put("/:id/providers/:providerId", detail.UpdateProvider)
	router.Delete("/:id/providers/:providerId", detail.DeleteProvider)

	// Prior loans
	router.Get("/:id/prior-loans", detail.ListPriorLoans)
	router.Post("/:id/prior-loans", detail.CreatePriorLoan)
	router.Put("/:id/prior-loans/:loanId", detail.UpdatePriorLoan)
	router.Delete("/:id/prior-loans/:loanId", detail.DeletePriorLoan)

	// Consulting logs
	router.Get("/:id/logs", detail.ListLogs)
	router.Post("/:id/logs", detail.AddLog)
	router.Delete("/:id/logs/:logId", detail.DeleteLog)

	// Comments
	router.Get("/:id/comments", detail.ListComments)
	router.Post("/:id/comments", detail.AddComment)
	router.Post("/:id/comments/read", detail.MarkCommentsRead)
	router.Delete("/:id/comments/:commentId", detail.DeleteComment)

	// Events
	router.Get("/:id/events", detail.ListEvents)
	router.Post("/:id/events", detail.CreateEvent)
	router.Delete("/:id/events/:eventId", detail.DeleteEvent)

	// Todos
	router.Get("/:id/todos", todoHandler.ListByCase)
	router.Post("/:id/todos", todoHandler.Create)
}
