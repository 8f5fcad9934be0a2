package router

import (
	"github.com/obedenzy/starbridge/app/controllers"
	"github.com/obedenzy/starbridge/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", controllers.HandleAdminDashboard)
	adminGroup.Get("/users", controllers.HandleAdminUsers)
	adminGroup.Get("/businesses", controllers.HandleAdminBusinesses)
	adminGroup.Post("/businesses/:id/status", controllers.HandleAdminBusinessStatus)
	adminGroup.Get("/webhook-events", controllers.HandleAdminWebhookEvents)
}
