package router

import (
	"github.com/obedenzy/starbridge/app/controllers"
	"github.com/obedenzy/starbridge/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")

	// Public review endpoints for embedded widgets
	v1.Get("/reviews/:slug", controllers.HandleAPIReviewPage)
	v1.Post("/reviews/:slug", controllers.HandleAPIReviewSubmit)

	// Session-authenticated account endpoints
	v1.Get("/subscription/check", middleware.RequireAPISessionAuth, controllers.HandleSubscriptionCheck)
	v1.Get("/analytics", middleware.RequireAPISessionAuth, controllers.HandleAnalyticsJSON)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
