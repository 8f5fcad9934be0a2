package router

import (
	"github.com/obedenzy/starbridge/app/controllers"
	"github.com/obedenzy/starbridge/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Public review landing pages. The slug is the only thing a reviewer
	// ever sees, there is no account context on these routes.
	app.Get("/r/:slug", loggedInMiddleware, controllers.HandleReviewLanding)
	app.Post("/r/:slug", loggedInMiddleware, controllers.HandleReviewSubmit)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)
}
