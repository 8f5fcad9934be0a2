package router

import (
	"strings"
	"time"

	"github.com/obedenzy/starbridge/app/controllers"
	"github.com/obedenzy/starbridge/internal/pkg/env"
	"github.com/obedenzy/starbridge/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			// API clients authenticate per request, provider webhooks are
			// signature-verified, and the public review form posts from
			// embeds we do not control.
			return strings.HasPrefix(c.Path(), "/api/") ||
				strings.HasPrefix(c.Path(), "/webhooks/") ||
				strings.HasPrefix(c.Path(), "/r/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	// Business dashboard
	group.Get("/dashboard", middleware.RequireAuth, middleware.RequireActiveBusiness, controllers.HandleDashboard)
	group.Get("/dashboard/reviews.csv", middleware.RequireAuth, middleware.RequireActiveBusiness, controllers.HandleReviewsCSV)
	group.Get("/dashboard/qrcode", middleware.RequireAuth, middleware.RequireActiveBusiness, controllers.HandleReviewQRCode)

	// Business settings
	group.Get("/settings", middleware.RequireAuth, middleware.RequireActiveBusiness, controllers.HandleBusinessSettings)
	group.Post("/settings", middleware.RequireAuth, middleware.RequireActiveBusiness, controllers.HandleBusinessSettings)
	group.Post("/settings/password", middleware.RequireAuth, controllers.HandlePasswordChange)

	// Billing pages and actions. These must stay reachable with an
	// inactive subscription, otherwise a lapsed account can never pay.
	group.Get("/billing", middleware.RequireAuth, controllers.HandleBillingPage)
	group.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
	group.Post("/billing/portal", middleware.RequireAuth, controllers.HandleBillingPortal)
	group.Post("/billing/check", middleware.RequireAuth, controllers.HandleSubscriptionCheck)
	group.Get("/subscription/required", middleware.RequireAuth, controllers.HandleSubscriptionRequired)
}
