package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/app/repository"
	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

// HandleAdminDashboard shows platform-wide counts.
func HandleAdminDashboard(c *fiber.Ctx) error {
	repos := repository.NewFactory(database.GetDB()).GetRepositories()

	userCount, err := repos.User.Count()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	businessCount, err := repos.Business.Count()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	eventCount, err := repos.WebhookEvent.Count()
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.Render("admin/dashboard", fiber.Map{
		"Title":         "Admin",
		"Flash":         flash.Get(c),
		"User":          usercontext.GetUserContext(c),
		"UserCount":     userCount,
		"BusinessCount": businessCount,
		"EventCount":    eventCount,
	}, "layouts/main")
}

// HandleAdminBusinesses lists business accounts with search.
func HandleAdminBusinesses(c *fiber.Ctx) error {
	repos := repository.NewFactory(database.GetDB()).GetRepositories()

	var (
		businesses []models.BusinessAccount
		err        error
	)
	query := strings.TrimSpace(c.Query("q"))
	offset, limit, page := parsePagination(c, 50, 200)
	if query != "" {
		businesses, err = repos.Business.Search(query)
	} else {
		businesses, err = repos.Business.List(offset, limit)
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.Render("admin/businesses", fiber.Map{
		"Title":      "Businesses",
		"Flash":      flash.Get(c),
		"User":       usercontext.GetUserContext(c),
		"Businesses": businesses,
		"Query":      query,
		"Page":       page,
	}, "layouts/main")
}

// HandleAdminUsers lists platform users with search.
func HandleAdminUsers(c *fiber.Ctx) error {
	repos := repository.NewFactory(database.GetDB()).GetRepositories()

	var (
		users []models.User
		err   error
	)
	query := strings.TrimSpace(c.Query("q"))
	offset, limit, page := parsePagination(c, 50, 200)
	if query != "" {
		users, err = repos.User.Search(query)
	} else {
		users, err = repos.User.List(offset, limit)
	}
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.Render("admin/users", fiber.Map{
		"Title": "Users",
		"Flash": flash.Get(c),
		"User":  usercontext.GetUserContext(c),
		"Users": users,
		"Query": query,
		"Page":  page,
	}, "layouts/main")
}

// HandleAdminBusinessStatus is the manual override for a business's
// lifecycle status. Subscription fields stay untouched, so the next
// reconciliation still reflects provider truth.
func HandleAdminBusinessStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return fiber.ErrBadRequest
	}
	status := c.FormValue("status")

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	if err := repos.Business.UpdateStatus(uint(id), status); err != nil {
		return flash.WithError(c, fiber.Map{
			"type":    "error",
			"message": "Could not update the business status.",
		}).Redirect("/admin/businesses")
	}

	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "Business status updated.",
	}).Redirect("/admin/businesses")
}

// HandleAdminWebhookEvents lists recorded billing webhook deliveries for
// debugging reconciliation issues.
func HandleAdminWebhookEvents(c *fiber.Ctx) error {
	repos := repository.NewFactory(database.GetDB()).GetRepositories()

	offset, limit, page := parsePagination(c, 50, 200)
	events, err := repos.WebhookEvent.List(offset, limit)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.Render("admin/webhook_events", fiber.Map{
		"Title":  "Webhook events",
		"Flash":  flash.Get(c),
		"User":   usercontext.GetUserContext(c),
		"Events": events,
		"Page":   page,
	}, "layouts/main")
}
