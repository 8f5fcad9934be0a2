package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

// HandleStart renders the public landing page, or forwards signed-in users
// to their dashboard.
func HandleStart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		if userCtx.IsSuperAdmin {
			return c.Redirect("/admin", fiber.StatusSeeOther)
		}
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}

	return c.Render("index", fiber.Map{
		"Title": "Collect better reviews",
		"Flash": flash.Get(c),
	}, "layouts/main")
}
