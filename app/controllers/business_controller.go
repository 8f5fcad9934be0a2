package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/app/repository"
	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

// HandleBusinessSettings renders and saves the user-editable business
// fields. Status and subscription columns are never writable here; those
// belong to the reconciler.
func HandleBusinessSettings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	business, err := currentBusiness(c)
	if err != nil {
		return err
	}

	if c.Method() != fiber.MethodPost {
		return c.Render("settings", fiber.Map{
			"Title":    "Settings",
			"Flash":    flash.Get(c),
			"User":     userCtx,
			"Business": business,
			"Csrf":     c.Locals("csrf"),
		}, "layouts/main")
	}

	fm := fiber.Map{"type": "error"}

	threshold, err := strconv.Atoi(c.FormValue("review_threshold"))
	if err != nil || threshold < models.MinRating || threshold > models.MaxRating {
		fm["message"] = "The redirect threshold must be between 1 and 5 stars."
		return flash.WithError(c, fm).Redirect("/settings")
	}

	businessName := strings.TrimSpace(c.FormValue("business_name"))
	contactEmail := strings.TrimSpace(c.FormValue("contact_email"))
	if businessName == "" || contactEmail == "" {
		fm["message"] = "Business name and contact email are required."
		return flash.WithError(c, fm).Redirect("/settings")
	}
	googleReviewURL := strings.TrimSpace(c.FormValue("google_review_url"))
	if googleReviewURL != "" && !strings.HasPrefix(googleReviewURL, "https://") {
		fm["message"] = "The review link must be an https:// URL."
		return flash.WithError(c, fm).Redirect("/settings")
	}

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	if err := repos.Business.UpdateSettings(business.ID, businessName, contactEmail, googleReviewURL, threshold); err != nil {
		fm["message"] = "Saving failed, please try again."
		return flash.WithError(c, fm).Redirect("/settings")
	}

	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "Settings saved.",
	}).Redirect("/settings")
}
