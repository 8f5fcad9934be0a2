package controllers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/jobqueue"
	"github.com/obedenzy/starbridge/internal/pkg/reviewflow"
	"github.com/obedenzy/starbridge/internal/pkg/statistics"
)

func getReviewService() *reviewflow.Service {
	return reviewflow.NewServiceFromDB(database.GetDB(), jobqueue.GetManager().GetQueue())
}

// HandleReviewLanding renders the public rating page for a business slug.
func HandleReviewLanding(c *fiber.Ctx) error {
	svc := getReviewService()
	business, err := svc.GetBusinessBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, reviewflow.ErrBusinessNotFound) {
			return c.Status(fiber.StatusNotFound).Render("review/unavailable", fiber.Map{
				"Title":   "Not found",
				"Message": "This review page does not exist.",
			}, "layouts/public")
		}
		return fiber.ErrInternalServerError
	}
	if !business.IsActive() {
		return c.Status(fiber.StatusOK).Render("review/unavailable", fiber.Map{
			"Title":   business.BusinessName,
			"Message": "Reviews are temporarily unavailable for this business.",
		}, "layouts/public")
	}

	return c.Render("review/landing", fiber.Map{
		"Title":    business.BusinessName,
		"Business": business,
		"Slug":     business.Slug,
		"Flash":    flash.Get(c),
		"Csrf":     c.Locals("csrf"),
	}, "layouts/public")
}

// HandleReviewSubmit routes a submitted rating: external redirect for high
// ratings, private capture otherwise.
func HandleReviewSubmit(c *fiber.Ctx) error {
	slug := c.Params("slug")
	rating, _ := strconv.Atoi(c.FormValue("rating"))

	svc := getReviewService()
	result, err := svc.Submit(context.Background(), slug, reviewflow.Submission{
		Rating:  rating,
		Name:    c.FormValue("name"),
		Email:   c.FormValue("email"),
		Subject: c.FormValue("subject"),
		Comment: c.FormValue("comment"),
	})
	if err != nil {
		return renderSubmitError(c, slug, err)
	}

	if result.Action == reviewflow.ActionRedirect {
		return c.Redirect(result.Target, fiber.StatusSeeOther)
	}

	if business, err := svc.GetBusinessBySlug(slug); err == nil {
		statistics.InvalidateBusinessStats(business.ID)
	}

	return c.Render("review/thanks", fiber.Map{
		"Title": "Thank you",
	}, "layouts/public")
}

func renderSubmitError(c *fiber.Ctx, slug string, err error) error {
	fm := fiber.Map{"type": "error"}
	switch {
	case errors.Is(err, reviewflow.ErrBusinessNotFound):
		return c.Status(fiber.StatusNotFound).Render("review/unavailable", fiber.Map{
			"Title":   "Not found",
			"Message": "This review page does not exist.",
		}, "layouts/public")
	case errors.Is(err, reviewflow.ErrBusinessInactive):
		return c.Status(fiber.StatusOK).Render("review/unavailable", fiber.Map{
			"Title":   "Unavailable",
			"Message": "Reviews are temporarily unavailable for this business.",
		}, "layouts/public")
	case errors.Is(err, reviewflow.ErrInvalidRating):
		fm["message"] = "Please pick a rating between 1 and 5 stars."
	case errors.Is(err, reviewflow.ErrMissingContact):
		fm["message"] = "Please tell us your name and email so the business can follow up."
	case errors.Is(err, reviewflow.ErrDuplicateReview):
		fm["message"] = "You already sent feedback for this business today. Thank you!"
	default:
		fm["message"] = "Something went wrong, please try again."
	}
	return flash.WithError(c, fm).Redirect("/r/" + slug)
}
