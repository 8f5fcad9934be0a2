package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/obedenzy/starbridge/internal/pkg/reviewflow"
	"github.com/obedenzy/starbridge/internal/pkg/statistics"
)

type apiReviewRequest struct {
	Rating  int    `json:"rating"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Comment string `json:"comment"`
}

// HandleAPIReviewSubmit is the JSON flavor of the public rating submission,
// used by embedded widgets. The response mirrors the routing result:
// {"action":"redirect","target":...} or {"action":"capture"}.
func HandleAPIReviewSubmit(c *fiber.Ctx) error {
	var req apiReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "invalid_request",
			"message": "request body could not be parsed",
		})
	}

	svc := getReviewService()
	result, err := svc.Submit(context.Background(), c.Params("slug"), reviewflow.Submission{
		Rating:  req.Rating,
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Comment: req.Comment,
	})
	if err != nil {
		return apiSubmitError(c, err)
	}

	if result.Action == reviewflow.ActionCapture {
		if business, err := svc.GetBusinessBySlug(c.Params("slug")); err == nil {
			statistics.InvalidateBusinessStats(business.ID)
		}
	}
	return c.JSON(result)
}

// HandleAPIReviewPage returns the public business info for a slug so
// widgets can render the rating form.
func HandleAPIReviewPage(c *fiber.Ctx) error {
	svc := getReviewService()
	business, err := svc.GetBusinessBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, reviewflow.ErrBusinessNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "business_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{
		"business_name": business.BusinessName,
		"slug":          business.Slug,
		"accepting":     business.IsActive(),
	})
}

func apiSubmitError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, reviewflow.ErrBusinessNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "business_not_found",
		})
	case errors.Is(err, reviewflow.ErrBusinessInactive):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "business_inactive",
			"message": "reviews are temporarily unavailable for this business",
		})
	case errors.Is(err, reviewflow.ErrInvalidRating):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "rating must be between 1 and 5",
		})
	case errors.Is(err, reviewflow.ErrMissingContact):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation_error",
			"message": "name and email are required for feedback",
		})
	case errors.Is(err, reviewflow.ErrDuplicateReview):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "duplicate_review",
			"message": "a review from this contact was already recorded today",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error",
		})
	}
}
