package controllers

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/app/repository"
	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/qrcode"
	"github.com/obedenzy/starbridge/internal/pkg/statistics"
	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

// HandleDashboard renders the captured reviews plus the analytics summary.
func HandleDashboard(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	business, err := currentBusiness(c)
	if err != nil {
		return err
	}

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	offset, limit, page := parsePagination(c, 20, 100)

	reviews, err := repos.Review.GetByBusinessID(business.ID, offset, limit)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	total, err := repos.Review.CountByBusinessID(business.ID)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	stats, err := statistics.GetBusinessStats(business.ID)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return c.Render("dashboard", fiber.Map{
		"Title":      "Dashboard",
		"Flash":      flash.Get(c),
		"User":       userCtx,
		"Business":   business,
		"Reviews":    reviews,
		"Stats":      stats,
		"Page":       page,
		"TotalPages": totalPages,
		"ReviewURL":  fmt.Sprintf("%s/r/%s", baseURL(c), business.Slug),
		"Csrf":       c.Locals("csrf"),
	}, "layouts/main")
}

// HandleReviewsCSV streams all captured reviews as a CSV download.
func HandleReviewsCSV(c *fiber.Ctx) error {
	business, err := currentBusiness(c)
	if err != nil {
		return err
	}

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	reviews, err := repos.Review.ListAllByBusinessID(business.ID)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"created_at", "rating", "reviewer_name", "reviewer_email", "subject", "comment"})
	for _, r := range reviews {
		_ = w.Write([]string{
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Rating),
			r.ReviewerName,
			r.ReviewerEmail,
			r.Subject,
			r.Comment,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fiber.ErrInternalServerError
	}

	filename := fmt.Sprintf("reviews-%s.csv", business.Slug)
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.SendString(sb.String())
}

// HandleReviewQRCode renders the public review URL as a printable QR code.
func HandleReviewQRCode(c *fiber.Ctx) error {
	business, err := currentBusiness(c)
	if err != nil {
		return err
	}

	size, _ := strconv.Atoi(c.Query("size", "0"))
	png, err := qrcode.GeneratePNG(fmt.Sprintf("%s/r/%s", baseURL(c), business.Slug), size)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="review-qr.png"`)
	return c.Send(png)
}

// HandleAnalyticsJSON exposes the analytics summary for dashboard charts.
func HandleAnalyticsJSON(c *fiber.Ctx) error {
	business, err := currentBusiness(c)
	if err != nil {
		return err
	}
	stats, err := statistics.GetBusinessStats(business.ID)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(stats)
}

// currentBusiness resolves the logged-in user's business account or fails
// the request. Routes using it sit behind the auth middleware, so a missing
// session here is an error, not a redirect.
func currentBusiness(c *fiber.Ctx) (*models.BusinessAccount, error) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return nil, fiber.ErrUnauthorized
	}
	if userCtx.BusinessID == 0 {
		return nil, fiber.ErrNotFound
	}
	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	business, err := repos.Business.GetByID(userCtx.BusinessID)
	if err != nil {
		return nil, fiber.ErrNotFound
	}
	return business, nil
}
