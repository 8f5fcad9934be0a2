package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/app/repository"
	"github.com/obedenzy/starbridge/internal/pkg/billing"
	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

const billingTimeout = 15 * time.Second

// HandleStripeWebhook is the single entry point for payment provider
// deliveries. Signature verification is the authentication mechanism;
// everything else maps to the response contract: 400 for bad signatures,
// 200 for duplicates, ignored types and unresolvable events, 5xx only when
// a retry could help.
func HandleStripeWebhook(c *fiber.Ctx) error {
	if billingProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "billing_unavailable"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	svc := getBillingService()
	ctx, cancel := context.WithTimeout(context.Background(), billingTimeout)
	defer cancel()

	event, verifyErr := billingProvider.VerifyWebhook(rawBody, signature)
	if verifyErr != nil {
		// Record the rejected delivery for audit. Nothing in an unverified
		// payload can be trusted, so the row is keyed by a body hash.
		_, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
			Provider:        models.BillingProviderStripe,
			ProviderEventID: "",
			EventType:       "unverified",
			PayloadJSON:     string(rawBody),
			SignatureValid:  false,
		})
		if err == nil && stored != nil {
			_ = svc.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	created, stored, err := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		// Only deliveries that completed cleanly are true duplicates. A row
		// whose processing failed (or never finished) means the provider is
		// redelivering after a 5xx, so run the handlers again.
		if stored.ProcessedAt != nil && stored.ProcessingError == "" {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "status": "duplicate"})
		}
	}

	outcome, processErr := svc.ProcessEvent(ctx, event)
	_ = svc.MarkWebhookProcessed(ctx, stored.ID, processErr)
	if processErr != nil {
		// Non-2xx makes the provider redeliver; handlers are safe to re-run.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "status": outcome})
}

// HandleBillingCheckout starts a hosted checkout for the caller's business.
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	if billingProvider == nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Billing is not configured."}).Redirect("/billing")
	}

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	business, err := repos.Business.GetByUserID(userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "No business account found."}).Redirect("/dashboard")
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingTimeout)
	defer cancel()

	url, err := billingProvider.CreateCheckoutSession(ctx, billing.CheckoutParams{
		BusinessID:    business.ID,
		UserID:        userCtx.UserID,
		CustomerEmail: userCtx.Email,
		CustomerRef:   business.StripeCustomerID,
		SuccessURL:    baseURL(c) + "/billing?checkout=success",
		CancelURL:     baseURL(c) + "/billing?checkout=cancelled",
	})
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not start checkout, please try again."}).Redirect("/billing")
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandleBillingPortal redirects to the provider's self-service portal.
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	if billingProvider == nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Billing is not configured."}).Redirect("/billing")
	}

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	business, err := repos.Business.GetByUserID(userCtx.UserID)
	if err != nil || business.StripeCustomerID == "" {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "No subscription on record yet."}).Redirect("/billing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingTimeout)
	defer cancel()

	url, err := billingProvider.CreatePortalSession(ctx, business.StripeCustomerID, baseURL(c)+"/billing")
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Could not open the billing portal, please try again."}).Redirect("/billing")
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandleSubscriptionCheck is the pull-based resync: it fetches provider
// truth on demand so a user who just paid is unblocked without waiting for
// the webhook.
func HandleSubscriptionCheck(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	if billingProvider == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "billing_unavailable"})
	}

	svc := getBillingService()
	ctx, cancel := context.WithTimeout(context.Background(), billingTimeout)
	defer cancel()

	result, err := svc.CheckSubscription(ctx, userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNoSubscription):
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"status":              models.BusinessStatusInactive,
				"subscription_status": "",
			})
		case errors.Is(err, billing.ErrBusinessNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "business_not_found"})
		default:
			// Provider errors surface as a failed check, never as raw text.
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "subscription_check_failed"})
		}
	}

	return c.JSON(fiber.Map{
		"status":              result.BusinessStatus,
		"subscription_status": result.SubscriptionStatus,
		"ends_at":             result.EndsAt,
		"refreshed":           result.Refreshed,
	})
}

// HandleBillingPage renders subscription state plus checkout/portal actions.
func HandleBillingPage(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	repos := repository.NewFactory(database.GetDB()).GetRepositories()
	business, err := repos.Business.GetByUserID(userCtx.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.ErrInternalServerError
	}

	data := fiber.Map{
		"Title": "Billing",
		"Flash": flash.Get(c),
		"User":  userCtx,
		"Csrf":  c.Locals("csrf"),
	}
	if business != nil {
		data["Business"] = business
		data["HasSubscription"] = business.StripeSubscriptionID != ""
		if business.SubscriptionEndsAt != nil {
			data["RenewsAt"] = business.SubscriptionEndsAt.Format("Jan 2, 2006")
		}
	}
	return c.Render("billing", data, "layouts/main")
}

// HandleSubscriptionRequired renders the cold-start subscribe screen.
func HandleSubscriptionRequired(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	return c.Render("subscription_required", fiber.Map{
		"Title": "Subscription required",
		"Flash": flash.Get(c),
		"User":  userCtx,
		"Csrf":  c.Locals("csrf"),
	}, "layouts/main")
}
