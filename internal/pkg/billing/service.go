package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/internal/pkg/env"
	"github.com/obedenzy/starbridge/internal/pkg/jobqueue"
)

// Service reconciles payment-provider subscription state into business
// accounts. Webhook deliveries and pull-based checks both funnel through it,
// and every mutation replaces the stored subscription fields with the latest
// provider snapshot rather than adjusting them relative to prior state.
type Service struct {
	repo     Repository
	provider Provider
	queue    *jobqueue.Queue
}

// NewService creates a billing service from an injected repository and provider.
func NewService(repo Repository, provider Provider) *Service {
	return &Service{repo: repo, provider: provider}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider Provider) *Service {
	return NewService(NewRepository(db), provider)
}

// WithNoticeQueue enables customer-facing billing notices. A nil queue
// keeps reconciliation working and silently skips notices.
func (s *Service) WithNoticeQueue(queue *jobqueue.Queue) *Service {
	s.queue = queue
	return s
}

// ApplyCheckoutCompleted activates a business after a completed
// subscription-mode checkout. The session metadata carries the business ID;
// the authoritative subscription state is fetched from the provider rather
// than trusted from the session payload.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, businessID uint, customerRef, subscriptionRef string) error {
	business, err := s.repo.GetBusinessByID(businessID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBusinessNotFound
		}
		return err
	}

	snap, err := s.provider.GetSubscription(ctx, subscriptionRef)
	if err != nil {
		if errors.Is(err, ErrNoSubscription) {
			return ErrNoSubscription
		}
		return err
	}
	if snap.CustomerRef == "" {
		snap.CustomerRef = customerRef
	}

	status := normalizeProviderStatus(snap.Status)
	fields := map[string]interface{}{
		"stripe_customer_id":     snap.CustomerRef,
		"stripe_subscription_id": snap.SubscriptionRef,
		"subscription_status":    status,
		"subscription_ends_at":   snap.CurrentPeriodEnd,
		"status":                 businessStatusFor(status),
	}
	if models.IsGoodStanding(status) {
		fields["payment_failed_at"] = nil
	}
	return s.repo.UpdateSubscriptionState(business.ID, fields)
}

// ApplyPaymentFailed records a failed charge. The business keeps its current
// status for the grace period; only the failure timestamp and the mirrored
// provider status change. Deactivation happens later through
// subscription.updated or subscription.deleted.
func (s *Service) ApplyPaymentFailed(ctx context.Context, customerRef, subscriptionRef string) error {
	_ = ctx
	business, err := s.resolveBusiness(customerRef, subscriptionRef)
	if err != nil {
		return err
	}
	now := time.Now()
	if err := s.repo.UpdateSubscriptionState(business.ID, map[string]interface{}{
		"payment_failed_at":   &now,
		"subscription_status": models.SubscriptionStatusPastDue,
	}); err != nil {
		return err
	}
	s.enqueuePaymentFailedNotice(business)
	return nil
}

// enqueuePaymentFailedNotice dispatches the grace-period email without ever
// failing the reconciliation.
func (s *Service) enqueuePaymentFailedNotice(business *models.BusinessAccount) {
	if s.queue == nil {
		return
	}
	payload := jobqueue.PaymentFailedNoticePayload{
		BusinessID:   business.ID,
		BusinessName: business.BusinessName,
		ContactEmail: business.ContactEmail,
		BillingURL:   strings.TrimRight(env.GetEnv("APP_PUBLIC_URL", ""), "/") + "/billing",
	}
	if _, err := s.queue.EnqueuePaymentFailedNotice(payload); err != nil {
		log.Errorf("[Billing] failed to enqueue payment notice for business %d: %v", business.ID, err)
	}
}

// ApplySubscriptionDeleted is the terminal transition: the business goes
// inactive and the mirrored status becomes canceled, unconditionally. The
// failure timestamp is left as history.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, customerRef, subscriptionRef string) error {
	_ = ctx
	business, err := s.resolveBusiness(customerRef, subscriptionRef)
	if err != nil {
		return err
	}
	return s.repo.UpdateSubscriptionState(business.ID, map[string]interface{}{
		"subscription_status": models.SubscriptionStatusCanceled,
		"status":              models.BusinessStatusInactive,
	})
}

// ApplySubscriptionUpdated replaces local state with the provider's reported
// snapshot. The business is active iff the provider reports active or
// trialing; a transition back to good standing clears the failure timestamp,
// any other transition leaves it untouched.
func (s *Service) ApplySubscriptionUpdated(ctx context.Context, snap SubscriptionSnapshot) error {
	_ = ctx
	business, err := s.resolveBusiness(snap.CustomerRef, snap.SubscriptionRef)
	if err != nil {
		return err
	}
	return s.repo.UpdateSubscriptionState(business.ID, s.snapshotFields(snap))
}

// CheckSubscription is the pull path: it asks the provider for the caller's
// current subscription and applies the same mapping as subscription.updated.
// It closes the race where a webhook has not arrived yet, so the caller's
// next read reflects provider truth.
func (s *Service) CheckSubscription(ctx context.Context, userID uint) (*CheckResult, error) {
	business, err := s.repo.GetBusinessByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}

	var snap *SubscriptionSnapshot
	if business.StripeSubscriptionID != "" {
		snap, err = s.provider.GetSubscription(ctx, business.StripeSubscriptionID)
	} else if business.StripeCustomerID != "" {
		snap, err = s.provider.FindSubscriptionByCustomer(ctx, business.StripeCustomerID)
	} else {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}

	status := normalizeProviderStatus(snap.Status)
	newBusinessStatus := businessStatusFor(status)
	if err := s.repo.UpdateSubscriptionState(business.ID, s.snapshotFields(*snap)); err != nil {
		return nil, err
	}

	return &CheckResult{
		BusinessStatus:     newBusinessStatus,
		SubscriptionStatus: status,
		EndsAt:             snap.CurrentPeriodEnd,
		Refreshed:          business.Status != newBusinessStatus,
	}, nil
}

// snapshotFields builds the replacement field set for one provider snapshot.
func (s *Service) snapshotFields(snap SubscriptionSnapshot) map[string]interface{} {
	status := normalizeProviderStatus(snap.Status)
	fields := map[string]interface{}{
		"subscription_status":  status,
		"subscription_ends_at": snap.CurrentPeriodEnd,
		"status":               businessStatusFor(status),
	}
	if snap.CustomerRef != "" {
		fields["stripe_customer_id"] = snap.CustomerRef
	}
	if snap.SubscriptionRef != "" {
		fields["stripe_subscription_id"] = snap.SubscriptionRef
	}
	if models.IsGoodStanding(status) {
		fields["payment_failed_at"] = nil
	}
	return fields
}

// resolveBusiness maps provider references back to a local business account,
// preferring the subscription reference.
func (s *Service) resolveBusiness(customerRef, subscriptionRef string) (*models.BusinessAccount, error) {
	if subscriptionRef != "" {
		b, err := s.repo.GetBusinessBySubscriptionRef(subscriptionRef)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if customerRef != "" {
		b, err := s.repo.GetBusinessByCustomerRef(customerRef)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrBusinessNotFound
}

// RecordWebhookEvent persists webhook payloads idempotently. The boolean
// result reports whether this delivery was the first one seen.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}
