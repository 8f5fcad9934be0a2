package controllers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/internal/pkg/billing"
)

type webhookFakeRepo struct {
	businesses       map[uint]*models.BusinessAccount
	events           map[string]*models.BillingWebhookEvent
	nextEvent        uint
	updateCalls      int
	updateErr        error
	lastUpdateFields map[string]interface{}
}

func newWebhookFakeRepo(businesses ...*models.BusinessAccount) *webhookFakeRepo {
	r := &webhookFakeRepo{
		businesses: make(map[uint]*models.BusinessAccount),
		events:     make(map[string]*models.BillingWebhookEvent),
	}
	for _, b := range businesses {
		r.businesses[b.ID] = b
	}
	return r
}

func (r *webhookFakeRepo) GetBusinessByID(id uint) (*models.BusinessAccount, error) {
	if b, ok := r.businesses[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookFakeRepo) GetBusinessByUserID(userID uint) (*models.BusinessAccount, error) {
	for _, b := range r.businesses {
		if b.UserID == userID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookFakeRepo) GetBusinessByCustomerRef(ref string) (*models.BusinessAccount, error) {
	for _, b := range r.businesses {
		if ref != "" && b.StripeCustomerID == ref {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookFakeRepo) GetBusinessBySubscriptionRef(ref string) (*models.BusinessAccount, error) {
	for _, b := range r.businesses {
		if ref != "" && b.StripeSubscriptionID == ref {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *webhookFakeRepo) UpdateSubscriptionState(businessID uint, fields map[string]interface{}) error {
	r.updateCalls++
	if r.updateErr != nil {
		err := r.updateErr
		r.updateErr = nil
		return err
	}
	r.lastUpdateFields = fields
	return nil
}

func (r *webhookFakeRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.nextEvent++
	event.ID = r.nextEvent
	r.events[key] = event
	return true, event, nil
}

func (r *webhookFakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range r.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// webhookFakeProvider accepts exactly one signature header value and
// returns the prepared event for it.
type webhookFakeProvider struct {
	signature string
	event     *stripe.Event
}

func (p *webhookFakeProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (string, error) {
	return "https://checkout.example/session", nil
}

func (p *webhookFakeProvider) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	return "https://portal.example/" + customerRef, nil
}

func (p *webhookFakeProvider) GetSubscription(ctx context.Context, ref string) (*billing.SubscriptionSnapshot, error) {
	return nil, billing.ErrNoSubscription
}

func (p *webhookFakeProvider) FindSubscriptionByCustomer(ctx context.Context, ref string) (*billing.SubscriptionSnapshot, error) {
	return nil, billing.ErrNoSubscription
}

func (p *webhookFakeProvider) VerifyWebhook(payload []byte, signatureHeader string) (*stripe.Event, error) {
	if signatureHeader != p.signature {
		return nil, billing.ErrInvalidSignature
	}
	return p.event, nil
}

func webhookTestApp(t *testing.T, repo *webhookFakeRepo, provider billing.Provider) *fiber.App {
	t.Helper()

	prevProvider := billingProvider
	prevFactory := newBillingService
	billingProvider = provider
	newBillingService = func() *billing.Service {
		return billing.NewService(repo, provider)
	}
	t.Cleanup(func() {
		billingProvider = prevProvider
		newBillingService = prevFactory
	})

	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp.StatusCode, decoded
}

func TestStripeWebhookUnavailableWithoutProvider(t *testing.T) {
	app := webhookTestApp(t, newWebhookFakeRepo(), nil)

	status, body := postWebhook(t, app, []byte(`{"id":"evt_1"}`), "sig")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "billing_unavailable", body["error"])
}

func TestStripeWebhookRejectsInvalidSignature(t *testing.T) {
	repo := newWebhookFakeRepo(&models.BusinessAccount{ID: 1, Status: models.BusinessStatusActive})
	provider := &webhookFakeProvider{signature: "good"}
	app := webhookTestApp(t, repo, provider)

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.deleted"}`)
	status, body := postWebhook(t, app, payload, "forged")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_signature", body["error"])

	// The delivery is audited under a body hash but never acted on.
	assert.Equal(t, 0, repo.updateCalls)
	sum := sha256.Sum256(payload)
	stored, ok := repo.events["stripe/hash:"+hex.EncodeToString(sum[:])]
	require.True(t, ok)
	assert.False(t, stored.SignatureValid)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestStripeWebhookIgnoresUnknownEventType(t *testing.T) {
	repo := newWebhookFakeRepo()
	provider := &webhookFakeProvider{
		signature: "good",
		event: &stripe.Event{
			ID:   "evt_2",
			Type: stripe.EventType("invoice.created"),
			Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
		},
	}
	app := webhookTestApp(t, repo, provider)

	status, body := postWebhook(t, app, []byte(`{"id":"evt_2"}`), "good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, "ignored", body["status"])

	stored, ok := repo.events["stripe/evt_2"]
	require.True(t, ok)
	assert.True(t, stored.SignatureValid)
}

func TestStripeWebhookAnswersDuplicateDeliveries(t *testing.T) {
	repo := newWebhookFakeRepo()
	provider := &webhookFakeProvider{
		signature: "good",
		event: &stripe.Event{
			ID:   "evt_3",
			Type: stripe.EventType("invoice.created"),
			Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
		},
	}
	app := webhookTestApp(t, repo, provider)

	status, body := postWebhook(t, app, []byte(`{"id":"evt_3"}`), "good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ignored", body["status"])

	status, body = postWebhook(t, app, []byte(`{"id":"evt_3"}`), "good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "duplicate", body["status"])
}

func TestStripeWebhookReprocessesFailedDelivery(t *testing.T) {
	repo := newWebhookFakeRepo(&models.BusinessAccount{
		ID:                   7,
		Status:               models.BusinessStatusActive,
		StripeSubscriptionID: "sub_7",
	})
	repo.updateErr = assert.AnError
	provider := &webhookFakeProvider{
		signature: "good",
		event: &stripe.Event{
			ID:   "evt_4",
			Type: stripe.EventType("customer.subscription.deleted"),
			Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"sub_7","customer":"cus_7"}`)},
		},
	}
	app := webhookTestApp(t, repo, provider)

	status, body := postWebhook(t, app, []byte(`{"id":"evt_4"}`), "good")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "webhook_processing_failed", body["error"])

	// Redelivery of an event whose first attempt failed must run the
	// handlers again instead of answering duplicate.
	status, body = postWebhook(t, app, []byte(`{"id":"evt_4"}`), "good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "processed", body["status"])
	assert.Equal(t, 2, repo.updateCalls)
	require.NotNil(t, repo.lastUpdateFields)
	assert.Equal(t, models.SubscriptionStatusCanceled, repo.lastUpdateFields["subscription_status"])

	stored, ok := repo.events["stripe/evt_4"]
	require.True(t, ok)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}
