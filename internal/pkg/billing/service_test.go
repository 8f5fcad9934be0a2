package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
)

type fakeRepository struct {
	businesses map[uint]*models.BusinessAccount
	events     map[string]*models.BillingWebhookEvent
	nextEvent  uint
}

func newFakeRepository(businesses ...*models.BusinessAccount) *fakeRepository {
	r := &fakeRepository{
		businesses: make(map[uint]*models.BusinessAccount),
		events:     make(map[string]*models.BillingWebhookEvent),
	}
	for _, b := range businesses {
		r.businesses[b.ID] = b
	}
	return r
}

func (r *fakeRepository) GetBusinessByID(id uint) (*models.BusinessAccount, error) {
	if b, ok := r.businesses[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetBusinessByUserID(userID uint) (*models.BusinessAccount, error) {
	for _, b := range r.businesses {
		if b.UserID == userID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetBusinessByCustomerRef(customerRef string) (*models.BusinessAccount, error) {
	for _, b := range r.businesses {
		if b.StripeCustomerID == customerRef && customerRef != "" {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetBusinessBySubscriptionRef(subscriptionRef string) (*models.BusinessAccount, error) {
	for _, b := range r.businesses {
		if b.StripeSubscriptionID == subscriptionRef && subscriptionRef != "" {
			copied := *b
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) UpdateSubscriptionState(businessID uint, fields map[string]interface{}) error {
	b, ok := r.businesses[businessID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "status":
			b.Status = value.(string)
		case "subscription_status":
			b.SubscriptionStatus = value.(string)
		case "stripe_customer_id":
			b.StripeCustomerID = value.(string)
		case "stripe_subscription_id":
			b.StripeSubscriptionID = value.(string)
		case "subscription_ends_at":
			if value == nil {
				b.SubscriptionEndsAt = nil
			} else {
				b.SubscriptionEndsAt = value.(*time.Time)
			}
		case "payment_failed_at":
			if value == nil {
				b.PaymentFailedAt = nil
			} else {
				b.PaymentFailedAt = value.(*time.Time)
			}
		}
	}
	return nil
}

func (r *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		return false, stored, nil
	}
	r.nextEvent++
	event.ID = r.nextEvent
	r.events[key] = event
	return true, event, nil
}

func (r *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
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

type fakeProvider struct {
	subscriptions map[string]*SubscriptionSnapshot
	byCustomer    map[string]*SubscriptionSnapshot
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	return "https://checkout.example/session", nil
}

func (p *fakeProvider) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	return "https://portal.example/" + customerRef, nil
}

func (p *fakeProvider) GetSubscription(ctx context.Context, subscriptionRef string) (*SubscriptionSnapshot, error) {
	if snap, ok := p.subscriptions[subscriptionRef]; ok {
		copied := *snap
		return &copied, nil
	}
	return nil, ErrNoSubscription
}

func (p *fakeProvider) FindSubscriptionByCustomer(ctx context.Context, customerRef string) (*SubscriptionSnapshot, error) {
	if snap, ok := p.byCustomer[customerRef]; ok {
		copied := *snap
		return &copied, nil
	}
	return nil, ErrNoSubscription
}

func (p *fakeProvider) VerifyWebhook(payload []byte, signatureHeader string) (*stripe.Event, error) {
	return nil, ErrInvalidSignature
}

func TestApplyCheckoutCompletedActivatesAndIsIdempotent(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	repo := newFakeRepository(&models.BusinessAccount{ID: 1, UserID: 10, Status: models.BusinessStatusInactive})
	provider := &fakeProvider{subscriptions: map[string]*SubscriptionSnapshot{
		"sub_123": {CustomerRef: "cus_123", SubscriptionRef: "sub_123", Status: "active", CurrentPeriodEnd: &periodEnd},
	}}
	svc := NewService(repo, provider)

	require.NoError(t, svc.ApplyCheckoutCompleted(context.Background(), 1, "cus_123", "sub_123"))

	b := repo.businesses[1]
	assert.Equal(t, models.BusinessStatusActive, b.Status)
	assert.Equal(t, "cus_123", b.StripeCustomerID)
	assert.Equal(t, "sub_123", b.StripeSubscriptionID)
	assert.Equal(t, models.SubscriptionStatusActive, b.SubscriptionStatus)
	require.NotNil(t, b.SubscriptionEndsAt)
	assert.True(t, b.SubscriptionEndsAt.Equal(periodEnd))

	// Redelivery of the same event must not change anything.
	before := *b
	require.NoError(t, svc.ApplyCheckoutCompleted(context.Background(), 1, "cus_123", "sub_123"))
	assert.Equal(t, before, *repo.businesses[1])
}

func TestApplyPaymentFailedKeepsBusinessActive(t *testing.T) {
	repo := newFakeRepository(&models.BusinessAccount{
		ID: 1, Status: models.BusinessStatusActive,
		StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
		SubscriptionStatus: models.SubscriptionStatusActive,
	})
	svc := NewService(repo, &fakeProvider{})

	require.NoError(t, svc.ApplyPaymentFailed(context.Background(), "cus_1", "sub_1"))

	b := repo.businesses[1]
	assert.Equal(t, models.BusinessStatusActive, b.Status, "grace period: a failed charge alone never deactivates")
	assert.Equal(t, models.SubscriptionStatusPastDue, b.SubscriptionStatus)
	assert.NotNil(t, b.PaymentFailedAt)
}

func TestApplySubscriptionDeletedIsTerminalAndKeepsFailureHistory(t *testing.T) {
	failedAt := time.Now().Add(-48 * time.Hour)
	repo := newFakeRepository(&models.BusinessAccount{
		ID: 1, Status: models.BusinessStatusActive,
		StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
		SubscriptionStatus: models.SubscriptionStatusPastDue,
		PaymentFailedAt:    &failedAt,
	})
	svc := NewService(repo, &fakeProvider{})

	require.NoError(t, svc.ApplySubscriptionDeleted(context.Background(), "cus_1", "sub_1"))

	b := repo.businesses[1]
	assert.Equal(t, models.BusinessStatusInactive, b.Status)
	assert.Equal(t, models.SubscriptionStatusCanceled, b.SubscriptionStatus)
	require.NotNil(t, b.PaymentFailedAt)
	assert.True(t, b.PaymentFailedAt.Equal(failedAt), "deletion does not clear failure history")
}

func TestApplySubscriptionUpdated(t *testing.T) {
	failedAt := time.Now().Add(-time.Hour)
	tests := []struct {
		name           string
		reported       string
		wantStatus     string
		wantSubStatus  string
		wantFailedGone bool
	}{
		{"active clears failure", "active", models.BusinessStatusActive, models.SubscriptionStatusActive, true},
		{"trialing clears failure", "trialing", models.BusinessStatusActive, models.SubscriptionStatusTrialing, true},
		{"past_due keeps failure", "past_due", models.BusinessStatusInactive, models.SubscriptionStatusPastDue, false},
		{"unpaid keeps failure", "unpaid", models.BusinessStatusInactive, models.SubscriptionStatusUnpaid, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := failedAt
			repo := newFakeRepository(&models.BusinessAccount{
				ID: 1, Status: models.BusinessStatusActive,
				StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
				PaymentFailedAt: &fa,
			})
			svc := NewService(repo, &fakeProvider{})

			snap := SubscriptionSnapshot{CustomerRef: "cus_1", SubscriptionRef: "sub_1", Status: tt.reported}
			require.NoError(t, svc.ApplySubscriptionUpdated(context.Background(), snap))

			b := repo.businesses[1]
			assert.Equal(t, tt.wantStatus, b.Status)
			assert.Equal(t, tt.wantSubStatus, b.SubscriptionStatus)
			if tt.wantFailedGone {
				assert.Nil(t, b.PaymentFailedAt)
			} else {
				assert.NotNil(t, b.PaymentFailedAt)
			}

			// Applying the same snapshot twice yields the same row state.
			before := *b
			require.NoError(t, svc.ApplySubscriptionUpdated(context.Background(), snap))
			assert.Equal(t, before, *repo.businesses[1])
		})
	}
}

func TestApplySubscriptionUpdatedUnknownBusiness(t *testing.T) {
	svc := NewService(newFakeRepository(), &fakeProvider{})
	err := svc.ApplySubscriptionUpdated(context.Background(), SubscriptionSnapshot{CustomerRef: "cus_x", SubscriptionRef: "sub_x"})
	assert.ErrorIs(t, err, ErrBusinessNotFound)
}

func TestCheckSubscriptionRefreshesStaleState(t *testing.T) {
	periodEnd := time.Now().Add(14 * 24 * time.Hour)
	repo := newFakeRepository(&models.BusinessAccount{
		ID: 1, UserID: 10, Status: models.BusinessStatusInactive,
		StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
		SubscriptionStatus: models.SubscriptionStatusIncomplete,
	})
	provider := &fakeProvider{subscriptions: map[string]*SubscriptionSnapshot{
		"sub_1": {CustomerRef: "cus_1", SubscriptionRef: "sub_1", Status: "active", CurrentPeriodEnd: &periodEnd},
	}}
	svc := NewService(repo, provider)

	result, err := svc.CheckSubscription(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, models.BusinessStatusActive, result.BusinessStatus)
	assert.True(t, result.Refreshed, "stale local state was corrected")
	assert.Equal(t, models.BusinessStatusActive, repo.businesses[1].Status)

	// A second check sees provider and local state already in agreement.
	result, err = svc.CheckSubscription(context.Background(), 10)
	require.NoError(t, err)
	assert.False(t, result.Refreshed)
}

func TestCheckSubscriptionWithoutRefs(t *testing.T) {
	repo := newFakeRepository(&models.BusinessAccount{ID: 1, UserID: 10, Status: models.BusinessStatusInactive})
	svc := NewService(repo, &fakeProvider{})

	_, err := svc.CheckSubscription(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, &fakeProvider{})

	in := WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}
	created, first, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestNormalizeProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"active", models.SubscriptionStatusActive},
		{" Trialing ", models.SubscriptionStatusTrialing},
		{"cancelled", models.SubscriptionStatusCanceled},
		{"canceled", models.SubscriptionStatusCanceled},
		{"something_new", models.SubscriptionStatusIncomplete},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeProviderStatus(tt.in); got != tt.want {
			t.Fatalf("normalizeProviderStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
