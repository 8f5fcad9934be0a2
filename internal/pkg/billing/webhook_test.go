package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"github.com/obedenzy/starbridge/app/models"
)

func makeEvent(t *testing.T, eventType string, payload interface{}) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestProcessEventCheckoutCompleted(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour)
	repo := newFakeRepository(&models.BusinessAccount{ID: 7, Status: models.BusinessStatusInactive})
	provider := &fakeProvider{subscriptions: map[string]*SubscriptionSnapshot{
		"sub_7": {CustomerRef: "cus_7", SubscriptionRef: "sub_7", Status: "active", CurrentPeriodEnd: &periodEnd},
	}}
	svc := NewService(repo, provider)

	event := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":           "cs_1",
		"mode":         "subscription",
		"customer":     "cus_7",
		"subscription": "sub_7",
		"metadata":     map[string]string{MetadataBusinessID: "7", MetadataUserID: "70"},
	})

	outcome, err := svc.ProcessEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, models.BusinessStatusActive, repo.businesses[7].Status)
}

func TestProcessEventIgnoresPaymentModeCheckout(t *testing.T) {
	svc := NewService(newFakeRepository(), &fakeProvider{})
	event := makeEvent(t, "checkout.session.completed", map[string]interface{}{
		"id":   "cs_1",
		"mode": "payment",
	})
	outcome, err := svc.ProcessEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestProcessEventIgnoresUnknownType(t *testing.T) {
	svc := NewService(newFakeRepository(), &fakeProvider{})
	outcome, err := svc.ProcessEvent(context.Background(), makeEvent(t, "customer.created", map[string]string{"id": "cus_1"}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestProcessEventDropsUnresolvableReferences(t *testing.T) {
	svc := NewService(newFakeRepository(), &fakeProvider{})
	event := makeEvent(t, "customer.subscription.deleted", map[string]interface{}{
		"id":       "sub_unknown",
		"customer": "cus_unknown",
		"status":   "canceled",
	})
	outcome, err := svc.ProcessEvent(context.Background(), event)
	require.NoError(t, err, "unresolvable events are dropped, not retried")
	assert.Equal(t, OutcomeDropped, outcome)
}

func TestProcessEventSubscriptionUpdatedReadsItemPeriodEnd(t *testing.T) {
	repo := newFakeRepository(&models.BusinessAccount{
		ID: 1, Status: models.BusinessStatusInactive,
		StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
	})
	svc := NewService(repo, &fakeProvider{})

	periodEnd := time.Now().Add(7 * 24 * time.Hour).Unix()
	event := makeEvent(t, "customer.subscription.updated", map[string]interface{}{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "active",
		"items": map[string]interface{}{
			"data": []map[string]interface{}{
				{"current_period_end": periodEnd},
			},
		},
	})

	outcome, err := svc.ProcessEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	b := repo.businesses[1]
	assert.Equal(t, models.BusinessStatusActive, b.Status)
	require.NotNil(t, b.SubscriptionEndsAt)
	assert.Equal(t, periodEnd, b.SubscriptionEndsAt.Unix())
}

func TestProcessEventPaymentFailedViaInvoiceParent(t *testing.T) {
	repo := newFakeRepository(&models.BusinessAccount{
		ID: 1, Status: models.BusinessStatusActive,
		StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_1",
		SubscriptionStatus: models.SubscriptionStatusActive,
	})
	svc := NewService(repo, &fakeProvider{})

	event := makeEvent(t, "invoice.payment_failed", map[string]interface{}{
		"customer": "cus_1",
		"parent": map[string]interface{}{
			"subscription_details": map[string]interface{}{
				"subscription": "sub_1",
			},
		},
	})

	outcome, err := svc.ProcessEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Equal(t, models.BusinessStatusActive, repo.businesses[1].Status)
	assert.NotNil(t, repo.businesses[1].PaymentFailedAt)
}
