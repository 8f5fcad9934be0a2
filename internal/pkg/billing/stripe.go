package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/obedenzy/starbridge/internal/pkg/env"
)

// Provider abstracts the payment provider API so the reconciler and its
// tests never talk to Stripe directly.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionRef string) (*SubscriptionSnapshot, error)
	FindSubscriptionByCustomer(ctx context.Context, customerRef string) (*SubscriptionSnapshot, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*stripe.Event, error)
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	webhookSecret string
	priceRef      string
}

// NewStripeProvider reads Stripe configuration from the environment and
// fails fast when the secret key or webhook secret is missing. The webhook
// endpoint must never start accepting events it cannot verify.
func NewStripeProvider() (*StripeProvider, error) {
	apiKey := strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	webhookSecret := strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
	if apiKey == "" || webhookSecret == "" {
		return nil, fmt.Errorf("%w: STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET must be set", ErrConfiguration)
	}

	stripe.Key = apiKey

	return &StripeProvider{
		webhookSecret: webhookSecret,
		priceRef:      strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", "")),
	}, nil
}

// DefaultPriceRef returns the configured subscription price reference.
func (p *StripeProvider) DefaultPriceRef() string {
	return p.priceRef
}

// CreateCheckoutSession creates a subscription-mode hosted checkout and
// returns its redirect URL. Business and user IDs travel as metadata so the
// completion webhook can be correlated without trusting customer input.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error) {
	_ = ctx
	priceRef := params.PriceRef
	if priceRef == "" {
		priceRef = p.priceRef
	}
	if priceRef == "" {
		return "", fmt.Errorf("%w: no subscription price configured", ErrConfiguration)
	}

	metadata := map[string]string{
		MetadataBusinessID: strconv.FormatUint(uint64(params.BusinessID), 10),
		MetadataUserID:     strconv.FormatUint(uint64(params.UserID), 10),
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceRef),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata:   metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if params.CustomerRef != "" {
		sessionParams.Customer = stripe.String(params.CustomerRef)
	} else if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}

	s, err := checkoutsession.New(sessionParams)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

// CreatePortalSession returns a customer-portal URL for self-service
// subscription management.
func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	_ = ctx
	if customerRef == "" {
		return "", ErrNoSubscription
	}
	s, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return s.URL, nil
}

// GetSubscription fetches the authoritative state of one subscription.
func (p *StripeProvider) GetSubscription(ctx context.Context, subscriptionRef string) (*SubscriptionSnapshot, error) {
	_ = ctx
	if subscriptionRef == "" {
		return nil, ErrNoSubscription
	}
	sub, err := subscription.Get(subscriptionRef, nil)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionRef, err)
	}
	return snapshotFromSubscription(sub), nil
}

// FindSubscriptionByCustomer returns the newest subscription for a customer,
// or ErrNoSubscription when the customer has none.
func (p *StripeProvider) FindSubscriptionByCustomer(ctx context.Context, customerRef string) (*SubscriptionSnapshot, error) {
	_ = ctx
	if customerRef == "" {
		return nil, ErrNoSubscription
	}
	listParams := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerRef),
		Status:   stripe.String("all"),
	}
	listParams.Limit = stripe.Int64(1)

	iter := subscription.List(listParams)
	for iter.Next() {
		return snapshotFromSubscription(iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions for %s: %w", customerRef, err)
	}
	return nil, ErrNoSubscription
}

// VerifyWebhook authenticates a raw webhook body against its signature
// header. API version mismatches are tolerated so SDK upgrades do not start
// rejecting otherwise valid deliveries.
func (p *StripeProvider) VerifyWebhook(payload []byte, signatureHeader string) (*stripe.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, ErrInvalidSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return &event, nil
}

func snapshotFromSubscription(sub *stripe.Subscription) *SubscriptionSnapshot {
	snap := &SubscriptionSnapshot{
		SubscriptionRef: sub.ID,
		Status:          string(sub.Status),
	}
	if sub.Customer != nil {
		snap.CustomerRef = sub.Customer.ID
	}
	// Period data lives on the subscription items since the 2025 API.
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.CurrentPeriodEnd > 0 {
				t := time.Unix(item.CurrentPeriodEnd, 0)
				snap.CurrentPeriodEnd = &t
				break
			}
		}
	}
	return snap
}
