package billing

import (
	"errors"
	"time"
)

// Sentinel errors surfaced to HTTP handlers for status mapping.
var (
	ErrConfiguration    = errors.New("billing: provider configuration is incomplete")
	ErrInvalidSignature = errors.New("billing: webhook signature verification failed")
	ErrBusinessNotFound = errors.New("billing: no business account for provider reference")
	ErrNoSubscription   = errors.New("billing: no subscription on record")
)

// Metadata keys attached to checkout sessions so webhook events can be
// correlated back to local records.
const (
	MetadataBusinessID = "business_id"
	MetadataUserID     = "user_id"
)

// SubscriptionSnapshot is the provider-agnostic view of one subscription as
// last reported by the payment provider. Reconciler writes replace local
// state with a snapshot wholesale, they never adjust it incrementally.
type SubscriptionSnapshot struct {
	CustomerRef      string
	SubscriptionRef  string
	Status           string
	CurrentPeriodEnd *time.Time
}

// CheckoutParams describes a hosted checkout session request.
type CheckoutParams struct {
	BusinessID    uint
	UserID        uint
	CustomerEmail string
	CustomerRef   string
	PriceRef      string
	SuccessURL    string
	CancelURL     string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// CheckResult is returned by the pull-based subscription check.
type CheckResult struct {
	BusinessStatus     string
	SubscriptionStatus string
	EndsAt             *time.Time
	Refreshed          bool
}
