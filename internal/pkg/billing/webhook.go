package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v82"
)

// Outcomes reported by ProcessEvent for the webhook response body.
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeDropped   = "dropped"
)

// Payload shapes decoded from event.Data.Raw. Only the fields the
// reconciler consumes are declared; Stripe's nested objects stay opaque.
type checkoutSessionPayload struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
		} `json:"data"`
	} `json:"items"`
}

type invoicePayload struct {
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// ProcessEvent routes one verified event to its reconciler operation.
//
// Unhandled event types and subscription-unrelated checkouts report
// OutcomeIgnored. Events whose provider references resolve to no local
// business report OutcomeDropped: the provider only redelivers on transport
// errors, so retrying an unresolvable event would never succeed. Any other
// error is returned so the dispatcher answers 5xx and the provider retries.
func (s *Service) ProcessEvent(ctx context.Context, event *stripe.Event) (string, error) {
	var err error
	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return OutcomeDropped, fmt.Errorf("decode checkout session: %w", err)
		}
		if session.Mode != string(stripe.CheckoutSessionModeSubscription) {
			return OutcomeIgnored, nil
		}
		businessID, ok := parseBusinessID(session.Metadata)
		if !ok {
			return OutcomeDropped, nil
		}
		err = s.ApplyCheckoutCompleted(ctx, businessID, session.Customer, session.Subscription)

	case "invoice.payment_failed":
		var invoice invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return OutcomeDropped, fmt.Errorf("decode invoice: %w", err)
		}
		subscriptionRef := invoice.Subscription
		if subscriptionRef == "" {
			subscriptionRef = invoice.Parent.SubscriptionDetails.Subscription
		}
		err = s.ApplyPaymentFailed(ctx, invoice.Customer, subscriptionRef)

	case "customer.subscription.deleted":
		sub, decodeErr := decodeSubscription(event.Data.Raw)
		if decodeErr != nil {
			return OutcomeDropped, decodeErr
		}
		err = s.ApplySubscriptionDeleted(ctx, sub.Customer, sub.ID)

	case "customer.subscription.updated":
		sub, decodeErr := decodeSubscription(event.Data.Raw)
		if decodeErr != nil {
			return OutcomeDropped, decodeErr
		}
		err = s.ApplySubscriptionUpdated(ctx, snapshotFromPayload(sub))

	default:
		return OutcomeIgnored, nil
	}

	switch {
	case err == nil:
		return OutcomeProcessed, nil
	case isDropError(err):
		return OutcomeDropped, nil
	default:
		return "", err
	}
}

func decodeSubscription(raw json.RawMessage) (*subscriptionPayload, error) {
	var sub subscriptionPayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}

func snapshotFromPayload(sub *subscriptionPayload) SubscriptionSnapshot {
	snap := SubscriptionSnapshot{
		CustomerRef:     sub.Customer,
		SubscriptionRef: sub.ID,
		Status:          sub.Status,
	}
	periodEnd := sub.CurrentPeriodEnd
	for _, item := range sub.Items.Data {
		if item.CurrentPeriodEnd > 0 {
			periodEnd = item.CurrentPeriodEnd
			break
		}
	}
	if periodEnd > 0 {
		t := time.Unix(periodEnd, 0)
		snap.CurrentPeriodEnd = &t
	}
	return snap
}

func parseBusinessID(metadata map[string]string) (uint, bool) {
	if metadata == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(metadata[MetadataBusinessID], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func isDropError(err error) bool {
	return errors.Is(err, ErrBusinessNotFound) || errors.Is(err, ErrNoSubscription)
}
