package billing

import (
	"strings"

	"github.com/obedenzy/starbridge/app/models"
)

// normalizeProviderStatus lower-cases a provider status and folds unknown
// values into "incomplete" so the column never stores free-form text.
func normalizeProviderStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case models.SubscriptionStatusActive,
		models.SubscriptionStatusTrialing,
		models.SubscriptionStatusPastDue,
		models.SubscriptionStatusCanceled,
		models.SubscriptionStatusUnpaid:
		return s
	case "cancelled":
		return models.SubscriptionStatusCanceled
	case "":
		return ""
	default:
		return models.SubscriptionStatusIncomplete
	}
}

// businessStatusFor maps a provider subscription status onto the account
// lifecycle: active and trialing keep the business on, everything else off.
func businessStatusFor(providerStatus string) string {
	if models.IsGoodStanding(normalizeProviderStatus(providerStatus)) {
		return models.BusinessStatusActive
	}
	return models.BusinessStatusInactive
}
