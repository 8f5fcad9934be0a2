package constants

// Static route constants
const (
	PublicRoute = "/"
	// Public review landing pages live under /r/:slug
	ReviewRoutePrefix = "/r/"
	// Forced redirect targets resolved by the account state aggregator
	SubscriptionRequiredRoute = "/subscription/required"
	BillingRoute              = "/billing"
)
