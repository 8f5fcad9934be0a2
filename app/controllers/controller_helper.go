package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/obedenzy/starbridge/internal/pkg/billing"
	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/jobqueue"
	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

const (
	AUTH_KEY  string = "authenticated"
	USER_ID   string = usercontext.SessionKeyUserID
	USER_NAME string = usercontext.SessionKeyUserName
)

// FROM_PROTECTED mirrors the middleware locals key for handlers that read it directly.
const FROM_PROTECTED = usercontext.KeyFromProtected

var billingProvider billing.Provider

// SetBillingProvider injects the payment provider at startup. Billing
// handlers answer 503 until it is configured.
func SetBillingProvider(p billing.Provider) {
	billingProvider = p
}

// GetBillingProvider returns the injected payment provider, or nil.
func GetBillingProvider() billing.Provider {
	return billingProvider
}

// newBillingService is a hook so tests can swap in a service backed by
// in-memory fakes instead of the live DB.
var newBillingService = func() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB(), billingProvider).
		WithNoticeQueue(jobqueue.GetManager().GetQueue())
}

func getBillingService() *billing.Service {
	return newBillingService()
}

// parsePagination reads page/per_page query params with sane bounds.
func parsePagination(c *fiber.Ctx, defaultPerPage, maxPerPage int) (offset, limit, page int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("per_page", strconv.Itoa(defaultPerPage)))
	if limit < 1 {
		limit = defaultPerPage
	}
	if limit > maxPerPage {
		limit = maxPerPage
	}
	offset = (page - 1) * limit
	return offset, limit, page
}

// baseURL reconstructs the externally visible origin for links in emails
// and checkout return URLs.
func baseURL(c *fiber.Ctx) string {
	return c.Protocol() + "://" + c.Hostname()
}
