// Package accountstate derives the role and forced-redirect decision for a
// resolved identity from stored state. It performs no writes and holds no
// state of its own, so both the request middleware and the subscription
// check endpoint can recompute decisions cheaply.
package accountstate

import (
	"strings"

	"github.com/obedenzy/starbridge/internal/pkg/constants"
)

// Roles produced by Resolve.
const (
	RoleSuperAdmin   = "super_admin"
	RoleBusinessUser = "business_user"
)

// BusinessState is the subset of BusinessAccount the aggregator needs.
type BusinessState struct {
	ID     uint
	Active bool
}

// Input carries everything Resolve depends on.
type Input struct {
	Email       string
	Role        string // explicit role record, e.g. models.ROLE_ADMIN
	Business    *BusinessState
	ReviewCount int64
	AdminEmails []string
}

// Decision is the aggregator output consumed by the client.
type Decision struct {
	Role         string
	RedirectPath string
}

// Resolve computes the role and forced redirect for an identity.
//
// The admin allow-list takes precedence over the explicit role record.
// Business users with an inactive business are pushed to the subscription
// screen until they have review history, then to billing instead.
func Resolve(in Input) Decision {
	if isAllowListed(in.Email, in.AdminEmails) || strings.EqualFold(strings.TrimSpace(in.Role), "admin") {
		return Decision{Role: RoleSuperAdmin}
	}

	d := Decision{Role: RoleBusinessUser}
	if in.Business == nil || in.Business.Active {
		return d
	}
	if in.ReviewCount == 0 {
		d.RedirectPath = constants.SubscriptionRequiredRoute
	} else {
		d.RedirectPath = constants.BillingRoute
	}
	return d
}

func isAllowListed(email string, allowList []string) bool {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return false
	}
	for _, entry := range allowList {
		if strings.ToLower(strings.TrimSpace(entry)) == e {
			return true
		}
	}
	return false
}

// ParseAdminAllowList splits a comma separated allow-list from config.
func ParseAdminAllowList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
