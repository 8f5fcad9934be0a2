package accountstate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/obedenzy/starbridge/internal/pkg/constants"
)

func TestResolveAdminAllowListWinsOverRoleRecord(t *testing.T) {
	d := Resolve(Input{
		Email:       "Boss@Example.com",
		Role:        "user",
		Business:    &BusinessState{ID: 1, Active: false},
		ReviewCount: 0,
		AdminEmails: []string{"boss@example.com"},
	})
	assert.Equal(t, RoleSuperAdmin, d.Role)
	assert.Empty(t, d.RedirectPath, "admins are never force-redirected")
}

func TestResolveExplicitAdminRole(t *testing.T) {
	d := Resolve(Input{Email: "ops@example.com", Role: "admin"})
	assert.Equal(t, RoleSuperAdmin, d.Role)
	assert.Empty(t, d.RedirectPath)
}

func TestResolveBusinessUser(t *testing.T) {
	tests := []struct {
		name        string
		business    *BusinessState
		reviewCount int64
		wantPath    string
	}{
		{"active business", &BusinessState{ID: 7, Active: true}, 12, ""},
		{"no business record", nil, 0, ""},
		{"inactive without reviews", &BusinessState{ID: 7, Active: false}, 0, constants.SubscriptionRequiredRoute},
		{"inactive with reviews", &BusinessState{ID: 7, Active: false}, 3, constants.BillingRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Resolve(Input{
				Email:       "user@example.com",
				Role:        "user",
				Business:    tt.business,
				ReviewCount: tt.reviewCount,
			})
			assert.Equal(t, RoleBusinessUser, d.Role)
			assert.Equal(t, tt.wantPath, d.RedirectPath)
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	in := Input{
		Email:       "user@example.com",
		Role:        "user",
		Business:    &BusinessState{ID: 42, Active: false},
		ReviewCount: 9,
	}
	first := Resolve(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Resolve(in))
	}
}

func TestParseAdminAllowList(t *testing.T) {
	got := ParseAdminAllowList(" a@x.com, ,b@x.com,")
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got)
	assert.Empty(t, ParseAdminAllowList(""))
}
