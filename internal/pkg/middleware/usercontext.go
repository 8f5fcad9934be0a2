package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/internal/pkg/accountstate"
	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/env"
	"github.com/obedenzy/starbridge/internal/pkg/session"
	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a complete user context
// for every request: identity, role and the forced-redirect decision derived
// from the business account's subscription state.
func UserContextMiddleware(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return setAnonymous(c)
	}

	rawUserID := sess.Get(usercontext.SessionKeyUserID)
	userID, ok := rawUserID.(uint)
	if !ok || userID == 0 {
		return setAnonymous(c)
	}

	db := database.GetDB()
	if db == nil {
		return setAnonymous(c)
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		// Stale session pointing at a deleted user.
		return setAnonymous(c)
	}

	input := accountstate.Input{
		Email:       user.Email,
		Role:        user.Role,
		AdminEmails: accountstate.ParseAdminAllowList(env.GetEnv("ADMIN_EMAILS", "")),
	}

	var businessID uint
	var business models.BusinessAccount
	err = db.Where("user_id = ?", userID).First(&business).Error
	switch {
	case err == nil:
		businessID = business.ID
		input.Business = &accountstate.BusinessState{ID: business.ID, Active: business.IsActive()}
		if !business.IsActive() {
			var reviewCount int64
			if err := db.Model(&models.Review{}).
				Where("business_account_id = ?", business.ID).
				Count(&reviewCount).Error; err == nil {
				input.ReviewCount = reviewCount
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Admins have no business record.
	default:
		return setAnonymous(c)
	}

	decision := accountstate.Resolve(input)

	userCtx := usercontext.UserContext{
		UserID:       user.ID,
		Username:     user.Name,
		Email:        user.Email,
		IsLoggedIn:   true,
		IsSuperAdmin: decision.Role == accountstate.RoleSuperAdmin,
		BusinessID:   businessID,
		RedirectPath: decision.RedirectPath,
	}
	c.Locals(usercontext.KeyUserContext, userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsSuperAdmin)

	return c.Next()
}

func setAnonymous(c *fiber.Ctx) error {
	c.Locals(usercontext.KeyUserContext, usercontext.UserContext{IsLoggedIn: false})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
	return c.Next()
}
