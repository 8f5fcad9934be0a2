package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the complete user context for a request
type UserContext struct {
	UserID       uint   `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	IsLoggedIn   bool   `json:"is_logged_in"`
	IsSuperAdmin bool   `json:"is_super_admin"`
	BusinessID   uint   `json:"business_id"`
	// RedirectPath is the forced redirect resolved by the account state
	// aggregator; empty when the business is in good standing.
	RedirectPath string `json:"redirect_path"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false, IsSuperAdmin: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsSuperAdmin checks if the current user is a platform administrator
func IsSuperAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsSuperAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
