package usercontext

// Locals keys shared between the usercontext middleware and route guards.
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyFromProtected = "FROM_PROTECTED"
	KeyIsAdmin       = "IS_ADMIN"
)

// Session keys written at login and read by the usercontext middleware.
const (
	SessionKeyUserID   = "USER_ID"
	SessionKeyUserName = "USER_NAME"
	SessionKeyEmail    = "USER_EMAIL"
)
