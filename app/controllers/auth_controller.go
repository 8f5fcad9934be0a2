package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/app/repository"
	"github.com/obedenzy/starbridge/internal/pkg/database"
	"github.com/obedenzy/starbridge/internal/pkg/jobqueue"
	"github.com/obedenzy/starbridge/internal/pkg/session"
	"github.com/obedenzy/starbridge/internal/pkg/shortener"
	"github.com/obedenzy/starbridge/internal/pkg/usercontext"
)

const slugLength = 10

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Render("auth/login", fiber.Map{
			"Title": "Sign in",
			"Flash": flash.Get(c),
			"Csrf":  c.Locals("csrf"),
		}, "layouts/main")
	}

	fm := fiber.Map{"type": "error"}

	// Do not reveal which part of the login failed.
	repo := repository.NewFactory(database.GetDB()).GetUserRepository()
	user, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(c.FormValue("email"))))
	if err != nil || !user.CheckPassword(c.FormValue("password")) {
		fm["message"] = "There is a problem with the login process"
		return flash.WithError(c, fm).Redirect("/login")
	}
	if !user.IsActive() {
		fm["message"] = "Please activate your account first. Check your inbox."
		return flash.WithError(c, fm).Redirect("/login")
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect("/login")
	}

	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)

	if err := sess.Save(); err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)
		return flash.WithError(c, fm).Redirect("/login")
	}

	database.GetDB().Model(user).Update("last_login_at", time.Now())

	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "Welcome back!",
	}).Redirect("/dashboard")
}

func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		_ = sess.Destroy()
	}
	c.Locals(usercontext.KeyFromProtected, false)
	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "You have been signed out.",
	}).Redirect("/login")
}

// HandleAuthRegister creates the user plus their business account in one
// step. The account starts inactive on both levels: the user until the
// activation link is used, the business until a subscription exists.
func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Render("auth/register", fiber.Map{
			"Title": "Create account",
			"Flash": flash.Get(c),
			"Csrf":  c.Locals("csrf"),
		}, "layouts/main")
	}

	fm := fiber.Map{"type": "error"}

	name := strings.TrimSpace(c.FormValue("name"))
	email := strings.ToLower(strings.TrimSpace(c.FormValue("email")))
	password := c.FormValue("password")
	businessName := strings.TrimSpace(c.FormValue("business_name"))
	if businessName == "" {
		businessName = name
	}

	user, err := models.CreateUser(name, email, password)
	if err != nil {
		fm["message"] = "Please check your input: name, a valid email and a password of at least 6 characters are required."
		return flash.WithError(c, fm).Redirect("/register")
	}
	if err := user.GenerateActivationToken(); err != nil {
		fm["message"] = "Registration failed, please try again."
		return flash.WithError(c, fm).Redirect("/register")
	}

	db := database.GetDB()
	repos := repository.NewFactory(db).GetRepositories()

	if _, err := repos.User.GetByEmail(email); err == nil {
		fm["message"] = "An account with this email already exists."
		return flash.WithError(c, fm).Redirect("/register")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		fm["message"] = "Registration failed, please try again."
		return flash.WithError(c, fm).Redirect("/register")
	}

	slug, err := uniqueSlug(repos.Business)
	if err != nil {
		fm["message"] = "Registration failed, please try again."
		return flash.WithError(c, fm).Redirect("/register")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		business, err := models.CreateBusinessAccount(user.ID, businessName, email, slug)
		if err != nil {
			return err
		}
		return tx.Create(business).Error
	})
	if err != nil {
		fm["message"] = "Registration failed, please try again."
		return flash.WithError(c, fm).Redirect("/register")
	}

	enqueueActivationMail(c, user)

	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "Account created. Check your inbox for the activation link.",
	}).Redirect("/login")
}

// HandleAuthActivate flips the user to active via the emailed token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	fm := fiber.Map{"type": "error"}
	if token == "" {
		fm["message"] = "Missing activation token."
		return flash.WithError(c, fm).Redirect("/login")
	}

	repo := repository.NewFactory(database.GetDB()).GetUserRepository()
	user, err := repo.GetByActivationToken(token)
	if err != nil {
		fm["message"] = "Invalid or expired activation link."
		return flash.WithError(c, fm).Redirect("/login")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := repo.Update(user); err != nil {
		fm["message"] = "Activation failed, please try again."
		return flash.WithError(c, fm).Redirect("/login")
	}

	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "Account activated. You can sign in now.",
	}).Redirect("/login")
}

func uniqueSlug(repo repository.BusinessRepository) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		slug, err := shortener.GenerateSecureSlug(slugLength)
		if err != nil {
			return "", err
		}
		exists, err := repo.SlugExists(slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
	}
	return "", errors.New("could not generate a unique slug")
}

// HandlePasswordChange updates the signed-in user's password after
// verifying the current one.
func HandlePasswordChange(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	fm := fiber.Map{"type": "error"}
	repo := repository.NewFactory(database.GetDB()).GetUserRepository()
	user, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	if !user.CheckPassword(c.FormValue("current_password")) {
		fm["message"] = "Your current password is not correct."
		return flash.WithError(c, fm).Redirect("/settings")
	}
	newPassword := c.FormValue("new_password")
	if len(newPassword) < 6 {
		fm["message"] = "The new password must be at least 6 characters."
		return flash.WithError(c, fm).Redirect("/settings")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return fiber.ErrInternalServerError
	}
	if err := repo.Update(user); err != nil {
		return fiber.ErrInternalServerError
	}

	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": "Password updated.",
	}).Redirect("/settings")
}

func enqueueActivationMail(c *fiber.Ctx, user *models.User) {
	activationURL := fmt.Sprintf("%s/activate?token=%s", baseURL(c), user.ActivationToken)
	payload := jobqueue.ActivationMailPayload{
		UserID:        user.ID,
		Name:          user.Name,
		Email:         user.Email,
		ActivationURL: activationURL,
	}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueActivationMail(payload); err != nil {
		log.Errorf("[Auth] failed to enqueue activation mail for user %d: %v", user.ID, err)
	}
}
