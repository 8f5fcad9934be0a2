package repository

import (
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
}

// BusinessRepository defines the interface for business account operations
type BusinessRepository interface {
	Create(business *models.BusinessAccount) error
	GetByID(id uint) (*models.BusinessAccount, error)
	GetByUserID(userID uint) (*models.BusinessAccount, error)
	GetBySlug(slug string) (*models.BusinessAccount, error)
	SlugExists(slug string) (bool, error)
	UpdateSettings(businessID uint, businessName, contactEmail, googleReviewURL string, threshold int) error
	UpdateStatus(businessID uint, status string) error
	List(offset, limit int) ([]models.BusinessAccount, error)
	Count() (int64, error)
	Search(query string) ([]models.BusinessAccount, error)
}

// ReviewRepository defines the interface for review read operations
type ReviewRepository interface {
	GetByID(id uint) (*models.Review, error)
	GetByBusinessID(businessID uint, offset, limit int) ([]models.Review, error)
	CountByBusinessID(businessID uint) (int64, error)
	ListAllByBusinessID(businessID uint) ([]models.Review, error)
}

// WebhookEventRepository exposes recorded billing webhook events for the
// admin view.
type WebhookEventRepository interface {
	List(offset, limit int) ([]models.BillingWebhookEvent, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Business     BusinessRepository
	Review       ReviewRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Business:     NewBusinessRepository(db),
		Review:       NewReviewRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
