package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/obedenzy/starbridge/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetBusinessByID(id uint) (*models.BusinessAccount, error)
	GetBusinessByUserID(userID uint) (*models.BusinessAccount, error)
	GetBusinessByCustomerRef(customerRef string) (*models.BusinessAccount, error)
	GetBusinessBySubscriptionRef(subscriptionRef string) (*models.BusinessAccount, error)
	UpdateSubscriptionState(businessID uint, fields map[string]interface{}) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetBusinessByID(id uint) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *gormRepository) GetBusinessByUserID(userID uint) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *gormRepository) GetBusinessByCustomerRef(customerRef string) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.Where("stripe_customer_id = ?", customerRef).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *gormRepository) GetBusinessBySubscriptionRef(subscriptionRef string) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.Where("stripe_subscription_id = ?", subscriptionRef).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateSubscriptionState applies the full field set for one business in a
// single UPDATE. Concurrent webhook and pull writers each replace the row
// state wholesale, so the last applied snapshot wins without partial merges.
func (r *gormRepository) UpdateSubscriptionState(businessID uint, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.Model(&models.BusinessAccount{}).Where("id = ?", businessID).Updates(fields).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
