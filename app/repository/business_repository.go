package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
)

// businessRepository implements the BusinessRepository interface
type businessRepository struct {
	db *gorm.DB
}

// NewBusinessRepository creates a new business repository instance
func NewBusinessRepository(db *gorm.DB) BusinessRepository {
	return &businessRepository{db: db}
}

func (r *businessRepository) Create(business *models.BusinessAccount) error {
	return r.db.Create(business).Error
}

func (r *businessRepository) GetByID(id uint) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *businessRepository) GetByUserID(userID uint) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.Where("user_id = ?", userID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *businessRepository) GetBySlug(slug string) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.Where("slug = ?", strings.TrimSpace(slug)).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *businessRepository) SlugExists(slug string) (bool, error) {
	var b models.BusinessAccount
	err := r.db.Select("id").Where("slug = ?", slug).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateSettings edits the user-facing fields only. Status and subscription
// columns are owned by the reconciler and never touched here.
func (r *businessRepository) UpdateSettings(businessID uint, businessName, contactEmail, googleReviewURL string, threshold int) error {
	if threshold < models.MinRating || threshold > models.MaxRating {
		return errors.New("threshold must be between 1 and 5")
	}
	return r.db.Model(&models.BusinessAccount{}).
		Where("id = ?", businessID).
		Updates(map[string]interface{}{
			"business_name":     strings.TrimSpace(businessName),
			"contact_email":     strings.ToLower(strings.TrimSpace(contactEmail)),
			"google_review_url": strings.TrimSpace(googleReviewURL),
			"review_threshold":  threshold,
			"updated_at":        time.Now(),
		}).Error
}

// UpdateStatus is the admin override for the reconciler-owned status column.
func (r *businessRepository) UpdateStatus(businessID uint, status string) error {
	if status != models.BusinessStatusActive && status != models.BusinessStatusInactive {
		return errors.New("status must be active or inactive")
	}
	return r.db.Model(&models.BusinessAccount{}).
		Where("id = ?", businessID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *businessRepository) List(offset, limit int) ([]models.BusinessAccount, error) {
	var businesses []models.BusinessAccount
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&businesses).Error
	return businesses, err
}

func (r *businessRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.BusinessAccount{}).Count(&count).Error
	return count, err
}

func (r *businessRepository) Search(query string) ([]models.BusinessAccount, error) {
	var businesses []models.BusinessAccount
	pattern := "%" + query + "%"
	err := r.db.Where("business_name LIKE ? OR contact_email LIKE ? OR slug LIKE ?", pattern, pattern, pattern).
		Order("created_at DESC").Find(&businesses).Error
	return businesses, err
}
