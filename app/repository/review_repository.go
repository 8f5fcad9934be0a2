package repository

import (
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
)

// reviewRepository implements the ReviewRepository interface
type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository instance
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) GetByID(id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) GetByBusinessID(businessID uint, offset, limit int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.Where("business_account_id = ?", businessID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

func (r *reviewRepository) CountByBusinessID(businessID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Review{}).
		Where("business_account_id = ?", businessID).
		Count(&count).Error
	return count, err
}

func (r *reviewRepository) ListAllByBusinessID(businessID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.Where("business_account_id = ?", businessID).
		Order("created_at ASC").
		Find(&reviews).Error
	return reviews, err
}
