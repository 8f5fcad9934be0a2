package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Review is a captured sub-threshold submission. Immutable once created;
// there is no update path.
type Review struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	BusinessAccountID uint      `gorm:"not null;index" json:"business_account_id"`
	ReviewerName      string    `gorm:"type:varchar(150);not null" json:"reviewer_name" validate:"required,min=2,max=150"`
	ReviewerEmail     string    `gorm:"type:varchar(200);default:''" json:"reviewer_email" validate:"omitempty,email,max=200"`
	Subject           string    `gorm:"type:varchar(200);default:''" json:"subject" validate:"max=200"`
	Comment           string    `gorm:"type:text" json:"comment" validate:"max=4000"`
	Rating            int       `gorm:"not null;index" json:"rating" validate:"min=1,max=5"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (r *Review) Validate() error {
	v := validator.New()

	return v.Struct(r)
}

// CreateReview builds a validated review for the capture path.
func CreateReview(businessID uint, rating int, name, email, subject, comment string) (*Review, error) {
	r := &Review{
		BusinessAccountID: businessID,
		ReviewerName:      strings.TrimSpace(name),
		ReviewerEmail:     strings.ToLower(strings.TrimSpace(email)),
		Subject:           strings.TrimSpace(subject),
		Comment:           strings.TrimSpace(comment),
		Rating:            rating,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
