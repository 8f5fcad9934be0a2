package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Business lifecycle status. Mutated exclusively by the billing reconciler
// (or an explicit admin override), never by settings edits.
const (
	BusinessStatusActive   = "active"
	BusinessStatusInactive = "inactive"
)

// Provider subscription status strings mirrored from Stripe.
const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusUnpaid     = "unpaid"
)

const (
	DefaultReviewThreshold = 4
	MinRating              = 1
	MaxRating              = 5
)

// BusinessAccount is one paying tenant collecting reviews under a public slug.
type BusinessAccount struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	BusinessName         string     `gorm:"type:varchar(200);not null" json:"business_name" validate:"required,min=2,max=200"`
	ContactEmail         string     `gorm:"type:varchar(200);not null" json:"contact_email" validate:"required,email"`
	GoogleReviewURL      string     `gorm:"type:varchar(500);default:''" json:"google_review_url" validate:"omitempty,url,max=500"`
	ReviewThreshold      int        `gorm:"not null;default:4" json:"review_threshold" validate:"min=1,max=5"`
	Status               string     `gorm:"type:varchar(20);not null;default:'inactive';index" json:"status"`
	StripeCustomerID     string     `gorm:"type:varchar(191);default:'';index" json:"-"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);default:'';index" json:"-"`
	SubscriptionStatus   string     `gorm:"type:varchar(32);default:''" json:"subscription_status"`
	SubscriptionEndsAt   *time.Time `gorm:"type:timestamp;default:null" json:"subscription_ends_at,omitempty"`
	PaymentFailedAt      *time.Time `gorm:"type:timestamp;default:null" json:"payment_failed_at,omitempty"`
	Slug                 string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"slug"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *BusinessAccount) Validate() error {
	v := validator.New()

	return v.Struct(b)
}

// CreateBusinessAccount builds a new inactive tenant with the default
// threshold. Slug must be generated by the caller (shortener pkg).
func CreateBusinessAccount(userID uint, businessName, contactEmail, slug string) (*BusinessAccount, error) {
	b := &BusinessAccount{
		UserID:          userID,
		BusinessName:    strings.TrimSpace(businessName),
		ContactEmail:    strings.TrimSpace(contactEmail),
		ReviewThreshold: DefaultReviewThreshold,
		Status:          BusinessStatusInactive,
		Slug:            strings.TrimSpace(slug),
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// IsActive reports whether the business may collect reviews.
func (b *BusinessAccount) IsActive() bool {
	return b.Status == BusinessStatusActive
}

// HasRedirectTarget reports whether an external review URL is configured.
func (b *BusinessAccount) HasRedirectTarget() bool {
	return strings.TrimSpace(b.GoogleReviewURL) != ""
}

// IsGoodStanding reports whether the mirrored provider status keeps the
// account entitled (active or trialing).
func IsGoodStanding(subscriptionStatus string) bool {
	switch strings.ToLower(strings.TrimSpace(subscriptionStatus)) {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
