// Package reviewflow decides per submitted star rating whether the customer
// is sent to the public review site or captured as private feedback.
package reviewflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/internal/pkg/cache"
	"github.com/obedenzy/starbridge/internal/pkg/jobqueue"
)

// Submission outcomes.
const (
	ActionRedirect = "redirect"
	ActionCapture  = "capture"
)

// Errors surfaced to HTTP handlers for status mapping.
var (
	ErrBusinessNotFound = errors.New("reviewflow: business not found")
	ErrBusinessInactive = errors.New("reviewflow: business is not accepting reviews")
	ErrInvalidRating    = errors.New("reviewflow: rating must be between 1 and 5")
	ErrMissingContact   = errors.New("reviewflow: name and email are required")
	ErrDuplicateReview  = errors.New("reviewflow: a review from this contact was already recorded today")
)

// Submission is one rating submission from a customer.
type Submission struct {
	Rating  int
	Name    string
	Email   string
	Subject string
	Comment string
}

// Result tells the caller what to do next. Target is set on redirect only.
type Result struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
}

// Repository provides the DB operations used by the routing service.
type Repository interface {
	GetBusinessBySlug(slug string) (*models.BusinessAccount, error)
	CreateReview(businessID uint, name, email, subject, comment string, rating int) (*models.Review, error)
	CountReviewsSince(businessID uint, email string, since time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a review repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetBusinessBySlug(slug string) (*models.BusinessAccount, error) {
	var b models.BusinessAccount
	if err := r.db.Where("slug = ?", strings.TrimSpace(slug)).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *gormRepository) CreateReview(businessID uint, name, email, subject, comment string, rating int) (*models.Review, error) {
	review, err := models.CreateReview(businessID, rating, name, email, subject, comment)
	if err != nil {
		return nil, err
	}
	if err := r.db.Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (r *gormRepository) CountReviewsSince(businessID uint, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Review{}).
		Where("business_account_id = ? AND reviewer_email = ? AND created_at >= ?", businessID, email, since).
		Count(&count).Error
	return count, err
}

// SlotGuard reserves the one-review-per-contact-per-day slot. The cache
// implementation makes the claim atomic across concurrent submissions.
type SlotGuard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

type cacheSlotGuard struct{}

// NewCacheSlotGuard returns the redis-backed slot guard.
func NewCacheSlotGuard() SlotGuard {
	return cacheSlotGuard{}
}

func (cacheSlotGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	_ = ctx
	return cache.SetNX(key, "1", ttl)
}

func (cacheSlotGuard) Release(ctx context.Context, key string) {
	_ = ctx
	_ = cache.Delete(key)
}

// Service evaluates submissions against the owning business's threshold.
type Service struct {
	repo  Repository
	guard SlotGuard
	queue *jobqueue.Queue
}

// NewService creates a review routing service. The queue may be nil in
// tests; notification dispatch is skipped then.
func NewService(repo Repository, guard SlotGuard, queue *jobqueue.Queue) *Service {
	return &Service{repo: repo, guard: guard, queue: queue}
}

// NewServiceFromDB creates a routing service with the redis slot guard.
func NewServiceFromDB(db *gorm.DB, queue *jobqueue.Queue) *Service {
	return NewService(NewRepository(db), NewCacheSlotGuard(), queue)
}

// GetBusinessBySlug resolves a public review slug to its business account.
func (s *Service) GetBusinessBySlug(slug string) (*models.BusinessAccount, error) {
	b, err := s.repo.GetBusinessBySlug(slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Evaluate applies the threshold rule without side effects: redirect iff the
// rating reaches the threshold and a redirect target is configured. A
// reached threshold without a target falls back to capture so the feedback
// is never silently lost.
func Evaluate(business *models.BusinessAccount, rating int) Result {
	if rating >= business.ReviewThreshold && business.HasRedirectTarget() {
		return Result{Action: ActionRedirect, Target: business.GoogleReviewURL}
	}
	return Result{Action: ActionCapture}
}

// Submit routes one rating submission.
//
// On the redirect path nothing is persisted: whatever the customer typed
// before the redirect fired is discarded. On the capture path name and email
// are required, at most one review per contact, business and calendar day is
// accepted, and a notification job is enqueued best-effort.
func (s *Service) Submit(ctx context.Context, slug string, sub Submission) (*Result, error) {
	business, err := s.GetBusinessBySlug(slug)
	if err != nil {
		return nil, err
	}
	if !business.IsActive() {
		return nil, ErrBusinessInactive
	}
	if sub.Rating < models.MinRating || sub.Rating > models.MaxRating {
		return nil, ErrInvalidRating
	}

	result := Evaluate(business, sub.Rating)
	if result.Action == ActionRedirect {
		return &result, nil
	}

	name := strings.TrimSpace(sub.Name)
	email := strings.ToLower(strings.TrimSpace(sub.Email))
	if name == "" || email == "" {
		return nil, ErrMissingContact
	}

	now := time.Now()
	slotKey := dailySlotKey(business.ID, email, now)
	if err := s.claimDailySlot(ctx, business.ID, email, slotKey, now); err != nil {
		return nil, err
	}

	review, err := s.repo.CreateReview(business.ID, name, email, sub.Subject, sub.Comment, sub.Rating)
	if err != nil {
		s.guard.Release(ctx, slotKey)
		return nil, err
	}

	s.enqueueNotification(business, review)
	return &result, nil
}

// claimDailySlot reserves the (business, email, day) tuple atomically so
// concurrent duplicate submissions cannot both pass a read-then-write check.
// A cache outage degrades to the DB-side count.
func (s *Service) claimDailySlot(ctx context.Context, businessID uint, email, slotKey string, now time.Time) error {
	ok, err := s.guard.Claim(ctx, slotKey, 48*time.Hour)
	if err != nil {
		// Same local calendar day the slot key encodes.
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		count, dbErr := s.repo.CountReviewsSince(businessID, email, dayStart)
		if dbErr != nil {
			return dbErr
		}
		if count > 0 {
			return ErrDuplicateReview
		}
		return nil
	}
	if !ok {
		return ErrDuplicateReview
	}
	return nil
}

func dailySlotKey(businessID uint, email string, now time.Time) string {
	return fmt.Sprintf("review:slot:%d:%s:%s", businessID, email, now.Format("2006-01-02"))
}

// enqueueNotification dispatches the owner notification without ever
// failing the submission.
func (s *Service) enqueueNotification(business *models.BusinessAccount, review *models.Review) {
	if s.queue == nil {
		return
	}
	payload := jobqueue.ReviewNotificationPayload{
		BusinessID:    business.ID,
		BusinessName:  business.BusinessName,
		ContactEmail:  business.ContactEmail,
		ReviewerName:  review.ReviewerName,
		ReviewerEmail: review.ReviewerEmail,
		Subject:       review.Subject,
		Comment:       review.Comment,
		Rating:        review.Rating,
	}
	if _, err := s.queue.EnqueueReviewNotification(payload); err != nil {
		log.Errorf("[ReviewFlow] failed to enqueue notification for business %d: %v", business.ID, err)
	}
}
