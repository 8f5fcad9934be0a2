package reviewflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
)

type fakeRepository struct {
	businesses     map[string]*models.BusinessAccount
	reviews        []*models.Review
	nextID         uint
	lastCountSince time.Time
}

func newFakeRepository(businesses ...*models.BusinessAccount) *fakeRepository {
	r := &fakeRepository{businesses: make(map[string]*models.BusinessAccount)}
	for _, b := range businesses {
		r.businesses[b.Slug] = b
	}
	return r
}

func (r *fakeRepository) GetBusinessBySlug(slug string) (*models.BusinessAccount, error) {
	if b, ok := r.businesses[slug]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) CreateReview(businessID uint, name, email, subject, comment string, rating int) (*models.Review, error) {
	review, err := models.CreateReview(businessID, rating, name, email, subject, comment)
	if err != nil {
		return nil, err
	}
	r.nextID++
	review.ID = r.nextID
	review.CreatedAt = time.Now()
	r.reviews = append(r.reviews, review)
	return review, nil
}

func (r *fakeRepository) CountReviewsSince(businessID uint, email string, since time.Time) (int64, error) {
	r.lastCountSince = since
	var count int64
	for _, rev := range r.reviews {
		if rev.BusinessAccountID == businessID && rev.ReviewerEmail == email && !rev.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeSlotGuard struct {
	claimed map[string]bool
	fail    bool
}

func newFakeSlotGuard() *fakeSlotGuard {
	return &fakeSlotGuard{claimed: make(map[string]bool)}
}

func (g *fakeSlotGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if g.fail {
		return false, assert.AnError
	}
	if g.claimed[key] {
		return false, nil
	}
	g.claimed[key] = true
	return true, nil
}

func (g *fakeSlotGuard) Release(ctx context.Context, key string) {
	delete(g.claimed, key)
}

func activeBusiness() *models.BusinessAccount {
	return &models.BusinessAccount{
		ID:              1,
		BusinessName:    "Corner Cafe",
		ContactEmail:    "owner@corner.cafe",
		GoogleReviewURL: "https://g.page/r/corner-cafe/review",
		ReviewThreshold: 4,
		Status:          models.BusinessStatusActive,
		Slug:            "corner-cafe",
	}
}

func TestEvaluateThresholdRule(t *testing.T) {
	// Redirect iff rating >= threshold and a target is configured.
	for threshold := models.MinRating; threshold <= models.MaxRating; threshold++ {
		for rating := models.MinRating; rating <= models.MaxRating; rating++ {
			b := activeBusiness()
			b.ReviewThreshold = threshold

			got := Evaluate(b, rating)
			if rating >= threshold {
				if got.Action != ActionRedirect || got.Target != b.GoogleReviewURL {
					t.Fatalf("threshold=%d rating=%d: got %+v, want redirect", threshold, rating, got)
				}
			} else if got.Action != ActionCapture {
				t.Fatalf("threshold=%d rating=%d: got %+v, want capture", threshold, rating, got)
			}
		}
	}
}

func TestEvaluateFallsBackToCaptureWithoutTarget(t *testing.T) {
	b := activeBusiness()
	b.GoogleReviewURL = ""
	got := Evaluate(b, 5)
	assert.Equal(t, ActionCapture, got.Action, "reached threshold without a target must capture, never drop")
}

func TestSubmitRedirectPersistsNothing(t *testing.T) {
	repo := newFakeRepository(activeBusiness())
	svc := NewService(repo, newFakeSlotGuard(), nil)

	result, err := svc.Submit(context.Background(), "corner-cafe", Submission{
		Rating:  5,
		Comment: "typed before redirect, must be discarded",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionRedirect, result.Action)
	assert.Equal(t, "https://g.page/r/corner-cafe/review", result.Target)
	assert.Empty(t, repo.reviews)
}

func TestSubmitCaptureCreatesReview(t *testing.T) {
	repo := newFakeRepository(activeBusiness())
	svc := NewService(repo, newFakeSlotGuard(), nil)

	result, err := svc.Submit(context.Background(), "corner-cafe", Submission{
		Rating:  2,
		Name:    "Pat Smith",
		Email:   "Pat@Example.com",
		Subject: "Slow service",
		Comment: "Waited 30 minutes.",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionCapture, result.Action)
	assert.Empty(t, result.Target)

	require.Len(t, repo.reviews, 1)
	review := repo.reviews[0]
	assert.Equal(t, uint(1), review.BusinessAccountID)
	assert.Equal(t, 2, review.Rating)
	assert.Equal(t, "pat@example.com", review.ReviewerEmail)
}

func TestSubmitValidation(t *testing.T) {
	repo := newFakeRepository(activeBusiness())
	svc := NewService(repo, newFakeSlotGuard(), nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "no-such-slug", Submission{Rating: 2, Name: "A B", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrBusinessNotFound)

	_, err = svc.Submit(ctx, "corner-cafe", Submission{Rating: 0, Name: "A B", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.Submit(ctx, "corner-cafe", Submission{Rating: 6, Name: "A B", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = svc.Submit(ctx, "corner-cafe", Submission{Rating: 2})
	assert.ErrorIs(t, err, ErrMissingContact)

	assert.Empty(t, repo.reviews, "failed submissions never persist")
}

func TestSubmitRejectsInactiveBusiness(t *testing.T) {
	b := activeBusiness()
	b.Status = models.BusinessStatusInactive
	svc := NewService(newFakeRepository(b), newFakeSlotGuard(), nil)

	_, err := svc.Submit(context.Background(), "corner-cafe", Submission{Rating: 2, Name: "A B", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrBusinessInactive)
}

func TestSubmitOneCapturePerContactPerDay(t *testing.T) {
	repo := newFakeRepository(activeBusiness())
	svc := NewService(repo, newFakeSlotGuard(), nil)
	ctx := context.Background()

	sub := Submission{Rating: 2, Name: "Pat Smith", Email: "pat@example.com", Comment: "meh"}
	_, err := svc.Submit(ctx, "corner-cafe", sub)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "corner-cafe", sub)
	assert.ErrorIs(t, err, ErrDuplicateReview)
	assert.Len(t, repo.reviews, 1)
}

func TestSubmitGuardOutageFallsBackToDBCheck(t *testing.T) {
	repo := newFakeRepository(activeBusiness())
	guard := newFakeSlotGuard()
	guard.fail = true
	svc := NewService(repo, guard, nil)
	ctx := context.Background()

	sub := Submission{Rating: 1, Name: "Pat Smith", Email: "pat@example.com"}
	_, err := svc.Submit(ctx, "corner-cafe", sub)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "corner-cafe", sub)
	assert.ErrorIs(t, err, ErrDuplicateReview, "DB-side policy check still applies when the cache is down")
}

func TestSubmitGuardOutageCountsFromLocalMidnight(t *testing.T) {
	repo := newFakeRepository(activeBusiness())
	guard := newFakeSlotGuard()
	guard.fail = true
	svc := NewService(repo, guard, nil)

	sub := Submission{Rating: 1, Name: "Pat Smith", Email: "pat@example.com"}
	_, err := svc.Submit(context.Background(), "corner-cafe", sub)
	require.NoError(t, err)

	now := time.Now()
	wantStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	assert.Equal(t, wantStart, repo.lastCountSince, "fallback window must open on the same calendar day the slot key encodes")
}
