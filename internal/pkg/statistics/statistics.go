// Package statistics computes review analytics for the dashboard. Results
// are cached in redis so repeated dashboard loads do not re-aggregate.
package statistics

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/obedenzy/starbridge/app/models"
	"github.com/obedenzy/starbridge/internal/pkg/cache"
	"github.com/obedenzy/starbridge/internal/pkg/database"
)

const (
	CacheKeyBusinessStats = "statistics:business:%d" // Format with business ID
	CacheExpiration       = 5 * time.Minute

	trendDays = 30
)

// DailyCount is one day of captured reviews.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// BusinessStats is the analytics summary for one business account.
type BusinessStats struct {
	TotalReviews  int64        `json:"total_reviews"`
	AverageRating float64      `json:"average_rating"`
	RatingCounts  [5]int64     `json:"rating_counts"` // index 0 holds 1-star
	Last30Days    []DailyCount `json:"last_30_days"`
	GeneratedAt   time.Time    `json:"generated_at"`
}

type ratingRow struct {
	Rating int
	Count  int64
}

type dailyRow struct {
	Day   string
	Count int64
}

// GetBusinessStats returns the analytics summary, served from cache when fresh.
func GetBusinessStats(businessID uint) (*BusinessStats, error) {
	key := fmt.Sprintf(CacheKeyBusinessStats, businessID)
	if cached, err := cache.Get(key); err == nil && cached != "" {
		var stats BusinessStats
		if err := json.Unmarshal([]byte(cached), &stats); err == nil {
			return &stats, nil
		}
	}

	stats, err := computeBusinessStats(database.GetDB(), businessID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := cache.Set(key, string(data), CacheExpiration); err != nil {
			log.Printf("Error caching statistics for business %d: %v", businessID, err)
		}
	}
	return stats, nil
}

// InvalidateBusinessStats drops the cached summary after new data arrives.
func InvalidateBusinessStats(businessID uint) {
	_ = cache.Delete(fmt.Sprintf(CacheKeyBusinessStats, businessID))
}

func computeBusinessStats(db *gorm.DB, businessID uint) (*BusinessStats, error) {
	stats := &BusinessStats{GeneratedAt: time.Now()}

	var rows []ratingRow
	err := db.Model(&models.Review{}).
		Select("rating, COUNT(*) as count").
		Where("business_account_id = ?", businessID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var ratingSum int64
	for _, row := range rows {
		if row.Rating < models.MinRating || row.Rating > models.MaxRating {
			continue
		}
		stats.RatingCounts[row.Rating-1] = row.Count
		stats.TotalReviews += row.Count
		ratingSum += int64(row.Rating) * row.Count
	}
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(ratingSum) / float64(stats.TotalReviews)
	}

	since := time.Now().AddDate(0, 0, -trendDays).Truncate(24 * time.Hour)
	var daily []dailyRow
	err = db.Model(&models.Review{}).
		Select("DATE(created_at) as day, COUNT(*) as count").
		Where("business_account_id = ? AND created_at >= ?", businessID, since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&daily).Error
	if err != nil {
		return nil, err
	}

	stats.Last30Days = fillMissingDays(daily, since, trendDays)
	return stats, nil
}

// fillMissingDays expands sparse day rows into a dense series so charts do
// not skip empty days.
func fillMissingDays(rows []dailyRow, start time.Time, days int) []DailyCount {
	byDay := make(map[string]int64, len(rows))
	for _, row := range rows {
		// MySQL DATE() scans as "2006-01-02" or with a time suffix depending
		// on driver settings; keep the date part only.
		day := row.Day
		if len(day) > 10 {
			day = day[:10]
		}
		byDay[day] = row.Count
	}

	out := make([]DailyCount, 0, days+1)
	for i := 0; i <= days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, DailyCount{Date: day, Count: byDay[day]})
	}
	return out
}
