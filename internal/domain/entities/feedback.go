package entities

import (
	"math"
	"time"
)

// Feedback is one user's mood submission: who, what they said, and a star rating.
type Feedback struct {
	ID        string    `json:"id" db:"id"`
	UserName  string    `json:"userName" db:"user_name"`
	Comments  string    `json:"comments" db:"comments"`
	Rating    int       `json:"rating" db:"rating"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// FeedbackSummary is the aggregate shown on the mood board header.
type FeedbackSummary struct {
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

// SummarizeFeedback computes the count and the average rating rounded to two decimals.
// An empty list averages to 0.
func SummarizeFeedback(items []*Feedback) *FeedbackSummary {
	summary := &FeedbackSummary{}
	total := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		summary.Count++
		total += item.Rating
	}
	if summary.Count == 0 {
		return summary
	}

	avg := float64(total) / float64(summary.Count)
	summary.AverageRating = math.Round(avg*100) / 100
	return summary
}
