package ingestion

import (
	"strings"
	"time"

	"github.com/pilab-dev/reviewdesk/domain"
)

var starRatings = map[string]int{
	"ONE":   1,
	"TWO":   2,
	"THREE": 3,
	"FOUR":  4,
	"FIVE":  5,
}

// StarRating converts the provider's rating enum to 1..5. Unknown values,
// including STAR_RATING_UNSPECIFIED, map to 0.
func StarRating(s string) int {
	return starRatings[strings.ToUpper(strings.TrimSpace(s))]
}

// SentimentFor classifies a review by its rating.
func SentimentFor(rating int) domain.Sentiment {
	switch {
	case rating >= 4:
		return domain.SentimentPositive
	case rating == 3:
		return domain.SentimentNeutral
	default:
		return domain.SentimentNegative
	}
}

// parseTime reads a provider timestamp, returning false when it is absent
// or malformed.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// toReview builds the stored record for an external review.
func toReview(tenantID string, ext domain.ExternalReview, now time.Time) *domain.Review {
	author := strings.TrimSpace(ext.ReviewerName)
	if author == "" {
		author = "Anonymous"
	}

	rating := StarRating(ext.StarRating)

	submitted, ok := parseTime(ext.CreateTime)
	if !ok {
		submitted = now
	}

	r := &domain.Review{
		TenantID:    tenantID,
		ReviewID:    ext.ReviewID,
		Author:      author,
		Rating:      rating,
		Comment:     ext.Comment,
		SubmittedAt: submitted,
		Sentiment:   SentimentFor(rating),
		IngestedAt:  now,
	}

	if ext.Reply != nil {
		r.FinalResponse = ext.Reply.Comment
		r.IsApproved = true
		if at, ok := parseTime(ext.Reply.UpdateTime); ok {
			r.ApprovedAt = &at
		}
	}

	return r
}
