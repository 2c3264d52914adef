package domain

import "time"

// Sentiment is the coarse classification of a review derived from its rating.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ExternalReview is a review as the provider returns it.
type ExternalReview struct {
	ReviewID     string
	Name         string
	ReviewerName string
	StarRating   string
	Comment      string
	CreateTime   string
	UpdateTime   string
	Reply        *ReviewReply
}

// ReviewReply is the owner reply already published on the provider.
type ReviewReply struct {
	Comment    string
	UpdateTime string
}

// Review is the stored form of an ingested review. It is written once per
// (TenantID, ReviewID) and never overwritten by ingestion.
type Review struct {
	ID                string     `bson:"_id"                json:"id"`
	TenantID          string     `bson:"tenant_id"          json:"tenant_id"`
	ReviewID          string     `bson:"review_id"          json:"review_id"`
	Author            string     `bson:"author"             json:"author"`
	Rating            int        `bson:"rating"             json:"rating"`
	Comment           string     `bson:"comment"            json:"comment"`
	SubmittedAt       time.Time  `bson:"submitted_at"       json:"submitted_at"`
	Sentiment         Sentiment  `bson:"sentiment"          json:"sentiment"`
	SuggestedResponse string     `bson:"suggested_response" json:"suggested_response,omitempty"`
	FinalResponse     string     `bson:"final_response"     json:"final_response,omitempty"`
	IsApproved        bool       `bson:"is_approved"        json:"is_approved"`
	ApprovedAt        *time.Time `bson:"approved_at"        json:"approved_at,omitempty"`
	IngestedAt        time.Time  `bson:"ingested_at"        json:"ingested_at"`
}

// UserProfile is the profile of the external account a tenant connected.
type UserProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Picture       string `json:"picture,omitempty"`
	GivenName     string `json:"givenName,omitempty"`
	FamilyName    string `json:"familyName,omitempty"`
	VerifiedEmail bool   `json:"verifiedEmail"`
}
