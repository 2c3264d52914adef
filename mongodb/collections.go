package mongodb

const (
	TokensCollection  = "business_oauth_tokens" // One document per tenant and provider
	ReviewsCollection = "reviews"
)
