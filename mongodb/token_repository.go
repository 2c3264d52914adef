package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/reviewdesk/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type TokenRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewTokenRepository returns a token repository backed by the tokens
// collection and makes sure its indexes exist.
func NewTokenRepository(ctx context.Context, db *mongo.Database) (*TokenRepository, error) {
	repo := &TokenRepository{
		coll: db.Collection(TokensCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *TokenRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "provider", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("tenant_provider_unique"),
		},
		{
			Keys: bson.D{{Key: "is_revoked", Value: 1}, {Key: "expires_at", Value: 1}},
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn().Err(err).Str("collection", TokensCollection).Msg("failed to create indexes")
		return fmt.Errorf("create token indexes: %w", err)
	}

	return nil
}

func tenantProviderFilter(tenantID, provider string) bson.M {
	return bson.M{"tenant_id": tenantID, "provider": provider}
}

func (r *TokenRepository) GetByTenant(ctx context.Context, tenantID, provider string) (*domain.OAuthToken, error) {
	var token domain.OAuthToken

	err := r.coll.FindOne(ctx, tenantProviderFilter(tenantID, provider)).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	return &token, nil
}

// Save upserts the token on (tenant_id, provider) in a single round trip.
// The document id and creation time are kept from the first insert.
func (r *TokenRepository) Save(ctx context.Context, token *domain.OAuthToken) (*domain.OAuthToken, error) {
	now := r.now()

	id := token.ID
	if id == "" {
		id = uuid.NewString()
	}

	update := bson.M{
		"$set": bson.M{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"expires_at":    token.ExpiresAt.UTC(),
			"scope":         token.Scope,
			"is_revoked":    token.IsRevoked,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"_id":        id,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved domain.OAuthToken
	if err := r.coll.FindOneAndUpdate(ctx, tenantProviderFilter(token.TenantID, token.Provider), update, opts).Decode(&saved); err != nil {
		return nil, fmt.Errorf("save oauth token: %w", err)
	}

	return &saved, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, tenantID, provider string) (bool, error) {
	update := bson.M{"$set": bson.M{"is_revoked": true, "updated_at": r.now()}}

	res, err := r.coll.UpdateOne(ctx, tenantProviderFilter(tenantID, provider), update)
	if err != nil {
		return false, err
	}

	return res.MatchedCount > 0, nil
}

func (r *TokenRepository) Delete(ctx context.Context, tenantID, provider string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, tenantProviderFilter(tenantID, provider))
	if err != nil {
		return false, err
	}

	return res.DeletedCount > 0, nil
}

func (r *TokenRepository) ListExpired(ctx context.Context) ([]*domain.OAuthToken, error) {
	filter := bson.M{
		"is_revoked": false,
		"expires_at": bson.M{"$lte": r.now()},
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tokens []*domain.OAuthToken
	if err := cursor.All(ctx, &tokens); err != nil {
		return nil, err
	}

	return tokens, nil
}

// UpdateRefreshed rotates credentials only on a matching non-revoked
// document and never upserts. When nothing matched, a follow-up read tells
// a missing token from a revoked one.
func (r *TokenRepository) UpdateRefreshed(ctx context.Context, tenantID, provider string, creds domain.RefreshedCredentials) (*domain.OAuthToken, error) {
	set := bson.M{
		"access_token": creds.AccessToken,
		"expires_at":   creds.ExpiresAt.UTC(),
		"updated_at":   r.now(),
	}
	if creds.RefreshToken != "" {
		set["refresh_token"] = creds.RefreshToken
	}
	if creds.Scope != "" {
		set["scope"] = creds.Scope
	}

	filter := tenantProviderFilter(tenantID, provider)
	filter["is_revoked"] = false

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.OAuthToken
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update refreshed oauth token: %w", err)
	}

	if _, getErr := r.GetByTenant(ctx, tenantID, provider); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrTokenRevoked
}
