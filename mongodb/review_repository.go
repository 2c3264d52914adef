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

type ReviewRepository struct {
	coll *mongo.Collection
}

// NewReviewRepository returns a review repository backed by the reviews
// collection and makes sure its indexes exist.
func NewReviewRepository(ctx context.Context, db *mongo.Database) (*ReviewRepository, error) {
	repo := &ReviewRepository{coll: db.Collection(ReviewsCollection)}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "review_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("tenant_review_unique"),
		},
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "submitted_at", Value: -1}},
		},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Warn().Err(err).Str("collection", ReviewsCollection).Msg("failed to create indexes")
		return nil, fmt.Errorf("create review indexes: %w", err)
	}

	return repo, nil
}

func (r *ReviewRepository) ExistingReviewIDs(ctx context.Context, tenantID string) (map[string]struct{}, error) {
	opts := options.Find().SetProjection(bson.M{"review_id": 1})

	cursor, err := r.coll.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := make(map[string]struct{})
	for cursor.Next(ctx) {
		var doc struct {
			ReviewID string `bson:"review_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids[doc.ReviewID] = struct{}{}
	}

	return ids, cursor.Err()
}

// InsertNew writes each review with $setOnInsert so rows already present
// are left untouched, even when a concurrent ingestion raced us.
func (r *ReviewRepository) InsertNew(ctx context.Context, reviews []*domain.Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(reviews))
	for _, review := range reviews {
		if review.ID == "" {
			review.ID = uuid.NewString()
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"tenant_id": review.TenantID, "review_id": review.ReviewID}).
			SetUpdate(bson.M{"$setOnInsert": review}).
			SetUpsert(true))
	}

	res, err := r.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("insert reviews: %w", err)
	}

	return int(res.UpsertedCount), nil
}

func (r *ReviewRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := []*domain.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}

	return reviews, nil
}

// Approve sets the final response only on a review that is not approved
// yet. When nothing matched, a follow-up read tells the two causes apart.
func (r *ReviewRepository) Approve(ctx context.Context, tenantID, reviewID, finalResponse string, approvedAt time.Time) (*domain.Review, error) {
	filter := bson.M{"tenant_id": tenantID, "review_id": reviewID, "is_approved": false}
	update := bson.M{"$set": bson.M{
		"final_response": finalResponse,
		"is_approved":    true,
		"approved_at":    approvedAt.UTC(),
	}}

	var review domain.Review
	err := r.coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&review)
	if err == nil {
		return &review, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("approve review: %w", err)
	}

	count, err := r.coll.CountDocuments(ctx, bson.M{"tenant_id": tenantID, "review_id": reviewID})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrReviewNotFound
	}
	return nil, domain.ErrReviewAlreadyApproved
}
