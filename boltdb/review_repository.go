package boltdb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/reviewdesk/domain"
	"go.etcd.io/bbolt"
)

// ReviewRepository keeps one nested bucket per tenant keyed by review id.
type ReviewRepository struct {
	store *Store
}

func (r *ReviewRepository) ExistingReviewIDs(_ context.Context, tenantID string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	err := r.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(reviewsBucket).Bucket([]byte(tenantID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			ids[string(k)] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *ReviewRepository) InsertNew(_ context.Context, reviews []*domain.Review) (int, error) {
	inserted := 0

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(reviewsBucket)
		for _, review := range reviews {
			b, err := root.CreateBucketIfNotExists([]byte(review.TenantID))
			if err != nil {
				return fmt.Errorf("failed to create tenant bucket: %w", err)
			}

			key := []byte(review.ReviewID)
			if b.Get(key) != nil {
				continue
			}
			if review.ID == "" {
				review.ID = uuid.NewString()
			}

			data, err := encode(review)
			if err != nil {
				return fmt.Errorf("encode review %s: %w", review.ReviewID, err)
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func (r *ReviewRepository) ListByTenant(_ context.Context, tenantID string) ([]*domain.Review, error) {
	reviews := []*domain.Review{}

	err := r.store.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(reviewsBucket).Bucket([]byte(tenantID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, data []byte) error {
			var review domain.Review
			if err := decode(data, &review); err != nil {
				return err
			}
			reviews = append(reviews, &review)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].SubmittedAt.After(reviews[j].SubmittedAt)
	})

	return reviews, nil
}

func (r *ReviewRepository) Approve(_ context.Context, tenantID, reviewID, finalResponse string, approvedAt time.Time) (*domain.Review, error) {
	var review domain.Review

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(reviewsBucket).Bucket([]byte(tenantID))
		if b == nil {
			return domain.ErrReviewNotFound
		}

		key := []byte(reviewID)
		data := b.Get(key)
		if data == nil {
			return domain.ErrReviewNotFound
		}
		if err := decode(data, &review); err != nil {
			return err
		}
		if review.IsApproved {
			return domain.ErrReviewAlreadyApproved
		}

		at := approvedAt.UTC()
		review.FinalResponse = finalResponse
		review.IsApproved = true
		review.ApprovedAt = &at

		out, err := encode(&review)
		if err != nil {
			return fmt.Errorf("encode review %s: %w", reviewID, err)
		}
		return b.Put(key, out)
	})
	if err != nil {
		return nil, err
	}

	return &review, nil
}
