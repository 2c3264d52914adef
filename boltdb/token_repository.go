package boltdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pilab-dev/reviewdesk/domain"
	"go.etcd.io/bbolt"
)

// TokenRepository stores one token per (tenant, provider) key.
type TokenRepository struct {
	store *Store
}

func tokenKey(tenantID, provider string) []byte {
	return []byte(tenantID + "\x00" + provider)
}

func (r *TokenRepository) GetByTenant(_ context.Context, tenantID, provider string) (*domain.OAuthToken, error) {
	var token *domain.OAuthToken

	err := r.store.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(tokensBucket).Get(tokenKey(tenantID, provider))
		if data == nil {
			return domain.ErrTokenNotFound
		}
		token = &domain.OAuthToken{}
		return decode(data, token)
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Save writes the token inside one read-write transaction, so concurrent
// saves for the same key never interleave.
func (r *TokenRepository) Save(_ context.Context, token *domain.OAuthToken) (*domain.OAuthToken, error) {
	saved := *token
	now := r.store.now()

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tokensBucket)
		key := tokenKey(token.TenantID, token.Provider)

		if data := b.Get(key); data != nil {
			var existing domain.OAuthToken
			if err := decode(data, &existing); err != nil {
				return err
			}
			saved.ID = existing.ID
			saved.CreatedAt = existing.CreatedAt
		} else {
			if saved.ID == "" {
				saved.ID = uuid.NewString()
			}
			saved.CreatedAt = now
		}
		saved.UpdatedAt = now
		saved.ExpiresAt = saved.ExpiresAt.UTC()

		data, err := encode(&saved)
		if err != nil {
			return fmt.Errorf("encode oauth token: %w", err)
		}
		return b.Put(key, data)
	})
	if err != nil {
		return nil, err
	}

	return &saved, nil
}

func (r *TokenRepository) Revoke(_ context.Context, tenantID, provider string) (bool, error) {
	found := false

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tokensBucket)
		key := tokenKey(tenantID, provider)

		data := b.Get(key)
		if data == nil {
			return nil
		}
		found = true

		var token domain.OAuthToken
		if err := decode(data, &token); err != nil {
			return err
		}
		token.IsRevoked = true
		token.UpdatedAt = r.store.now()

		out, err := encode(&token)
		if err != nil {
			return err
		}
		return b.Put(key, out)
	})

	return found, err
}

func (r *TokenRepository) Delete(_ context.Context, tenantID, provider string) (bool, error) {
	found := false

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tokensBucket)
		key := tokenKey(tenantID, provider)
		if b.Get(key) == nil {
			return nil
		}
		found = true
		return b.Delete(key)
	})

	return found, err
}

func (r *TokenRepository) ListExpired(_ context.Context) ([]*domain.OAuthToken, error) {
	now := r.store.now()
	var expired []*domain.OAuthToken

	err := r.store.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokensBucket).ForEach(func(_, data []byte) error {
			var token domain.OAuthToken
			if err := decode(data, &token); err != nil {
				return err
			}
			if !token.IsRevoked && token.IsExpired(now) {
				expired = append(expired, &token)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return expired, nil
}

// UpdateRefreshed rewrites only the rotated credentials, inside the same
// transaction that checks the token still exists and is not revoked.
func (r *TokenRepository) UpdateRefreshed(_ context.Context, tenantID, provider string, creds domain.RefreshedCredentials) (*domain.OAuthToken, error) {
	var token domain.OAuthToken

	err := r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tokensBucket)
		key := tokenKey(tenantID, provider)

		data := b.Get(key)
		if data == nil {
			return domain.ErrTokenNotFound
		}
		if err := decode(data, &token); err != nil {
			return err
		}
		if token.IsRevoked {
			return domain.ErrTokenRevoked
		}

		token.AccessToken = creds.AccessToken
		token.ExpiresAt = creds.ExpiresAt.UTC()
		if creds.RefreshToken != "" {
			token.RefreshToken = creds.RefreshToken
		}
		if creds.Scope != "" {
			token.Scope = creds.Scope
		}
		token.UpdatedAt = r.store.now()

		out, err := encode(&token)
		if err != nil {
			return fmt.Errorf("encode oauth token: %w", err)
		}
		return b.Put(key, out)
	})
	if err != nil {
		return nil, err
	}

	return &token, nil
}
