package repository

import (
	"context"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/data"
)

type rememberTokenRepository struct {
	service *frame.Service
}

// NewRememberTokenRepository creates a new instance of RememberTokenRepository
func NewRememberTokenRepository(service *frame.Service) RememberTokenRepository {
	return &rememberTokenRepository{
		service: service,
	}
}

// Create persists a new token record
func (r *rememberTokenRepository) Create(ctx context.Context, token *models.RememberToken) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Create(token).Error
}

// GetByHash retrieves a token by its hash
func (r *rememberTokenRepository) GetByHash(ctx context.Context, hash string) (*models.RememberToken, error) {
	var token models.RememberToken
	err := r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, true).First(&token, "token_hash = ?", hash).Error
	if err != nil {
		if data.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// TouchLastUsed refreshes the last used timestamp. Idempotent under retry.
func (r *rememberTokenRepository) TouchLastUsed(ctx context.Context, id string) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Model(&models.RememberToken{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

// Delete removes a token record by ID
func (r *rememberTokenRepository) Delete(ctx context.Context, id string) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Delete(&models.RememberToken{}, "id = ?", id).Error
}

// DeleteByUser removes all tokens belonging to a user
func (r *rememberTokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Delete(&models.RememberToken{}, "user_id = ?", userID).Error
}

// DeleteExpired removes tokens past their expiry
func (r *rememberTokenRepository) DeleteExpired(ctx context.Context) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Delete(&models.RememberToken{}, "expires_at < ?", time.Now()).Error
}
