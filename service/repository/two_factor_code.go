package repository

import (
	"context"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/data"
	"gorm.io/gorm"
)

type twoFactorCodeRepository struct {
	service *frame.Service
}

// NewTwoFactorCodeRepository creates a new instance of TwoFactorCodeRepository
func NewTwoFactorCodeRepository(service *frame.Service) TwoFactorCodeRepository {
	return &twoFactorCodeRepository{
		service: service,
	}
}

// Issue invalidates prior unused codes and persists the new one in a single
// transaction so at most one live code exists per user at any time.
func (r *twoFactorCodeRepository) Issue(ctx context.Context, code *models.TwoFactorCode) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.TwoFactorCode{}).
			Where("user_id = ? AND used = ?", code.UserID, false).
			Update("used", true).Error
		if err != nil {
			return err
		}
		return tx.Create(code).Error
	})
}

// GetLive retrieves the single unused, unexpired code for a user
func (r *twoFactorCodeRepository) GetLive(ctx context.Context, userID string) (*models.TwoFactorCode, error) {
	var code models.TwoFactorCode
	err := r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, true).
		Where("user_id = ? AND used = ? AND expires_at > ?", userID, false, time.Now()).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if data.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// MarkUsed consumes a code. The update is idempotent under retry.
func (r *twoFactorCodeRepository) MarkUsed(ctx context.Context, id string) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Model(&models.TwoFactorCode{}).
		Where("id = ?", id).
		Update("used", true).Error
}
