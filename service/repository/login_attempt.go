package repository

import (
	"context"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/datastore"
)

type loginAttemptRepository struct {
	service *frame.Service
}

// NewLoginAttemptRepository creates a new instance of LoginAttemptRepository
func NewLoginAttemptRepository(service *frame.Service) LoginAttemptRepository {
	return &loginAttemptRepository{
		service: service,
	}
}

// Create persists a new attempt record
func (r *loginAttemptRepository) Create(ctx context.Context, attempt *models.LoginAttempt) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Create(attempt).Error
}

// ListRecent returns the latest attempts for an email, newest first
func (r *loginAttemptRepository) ListRecent(ctx context.Context, email string, limit int) ([]*models.LoginAttempt, error) {
	var attempts []*models.LoginAttempt
	err := r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, true).
		Where("email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
