package repository

import (
	"context"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/data"
)

type sessionRepository struct {
	service *frame.Service
}

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(service *frame.Service) SessionRepository {
	return &sessionRepository{
		service: service,
	}
}

// GetByID retrieves a session by ID
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	err := r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, true).First(&session, "id = ?", id).Error
	if err != nil {
		if data.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Save creates or updates a session record
func (r *sessionRepository) Save(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		// Create new record
		return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Create(session).Error
	}
	// Update existing record
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Save(session).Error
}

// Delete removes a session record by ID
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Delete(&models.Session{}, "id = ?", id).Error
}

// DeleteByUser removes all sessions belonging to a user
func (r *sessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Delete(&models.Session{}, "user_id = ?", userID).Error
}

// DeleteExpired removes expired sessions
func (r *sessionRepository) DeleteExpired(ctx context.Context) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Delete(&models.Session{}, "expires_at < ?", time.Now()).Error
}
