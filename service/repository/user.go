package repository

import (
	"context"
	"strings"
	"time"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/pitabwire/frame"
	"github.com/pitabwire/frame/datastore"
	"github.com/pitabwire/frame/data"
)

type userRepository struct {
	service *frame.Service
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(service *frame.Service) UserRepository {
	return &userRepository{
		service: service,
	}
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, true).First(&user, "id = ?", id).Error
	if err != nil {
		if data.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, true).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if data.ErrorIsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Save creates or updates a user record
func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" {
		// Create new record
		return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Create(user).Error
	}
	// Update existing record
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Save(user).Error
}

// RecordFailure bumps the failure counter in a single statement. Once the
// new counter value reaches the threshold the lockout window is set; while
// a lock is already in force the counter is left alone.
func (r *userRepository) RecordFailure(ctx context.Context, userID string, threshold int, lockedUntil time.Time) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Exec(
		`UPDATE users
		    SET failed_attempts = failed_attempts + 1,
		        locked_until = CASE WHEN failed_attempts + 1 >= ? THEN ? ELSE locked_until END
		  WHERE id = ? AND (locked_until IS NULL OR locked_until < ?)`,
		threshold, lockedUntil, userID, time.Now()).Error
}

// ResetLockout zeroes the counter and clears the lockout window
func (r *userRepository) ResetLockout(ctx context.Context, userID string) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"failed_attempts": 0,
			"locked_until":    time.Time{},
		}).Error
}

// UpdateTwoFactor persists the 2FA configuration columns only
func (r *userRepository) UpdateTwoFactor(ctx context.Context, user *models.User) error {
	return r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false).Model(&models.User{}).
		Where("id = ?", user.GetID()).
		Updates(map[string]any{
			"two_factor_method":   user.TwoFactorMethod,
			"two_factor_secret":   user.TwoFactorSecret,
			"two_factor_verified": user.TwoFactorVerified,
		}).Error
}

// Delete removes a user together with their remember tokens
func (r *userRepository) Delete(ctx context.Context, id string) error {
	db := r.service.DatastoreManager().GetPool(ctx, datastore.DefaultPoolName).DB(ctx, false)
	if err := db.Delete(&models.RememberToken{}, "user_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&models.User{}, "id = ?", id).Error
}
