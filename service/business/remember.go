package business

import (
	"context"
	"time"

	"github.com/karibuweb/service-admin/config"
	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/service/repository"
	"github.com/karibuweb/service-admin/utils"
	"github.com/pitabwire/util"
	"gorm.io/datatypes"
)

const rememberTokenLength = 48

// RememberDeviceManager issues and validates trusted device tokens. A valid
// token lets a device skip the second factor until the token's absolute
// expiry; usage refreshes last_used_at but never extends the lifetime.
type RememberDeviceManager interface {
	// IssueToken mints a raw token for the browser and stores only its hash
	IssueToken(ctx context.Context, user *models.User, ipAddress string, device datatypes.JSONMap) (string, error)
	// ValidateToken resolves a raw token to its user, or
	// ErrTokenExpiredOrUnknown when it does not name a live trust grant
	ValidateToken(ctx context.Context, rawToken string) (*models.User, error)
	// Revoke drops a single trusted device by its token id
	Revoke(ctx context.Context, tokenID string) error
	// RevokeAll drops every trusted device of a user
	RevokeAll(ctx context.Context, userID string) error
}

func NewRememberDeviceManager(
	cfg *config.AdminConfig,
	userRepo repository.UserRepository,
	tokenRepo repository.RememberTokenRepository,
) RememberDeviceManager {
	return &rememberDeviceManager{
		cfg:       cfg,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
	}
}

type rememberDeviceManager struct {
	cfg       *config.AdminConfig
	userRepo  repository.UserRepository
	tokenRepo repository.RememberTokenRepository
}

func (rdm *rememberDeviceManager) IssueToken(ctx context.Context, user *models.User, ipAddress string, device datatypes.JSONMap) (string, error) {
	rawToken := util.RandomAlphaNumericString(rememberTokenLength)

	now := time.Now()
	token := &models.RememberToken{
		UserID:     user.GetID(),
		TokenHash:  utils.HashStringSecret(rawToken),
		Device:     device,
		IPAddress:  ipAddress,
		ExpiresAt:  now.Add(rdm.cfg.RememberTokenTTL()),
		LastUsedAt: now,
	}
	token.GenID(ctx)

	err := rdm.tokenRepo.Create(ctx, token)
	if err != nil {
		return "", err
	}

	return rawToken, nil
}

func (rdm *rememberDeviceManager) ValidateToken(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, ErrTokenExpiredOrUnknown
	}

	token, err := rdm.tokenRepo.GetByHash(ctx, utils.HashStringSecret(rawToken))
	if err != nil {
		return nil, err
	}

	if token == nil {
		return nil, ErrTokenExpiredOrUnknown
	}

	if token.IsExpired(time.Now()) {
		// Expired rows are useless, drop them on sight.
		if delErr := rdm.tokenRepo.Delete(ctx, token.GetID()); delErr != nil {
			util.Log(ctx).WithError(delErr).
				WithField("token_id", token.GetID()).
				Warn("could not drop expired remember token")
		}
		return nil, ErrTokenExpiredOrUnknown
	}

	user, err := rdm.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}

	if user == nil || !user.Active {
		return nil, ErrTokenExpiredOrUnknown
	}

	err = rdm.tokenRepo.TouchLastUsed(ctx, token.GetID())
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (rdm *rememberDeviceManager) Revoke(ctx context.Context, tokenID string) error {
	return rdm.tokenRepo.Delete(ctx, tokenID)
}

func (rdm *rememberDeviceManager) RevokeAll(ctx context.Context, userID string) error {
	return rdm.tokenRepo.DeleteByUser(ctx, userID)
}
