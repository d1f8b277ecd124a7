package repository_test

import (
	"sync"
	"testing"
	"time"

	internaltests "github.com/karibuweb/service-admin/internal/tests"
	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/service/repository"
	"github.com/karibuweb/service-admin/utils"
	"github.com/pitabwire/frame/frametests/definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositoryTestSuite struct {
	internaltests.BaseTestSuite
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) TestUserLifecycle() {
	t := s.T()
	svc, ctx := s.CreateService(t, definition.NewDependancyOption("user_lifecycle", "user_lifecycle", nil))

	userRepo := repository.NewUserRepository(svc)

	user := &models.User{
		Email:           "Owner@Example.com ",
		PasswordHash:    []byte("$2a$12$notarealhashbutlongenoughtostore0000000000000000000"),
		Name:            "Shop Owner",
		TwoFactorMethod: string(models.TwoFactorMethodEmail),
		Active:          true,
	}
	user.GenID(ctx)
	require.NoError(t, userRepo.Save(ctx, user))
	assert.Equal(t, "owner@example.com", user.Email, "save normalises the stored email")

	// Lookup normalises the email before matching.
	found, err := userRepo.GetByEmail(ctx, "  OWNER@example.COM ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.GetID(), found.GetID())

	missing, err := userRepo.GetByEmail(ctx, "unknown@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func (s *RepositoryTestSuite) TestRecordFailureIsAtomic() {
	t := s.T()
	svc, ctx := s.CreateService(t, definition.NewDependancyOption("lockout_atomic", "lockout_atomic", nil))

	userRepo := repository.NewUserRepository(svc)

	user := &models.User{
		Email:        "raced@example.com",
		PasswordHash: []byte("x"),
		Active:       true,
	}
	user.GenID(ctx)
	require.NoError(t, userRepo.Save(ctx, user))

	const threshold = 5
	lockedUntil := time.Now().Add(15 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = userRepo.RecordFailure(ctx, user.GetID(), threshold, lockedUntil)
		}()
	}
	wg.Wait()

	stored, err := userRepo.GetByID(ctx, user.GetID())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stored.FailedAttempts, threshold, "concurrent failures never race the counter down")
	assert.True(t, stored.IsLocked(time.Now()))

	require.NoError(t, userRepo.ResetLockout(ctx, user.GetID()))
	stored, err = userRepo.GetByID(ctx, user.GetID())
	require.NoError(t, err)
	assert.Zero(t, stored.FailedAttempts)
	assert.False(t, stored.IsLocked(time.Now()))
}

func (s *RepositoryTestSuite) TestCodeIssueSupersedes() {
	t := s.T()
	svc, ctx := s.CreateService(t, definition.NewDependancyOption("code_supersede", "code_supersede", nil))

	userRepo := repository.NewUserRepository(svc)
	codeRepo := repository.NewTwoFactorCodeRepository(svc)

	user := &models.User{Email: "codes@example.com", PasswordHash: []byte("x"), Active: true}
	user.GenID(ctx)
	require.NoError(t, userRepo.Save(ctx, user))

	first := &models.TwoFactorCode{
		UserID:    user.GetID(),
		CodeHash:  utils.HashStringSecret("111111"),
		Channel:   string(models.TwoFactorChannelEmail),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	first.GenID(ctx)
	require.NoError(t, codeRepo.Issue(ctx, first))

	second := &models.TwoFactorCode{
		UserID:    user.GetID(),
		CodeHash:  utils.HashStringSecret("222222"),
		Channel:   string(models.TwoFactorChannelEmail),
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	second.GenID(ctx)
	require.NoError(t, codeRepo.Issue(ctx, second))

	live, err := codeRepo.GetLive(ctx, user.GetID())
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, second.GetID(), live.GetID(), "issuing invalidates the earlier code")

	require.NoError(t, codeRepo.MarkUsed(ctx, live.GetID()))
	live, err = codeRepo.GetLive(ctx, user.GetID())
	require.NoError(t, err)
	assert.Nil(t, live)

	// Marking again is a no-op.
	require.NoError(t, codeRepo.MarkUsed(ctx, second.GetID()))
}

func (s *RepositoryTestSuite) TestRememberTokenStorage() {
	t := s.T()
	svc, ctx := s.CreateService(t, definition.NewDependancyOption("remember_tokens", "remember_tokens", nil))

	userRepo := repository.NewUserRepository(svc)
	tokenRepo := repository.NewRememberTokenRepository(svc)

	user := &models.User{Email: "trusted@example.com", PasswordHash: []byte("x"), Active: true}
	user.GenID(ctx)
	require.NoError(t, userRepo.Save(ctx, user))

	token := &models.RememberToken{
		UserID:     user.GetID(),
		TokenHash:  utils.HashStringSecret("raw-token-value"),
		IPAddress:  "198.51.100.7",
		ExpiresAt:  time.Now().Add(7 * 24 * time.Hour),
		LastUsedAt: time.Now(),
	}
	token.GenID(ctx)
	require.NoError(t, tokenRepo.Create(ctx, token))

	found, err := tokenRepo.GetByHash(ctx, utils.HashStringSecret("raw-token-value"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.GetID(), found.UserID)

	none, err := tokenRepo.GetByHash(ctx, utils.HashStringSecret("other-value"))
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, tokenRepo.TouchLastUsed(ctx, token.GetID()))

	// Deleting the user takes their tokens with it.
	require.NoError(t, userRepo.Delete(ctx, user.GetID()))
	gone, err := tokenRepo.GetByHash(ctx, utils.HashStringSecret("raw-token-value"))
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func (s *RepositoryTestSuite) TestSessionLifecycle() {
	t := s.T()
	svc, ctx := s.CreateService(t, definition.NewDependancyOption("sessions", "sessions", nil))

	sessionRepo := repository.NewSessionRepository(svc)

	session := &models.Session{
		UserID:         "user-1",
		Status:         models.SessionStatusPending2FA,
		PendingFactors: "email,totp",
		ExpiresAt:      time.Now().Add(10 * time.Minute),
	}
	session.GenID(ctx)
	require.NoError(t, sessionRepo.Save(ctx, session))

	found, err := sessionRepo.GetByID(ctx, session.GetID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.ElementsMatch(t, []string{"email", "totp"}, found.PendingList())

	found.Status = models.SessionStatusAuthenticated
	found.PendingFactors = ""
	require.NoError(t, sessionRepo.Save(ctx, found))

	updated, err := sessionRepo.GetByID(ctx, session.GetID())
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusAuthenticated, updated.Status)

	require.NoError(t, sessionRepo.Delete(ctx, session.GetID()))
	deleted, err := sessionRepo.GetByID(ctx, session.GetID())
	require.NoError(t, err)
	assert.Nil(t, deleted)
}

func (s *RepositoryTestSuite) TestLoginAttemptAudit() {
	t := s.T()
	svc, ctx := s.CreateService(t, definition.NewDependancyOption("attempts", "attempts", nil))

	attemptRepo := repository.NewLoginAttemptRepository(svc)

	for _, reason := range []string{
		models.AttemptReasonInvalidPassword,
		models.AttemptReasonInvalidPassword,
		models.AttemptReasonSuccess,
	} {
		attempt := &models.LoginAttempt{
			Email:     "owner@example.com",
			IPAddress: "198.51.100.7",
			Success:   reason == models.AttemptReasonSuccess,
			Reason:    reason,
		}
		attempt.GenID(ctx)
		require.NoError(t, attemptRepo.Create(ctx, attempt))
	}

	recent, err := attemptRepo.ListRecent(ctx, "owner@example.com", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
