package business_test

import (
	"context"
	"testing"
	"time"

	"github.com/karibuweb/service-admin/service/business"
	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberTokenRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)

	rawToken, err := h.remember.IssueToken(ctx, user, "198.51.100.7", nil)
	require.NoError(t, err)
	require.NotEmpty(t, rawToken)

	// Only the digest lands in storage.
	stored, err := h.tokens.GetByHash(ctx, utils.HashStringSecret(rawToken))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotContains(t, stored.TokenHash, rawToken)

	resolved, err := h.remember.ValidateToken(ctx, rawToken)
	require.NoError(t, err)
	assert.Equal(t, user.GetID(), resolved.GetID())

	touched, err := h.tokens.GetByHash(ctx, utils.HashStringSecret(rawToken))
	require.NoError(t, err)
	assert.True(t, touched.LastUsedAt.After(stored.LastUsedAt) || touched.LastUsedAt.Equal(stored.LastUsedAt))
}

func TestRememberTokenUnknownOrEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.remember.ValidateToken(ctx, "")
	require.ErrorIs(t, err, business.ErrTokenExpiredOrUnknown)

	_, err = h.remember.ValidateToken(ctx, "not-a-real-token")
	require.ErrorIs(t, err, business.ErrTokenExpiredOrUnknown)
}

func TestRememberTokenAbsoluteExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)

	rawToken, err := h.remember.IssueToken(ctx, user, "198.51.100.7", nil)
	require.NoError(t, err)

	// Validation refreshes last_used_at but never the expiry.
	before, err := h.tokens.GetByHash(ctx, utils.HashStringSecret(rawToken))
	require.NoError(t, err)
	_, err = h.remember.ValidateToken(ctx, rawToken)
	require.NoError(t, err)
	after, err := h.tokens.GetByHash(ctx, utils.HashStringSecret(rawToken))
	require.NoError(t, err)
	assert.Equal(t, before.ExpiresAt, after.ExpiresAt)

	// Push the token past its window; it now behaves like an unknown one
	// and the stale row is dropped.
	after.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, h.tokens.Create(ctx, after))

	_, err = h.remember.ValidateToken(ctx, rawToken)
	require.ErrorIs(t, err, business.ErrTokenExpiredOrUnknown)
	assert.Zero(t, h.tokens.size())
}

func TestRememberTokenRevokeSingle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)

	rawToken, err := h.remember.IssueToken(ctx, user, "198.51.100.7", nil)
	require.NoError(t, err)

	stored, err := h.tokens.GetByHash(ctx, utils.HashStringSecret(rawToken))
	require.NoError(t, err)
	require.NoError(t, h.remember.Revoke(ctx, stored.GetID()))

	_, err = h.remember.ValidateToken(ctx, rawToken)
	require.ErrorIs(t, err, business.ErrTokenExpiredOrUnknown)
}

func TestRememberTokenRevokeAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)

	first, err := h.remember.IssueToken(ctx, user, "198.51.100.7", nil)
	require.NoError(t, err)
	second, err := h.remember.IssueToken(ctx, user, "203.0.113.4", nil)
	require.NoError(t, err)
	require.Equal(t, 2, h.tokens.size())

	require.NoError(t, h.remember.RevokeAll(ctx, user.GetID()))

	_, err = h.remember.ValidateToken(ctx, first)
	require.ErrorIs(t, err, business.ErrTokenExpiredOrUnknown)
	_, err = h.remember.ValidateToken(ctx, second)
	require.ErrorIs(t, err, business.ErrTokenExpiredOrUnknown)
}

func TestRememberTokenInactiveUserRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.seedUser(t, "owner@example.com", "correct-horse", models.TwoFactorMethodEmail, "", true)

	rawToken, err := h.remember.IssueToken(ctx, user, "198.51.100.7", nil)
	require.NoError(t, err)

	user.Active = false
	require.NoError(t, h.users.Save(ctx, user))

	_, err = h.remember.ValidateToken(ctx, rawToken)
	require.ErrorIs(t, err, business.ErrTokenExpiredOrUnknown)
}
