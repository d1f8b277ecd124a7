package business

import (
	"context"

	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/utils"
	"github.com/pitabwire/util"
)

// CredentialVerifier performs the constant cost password comparison.
type CredentialVerifier interface {
	// Verify checks the password of a user. A nil user performs a dummy
	// comparison and fails exactly like a wrong password would.
	Verify(ctx context.Context, user *models.User, password string) error
}

func NewCredentialVerifier(ctx context.Context) CredentialVerifier {
	hasher := utils.NewBCrypt()

	// Hashed throwaway secret compared against when the email is unknown,
	// so a nonexistent account costs the same as a wrong password.
	dummyHash, err := hasher.Hash(ctx, []byte(util.RandomAlphaNumericString(32)))
	if err != nil {
		util.Log(ctx).WithError(err).Fatal("could not prepare credential verifier")
	}

	return &credentialVerifier{hasher: hasher, dummyHash: dummyHash}
}

type credentialVerifier struct {
	hasher    *utils.BCrypt
	dummyHash []byte
}

func (cv *credentialVerifier) Verify(ctx context.Context, user *models.User, password string) error {
	if user == nil {
		_ = cv.hasher.Compare(ctx, cv.dummyHash, []byte(password))
		return ErrInvalidCredentials
	}

	if err := cv.hasher.Compare(ctx, user.PasswordHash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return nil
}
