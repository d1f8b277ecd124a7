package business

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/karibuweb/service-admin/config"
	"github.com/karibuweb/service-admin/service/events"
	"github.com/karibuweb/service-admin/service/models"
	"github.com/karibuweb/service-admin/service/repository"
	"github.com/karibuweb/service-admin/utils"
	"github.com/pitabwire/util"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// SetupChallenge carries the material a user needs to enrol an
// authenticator app. The secret is shown exactly once.
type SetupChallenge struct {
	Method models.TwoFactorMethod
	Secret string
	URL    string
}

// Emitter queues a payload for asynchronous handling. Satisfied by
// frame.Service.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any) error
}

// TwoFactorManager issues and checks second factor challenges.
type TwoFactorManager interface {
	// IssueEmailCode mints a fresh one time code for the user, invalidating
	// any earlier live code, and hands it to the delivery queue
	IssueEmailCode(ctx context.Context, user *models.User) error
	// VerifyEmailCode consumes the live code if the submission matches it
	VerifyEmailCode(ctx context.Context, user *models.User, submitted string) (bool, error)
	// VerifyTotp checks an authenticator code against the user's secret,
	// accepting one clock step of skew either side
	VerifyTotp(user *models.User, submitted string) bool
	// BeginSetup provisions an unconfirmed second factor for the user
	BeginSetup(ctx context.Context, user *models.User, method models.TwoFactorMethod) (*SetupChallenge, error)
	// ConfirmSetup activates a provisioned factor on the first valid code
	ConfirmSetup(ctx context.Context, user *models.User, submitted string) error
}

func NewTwoFactorManager(
	emitter Emitter,
	cfg *config.AdminConfig,
	userRepo repository.UserRepository,
	codeRepo repository.TwoFactorCodeRepository,
) TwoFactorManager {
	return &twoFactorManager{
		emitter:  emitter,
		cfg:      cfg,
		userRepo: userRepo,
		codeRepo: codeRepo,
	}
}

type twoFactorManager struct {
	emitter  Emitter
	cfg      *config.AdminConfig
	userRepo repository.UserRepository
	codeRepo repository.TwoFactorCodeRepository
}

func (tfm *twoFactorManager) IssueEmailCode(ctx context.Context, user *models.User) error {
	rawCode, err := generateNumericCode(tfm.cfg.TwoFactorCodeLength)
	if err != nil {
		return err
	}

	code := &models.TwoFactorCode{
		UserID:    user.GetID(),
		CodeHash:  utils.HashStringSecret(rawCode),
		Channel:   string(models.TwoFactorChannelEmail),
		ExpiresAt: time.Now().Add(tfm.cfg.TwoFactorCodeTTL()),
	}
	code.GenID(ctx)

	err = tfm.codeRepo.Issue(ctx, code)
	if err != nil {
		return storeFailure(err)
	}

	payload := map[string]any{
		"email":    user.Email,
		"name":     user.Name,
		"code":     rawCode,
		"validity": tfm.cfg.TwoFactorCodeTTL().String(),
	}

	err = tfm.emitter.Emit(ctx, events.EventKeyTwoFactorEmailSend, payload)
	if err != nil {
		util.Log(ctx).WithError(err).
			WithField("user_id", user.GetID()).
			Error("could not queue login code for delivery")
		return ErrDeliveryFailure
	}

	return nil
}

func (tfm *twoFactorManager) VerifyEmailCode(ctx context.Context, user *models.User, submitted string) (bool, error) {
	live, err := tfm.codeRepo.GetLive(ctx, user.GetID())
	if err != nil {
		return false, err
	}

	if live == nil || !live.IsLive(time.Now()) {
		return false, nil
	}

	if !utils.ConstantTimeEquals(live.CodeHash, utils.HashStringSecret(submitted)) {
		return false, nil
	}

	// Consume before reporting success so a replayed submission can never
	// match the same code twice.
	err = tfm.codeRepo.MarkUsed(ctx, live.GetID())
	if err != nil {
		return false, err
	}

	return true, nil
}

func (tfm *twoFactorManager) VerifyTotp(user *models.User, submitted string) bool {
	if user.TwoFactorSecret == "" {
		return false
	}

	ok, err := totp.ValidateCustom(submitted, user.TwoFactorSecret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}

	return ok
}

func (tfm *twoFactorManager) BeginSetup(ctx context.Context, user *models.User, method models.TwoFactorMethod) (*SetupChallenge, error) {
	challenge := &SetupChallenge{Method: method}

	if method.HasSecret() {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      tfm.cfg.TwoFactorIssuer,
			AccountName: user.Email,
		})
		if err != nil {
			return nil, err
		}

		challenge.Secret = key.Secret()
		challenge.URL = key.URL()
		user.TwoFactorSecret = key.Secret()
	} else {
		user.TwoFactorSecret = ""
	}

	user.TwoFactorMethod = string(method)
	user.TwoFactorVerified = false

	err := tfm.userRepo.UpdateTwoFactor(ctx, user)
	if err != nil {
		return nil, err
	}

	return challenge, nil
}

func (tfm *twoFactorManager) ConfirmSetup(ctx context.Context, user *models.User, submitted string) error {
	method := user.Method()
	if method == models.TwoFactorMethodNone {
		return ErrTwoFactorSetupRequired
	}

	var ok bool
	var err error
	if method.HasSecret() {
		ok = tfm.VerifyTotp(user, submitted)
	} else {
		ok, err = tfm.VerifyEmailCode(ctx, user, submitted)
		if err != nil {
			return err
		}
	}

	if !ok {
		return ErrInvalidOrExpiredCode
	}

	user.TwoFactorVerified = true
	return tfm.userRepo.UpdateTwoFactor(ctx, user)
}

// generateNumericCode draws a uniformly random zero padded decimal code.
func generateNumericCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
