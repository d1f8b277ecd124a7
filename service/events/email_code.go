package events

import (
	"context"
	"fmt"
	"net/smtp"
	"reflect"
	"strings"

	"github.com/karibuweb/service-admin/config"
	"github.com/pitabwire/frame/data"
	fevents "github.com/pitabwire/frame/events"
	"github.com/pitabwire/util"
	"github.com/pkg/errors"
)

const EventKeyTwoFactorEmailSend = "admin.twofactor.email.send"

// EmailCodeDispatch delivers a freshly issued one time login code. Delivery
// runs off the login request path so a slow mail server never stalls the
// login response.
type EmailCodeDispatch struct {
	cfg *config.AdminConfig
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		return "*" + t.Elem().String()
	}
	return t.String()
}

func NewEmailCodeDispatchHandler(_ context.Context, cfg *config.AdminConfig) fevents.EventI {
	return &EmailCodeDispatch{cfg: cfg}
}

func (ecd *EmailCodeDispatch) Name() string {
	return EventKeyTwoFactorEmailSend
}

func (ecd *EmailCodeDispatch) PayloadType() any {
	var payloadT map[string]any
	return &payloadT
}

func (ecd *EmailCodeDispatch) Validate(_ context.Context, payload any) error {
	p, ok := payload.(*map[string]any)
	if !ok {
		return errors.New("invalid payload type, expected : " + typeName(payload))
	}

	jsonPayload := data.JSONMap(*p)
	if jsonPayload.GetString("email") == "" {
		return errors.New("email code payload is missing the recipient")
	}
	if jsonPayload.GetString("code") == "" {
		return errors.New("email code payload is missing the code")
	}

	return nil
}

func (ecd *EmailCodeDispatch) Execute(ctx context.Context, payload any) error {
	d, ok := payload.(*map[string]any)
	if !ok {
		return errors.New("invalid payload type, expected " + typeName(payload))
	}

	jsonPayload := data.JSONMap(*d)

	recipient := jsonPayload.GetString("email")
	code := jsonPayload.GetString("code")
	validity := jsonPayload.GetString("validity")

	logger := util.Log(ctx).
		WithField("recipient", recipient).
		WithField("type", ecd.Name())

	if ecd.cfg.EmailSMTPAddress == "" {
		// No mail relay configured. Local and test environments read the
		// code off the log line instead.
		logger.WithField("code", code).Info("no smtp relay configured, logging login code")
		return nil
	}

	message := composeCodeMessage(ecd.cfg.EmailFromAddress, recipient, code, validity)

	err := smtp.SendMail(ecd.cfg.EmailSMTPAddress, nil, ecd.cfg.EmailFromAddress, []string{recipient}, message)
	if err != nil {
		logger.WithError(err).Error("could not deliver login code")
		return errors.WithStack(err)
	}

	logger.Info("login code delivered")
	return nil
}

func composeCodeMessage(from, to, code, validity string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Your admin login code\r\n")
	fmt.Fprintf(&b, "\r\n")
	fmt.Fprintf(&b, "Your login code is %s.\r\n", code)
	if validity != "" {
		fmt.Fprintf(&b, "It expires in %s. If you did not try to sign in, ignore this email.\r\n", validity)
	}
	return []byte(b.String())
}
