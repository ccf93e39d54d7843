package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Command message wrappers so embedding applications can dispatch lifecycle
// operations through their command bus. Each handler guards on context
// cancellation and reports results through the message's OnResponse hook.

type SignupMessage struct {
	Email      string `json:"email" doc:"Account email, unique."`
	Name       string `json:"name" doc:"Display name."`
	Password   string `json:"password" doc:"Plaintext password, hashed before storage."`
	Role       string `json:"role" doc:"Optional role, defaults to USER."`
	UseHashID  bool
	OnResponse func(profile *Profile)
}

func (e SignupMessage) Type() string { return "account.signup" }

type SignupHandler struct {
	Manager *Manager
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during signup")
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	opts := []SignupOption{}
	if event.Role != "" {
		opts = append(opts, WithRole(event.Role))
	}
	if event.UseHashID {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			opts = append(opts, WithAccountID(id))
		}
	}

	profile, err := h.Manager.Signup(ctx, event.Email, event.Name, event.Password, opts...)
	if err != nil {
		return richOrInternal(err, "signup command failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(profile)
	}

	return nil
}

type VerifyEmailMessage struct {
	Token      string `json:"token" doc:"Opaque verification token from the email link."`
	OnResponse func(verified bool)
}

func (e VerifyEmailMessage) Type() string { return "account.verify_email" }

type VerifyEmailHandler struct {
	Manager *Manager
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Manager.VerifyEmail(ctx, event.Token)
	if err != nil {
		return richOrInternal(err, "email verification command failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(true)
	}

	return nil
}

type InitializePasswordResetMessage struct {
	Email      string `json:"email" doc:"Account email."`
	OnResponse func()
}

func (e InitializePasswordResetMessage) Type() string { return "account.password_reset" }

type InitializePasswordResetHandler struct {
	Manager *Manager
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset initialization")
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.Manager.ForgotPassword(ctx, event.Email); err != nil {
		return richOrInternal(err, "password reset initialization failed")
	}

	if event.OnResponse != nil {
		event.OnResponse()
	}

	return nil
}

type FinalizePasswordResetMessage struct {
	Token      string `json:"token" doc:"Opaque reset token from the email link."`
	Password   string `json:"password" doc:"New plaintext password."`
	OnResponse func()
}

func (e FinalizePasswordResetMessage) Type() string { return "account.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	Manager *Manager
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset finalization")
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.Manager.ResetPassword(ctx, event.Token, event.Password); err != nil {
		return richOrInternal(err, "password reset finalization failed")
	}

	if event.OnResponse != nil {
		event.OnResponse()
	}

	return nil
}
