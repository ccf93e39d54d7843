package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("registers the account and reports the profile", func(t *testing.T) {
		f := setupManager(t)
		handler := &accounts.SignupHandler{Manager: f.manager}

		var profile *accounts.Profile
		err := handler.Execute(ctx, accounts.SignupMessage{
			Email:    "cmd@x.com",
			Name:     "Cmd",
			Password: "secret",
			OnResponse: func(p *accounts.Profile) {
				profile = p
			},
		})
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, "cmd@x.com", profile.Email)
		assert.Equal(t, accounts.RoleUser, profile.Role)
	})

	t.Run("hashid produces a deterministic account id", func(t *testing.T) {
		f := setupManager(t)
		handler := &accounts.SignupHandler{Manager: f.manager}

		var profile *accounts.Profile
		err := handler.Execute(ctx, accounts.SignupMessage{
			Email:     "cmd@x.com",
			Name:      "Cmd",
			Password:  "secret",
			UseHashID: true,
			OnResponse: func(p *accounts.Profile) {
				profile = p
			},
		})
		require.NoError(t, err)
		require.NotNil(t, profile)

		want, err := hashid.NewUUID("cmd@x.com")
		require.NoError(t, err)
		assert.Equal(t, want, profile.ID)
	})

	t.Run("admin role passes through", func(t *testing.T) {
		f := setupManager(t)
		handler := &accounts.SignupHandler{Manager: f.manager}

		var profile *accounts.Profile
		err := handler.Execute(ctx, accounts.SignupMessage{
			Email:    "admin@x.com",
			Name:     "Admin",
			Password: "secret",
			Role:     accounts.RoleAdmin,
			OnResponse: func(p *accounts.Profile) {
				profile = p
			},
		})
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, accounts.RoleAdmin, profile.Role)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		f := setupManager(t)
		handler := &accounts.SignupHandler{Manager: f.manager}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := handler.Execute(cancelled, accounts.SignupMessage{
			Email:    "cmd@x.com",
			Name:     "Cmd",
			Password: "secret",
		})
		assert.Error(t, err)
	})
}

func TestPasswordResetHandlers(t *testing.T) {
	ctx := context.Background()

	t.Run("initialize then finalize", func(t *testing.T) {
		f := setupManager(t)
		f.signupVerified(t, "cmd@x.com", "Cmd", "old-secret")

		init := &accounts.InitializePasswordResetHandler{Manager: f.manager}

		var initialized bool
		err := init.Execute(ctx, accounts.InitializePasswordResetMessage{
			Email:      "cmd@x.com",
			OnResponse: func() { initialized = true },
		})
		require.NoError(t, err)
		assert.True(t, initialized)

		token := f.notifier.lastReset(t).Token

		finalize := &accounts.FinalizePasswordResetHandler{Manager: f.manager}

		var finalized bool
		err = finalize.Execute(ctx, accounts.FinalizePasswordResetMessage{
			Token:      token,
			Password:   "new-secret",
			OnResponse: func() { finalized = true },
		})
		require.NoError(t, err)
		assert.True(t, finalized)

		_, err = f.manager.Login(ctx, "cmd@x.com", "new-secret")
		require.NoError(t, err)
	})
}

func TestVerifyEmailHandler(t *testing.T) {
	ctx := context.Background()

	f := setupManager(t)
	f.signup(t, "cmd@x.com", "Cmd", "secret")
	token := f.notifier.lastVerification(t).Token

	handler := &accounts.VerifyEmailHandler{Manager: f.manager}

	var verified bool
	err := handler.Execute(ctx, accounts.VerifyEmailMessage{
		Token:      token,
		OnResponse: func(ok bool) { verified = ok },
	})
	require.NoError(t, err)
	assert.True(t, verified)

	stored, err := f.repo.Accounts().GetByEmail(ctx, "cmd@x.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.EmailVerifiedAt)
}
