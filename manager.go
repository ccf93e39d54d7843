package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Token lifetimes for the store checked opaque tokens
const (
	DefaultVerificationTTL  = 24 * time.Hour
	DefaultPasswordResetTTL = time.Hour
)

// Manager orchestrates the account lifecycle: signup, email verification,
// login, refresh rotation, logout, and the password reset flows. All state
// lives in the credential store; the manager sequences reads and writes
// gated by token validity and never retries internally.
type Manager struct {
	repo            RepositoryManager
	tokens          TokenService
	notifier        Notifier
	logger          Logger
	now             func() time.Time
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// NewManager creates a Manager with the default notifier and logger
func NewManager(repo RepositoryManager, tokens TokenService) *Manager {
	return &Manager{
		repo:            repo,
		tokens:          tokens,
		notifier:        LogNotifier{},
		logger:          defLogger{},
		now:             time.Now,
		verificationTTL: DefaultVerificationTTL,
		resetTTL:        DefaultPasswordResetTTL,
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	m.logger = logger
	return m
}

// WithNotifier sets the outbound mail port
func (m *Manager) WithNotifier(notifier Notifier) *Manager {
	m.notifier = notifier
	return m
}

// WithClock overrides the time source, mostly for tests
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// WithVerificationTTL overrides the email verification token lifetime
func (m *Manager) WithVerificationTTL(ttl time.Duration) *Manager {
	m.verificationTTL = ttl
	return m
}

// WithPasswordResetTTL overrides the reset token lifetime
func (m *Manager) WithPasswordResetTTL(ttl time.Duration) *Manager {
	m.resetTTL = ttl
	return m
}

// SignupOption mutates the account record before it is persisted
type SignupOption func(*Account)

// WithAccountID assigns an explicit id instead of a generated one
func WithAccountID(id uuid.UUID) SignupOption {
	return func(a *Account) {
		a.ID = id
	}
}

// WithRole assigns a role other than the default USER
func WithRole(role Role) SignupOption {
	return func(a *Account) {
		a.Role = role
	}
}

// Signup registers a new unverified account, mints its verification token,
// and sends the verification email. Returns the safe projection.
func (m *Manager) Signup(ctx context.Context, email, name, password string, opts ...SignupOption) (*Profile, error) {
	if err := validateSignupInput(email, name, password); err != nil {
		return nil, invalidInput(err, "invalid signup input")
	}

	var account *Account
	var token string

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := m.repo.Accounts().GetByEmailTx(ctx, tx, email)
		if err == nil {
			return ErrEmailTaken
		}
		if !repository.IsRecordNotFound(err) {
			return wrapInternal(err, "failed to look up account by email")
		}

		hash, err := HashPassword(password)
		if err != nil {
			return wrapInternal(err, "failed to hash password")
		}

		if token, err = m.tokens.MintOpaqueToken(); err != nil {
			return wrapInternal(err, "failed to mint verification token")
		}

		expires := m.now().Add(m.verificationTTL)
		account = &Account{
			Email:                    email,
			Name:                     name,
			PasswordHash:             hash,
			EmailVerificationToken:   token,
			EmailVerificationExpires: &expires,
		}
		for _, opt := range opts {
			if opt != nil {
				opt(account)
			}
		}

		if account, err = m.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, ErrEmailTaken.Category, ErrEmailTaken.Message).
				WithTextCode(ErrEmailTaken.TextCode)
		}

		return nil
	})

	if err != nil {
		return nil, richOrInternal(err, "signup failed")
	}

	// Fire and forget: a lost email is recoverable via resend
	if err := m.notifier.SendVerificationEmail(ctx, account.Email, account.Name, token); err != nil {
		m.logger.Error("failed to send verification email", "email", account.Email, "error", err)
	}

	return account.Profile(), nil
}

// VerifyEmail consumes a verification token. Not-found, expired, and
// already-consumed tokens all surface as ErrInvalidToken so callers cannot
// probe which of the three happened.
func (m *Manager) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	_, err := m.repo.Accounts().ConsumeVerificationToken(ctx, token, m.now())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidToken
		}
		return wrapInternal(err, "failed to consume verification token")
	}

	return nil
}

// ResendVerification mints a fresh verification token for an unverified
// account, replacing any prior one. Expired tokens across all accounts are
// swept first; cleanup is lazy, there is no background job.
func (m *Manager) ResendVerification(ctx context.Context, email string) error {
	if err := m.repo.Accounts().SweepExpiredVerificationTokens(ctx, m.now()); err != nil {
		return wrapInternal(err, "failed to sweep expired verification tokens")
	}

	account, err := m.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return wrapInternal(err, "failed to look up account by email")
	}

	if account.Verified() {
		return ErrAlreadyVerified
	}

	token, err := m.tokens.MintOpaqueToken()
	if err != nil {
		return wrapInternal(err, "failed to mint verification token")
	}

	expires := m.now().Add(m.verificationTTL)
	if err := m.repo.Accounts().SetVerificationToken(ctx, account.ID, token, expires); err != nil {
		return wrapInternal(err, "failed to store verification token")
	}

	if err := m.notifier.SendVerificationEmail(ctx, account.Email, account.Name, token); err != nil {
		m.logger.Error("failed to send verification email", "email", account.Email, "error", err)
	}

	return nil
}

// Login verifies credentials and opens a session by minting an access and
// refresh token pair. The stored refresh token is overwritten: one live
// session per account.
func (m *Manager) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := m.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// Same failure as a password mismatch, no account enumeration
			return nil, ErrInvalidCredentials
		}
		return nil, wrapInternal(err, "failed to look up account by email")
	}

	if account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if !account.Verified() {
		return nil, ErrEmailNotVerified
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := m.tokens.MintAccessToken(account.ID.String(), account.Role)
	if err != nil {
		return nil, wrapInternal(err, "failed to mint access token")
	}

	refreshToken, err := m.tokens.MintRefreshToken(account.ID.String())
	if err != nil {
		return nil, wrapInternal(err, "failed to mint refresh token")
	}

	if err := m.repo.Accounts().SetRefreshToken(ctx, account.ID, refreshToken); err != nil {
		return nil, wrapInternal(err, "failed to store refresh token")
	}

	return &LoginResult{
		Account:      account.Profile(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh rotates a refresh token. The store update matches on id AND the
// presented token, so a stale token that was rotated away is rejected even
// though its signature still checks out. Two racing refreshes resolve
// last-write-wins: both may get tokens, only the persisted one survives.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	claims, err := m.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		m.logger.Debug("refresh token failed validation", "error", err)
		return nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.AccountID())
	if err != nil {
		return nil, ErrInvalidToken
	}

	newRefreshToken, err := m.tokens.MintRefreshToken(claims.AccountID())
	if err != nil {
		return nil, wrapInternal(err, "failed to mint refresh token")
	}

	account, err := m.repo.Accounts().RotateRefreshToken(ctx, id, refreshToken, newRefreshToken)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, wrapInternal(err, "failed to rotate refresh token")
	}

	accessToken, err := m.tokens.MintAccessToken(account.ID.String(), account.Role)
	if err != nil {
		return nil, wrapInternal(err, "failed to mint access token")
	}

	return &LoginResult{
		Account:      account.Profile(),
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

// Logout clears the stored refresh token. Idempotent: logging out an
// account with no session is a no-op.
func (m *Manager) Logout(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrInvalidInput
	}

	id, err := uuid.Parse(accountID)
	if err != nil {
		return invalidInput(err, "account id must be a valid uuid")
	}

	if err := m.repo.Accounts().ClearRefreshToken(ctx, id); err != nil {
		return wrapInternal(err, "failed to clear refresh token")
	}

	return nil
}

// ForgotPassword mints a reset token and emails it. The send is awaited
// here: if it fails we clear the token again rather than leave a reset
// token outstanding for an email that never went out.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	account, err := m.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return wrapInternal(err, "failed to look up account by email")
	}

	token, err := m.tokens.MintOpaqueToken()
	if err != nil {
		return wrapInternal(err, "failed to mint reset token")
	}

	expires := m.now().Add(m.resetTTL)
	if err := m.repo.Accounts().SetPasswordResetToken(ctx, account.ID, token, expires); err != nil {
		return wrapInternal(err, "failed to store reset token")
	}

	if err := m.notifier.SendPasswordResetEmail(ctx, account.Email, account.Name, token); err != nil {
		if cerr := m.repo.Accounts().ClearPasswordResetToken(ctx, account.ID); cerr != nil {
			m.logger.Error("failed to clear reset token after send failure", "id", account.ID, "error", cerr)
		}
		return err
	}

	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
// An existing refresh token is left untouched: resetting the password does
// not end the active session. Known gap, kept deliberately.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return ErrInvalidToken
	}

	if err := validation.Validate(newPassword, validation.Required); err != nil {
		return invalidInput(err, "new password is required")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return wrapInternal(err, "failed to hash password")
	}

	_, err = m.repo.Accounts().ConsumePasswordResetToken(ctx, token, hash, m.now())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidToken
		}
		return wrapInternal(err, "failed to consume reset token")
	}

	return nil
}

func validateSignupInput(email, name, password string) error {
	return validation.Errors{
		"email":    validation.Validate(email, validation.Required, is.Email),
		"name":     validation.Validate(name, validation.Required),
		"password": validation.Validate(password, validation.Required),
	}.Filter()
}

// richOrInternal surfaces structured errors as-is and hides anything else
func richOrInternal(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return wrapInternal(err, msg)
}
