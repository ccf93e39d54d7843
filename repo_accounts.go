package accounts

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Token consuming statements are single conditional updates so that two
// callers racing to consume the same single-use token cannot both succeed:
// exactly one UPDATE matches, the loser sees no row.
var ConsumeVerificationTokenSQL = `UPDATE "accounts" AS "act"
SET
	"email_verified_at" = ?,
	"email_verification_token" = NULL,
	"email_verification_expires" = NULL,
	"updated_at" = ?
WHERE
	"act"."email_verification_token" = ?
AND "act"."email_verification_expires" > ?
AND "act"."email_verified_at" IS NULL
RETURNING *;`

var ConsumePasswordResetTokenSQL = `UPDATE "accounts" AS "act"
SET
	"password_hash" = ?,
	"password_reset_token" = NULL,
	"password_reset_expires" = NULL,
	"updated_at" = ?
WHERE
	"act"."password_reset_token" = ?
AND "act"."password_reset_expires" > ?
RETURNING *;`

// RotateRefreshTokenSQL matches on id AND the presented token, so a rotated
// away token is rejected even while cryptographically valid.
var RotateRefreshTokenSQL = `UPDATE "accounts" AS "act"
SET
	"refresh_token" = ?,
	"updated_at" = ?
WHERE
	"act"."id" = ?
AND "act"."refresh_token" = ?
RETURNING *;`

var SweepExpiredVerificationTokensSQL = `UPDATE "accounts" AS "act"
SET
	"email_verification_token" = NULL,
	"email_verification_expires" = NULL,
	"updated_at" = ?
WHERE
	"act"."email_verification_expires" < ?
AND "act"."email_verified_at" IS NULL;`

type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetByRefreshToken(ctx context.Context, token string) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)

	SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*Account, error)
	SweepExpiredVerificationTokens(ctx context.Context, now time.Time) error

	SetPasswordResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error
	ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error
	ConsumePasswordResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*Account, error)

	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) (*Account, error)
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

type accountsRepo struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Accounts                        = (*accountsRepo)(nil)
	_ repository.Repository[*Account] = (*accountsRepo)(nil)
)

// AccountsOption configures the accounts repository
type AccountsOption func(*accountsRepo)

// WithAccountsClock overrides the time source used for updated_at stamps,
// mostly for tests
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *accountsRepo) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	r := &accountsRepo{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (a *accountsRepo) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accountsRepo) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) GetByRefreshToken(ctx context.Context, token string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.refresh_token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accountsRepo) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	prepareAccountDefaults(account)
	return a.Repository.CreateTx(ctx, tx, account)
}

func (a *accountsRepo) SetVerificationToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("email_verification_token = ?", token).
		Set("email_verification_expires = ?", expires.UTC()).
		Set("updated_at = ?", a.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffectedRow(res, id)
}

func (a *accountsRepo) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, a.db, ConsumeVerificationTokenSQL,
		now.UTC(), now.UTC(), token, now.UTC())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func (a *accountsRepo) SweepExpiredVerificationTokens(ctx context.Context, now time.Time) error {
	_, err := a.db.NewRaw(SweepExpiredVerificationTokensSQL, now.UTC(), now.UTC()).Exec(ctx)
	return err
}

func (a *accountsRepo) SetPasswordResetToken(ctx context.Context, id uuid.UUID, token string, expires time.Time) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("password_reset_token = ?", token).
		Set("password_reset_expires = ?", expires.UTC()).
		Set("updated_at = ?", a.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffectedRow(res, id)
}

func (a *accountsRepo) ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error {
	// NOTE: clearing through the ORM update wont NULL nullzero fields,
	// same as the users repo in go-auth, so we go raw.
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "act"
		SET
			"password_reset_token" = NULL,
			"password_reset_expires" = NULL,
			"updated_at" = ?
		WHERE ("act"."id" = ?);
	`, a.now().UTC(), id).Exec(ctx)

	return err
}

func (a *accountsRepo) ConsumePasswordResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, a.db, ConsumePasswordResetTokenSQL,
		passwordHash, now.UTC(), token, now.UTC())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func (a *accountsRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("refresh_token = ?", token).
		Set("updated_at = ?", a.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	return requireAffectedRow(res, id)
}

func (a *accountsRepo) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, a.db, RotateRefreshTokenSQL,
		newToken, a.now().UTC(), id.String(), oldToken)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *accountsRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	// Unconditional so logout stays idempotent, a no-op when already NULL
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "act"
		SET
			"refresh_token" = NULL,
			"updated_at" = ?
		WHERE ("act"."id" = ?);
	`, a.now().UTC(), id).Exec(ctx)

	return err
}

func prepareAccountDefaults(account *Account) {
	if account == nil {
		return
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Role == "" {
		account.Role = RoleUser
	}
}

func requireAffectedRow(res sql.Result, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}
