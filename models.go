package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the account's global role
type Role = string

const (
	// RoleAdmin can manage other accounts
	RoleAdmin Role = "ADMIN"
	// RoleUser is the default role for new accounts
	RoleUser Role = "USER"
)

// Account is the persisted credential record. Verification and reset token
// pairs are either both set or both NULL; RefreshToken holds at most one
// live session token per account.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:act"`

	ID                       uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email                    string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name                     string     `bun:"name,notnull" json:"name,omitempty"`
	PasswordHash             string     `bun:"password_hash,nullzero" json:"-"`
	Role                     Role       `bun:"role,notnull" json:"role,omitempty"`
	RefreshToken             string     `bun:"refresh_token,nullzero" json:"-"`
	EmailVerifiedAt          *time.Time `bun:"email_verified_at,nullzero" json:"email_verified_at,omitempty"`
	EmailVerificationToken   string     `bun:"email_verification_token,nullzero" json:"-"`
	EmailVerificationExpires *time.Time `bun:"email_verification_expires,nullzero" json:"-"`
	PasswordResetToken       string     `bun:"password_reset_token,nullzero" json:"-"`
	PasswordResetExpires     *time.Time `bun:"password_reset_expires,nullzero" json:"-"`
	CreatedAt                *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt                *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Verified reports whether the account completed email verification
func (a *Account) Verified() bool {
	return a.EmailVerifiedAt != nil
}

// Profile returns the safe projection of the account, no secrets
func (a *Account) Profile() *Profile {
	if a == nil {
		return nil
	}
	return &Profile{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
		Role:  a.Role,
	}
}

// Profile is the caller facing projection of an Account
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`
}

// LoginResult is returned by Login and Refresh
type LoginResult struct {
	Account      *Profile `json:"account"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}
