package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	// a fresh connection would get a fresh in-memory database
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.NewCreateTable().
		Model((*accounts.Account)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

// testClock is a mutable time source for expiry tests
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentEmail struct {
	Email string
	Name  string
	Token string
}

// capturingNotifier records outbound notifications and can be primed to fail
type capturingNotifier struct {
	mu            sync.Mutex
	verifications []sentEmail
	resets        []sentEmail
	failWith      error
}

func (n *capturingNotifier) SendVerificationEmail(_ context.Context, email, name, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.verifications = append(n.verifications, sentEmail{Email: email, Name: name, Token: token})
	return nil
}

func (n *capturingNotifier) SendPasswordResetEmail(_ context.Context, email, name, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.resets = append(n.resets, sentEmail{Email: email, Name: name, Token: token})
	return nil
}

func (n *capturingNotifier) lastVerification(t *testing.T) sentEmail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.verifications)
	return n.verifications[len(n.verifications)-1]
}

func (n *capturingNotifier) lastReset(t *testing.T) sentEmail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.resets)
	return n.resets[len(n.resets)-1]
}
